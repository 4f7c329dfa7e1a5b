package controller

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/icomwland/icomwland/pkg/codec"
	"github.com/icomwland/icomwland/pkg/session"
	"github.com/icomwland/icomwland/pkg/transport"
)

// connectAttempt holds the state of one in-flight connect() call. Only one
// can exist at a time; it is created when phase leaves IDLE/RECONNECTING
// and destroyed when the attempt resolves (success, failure, or abort).
type connectAttempt struct {
	sessionID uint64
	waiters   []chan error

	overallTimer *time.Timer
	bringupTimer *time.Timer

	loggedIn    bool
	gotConnInfo bool
	gotStatus   bool
	civReady    bool
	audioReady  bool

	done bool
}

// Connect is idempotent: a call while CONNECTED returns immediately: a call
// while CONNECTING/RECONNECTING waits for that attempt's outcome; a call
// while DISCONNECTING fails; only from IDLE does it start a new attempt.
func (c *Controller) Connect(ctx context.Context) error {
	result := make(chan error, 1)
	c.enqueue(func() { c.beginConnect(result) })
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return fmt.Errorf("controller: shut down")
	}
}

func (c *Controller) beginConnect(result chan error) {
	switch c.phase {
	case PhaseConnected:
		result <- nil
		return
	case PhaseConnecting, PhaseReconnecting:
		c.attempt.waiters = append(c.attempt.waiters, result)
		return
	case PhaseDisconnecting:
		result <- fmt.Errorf("controller: cannot connect while disconnecting")
		return
	}

	c.transition(PhaseConnecting)
	c.startAttempt([]chan error{result})
}

// startAttempt begins the steps-1-through-8 bring-up sequence described in
// spec §4.7. The caller is responsible for phase already being CONNECTING
// or RECONNECTING: a plain Connect() call transitions IDLE->CONNECTING
// first; the reconnect loop instead stays in RECONNECTING across every
// attempt it drives, only leaving that phase on final success or give-up.
func (c *Controller) startAttempt(waiters []chan error) *connectAttempt {
	c.sessionID++
	attempt := &connectAttempt{sessionID: c.sessionID, waiters: waiters}
	c.attempt = attempt
	c.startedAt = time.Now()

	c.abort.register(attempt.sessionID, func(reason string) {
		c.failAttempt(attempt, &ConnectionAborted{Reason: reason, SessionID: attempt.sessionID, Phase: c.phase})
	})

	attempt.overallTimer = afterFunc(overallConnectTimeout, c.enqueue, func() {
		c.failAttempt(attempt, fmt.Errorf("controller: connect attempt %d timed out after %s", attempt.sessionID, overallConnectTimeout))
	})

	if err := c.openControlSession(); err != nil {
		c.failAttempt(attempt, err)
		return attempt
	}

	c.civSess.ResetState()
	c.audioSess.ResetState()
	c.control.StartAreYouThere()
	return attempt
}

func (c *Controller) openControlSession() error {
	addr, err := controlAddr(c.target)
	if err != nil {
		return fmt.Errorf("controller: bad control target: %w", err)
	}
	if c.controlEP != nil {
		c.controlEP.Close()
	}
	ep, err := transport.Listen(0)
	if err != nil {
		return fmt.Errorf("controller: failed to open control socket: %w", err)
	}
	c.controlEP = ep
	c.control = session.New("control", ep, c.enqueue)
	c.control.SetErrorHandler(c.publishError)
	c.control.SetRemote(addr)
	go c.controlEP.Serve(c.onControlDatagram)
	return nil
}

// onIAmHere is step 2: record remote_id, stop AYT, start ping, send
// ARE_YOU_READY.
func (c *Controller) onIAmHere(hdr codec.ControlHeader) {
	if c.attempt == nil {
		return
	}
	c.control.SetRemoteID(hdr.SentID)
	c.control.StopAreYouThere()
	c.control.StartPing()
	pkt := codec.BuildControl(codec.TypeAreYouReady, 0, c.control.LocalID(), c.control.RemoteID())
	if err := c.control.SendTracked(pkt); err != nil {
		c.failAttempt(c.attempt, err)
	}
}

// onIAmReady is step 3: send tracked (inner-sequenced) Login, start idle.
func (c *Controller) onIAmReady(hdr codec.ControlHeader) {
	if c.attempt == nil || c.attempt.loggedIn {
		return
	}
	pkt := codec.BuildLogin(0, c.control.LocalID(), c.control.RemoteID(), c.target.Username, c.target.Password, c.target.ClientName)
	if err := c.control.SendInnerTracked(pkt); err != nil {
		c.failAttempt(c.attempt, err)
		return
	}
	c.control.StartIdle()
}

// onLoginResponse is step 4.
func (c *Controller) onLoginResponse(pkt codec.LoginResponsePacket) {
	attempt := c.attempt
	if attempt == nil || attempt.loggedIn {
		return
	}
	if pkt.Error != 0 {
		publish(c.events.Login, LoginEvent{OK: false, ErrorCode: pkt.Error}, c.dropped, "login")
		c.failAttempt(attempt, fmt.Errorf("controller: login rejected, error_code=%d", pkt.Error))
		return
	}
	attempt.loggedIn = true
	publish(c.events.Login, LoginEvent{OK: true, ConnectionString: pkt.ConnectionString}, c.dropped, "login")

	// See DESIGN.md's rig_token open-question resolution: LoginResponse
	// names only one 16-bit Token field, so it seeds both local_token and
	// the widened rig_token until a TokenRenewal response (if any) updates
	// them from its own fields.
	c.control.SetTokens(pkt.Token, uint32(pkt.Token))

	confirm := codec.BuildToken(0, c.control.LocalID(), c.control.RemoteID(), c.control.LocalToken(), 0, codec.TokenRequestConfirm, 0)
	if err := c.control.SendInnerTracked(confirm); err != nil {
		c.failAttempt(attempt, err)
		return
	}

	c.renewal = startTicker(tokenRenewalInterval, c.enqueue, c.sendTokenRenewal)

	attempt.bringupTimer = afterFunc(subSessionBringupTimeout, c.enqueue, func() {
		c.failAttempt(attempt, fmt.Errorf("controller: civ/audio sub-session bring-up timed out after %s", subSessionBringupTimeout))
	})
}

func (c *Controller) sendTokenRenewal() {
	if c.phase != PhaseConnected && c.attempt == nil {
		return
	}
	pkt := codec.BuildToken(0, c.control.LocalID(), c.control.RemoteID(), c.control.LocalToken(), 0, codec.TokenRequestRenewal, 0)
	_ = c.control.SendInnerTracked(pkt)
}

// onTokenResponse handles step-4's renewal-rejection re-establishment flow
// from §4.7's state-transition failure semantics.
func (c *Controller) onTokenResponse(pkt codec.TokenPacket, hdr codec.ControlHeader) {
	if pkt.RequestType != codec.TokenRequestRenewal || pkt.Response != codec.TokenRenewalRejected {
		return
	}
	c.control.SetRemoteID(hdr.SentID)
	c.control.SetTokens(pkt.LocalToken, uint32(pkt.LocalToken))
	c.resendConnInfo()
}

func (c *Controller) resendConnInfo() {
	if c.lastConnInfoRigName == "" {
		return
	}
	pkt := codec.BuildConnInfo(0, c.control.LocalID(), c.control.RemoteID(), c.lastConnInfoRigName,
		uint16(c.civSess.LocalPort()), uint16(c.audioSess.LocalPort()), c.target.Username)
	_ = c.control.SendInnerTracked(pkt)
}

// onConnInfo is step 5: reply with our own ConnInfo reporting the
// already-bound sub-socket local ports.
func (c *Controller) onConnInfo(pkt codec.ConnInfoPacket) {
	attempt := c.attempt
	if attempt == nil {
		return
	}
	c.lastConnInfoRigName = pkt.RigName
	reply := codec.BuildConnInfo(0, c.control.LocalID(), c.control.RemoteID(), pkt.RigName,
		uint16(c.civSess.LocalPort()), uint16(c.audioSess.LocalPort()), c.target.Username)
	if err := c.control.SendInnerTracked(reply); err != nil {
		c.failAttempt(attempt, err)
		return
	}
	attempt.gotConnInfo = true
}

// onValidStatus is the non-ignored half of step 6: program the CI-V/Audio
// remote ports from the radio's dynamic assignment and start each
// sub-session's own AYT handshake (step 7).
func (c *Controller) onValidStatus(pkt codec.StatusPacket) {
	host := c.target.Host
	c.civSess.SetRemote(&net.UDPAddr{IP: net.ParseIP(host), Port: int(pkt.CivPort)})
	c.audioSess.SetRemote(&net.UDPAddr{IP: net.ParseIP(host), Port: int(pkt.AudioPort)})
	c.civSess.StartAreYouThere()
	c.audioSess.StartAreYouThere()
	if attempt := c.attempt; attempt != nil {
		attempt.gotStatus = true
	}
}

func (c *Controller) sessionFor(kind subsessionKind) *session.Session {
	if kind == kindCiv {
		return c.civSess
	}
	return c.audioSess
}

// onSubsessionIAmHere/onSubsessionIAmReady drive step 7 for whichever of
// civSess/audioSess hdr arrived on.
func (c *Controller) onSubsessionIAmHere(sess subsessionKind, hdr codec.ControlHeader) {
	s := c.sessionFor(sess)
	s.SetRemoteID(hdr.SentID)
	s.StopAreYouThere()
	pkt := codec.BuildControl(codec.TypeAreYouReady, 0, s.LocalID(), s.RemoteID())
	_ = s.SendTracked(pkt)
}

func (c *Controller) onSubsessionIAmReady(sess subsessionKind) {
	switch sess {
	case kindCiv:
		if c.attempt == nil || c.attempt.civReady {
			return
		}
		c.attempt.civReady = true
		_ = c.civSub.Open()
		c.civSess.StartIdle()
		c.civSub.StartWatchdog()
	case kindAudio:
		if c.attempt == nil || c.attempt.audioReady {
			return
		}
		c.attempt.audioReady = true
		c.audioSub.Start()
		c.audioSess.StartIdle()
	}
	c.maybeFinishConnect()
}

func (c *Controller) maybeFinishConnect() {
	attempt := c.attempt
	if attempt == nil || !attempt.civReady || !attempt.audioReady {
		return
	}
	c.finishConnect(attempt)
}

func (c *Controller) finishConnect(attempt *connectAttempt) {
	if attempt.done {
		return
	}
	attempt.done = true
	stopTimer(attempt.overallTimer)
	stopTimer(attempt.bringupTimer)
	c.abort.unregister(attempt.sessionID)
	if c.phase == PhaseConnecting || c.phase == PhaseReconnecting {
		c.transition(PhaseConnected)
	}
	c.reconnectN = 0
	c.attempt = nil
	for _, w := range attempt.waiters {
		w <- nil
	}
}

// failAttempt ends attempt unsuccessfully. A plain Connect() failure (phase
// CONNECTING) returns to IDLE immediately. A reconnect-loop attempt (phase
// RECONNECTING) leaves the phase untouched — per the legal-transition
// table RECONNECTING can only be entered from CONNECTED, so the reconnect
// loop itself (not this function) decides whether to retry within the same
// RECONNECTING phase or finally give up to IDLE.
func (c *Controller) failAttempt(attempt *connectAttempt, err error) {
	if attempt == nil || attempt.done {
		return
	}
	attempt.done = true
	stopTimer(attempt.overallTimer)
	stopTimer(attempt.bringupTimer)
	c.abort.unregister(attempt.sessionID)
	if c.attempt == attempt {
		c.attempt = nil
	}
	if c.phase == PhaseConnecting {
		c.transition(PhaseIdle)
	}
	for _, w := range attempt.waiters {
		w <- err
	}
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

type subsessionKind int

const (
	kindCiv subsessionKind = iota
	kindAudio
)
