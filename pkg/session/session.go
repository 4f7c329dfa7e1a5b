// Package session implements one UDP session of the Icom WLAN protocol:
// identifiers, tracked-sequence numbering, retransmission history, and the
// AYT/Ping/Idle keep-alive timers. A Session owns exactly one transport
// endpoint and never talks to the other two sessions directly — the
// Controller coordinates them.
package session

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/icomwland/icomwland/pkg/codec"
	"github.com/icomwland/icomwland/pkg/transport"
)

const (
	initialTrackedSeq = 1
	initialInnerSeq   = 0x30

	aytInterval  = 500 * time.Millisecond
	pingInterval = 500 * time.Millisecond
	idleInterval = 100 * time.Millisecond
	idleMinGap   = 200 * time.Millisecond
)

// Session is the per-endpoint state machine described by the session
// identity fields, plus the timers that keep it alive. All mutating methods
// are expected to run on the owning Controller's single command-channel
// executor; the ticker goroutines started by StartAreYouThere/StartPing/
// StartIdle never touch Session fields directly, only enqueue a closure
// that does, preserving the single-logical-executor model despite Go's
// preemptive scheduler.
type Session struct {
	Name string

	ep      *transport.Endpoint
	enqueue func(func())

	mu         sync.Mutex // guards remoteAddr only, read from Serve's goroutine
	remoteAddr *net.UDPAddr

	localID    uint32
	remoteID   uint32
	localToken uint16
	rigToken   uint32
	trackedSeq uint16
	pingSeq    uint16
	innerSeq   uint16

	txHistory map[uint16][]byte

	lastSentAt     time.Time
	lastReceivedAt time.Time
	sendEnabled    bool

	onError func(error)

	ayt  *ticker
	ping *ticker
	idle *ticker
}

// New creates a Session bound to ep. enqueue is the owning Controller's
// command-channel submit function: every timer fire is delivered through
// it rather than acting on Session state from the ticker's own goroutine.
func New(name string, ep *transport.Endpoint, enqueue func(func())) *Session {
	s := &Session{Name: name, ep: ep, enqueue: enqueue}
	s.ResetState()
	return s
}

// SetErrorHandler registers fn to be called, on the same goroutine as the
// failing send, whenever sendRaw returns an error. The Controller wires this
// to publish an ErrorEvent; nothing is called if fn is nil.
func (s *Session) SetErrorHandler(fn func(error)) {
	s.onError = fn
}

// SetRemote records the UDP address packets should be sent to. CI-V and
// Audio learn this from Status; Control's is configured by the caller.
func (s *Session) SetRemote(addr *net.UDPAddr) {
	s.mu.Lock()
	s.remoteAddr = addr
	s.mu.Unlock()
}

func (s *Session) remote() *net.UDPAddr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remoteAddr
}

// LocalID returns this session's local identifier, chosen at the most
// recent ResetState.
func (s *Session) LocalID() uint32 { return s.localID }

// RemoteID returns the identifier learned from the session's I_AM_HERE.
func (s *Session) RemoteID() uint32 { return s.remoteID }

// SetRemoteID records the remote identifier learned from I_AM_HERE.
func (s *Session) SetRemoteID(id uint32) { s.remoteID = id }

// SetTokens records the local/rig tokens learned during login.
func (s *Session) SetTokens(localToken uint16, rigToken uint32) {
	s.localToken = localToken
	s.rigToken = rigToken
}

// LocalToken and RigToken expose the tokens recorded by SetTokens.
func (s *Session) LocalToken() uint16 { return s.localToken }
func (s *Session) RigToken() uint32   { return s.rigToken }

// LastReceivedAt reports the last time Touch was called.
func (s *Session) LastReceivedAt() time.Time { return s.lastReceivedAt }

// Touch records that a packet was just received on this session, for the
// health monitor and the CI-V watchdog.
func (s *Session) Touch() { s.lastReceivedAt = time.Now() }

// LocalPort returns the transport endpoint's bound local port.
func (s *Session) LocalPort() int { return s.ep.LocalPort() }

// ResetState stops all timers and reinitializes every mutable field. This
// must run before any (re)connect attempt: the radio binds session
// liveness to the (local_id, tokens) tuple, so a reconnect must never reuse
// stale identifiers.
func (s *Session) ResetState() {
	s.stopTimers()
	s.localID = uint32(time.Now().UnixNano())
	s.remoteID = 0
	s.localToken = 0
	s.rigToken = 0
	s.trackedSeq = initialTrackedSeq
	s.pingSeq = 0
	s.innerSeq = initialInnerSeq
	s.txHistory = make(map[uint16][]byte)
	s.lastSentAt = time.Time{}
	s.lastReceivedAt = time.Time{}
	s.sendEnabled = true
}

// SendTracked stamps packet's seq field with the next tracked_seq, records
// the exact sent bytes in tx_history, and sends. The stamp happens after
// the caller's template is built but before the bytes enter tx_history, so
// a later Retransmit resends exactly what the radio saw.
func (s *Session) SendTracked(packet []byte) error {
	seq := s.trackedSeq
	s.trackedSeq++
	return s.sendTrackedAs(packet, seq)
}

// SendInnerTracked is SendTracked's counterpart for Token/Login/ConnInfo
// payloads, which the radio's session tracking treats as a distinct
// sequence space from ordinary tracked packets (see DESIGN.md's resolution
// of the inner_seq open question). Retransmit does not care which counter
// produced a seq, only that tx_history has it, so both share one map.
func (s *Session) SendInnerTracked(packet []byte) error {
	seq := s.innerSeq
	s.innerSeq++
	return s.sendTrackedAs(packet, seq)
}

func (s *Session) sendTrackedAs(packet []byte, seq uint16) error {
	codec.StampSeq(packet, seq)
	stored := make([]byte, len(packet))
	copy(stored, packet)
	s.txHistory[seq] = stored
	return s.sendRaw(packet)
}

// SendUntracked sends packet as-is, with no tx_history bookkeeping.
func (s *Session) SendUntracked(packet []byte) error {
	return s.sendRaw(packet)
}

// Retransmit resends the exact bytes tx_history recorded for seq. If
// tx_history has no entry (e.g. after a reset) it sends a NULL control
// packet carrying that seq instead, which still satisfies the radio's
// retransmit request.
func (s *Session) Retransmit(seq uint16) error {
	if b, ok := s.txHistory[seq]; ok {
		return s.sendRaw(b)
	}
	return s.sendRaw(codec.BuildControl(codec.TypeNull, seq, s.localID, s.remoteID))
}

func (s *Session) sendRaw(packet []byte) error {
	if !s.sendEnabled {
		err := fmt.Errorf("session %s: send after close", s.Name)
		s.reportError(err)
		return err
	}
	addr := s.remote()
	if addr == nil {
		err := fmt.Errorf("session %s: no remote address set", s.Name)
		s.reportError(err)
		return err
	}
	if err := s.ep.SendTo(packet, addr); err != nil {
		s.reportError(err)
		return err
	}
	s.lastSentAt = time.Now()
	return nil
}

func (s *Session) reportError(err error) {
	if s.onError != nil {
		s.onError(err)
	}
}

// Disable stops further sends (used during teardown, before the socket is
// actually closed).
func (s *Session) Disable() {
	s.sendEnabled = false
}

// StartAreYouThere begins sending ARE_YOU_THERE every 500ms until
// StopAreYouThere is called (normally on receiving I_AM_HERE).
func (s *Session) StartAreYouThere() {
	s.ayt = startTicker(aytInterval, s.enqueue, func() {
		pkt := codec.BuildControl(codec.TypeAreYouThere, 0, s.localID, 0)
		_ = s.sendRaw(pkt)
	})
}

// StopAreYouThere halts the ARE_YOU_THERE timer.
func (s *Session) StopAreYouThere() {
	if s.ayt != nil {
		s.ayt.Stop()
		s.ayt = nil
	}
}

// pingClockBase is the reference point for ping timestamps; time.Since
// measures from it on the monotonic clock.
var pingClockBase = time.Now()

// StartPing begins sending ping requests every 500ms, each carrying the
// current ping_seq and a timestamp taken from the low 32 bits of the
// monotonic clock (nanoseconds since pingClockBase).
func (s *Session) StartPing() {
	s.ping = startTicker(pingInterval, s.enqueue, func() {
		ts := uint32(time.Since(pingClockBase))
		pkt := codec.BuildPing(false, s.pingSeq, s.localID, s.remoteID, ts)
		_ = s.sendRaw(pkt)
	})
}

// StopPing halts the ping timer.
func (s *Session) StopPing() {
	if s.ping != nil {
		s.ping.Stop()
		s.ping = nil
	}
}

// ReplyToPing answers an inbound ping request with a reply echoing its
// timestamp byte-for-byte.
func (s *Session) ReplyToPing(req codec.PingPacket) error {
	reply := codec.BuildPing(true, s.pingSeq, s.localID, s.remoteID, req.Timestamp)
	return s.sendRaw(reply)
}

// AdvancePingSeq moves the ping sequence forward on receipt of our own
// ping reply.
func (s *Session) AdvancePingSeq() { s.pingSeq++ }

// StartIdle begins a 100ms timer that sends a tracked NULL control packet
// whenever the last send was more than 200ms ago, keeping the session from
// going quiet during otherwise-idle periods.
func (s *Session) StartIdle() {
	s.idle = startTicker(idleInterval, s.enqueue, func() {
		if time.Since(s.lastSentAt) <= idleMinGap {
			return
		}
		_ = s.SendTracked(codec.BuildControl(codec.TypeNull, 0, s.localID, s.remoteID))
	})
}

// StopIdle halts the idle timer.
func (s *Session) StopIdle() {
	if s.idle != nil {
		s.idle.Stop()
		s.idle = nil
	}
}

func (s *Session) stopTimers() {
	s.StopAreYouThere()
	s.StopPing()
	s.StopIdle()
}

// Close stops all timers and disables further sends. It does not close the
// underlying transport endpoint — the Controller owns that lifetime.
func (s *Session) Close() {
	s.stopTimers()
	s.Disable()
}
