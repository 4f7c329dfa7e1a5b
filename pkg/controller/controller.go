// Package controller implements the top-level connection lifecycle for an
// Icom WLAN (UDP) radio: the Control/CI-V/Audio three-session bring-up
// sequence, the demux that routes inbound packets to state transitions or
// event emission, the health monitor and exponential-backoff reconnect
// loop, and the single command-channel executor every other package in
// this module enqueues work onto.
package controller

import (
	"fmt"
	"net"
	"time"

	"github.com/icomwland/icomwland/pkg/audio"
	"github.com/icomwland/icomwland/pkg/civ"
	"github.com/icomwland/icomwland/pkg/logging"
	"github.com/icomwland/icomwland/pkg/session"
	"github.com/icomwland/icomwland/pkg/transport"
)

const logComponent = "controller"

// Controller owns the three Sessions and drives the connection state
// machine described in spec §4.7. Every method that touches Controller,
// Session, CivSubsession, or AudioSubsession state runs on run(), the one
// goroutine reading cmdCh; external callers only ever enqueue a closure.
type Controller struct {
	target  Target
	monitor MonitorConfig

	controlEP *transport.Endpoint
	civEP     *transport.Endpoint
	audioEP   *transport.Endpoint

	control   *session.Session
	civSess   *session.Session
	audioSess *session.Session

	civSub      *civ.Subsession
	audioSub    *audio.Subsession
	reassembler civ.Reassembler

	cmdCh  chan func()
	stopCh chan struct{}
	done   chan struct{}

	phase            Phase
	sessionID        uint64
	startedAt        time.Time
	lastDisconnectAt time.Time

	capAddr      byte
	capAudioName string
	capSupportTX bool

	lastConnInfoRigName string

	attempt *connectAttempt
	abort   *abortHandlers

	reconnectN int
	renewal    *ticker

	events  *Events
	dropped map[string]uint64

	civFramesEmitted uint64
	audioFramesSent  uint64
	audioFramesRecv  uint64
	rxActivity       float32
}

// New constructs a Controller for target, binding the CI-V and Audio
// sub-session sockets immediately (not the control socket) so their local
// ports are available for the ConnInfo reply before a connection is ever
// attempted.
func New(target Target, monitor MonitorConfig) (*Controller, error) {
	civEP, err := transport.Listen(0)
	if err != nil {
		return nil, fmt.Errorf("controller: failed to open civ socket: %w", err)
	}
	audioEP, err := transport.Listen(0)
	if err != nil {
		civEP.Close()
		return nil, fmt.Errorf("controller: failed to open audio socket: %w", err)
	}

	c := &Controller{
		target:  target,
		monitor: monitor,
		civEP:   civEP,
		audioEP: audioEP,
		cmdCh:   make(chan func(), 64),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
		phase:   PhaseIdle,
		abort:   newAbortHandlers(),
		events:  newEvents(),
		dropped: make(map[string]uint64),
		capAddr: 0xA4,
	}

	c.civSess = session.New("civ", civEP, c.enqueue)
	c.audioSess = session.New("audio", audioEP, c.enqueue)
	c.civSess.SetErrorHandler(c.publishError)
	c.audioSess.SetErrorHandler(c.publishError)
	c.civSub = civ.New(c.civSess, c.enqueue)
	c.audioSub = audio.New(c.audioSess, c.enqueue)

	go c.civEP.Serve(c.onCivDatagram)
	go c.audioEP.Serve(c.onAudioDatagram)
	go c.run()

	return c, nil
}

// Events returns the upstream event channels a caller should select on.
func (c *Controller) Events() *Events { return c.events }

func (c *Controller) enqueue(fn func()) {
	select {
	case c.cmdCh <- fn:
	case <-c.stopCh:
	}
}

// call runs fn on run() and blocks for its result — the pattern every
// public entry point below uses to cross from the caller's goroutine onto
// the single serialized executor.
func (c *Controller) call(fn func() error) error {
	result := make(chan error, 1)
	c.enqueue(func() { result <- fn() })
	return <-result
}

func (c *Controller) run() {
	defer close(c.done)
	monitorTicker := time.NewTicker(c.monitor.CheckInterval)
	defer monitorTicker.Stop()
	for {
		select {
		case fn := <-c.cmdCh:
			fn()
		case <-monitorTicker.C:
			c.checkHealth()
		case <-c.stopCh:
			// Drain any already-queued work so blocked callers don't hang,
			// then exit.
			for {
				select {
				case fn := <-c.cmdCh:
					fn()
				default:
					return
				}
			}
		}
	}
}

func (c *Controller) logf(format string, args ...interface{}) {
	logging.Infof(logComponent, format, args...)
}

// Phase returns the current connection phase, read on run() through the
// command channel. Safe to call from any goroutine other than run() itself,
// where waiting for its own queued read would deadlock; after Shutdown it
// returns PhaseIdle.
func (c *Controller) Phase() Phase {
	ch := make(chan Phase, 1)
	c.enqueue(func() { ch <- c.phase })
	select {
	case p := <-ch:
		return p
	case <-c.done:
		return PhaseIdle
	}
}

// GetMetrics returns a snapshot of connection and traffic metrics.
func (c *Controller) GetMetrics() Metrics {
	ch := make(chan Metrics, 1)
	c.enqueue(func() {
		now := time.Now()
		age := func(t time.Time) time.Duration {
			if t.IsZero() {
				return 0
			}
			return now.Sub(t)
		}
		dropped := make(map[string]uint64, len(c.dropped))
		for k, v := range c.dropped {
			dropped[k] = v
		}
		ch <- Metrics{
			Phase:             c.phase,
			ControlAge:        age(c.control.LastReceivedAt()),
			CivAge:            age(c.civSess.LastReceivedAt()),
			AudioAge:          age(c.audioSess.LastReceivedAt()),
			ReconnectAttempts: c.reconnectN,
			CivFramesEmitted:  c.civFramesEmitted,
			AudioFramesSent:   c.audioFramesSent,
			AudioFramesRecv:   c.audioFramesRecv,
			RxActivity:        c.rxActivity,
			DroppedEvents:     dropped,
		}
	})
	select {
	case m := <-ch:
		return m
	case <-c.done:
		return Metrics{}
	}
}

// ConfigureMonitor updates the health-monitor/reconnect tuning in place.
// The check-interval ticker itself is fixed at construction (per run()'s
// loop) — only the threshold values it consults are mutable here, matching
// how a running timer can't retroactively change its own period without
// tearing down and restarting run(), which ConfigureMonitor deliberately
// avoids so a tuning change never interrupts an in-flight health check.
func (c *Controller) ConfigureMonitor(cfg MonitorConfig) {
	c.enqueue(func() {
		cfg.CheckInterval = c.monitor.CheckInterval // see doc comment above
		c.monitor = cfg
	})
}

// SendCIV transports a raw CI-V frame over the CI-V sub-session.
func (c *Controller) SendCIV(frame []byte) error {
	return c.call(func() error { return c.civSub.SendCiv(frame) })
}

// EnqueueAudioPCM16 appends 16-bit PCM samples to the outbound audio queue.
func (c *Controller) EnqueueAudioPCM16(samples []int16, leadingSilence bool) error {
	return c.call(func() error {
		c.audioSub.EnqueuePCM16(samples, leadingSilence)
		c.audioFramesSent++
		return nil
	})
}

// EnqueueAudioFloat32 appends normalized float samples to the outbound
// audio queue, scaled by the sub-session's configured volume.
func (c *Controller) EnqueueAudioFloat32(samples []float32, leadingSilence bool) error {
	return c.call(func() error {
		c.audioSub.EnqueueFloat32(samples, leadingSilence)
		c.audioFramesSent++
		return nil
	})
}

// PTTOff pushes trailing silence onto the audio queue, signalling the
// radio can unkey once it has drained.
func (c *Controller) PTTOff() error {
	return c.call(func() error { c.audioSub.PTTOff(); return nil })
}

// Shutdown stops run() entirely, releasing both sub-session sockets. It is
// for process teardown, not for returning to IDLE — use Disconnect for that.
func (c *Controller) Shutdown() {
	_ = c.Disconnect("shutdown", true)
	close(c.stopCh)
	<-c.done
	c.civEP.Close()
	c.audioEP.Close()
	if c.controlEP != nil {
		c.controlEP.Close()
	}
}

func controlAddr(target Target) (*net.UDPAddr, error) {
	return net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", target.Host, target.ControlPort))
}
