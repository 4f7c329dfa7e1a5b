package civ

import (
	"time"

	"github.com/icomwland/icomwland/pkg/codec"
	"github.com/icomwland/icomwland/pkg/session"
)

const (
	watchdogInterval = 500 * time.Millisecond
	watchdogTimeout  = 2000 * time.Millisecond
)

// Subsession is a thin layer over a Session that numbers outbound CI-V and
// OpenClose packets with its own civSeq counter and runs the keep-alive
// watchdog that re-sends Open if the radio goes quiet without closing.
type Subsession struct {
	sess    *session.Session
	enqueue func(func())

	civSeq   uint16
	watchdog *ticker
}

// New wraps sess as a CI-V subsession.
func New(sess *session.Session, enqueue func(func())) *Subsession {
	return &Subsession{sess: sess, enqueue: enqueue}
}

func (c *Subsession) nextSeq() uint16 {
	seq := c.civSeq
	c.civSeq++
	return seq
}

// SendCiv transports a raw CI-V frame (as produced by the command-set layer
// this package does not implement) over the CI-V session.
func (c *Subsession) SendCiv(payload []byte) error {
	pkt := codec.BuildCiv(0, c.sess.LocalID(), c.sess.RemoteID(), c.nextSeq(), payload)
	return c.sess.SendUntracked(pkt)
}

// Open sends the CI-V Open keep-alive, used both when the sub-session
// becomes ready and by the watchdog when the radio has gone quiet.
func (c *Subsession) Open() error {
	pkt := codec.BuildOpenClose(0, c.sess.LocalID(), c.sess.RemoteID(), c.nextSeq(), true)
	return c.sess.SendUntracked(pkt)
}

// Close sends the CI-V Close, used during shutdown.
func (c *Subsession) Close() error {
	pkt := codec.BuildOpenClose(0, c.sess.LocalID(), c.sess.RemoteID(), c.nextSeq(), false)
	return c.sess.SendUntracked(pkt)
}

// StartWatchdog begins the 500ms keep-alive check: if more than 2000ms have
// passed since the last byte received on this session, resend Open.
func (c *Subsession) StartWatchdog() {
	c.watchdog = startTicker(watchdogInterval, c.enqueue, func() {
		if time.Since(c.sess.LastReceivedAt()) > watchdogTimeout {
			_ = c.Open()
		}
	})
}

// StopWatchdog halts the watchdog timer.
func (c *Subsession) StopWatchdog() {
	if c.watchdog != nil {
		c.watchdog.Stop()
		c.watchdog = nil
	}
}
