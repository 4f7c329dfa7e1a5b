package controller

import (
	"fmt"
	"time"

	"github.com/icomwland/icomwland/pkg/codec"
	"github.com/icomwland/icomwland/pkg/session"
)

// checkHealth runs on every monitor tick but only acts while CONNECTED —
// it never fires during CONNECTING/RECONNECTING/DISCONNECTING, matching
// §4.7's health-monitor contract.
func (c *Controller) checkHealth() {
	if c.phase != PhaseConnected {
		return
	}
	now := time.Now()
	stale := func(name string, s *session.Session) bool {
		if now.Sub(s.LastReceivedAt()) > c.monitor.Timeout {
			c.triggerReconnect(name, now.Sub(s.LastReceivedAt()))
			return true
		}
		return false
	}
	if stale("control", c.control) {
		return
	}
	if stale("civ", c.civSess) {
		return
	}
	stale("audio", c.audioSess)
}

// triggerReconnect moves CONNECTED -> RECONNECTING and starts the single
// reconnect loop goroutine. It is a no-op if the phase has already moved on
// (e.g. two sessions go stale in the same health check tick).
func (c *Controller) triggerReconnect(sessionType string, elapsed time.Duration) {
	if c.phase != PhaseConnected {
		return
	}
	c.lastDisconnectAt = time.Now()
	c.transition(PhaseReconnecting)
	publish(c.events.Lifecycle, LifecycleEvent{
		Kind: LifecycleConnectionLost, SessionType: sessionType, Elapsed: elapsed,
	}, c.dropped, "lifecycle")

	if !c.monitor.AutoReconnect {
		c.teardownSessions()
		c.transition(PhaseIdle)
		return
	}
	disconnectAt := c.lastDisconnectAt
	go c.reconnectLoop(disconnectAt)
}

// reconnectLoop is the single reconnect loop spec §4.7 requires (not N
// parallel loops). It only ever touches Controller state by enqueueing
// closures onto run(); the sleeps between attempts are the loop's own
// suspension points, not run()'s.
func (c *Controller) reconnectLoop(disconnectAt time.Time) {
	for attempt := 1; ; attempt++ {
		if c.monitor.MaxAttempts > 0 && attempt > c.monitor.MaxAttempts {
			c.call(func() error { c.giveUpReconnect(); return nil })
			return
		}

		delay := backoffDelay(c.monitor.BaseDelay, c.monitor.MaxDelay, attempt)
		c.enqueue(func() {
			c.reconnectN = attempt
			publish(c.events.Lifecycle, LifecycleEvent{
				Kind: LifecycleReconnectAttempting, Attempt: attempt, Delay: delay,
			}, c.dropped, "lifecycle")
		})
		time.Sleep(delay)

		done := make(chan struct{})
		c.enqueue(func() { c.teardownSessions(); close(done) })
		select {
		case <-done:
		case <-c.done:
			return
		}
		time.Sleep(reconnectReleaseWait)

		err := c.attemptConnectFromReconnect()
		if err == nil {
			downtime := time.Since(disconnectAt)
			c.enqueue(func() {
				publish(c.events.Lifecycle, LifecycleEvent{
					Kind: LifecycleConnectionRestored, Downtime: downtime,
				}, c.dropped, "lifecycle")
			})
			return
		}

		willRetry := c.monitor.MaxAttempts == 0 || attempt < c.monitor.MaxAttempts
		nextDelay := backoffDelay(c.monitor.BaseDelay, c.monitor.MaxDelay, attempt+1)
		c.enqueue(func() {
			publish(c.events.Lifecycle, LifecycleEvent{
				Kind: LifecycleReconnectFailed, Attempt: attempt, Error: err,
				WillRetry: willRetry, NextDelay: nextDelay,
			}, c.dropped, "lifecycle")
		})
		if !willRetry {
			c.call(func() error { c.giveUpReconnect(); return nil })
			return
		}
	}
}

// attemptConnectFromReconnect drives one bring-up sequence while phase is
// already RECONNECTING (set once, before the loop started), blocking until
// it resolves or a generous upper bound elapses.
func (c *Controller) attemptConnectFromReconnect() error {
	result := make(chan error, 1)
	c.enqueue(func() {
		if c.phase != PhaseReconnecting {
			result <- fmt.Errorf("controller: phase changed out of RECONNECTING mid-loop")
			return
		}
		c.startAttempt([]chan error{result})
	})
	select {
	case err := <-result:
		return err
	case <-time.After(overallConnectTimeout + 2*time.Second):
		return fmt.Errorf("controller: reconnect attempt did not resolve in time")
	case <-c.done:
		return fmt.Errorf("controller: shut down during reconnect")
	}
}

func (c *Controller) giveUpReconnect() {
	if c.phase != PhaseReconnecting {
		return
	}
	c.transition(PhaseIdle)
}

// backoffDelay is min(base*2^(attempt-1), max) — spec S7's defaults
// (base=100ms, max=400ms) must produce 100, 200, 400ms for attempts 1-3.
func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

// Disconnect is the single cancellation primitive: idempotent, and the
// only way to cancel an in-flight Connect via the abort_handlers map.
func (c *Controller) Disconnect(reason string, silent bool) error {
	return c.call(func() error { return c.doDisconnect(reason, silent) })
}

func (c *Controller) doDisconnect(reason string, silent bool) error {
	switch c.phase {
	case PhaseIdle, PhaseDisconnecting:
		return nil
	case PhaseConnecting, PhaseReconnecting:
		if c.attempt != nil {
			c.abort.abort(c.attempt.sessionID, reason)
		}
		return nil
	}

	c.transition(PhaseDisconnecting)
	c.teardownSessions()
	if !silent {
		publish(c.events.Lifecycle, LifecycleEvent{
			Kind: LifecycleConnectionLost, SessionType: "manual", Elapsed: 0,
		}, c.dropped, "lifecycle")
	}
	c.transition(PhaseIdle)
	return nil
}

// teardownSessions stops every timer and disables further sends on all
// three Sessions, tears down the CI-V watchdog and audio scheduler, and
// schedules the control socket's close after a best-effort drain window.
// The CI-V/Audio sockets are NOT closed here — they are bound once at
// Controller construction and reused by every subsequent connect attempt;
// only the control socket is opened fresh each time (see openControlSession).
func (c *Controller) teardownSessions() {
	if c.renewal != nil {
		c.renewal.Stop()
		c.renewal = nil
	}
	c.civSub.StopWatchdog()
	c.civSess.Close()
	c.audioSub.Stop()
	c.audioSess.Close()
	if c.control != nil {
		_ = c.control.SendTracked(codec.BuildControl(codec.TypeDisconnect, 0, c.control.LocalID(), c.control.RemoteID()))
		c.control.Close()
	}
	controlEP := c.controlEP
	afterFunc(disconnectDrainWindow, c.enqueue, func() {
		if controlEP != nil {
			controlEP.Close()
		}
	})
}
