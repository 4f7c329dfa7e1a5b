package controller

import "fmt"

// Phase is the top-level connection lifecycle state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseConnecting
	PhaseConnected
	PhaseDisconnecting
	PhaseReconnecting
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseConnecting:
		return "CONNECTING"
	case PhaseConnected:
		return "CONNECTED"
	case PhaseDisconnecting:
		return "DISCONNECTING"
	case PhaseReconnecting:
		return "RECONNECTING"
	default:
		return fmt.Sprintf("PHASE(%d)", int(p))
	}
}

// legalTransitions is the table in the data model: any transition not
// listed here is a bug in the Controller, not a recoverable runtime state.
var legalTransitions = map[Phase]map[Phase]bool{
	PhaseIdle:          {PhaseConnecting: true},
	PhaseConnecting:    {PhaseConnected: true, PhaseDisconnecting: true, PhaseIdle: true},
	PhaseConnected:     {PhaseDisconnecting: true, PhaseReconnecting: true},
	PhaseDisconnecting: {PhaseIdle: true},
	PhaseReconnecting:  {PhaseConnected: true, PhaseIdle: true},
}

// transition moves c.phase to next, panicking if the move is not in
// legalTransitions — an illegal transition is a programming error in the
// demux/bring-up code, never something to paper over at runtime.
func (c *Controller) transition(next Phase) {
	if !legalTransitions[c.phase][next] {
		panic(fmt.Sprintf("controller: illegal phase transition %s -> %s", c.phase, next))
	}
	c.logf("phase %s -> %s", c.phase, next)
	c.phase = next
}
