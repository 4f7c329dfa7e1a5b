package controller

import "time"

// LoginEvent reports the outcome of the login handshake.
type LoginEvent struct {
	OK               bool
	ErrorCode        uint32
	ConnectionString string
}

// StatusEvent mirrors one processed Status packet.
type StatusEvent struct {
	CivPort   uint16
	AudioPort uint16
	AuthOK    bool
	Connected bool
}

// CapabilitiesEvent reports the first radio capability record seen.
type CapabilitiesEvent struct {
	CivAddress byte
	AudioName  string
	SupportTX  bool
}

// CivEvent carries one complete CI-V UDP payload (past the 0x15 header).
type CivEvent struct {
	Payload []byte
}

// CivFrameEvent carries one reassembled `FE FE ... FD` CI-V frame.
type CivFrameEvent struct {
	Frame []byte
}

// AudioEvent carries one received 16-bit LE PCM frame at 12kHz.
type AudioEvent struct {
	PCM []byte
}

// ErrorEvent surfaces a non-fatal transport error.
type ErrorEvent struct {
	Err error
}

// LifecycleKind enumerates the named lifecycle events in spec.md §6/§4.7.
type LifecycleKind int

const (
	LifecycleConnectionLost LifecycleKind = iota
	LifecycleConnectionRestored
	LifecycleReconnectAttempting
	LifecycleReconnectFailed
)

// LifecycleEvent is the union payload for all four lifecycle events; fields
// not relevant to Kind are left zero.
type LifecycleEvent struct {
	Kind        LifecycleKind
	SessionType string        // which session triggered connection_lost
	Elapsed     time.Duration // connection_lost: time since last_received_at
	Downtime    time.Duration // connection_restored
	Attempt     int           // reconnect_attempting / reconnect_failed
	Delay       time.Duration // reconnect_attempting
	Error       error         // reconnect_failed
	WillRetry   bool          // reconnect_failed
	NextDelay   time.Duration // reconnect_failed
}

const eventChannelCapacity = 32

// Events is the set of upstream channels a caller of Controller reads from.
// Every send is non-blocking: a full channel drops the event being sent (not
// an already-queued one) and counts it in Metrics, rather than stalling the
// Controller's single executor goroutine.
type Events struct {
	Login        chan LoginEvent
	Status       chan StatusEvent
	Capabilities chan CapabilitiesEvent
	Civ          chan CivEvent
	CivFrame     chan CivFrameEvent
	Audio        chan AudioEvent
	Error        chan ErrorEvent
	Lifecycle    chan LifecycleEvent
}

func newEvents() *Events {
	return &Events{
		Login:        make(chan LoginEvent, eventChannelCapacity),
		Status:       make(chan StatusEvent, eventChannelCapacity),
		Capabilities: make(chan CapabilitiesEvent, eventChannelCapacity),
		Civ:          make(chan CivEvent, eventChannelCapacity),
		CivFrame:     make(chan CivFrameEvent, eventChannelCapacity),
		Audio:        make(chan AudioEvent, eventChannelCapacity),
		Error:        make(chan ErrorEvent, eventChannelCapacity),
		Lifecycle:    make(chan LifecycleEvent, eventChannelCapacity),
	}
}

// Metrics is the snapshot returned by Controller.GetMetrics.
type Metrics struct {
	Phase             Phase
	ControlAge        time.Duration
	CivAge            time.Duration
	AudioAge          time.Duration
	ReconnectAttempts int
	CivFramesEmitted  uint64
	AudioFramesSent   uint64
	AudioFramesRecv   uint64
	RxActivity        float32
	DroppedEvents     map[string]uint64
}

func publish[T any](ch chan T, ev T, dropped map[string]uint64, key string) {
	select {
	case ch <- ev:
	default:
		dropped[key]++
	}
}
