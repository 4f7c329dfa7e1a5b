package controller

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/icomwland/icomwland/pkg/codec"
	"github.com/icomwland/icomwland/pkg/transport"
)

// mockRadio answers the client's control/civ/audio UDP traffic with exactly
// the bytes a real Icom WLAN radio would, far enough to drive a Controller
// through the full bring-up sequence in §4.7: control AYT/login/ConnInfo/
// Status, then each sub-session's own independent AYT/ready handshake.
//
// Each of the three sockets is served by its own goroutine (mirroring
// transport.Endpoint.Serve); mu guards the handful of fields the three
// goroutines share.
type mockRadio struct {
	controlEP *transport.Endpoint
	civEP     *transport.Endpoint
	audioEP   *transport.Endpoint

	mu sync.Mutex

	radioControlID uint32
	radioCivID     uint32
	radioAudioID   uint32

	clientControlID uint32
	clientCivID     uint32
	clientAudioID   uint32

	loginErrCode uint32 // 0 = accept; nonzero = reject with this code
	token        uint16
	rigName      string

	civPort   uint16 // radio's own civ/audio ports, reported in Status
	audioPort uint16

	statusConnected bool // false makes Status report "not connected"
	suppressStatus  bool // true makes onConnInfo not trigger a Status reply

	civReady   bool
	audioReady bool

	loginSeen     chan struct{}
	readySeen     chan struct{}
	controlFrames chan codec.ControlHeader // every 16-byte control-session frame received, in order

	silent bool // true makes every handler drop datagrams, simulating a radio gone quiet without unbinding its ports
	closed bool
}

// setSilent toggles whether the radio answers anything at all, without
// closing its sockets — used to simulate the radio going quiet (triggering
// the health monitor) and later coming back on the same ports.
func (r *mockRadio) setSilent(silent bool) {
	r.mu.Lock()
	r.silent = silent
	r.mu.Unlock()
}

func (r *mockRadio) isSilent() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.silent
}

// newMockRadio binds its own control/civ/audio sockets (control on an
// ephemeral port, same as the client does) and starts serving all three.
// testTarget() builds the Target pointed at 127.0.0.1:controlPort().
func newMockRadio(t *testing.T) *mockRadio {
	t.Helper()
	r := &mockRadio{
		radioControlID:  0xA1000001,
		radioCivID:      0xA1000002,
		radioAudioID:    0xA1000003,
		token:           0x4242,
		rigName:         "IC-7610",
		statusConnected: true,
		loginSeen:       make(chan struct{}, 1),
		readySeen:       make(chan struct{}, 1),
		controlFrames:   make(chan codec.ControlHeader, 64),
	}

	var err error
	r.controlEP, err = transport.Listen(0)
	if err != nil {
		t.Fatalf("mock radio: control socket: %v", err)
	}
	r.civEP, err = transport.Listen(0)
	if err != nil {
		t.Fatalf("mock radio: civ socket: %v", err)
	}
	r.audioEP, err = transport.Listen(0)
	if err != nil {
		t.Fatalf("mock radio: audio socket: %v", err)
	}
	r.civPort = uint16(r.civEP.LocalPort())
	r.audioPort = uint16(r.audioEP.LocalPort())

	go r.controlEP.Serve(r.onControl)
	go r.civEP.Serve(r.onSub(kindCiv))
	go r.audioEP.Serve(r.onSub(kindAudio))

	return r
}

func (r *mockRadio) controlPort() int { return r.controlEP.LocalPort() }

func (r *mockRadio) close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.controlEP.Close()
	r.civEP.Close()
	r.audioEP.Close()
}

// waitLogin blocks until the radio has seen a Login packet.
func (r *mockRadio) waitLogin(timeout time.Duration) bool {
	select {
	case <-r.loginSeen:
		return true
	case <-time.After(timeout):
		return false
	}
}

// waitControlFrame drains controlFrames until it sees one of wantType,
// ignoring every other frame type (e.g. the idle keep-alives that interleave
// with the handshake once a session's idle timer starts).
func (r *mockRadio) waitControlFrame(wantType codec.Type, timeout time.Duration) (codec.ControlHeader, bool) {
	deadline := time.After(timeout)
	for {
		select {
		case hdr := <-r.controlFrames:
			if hdr.Type == wantType {
				return hdr, true
			}
		case <-deadline:
			return codec.ControlHeader{}, false
		}
	}
}

// waitSubsessionsReady blocks until both civ and audio reached I_AM_READY.
func (r *mockRadio) waitSubsessionsReady(timeout time.Duration) bool {
	select {
	case <-r.readySeen:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (r *mockRadio) onControl(b []byte, from *net.UDPAddr) {
	if r.isSilent() {
		return
	}
	switch len(b) {
	case codec.SizeControl:
		r.onControlFrame(b, from)
	case codec.SizeLogin:
		r.onLogin(b, from)
	case codec.SizeToken:
		// confirm/renewal requests are fire-and-forget from the client's
		// side in the happy path; nothing to answer.
	case codec.SizeConnInfo:
		r.onConnInfo(b, from)
	}
}

func (r *mockRadio) onControlFrame(b []byte, from *net.UDPAddr) {
	hdr, err := codec.ParseControl(b)
	if err != nil {
		return
	}
	select {
	case r.controlFrames <- hdr:
	default:
	}
	switch hdr.Type {
	case codec.TypeAreYouThere:
		r.mu.Lock()
		r.clientControlID = hdr.SentID
		r.mu.Unlock()
		reply := codec.BuildControl(codec.TypeIAmHere, 0, r.radioControlID, hdr.SentID)
		r.controlEP.SendTo(reply, from)
	case codec.TypeAreYouReady:
		reply := codec.BuildControl(codec.TypeAreYouReady, 0, r.radioControlID, r.clientControlID)
		r.controlEP.SendTo(reply, from)
	}
}

func (r *mockRadio) onLogin(b []byte, from *net.UDPAddr) {
	if _, err := codec.ParseLogin(b); err != nil {
		return
	}
	select {
	case r.loginSeen <- struct{}{}:
	default:
	}
	reply := codec.BuildLoginResponse(0, r.radioControlID, r.clientControlID, r.token, r.loginErrCode, "icomwland-mock")
	r.controlEP.SendTo(reply, from)
	if r.loginErrCode != 0 {
		return
	}
	// Per §4.7 step 5, the radio initiates ConnInfo unprompted once login
	// succeeds. A short delay keeps it after the LoginResponse on the wire.
	go func() {
		time.Sleep(5 * time.Millisecond)
		pkt := codec.BuildConnInfo(0, r.radioControlID, r.clientControlID, r.rigName, r.civPort, r.audioPort, "")
		r.controlEP.SendTo(pkt, from)
	}()
}

func (r *mockRadio) onConnInfo(b []byte, from *net.UDPAddr) {
	if _, err := codec.ParseConnInfo(b); err != nil {
		return
	}
	if r.suppressStatus {
		return
	}
	status := codec.BuildStatus(0, r.radioControlID, r.clientControlID, 0, r.statusConnected, r.civPort, r.audioPort)
	r.controlEP.SendTo(status, from)
}

// sendStatus lets a scenario push an out-of-band Status packet (e.g. to
// exercise S4's zero-port-while-connected case) once a client address has
// been learned from the handshake.
func (r *mockRadio) sendStatus(to *net.UDPAddr, connected bool, civPort, audioPort uint16) {
	status := codec.BuildStatus(0, r.radioControlID, r.clientControlID, 0, connected, civPort, audioPort)
	r.controlEP.SendTo(status, to)
}

// onSub returns the handler for the civ or audio socket: both run the same
// independent 16-byte AYT/IAmHere/AreYouReady/IAmReady handshake described
// by §4.7 step 7.
func (r *mockRadio) onSub(kind subsessionKind) func([]byte, *net.UDPAddr) {
	return func(b []byte, from *net.UDPAddr) {
		if r.isSilent() {
			return
		}
		if len(b) != codec.SizeControl {
			return // OpenClose/CIV/Audio data packets; nothing to answer here
		}
		hdr, err := codec.ParseControl(b)
		if err != nil {
			return
		}
		ep := r.civEP
		localID := r.radioCivID
		if kind == kindAudio {
			ep = r.audioEP
			localID = r.radioAudioID
		}
		switch hdr.Type {
		case codec.TypeAreYouThere:
			r.mu.Lock()
			if kind == kindCiv {
				r.clientCivID = hdr.SentID
			} else {
				r.clientAudioID = hdr.SentID
			}
			r.mu.Unlock()
			ep.SendTo(codec.BuildControl(codec.TypeIAmHere, 0, localID, hdr.SentID), from)
		case codec.TypeAreYouReady:
			r.mu.Lock()
			clientID := r.clientCivID
			if kind == kindAudio {
				clientID = r.clientAudioID
			}
			if kind == kindCiv {
				r.civReady = true
			} else {
				r.audioReady = true
			}
			bothReady := r.civReady && r.audioReady
			r.mu.Unlock()
			ep.SendTo(codec.BuildControl(codec.TypeAreYouReady, 0, localID, clientID), from)
			if bothReady {
				select {
				case r.readySeen <- struct{}{}:
				default:
				}
			}
		}
	}
}

// testTarget builds a Target pointed at this mock radio's control port.
func (r *mockRadio) testTarget() Target {
	return Target{
		Host:        "127.0.0.1",
		ControlPort: r.controlPort(),
		Username:    "testuser",
		Password:    "testpass",
		ClientName:  "icomwland-test",
	}
}

// fastMonitor is a MonitorConfig tuned for tests: short timeouts so health
// checks and reconnects happen in well under a second instead of §4.7's
// production defaults.
func fastMonitor() MonitorConfig {
	return MonitorConfig{
		Timeout:       150 * time.Millisecond,
		CheckInterval: 20 * time.Millisecond,
		AutoReconnect: true,
		MaxAttempts:   0,
		BaseDelay:     100 * time.Millisecond,
		MaxDelay:      400 * time.Millisecond,
	}
}
