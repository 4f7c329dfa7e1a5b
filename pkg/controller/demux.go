package controller

import (
	"errors"
	"net"

	"github.com/icomwland/icomwland/pkg/audio"
	"github.com/icomwland/icomwland/pkg/codec"
	"github.com/icomwland/icomwland/pkg/verbose"
)

var (
	errStatusNotConnected = errors.New("controller: status reports not connected during connect attempt")
	errRadioDisconnected  = errors.New("controller: radio sent disconnect during connect attempt")
)

// onControlDatagram/onCivDatagram/onAudioDatagram run on each transport
// Endpoint's own receive goroutine. They copy the datagram (Endpoint reuses
// its read buffer) and enqueue the actual demux work onto run(), so no
// session or controller state is ever touched off the single executor.
func (c *Controller) onControlDatagram(b []byte, from *net.UDPAddr) {
	cp := append([]byte(nil), b...)
	c.enqueue(func() { c.demuxControl(cp) })
}

func (c *Controller) onCivDatagram(b []byte, from *net.UDPAddr) {
	cp := append([]byte(nil), b...)
	c.enqueue(func() { c.demuxSubsession(kindCiv, cp) })
}

func (c *Controller) onAudioDatagram(b []byte, from *net.UDPAddr) {
	cp := append([]byte(nil), b...)
	c.enqueue(func() { c.demuxSubsession(kindAudio, cp) })
}

// publishError surfaces a non-fatal transport send failure from any of the
// three sessions as an ErrorEvent. Session guarantees every sendRaw (and so
// every path through SendTracked/SendInnerTracked/SendUntracked/Retransmit)
// runs on the controller's single executor goroutine, so this is safe to
// call directly without an enqueue round-trip.
func (c *Controller) publishError(err error) {
	publish(c.events.Error, ErrorEvent{Err: err}, c.dropped, "error")
}

// demuxControl routes an inbound control-session datagram by length, and
// by header byte for the variable-length families, exactly per spec §4.7's
// demux table.
func (c *Controller) demuxControl(b []byte) {
	if c.control != nil {
		c.control.Touch()
	}
	switch len(b) {
	case codec.SizeControl:
		c.handleControlFrame(b)
		return
	case codec.SizePing:
		c.handleControlPing(b)
		return
	case codec.SizeToken:
		c.handleToken(b)
		return
	case codec.SizeStatus:
		c.handleStatus(b)
		return
	case codec.SizeLoginResponse:
		c.handleLoginResponse(b)
		return
	case codec.SizeLogin, codec.SizeConnInfo:
		if len(b) == codec.SizeConnInfo {
			c.handleConnInfo(b)
			return
		}
		// Login (128 bytes) inbound is not expected on the control
		// session; drop silently per §7's protocol-error handling.
		return
	}
	if len(b) >= codec.SizeCapabilitiesOne && (len(b)-codec.RadioCapBaseOffset)%codec.SizeRadioCapRecord == 0 {
		c.handleCapabilities(b)
		return
	}
	c.handleOtherControl(b)
}

func (c *Controller) handleControlFrame(b []byte) {
	hdr, err := codec.ParseControl(b)
	if err != nil {
		return
	}
	switch hdr.Type {
	case codec.TypeIAmHere:
		c.onIAmHere(hdr)
	case codec.TypeAreYouReady:
		c.onIAmReady(hdr)
	case codec.TypeRetransmit:
		_ = c.control.Retransmit(hdr.Seq)
	case codec.TypeDisconnect:
		c.onRadioInitiatedDisconnect()
	case codec.TypeNull:
		// idle keep-alive; Touch already recorded receipt.
	}
}

func (c *Controller) handleControlPing(b []byte) {
	pkt, err := codec.ParsePing(b)
	if err != nil {
		return
	}
	if !pkt.Reply {
		_ = c.control.ReplyToPing(pkt)
		return
	}
	c.control.AdvancePingSeq()
}

func (c *Controller) handleToken(b []byte) {
	pkt, err := codec.ParseToken(b)
	if err != nil {
		return
	}
	c.onTokenResponse(pkt, pkt.ControlHeader)
}

func (c *Controller) handleStatus(b []byte) {
	pkt, err := codec.ParseStatus(b)
	if err != nil {
		return
	}
	publish(c.events.Status, StatusEvent{
		CivPort:   pkt.CivPort,
		AudioPort: pkt.AudioPort,
		AuthOK:    c.attempt == nil || c.attempt.loggedIn,
		Connected: pkt.Connected,
	}, c.dropped, "status")

	if !pkt.Connected {
		switch c.phase {
		case PhaseConnecting, PhaseReconnecting:
			if c.attempt != nil {
				c.failAttempt(c.attempt, errStatusNotConnected)
			}
		case PhaseConnected:
			c.triggerReconnect("status", 0)
		}
		return
	}

	// §4.7 step 6 / §9's open question: a Status with either port zero
	// carries no port information (observed during the busy/retry phase)
	// and is intentionally otherwise ignored.
	if pkt.CivPort == 0 || pkt.AudioPort == 0 {
		return
	}
	if c.attempt != nil && !c.attempt.gotStatus {
		c.onValidStatus(pkt)
	}
}

func (c *Controller) handleLoginResponse(b []byte) {
	pkt, err := codec.ParseLoginResponse(b)
	if err != nil {
		return
	}
	c.onLoginResponse(pkt)
}

func (c *Controller) handleConnInfo(b []byte) {
	pkt, err := codec.ParseConnInfo(b)
	if err != nil {
		return
	}
	c.onConnInfo(pkt)
}

func (c *Controller) handleCapabilities(b []byte) {
	pkt, err := codec.ParseCapabilities(b)
	if err != nil || len(pkt.Radios) == 0 {
		return
	}
	first := pkt.Radios[0]
	c.capAudioName = first.AudioName
	c.capAddr = first.CivAddr
	c.capSupportTX = first.SupportTX
	publish(c.events.Capabilities, CapabilitiesEvent{
		CivAddress: c.capAddr,
		AudioName:  c.capAudioName,
		SupportTX:  c.capSupportTX,
	}, c.dropped, "capabilities")
}

// handleOtherControl is the demux table's fallback row: dispatch on the
// header byte at 0x10 for CI-V, Audio, and multi-seq RETRANSMIT.
func (c *Controller) handleOtherControl(b []byte) {
	if len(b) < codec.SizeControl+1 {
		return
	}
	hdr, err := codec.ParseControl(b[:codec.SizeControl])
	if err == nil && hdr.Type == codec.TypeRetransmit && len(b) > codec.SizeControl {
		c.handleRetransmitRange(b)
		return
	}
	switch b[0x10] {
	case 0xC1:
		c.handleCivData(b)
	case 0x97, 0x00:
		c.handleAudioData(b)
	default:
		verbose.Printf("controller: dropping unrecognized control datagram (%d bytes, marker 0x%02x)", len(b), b[0x10])
	}
}

func (c *Controller) handleRetransmitRange(b []byte) {
	pkt, err := codec.ParseRetransmitRange(b)
	if err != nil {
		return
	}
	for _, seq := range pkt.Seqs {
		_ = c.control.Retransmit(seq)
	}
}

// demuxSubsession handles the CI-V/Audio sockets' own traffic: the 16-byte
// handshake types (AYT/IAmHere/AreYouReady/IAmReady) those sockets run
// independently per §4.7 step 7, plus their steady-state CI-V/Audio data.
func (c *Controller) demuxSubsession(kind subsessionKind, b []byte) {
	sess := c.sessionFor(kind)
	sess.Touch()

	if len(b) == codec.SizeControl {
		hdr, err := codec.ParseControl(b)
		if err != nil {
			return
		}
		switch hdr.Type {
		case codec.TypeIAmHere:
			c.onSubsessionIAmHere(kind, hdr)
		case codec.TypeAreYouReady:
			c.onSubsessionIAmReady(kind)
		case codec.TypeRetransmit:
			_ = sess.Retransmit(hdr.Seq)
		}
		return
	}

	switch kind {
	case kindCiv:
		c.handleCivData(b)
	case kindAudio:
		c.handleAudioData(b)
	}
}

func (c *Controller) handleCivData(b []byte) {
	pkt, err := codec.ParseCiv(b)
	if err != nil {
		return
	}
	c.civFramesEmitted++
	publish(c.events.Civ, CivEvent{Payload: pkt.Payload}, c.dropped, "civ")
	for _, frame := range c.reassembler.Feed(pkt.Payload) {
		publish(c.events.CivFrame, CivFrameEvent{Frame: frame}, c.dropped, "civ_frame")
	}
}

func (c *Controller) handleAudioData(b []byte) {
	pcm, err := audio.HandleInbound(b)
	if err != nil {
		return
	}
	c.audioFramesRecv++
	c.rxActivity = pcmActivity(pcm)
	publish(c.events.Audio, AudioEvent{PCM: pcm}, c.dropped, "audio")
}

// pcmActivity converts a little-endian 16-bit PCM byte payload to samples
// and runs the receive-activity estimate over them.
func pcmActivity(pcm []byte) float32 {
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8)
	}
	return audio.RxActivity(samples, audio.SampleRate)
}

func (c *Controller) onRadioInitiatedDisconnect() {
	switch c.phase {
	case PhaseConnecting, PhaseReconnecting:
		if c.attempt != nil {
			c.failAttempt(c.attempt, errRadioDisconnected)
		}
	case PhaseConnected:
		c.triggerReconnect("control", 0)
	}
}
