package codec

import "fmt"

// Audio packet identifier bytes at offset 0x10/0x11. A 160-byte payload (one
// 50Hz PCM frame) is tagged 0x97/0x81; every other length is tagged 0x00/0x80.
const (
	audioIdentLoFramed   = 0x97
	audioIdentHiFramed   = 0x81
	audioIdentLoUnframed = 0x00
	audioIdentHiUnframed = 0x80

	audioFramedPayloadLen = 160
	maxAudioPayloadLen    = 2048
)

// AudioPacket carries a chunk of PCM audio tunneled over the audio session.
type AudioPacket struct {
	ControlHeader
	SendSeq uint16
	Payload []byte
}

// BuildAudio builds a variable-length audio data packet wrapping payload.
func BuildAudio(seq uint16, sentID, rcvdID uint32, sendSeq uint16, payload []byte) []byte {
	total := AudioPayloadOffset + len(payload)
	b := make([]byte, total)
	ControlHeader{Len: uint16(total), Type: TypeNull, Seq: seq, SentID: sentID, RcvdID: rcvdID}.put(b)
	if len(payload) == audioFramedPayloadLen {
		b[0x10] = audioIdentLoFramed
		b[0x11] = audioIdentHiFramed
	} else {
		b[0x10] = audioIdentLoUnframed
		b[0x11] = audioIdentHiUnframed
	}
	putU16be(b[0x12:], sendSeq)
	putU16be(b[0x16:], uint16(len(payload)))
	copy(b[AudioPayloadOffset:], payload)
	return b
}

// ParseAudio parses a variable-length audio data packet, validating the
// ident bytes, that DataLen is in (0, 2048], and that the packet length
// matches AudioPayloadOffset+DataLen.
func ParseAudio(b []byte) (AudioPacket, error) {
	if len(b) < MinAudioPacketSize {
		return AudioPacket{}, fmt.Errorf("codec: audio packet must be at least %d bytes, got %d", MinAudioPacketSize, len(b))
	}
	hdr, err := parseControlHeader(b)
	if err != nil {
		return AudioPacket{}, err
	}
	lo, hi := b[0x10], b[0x11]
	validIdent := (lo == audioIdentLoFramed && hi == audioIdentHiFramed) ||
		(lo == audioIdentLoUnframed && hi == audioIdentHiUnframed)
	if !validIdent {
		return AudioPacket{}, fmt.Errorf("codec: audio packet has unrecognized ident bytes 0x%02x/0x%02x", lo, hi)
	}
	dataLen := u16be(b[0x16:])
	if dataLen == 0 || dataLen > maxAudioPayloadLen {
		return AudioPacket{}, fmt.Errorf("codec: audio packet data length %d out of range (0,%d]", dataLen, maxAudioPayloadLen)
	}
	wantLen := AudioPayloadOffset + int(dataLen)
	if len(b) != wantLen {
		return AudioPacket{}, fmt.Errorf("codec: audio packet length %d does not match header's data length %d (want %d)", len(b), dataLen, wantLen)
	}
	payload := make([]byte, dataLen)
	copy(payload, b[AudioPayloadOffset:])
	return AudioPacket{
		ControlHeader: hdr,
		SendSeq:       u16be(b[0x12:]),
		Payload:       payload,
	}, nil
}
