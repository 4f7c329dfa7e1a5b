package codec

import "fmt"

const civMarker = 0xC1

// CivPacket carries a chunk of CI-V bytes tunneled over the control
// session. Length is variable; payload runs from CivPayloadOffset to the end
// of the packet.
type CivPacket struct {
	ControlHeader
	CivLen  uint16
	CivSeq  uint16
	Payload []byte
}

// BuildCiv builds a variable-length CI-V data packet wrapping payload.
func BuildCiv(seq uint16, sentID, rcvdID uint32, civSeq uint16, payload []byte) []byte {
	total := CivPayloadOffset + len(payload)
	b := make([]byte, total)
	ControlHeader{Len: uint16(total), Type: TypeNull, Seq: seq, SentID: sentID, RcvdID: rcvdID}.put(b)
	b[0x10] = civMarker
	putU16le(b[0x11:], uint16(len(payload)))
	putU16be(b[0x13:], civSeq)
	copy(b[CivPayloadOffset:], payload)
	return b
}

// ParseCiv parses a variable-length CI-V data packet, validating the 0xC1
// marker, that CivLen matches the actual payload length, and that the
// packet is not itself a RETRANSMIT envelope (those carry seq numbers, not
// CI-V bytes, despite overlapping framing).
func ParseCiv(b []byte) (CivPacket, error) {
	if len(b) < MinCivPacketSize {
		return CivPacket{}, fmt.Errorf("codec: civ packet must be at least %d bytes, got %d", MinCivPacketSize, len(b))
	}
	hdr, err := parseControlHeader(b)
	if err != nil {
		return CivPacket{}, err
	}
	if hdr.Type == TypeRetransmit {
		return CivPacket{}, fmt.Errorf("codec: packet type RETRANSMIT is not a civ data packet")
	}
	if b[0x10] != civMarker {
		return CivPacket{}, fmt.Errorf("codec: civ packet missing 0xC1 marker at 0x10, got 0x%02x", b[0x10])
	}
	civLen := u16le(b[0x11:])
	wantLen := len(b) - CivPayloadOffset
	if int(civLen) != wantLen {
		return CivPacket{}, fmt.Errorf("codec: civ packet length field %d does not match payload length %d", civLen, wantLen)
	}
	payload := make([]byte, civLen)
	copy(payload, b[CivPayloadOffset:])
	return CivPacket{
		ControlHeader: hdr,
		CivLen:        civLen,
		CivSeq:        u16be(b[0x13:]),
		Payload:       payload,
	}, nil
}
