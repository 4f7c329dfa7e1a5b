package codec

import "fmt"

// StatusPacket is the 80-byte packet the radio emits to announce dynamic
// CI-V/Audio port assignments and link state.
type StatusPacket struct {
	ControlHeader
	Error     uint32
	Connected bool
	CivPort   uint16
	AudioPort uint16
}

// BuildStatus builds an 80-byte status packet. connected=true writes the
// wire's "0 means connected" convention.
func BuildStatus(seq uint16, sentID, rcvdID uint32, errCode uint32, connected bool, civPort, audioPort uint16) []byte {
	b := make([]byte, SizeStatus)
	ControlHeader{Len: SizeStatus, Type: TypeNull, Seq: seq, SentID: sentID, RcvdID: rcvdID}.put(b)
	putU32le(b[0x30:], errCode)
	if !connected {
		b[0x40] = 1
	}
	putU16be(b[0x42:], civPort)
	putU16be(b[0x46:], audioPort)
	return b
}

// ParseStatus parses an 80-byte status packet.
func ParseStatus(b []byte) (StatusPacket, error) {
	if len(b) != SizeStatus {
		return StatusPacket{}, fmt.Errorf("codec: status packet must be %d bytes, got %d", SizeStatus, len(b))
	}
	hdr, err := parseControlHeader(b)
	if err != nil {
		return StatusPacket{}, err
	}
	return StatusPacket{
		ControlHeader: hdr,
		Error:         u32le(b[0x30:]),
		Connected:     b[0x40] == 0,
		CivPort:       u16be(b[0x42:]),
		AudioPort:     u16be(b[0x46:]),
	}, nil
}
