package codec

import "fmt"

// Constant ConnInfo field values fixed by the wire protocol.
var (
	connInfoCommonCap    = [2]byte{0x10, 0x80}
	connInfoStreamConfig = [4]byte{0x01, 0x01, 0x04, 0x04}
)

const connInfoTrailingMarker = 0x01 // byte 0x88

// ConnInfoPacket is the 144-byte connection-info exchange. Building an
// outbound ConnInfo (client -> radio) writes an obfuscated User field at
// 0x60; parsing an inbound ConnInfo (radio -> client) instead reads byte
// 0x60 as a Busy flag, since the radio does not echo credentials back.
// BuildConnInfo and ParseConnInfo therefore treat that byte differently by
// design, not by oversight.
type ConnInfoPacket struct {
	ControlHeader
	RadioMAC     [6]byte
	RigName      string
	Busy         bool
	RxSampleRate uint32
	TxSampleRate uint32
	CivPort      uint16
	AudioPort    uint16
	TxBufferSize uint16
}

// BuildConnInfo builds a 144-byte outbound ConnInfo reply: rigName is
// copied from the radio's own ConnInfo, civPort/audioPort are the local
// ports of the already-opened CI-V/Audio sub-sockets, and user is the
// obfuscated credential the radio validates against the session Login
// already established.
func BuildConnInfo(seq uint16, sentID, rcvdID uint32, rigName string, civPort, audioPort uint16, user string) []byte {
	b := make([]byte, SizeConnInfo)
	ControlHeader{Len: SizeConnInfo, Type: TypeNull, Seq: seq, SentID: sentID, RcvdID: rcvdID}.put(b)
	copy(b[0x26:0x28], connInfoCommonCap[:])
	putFixedString(b[0x40:0x60], rigName)
	obfUser := Obfuscate(user)
	copy(b[0x60:0x70], obfUser[:])
	copy(b[0x70:0x74], connInfoStreamConfig[:])
	putU32be(b[0x74:], 12000)
	putU32be(b[0x78:], 12000)
	putU16be(b[0x7C:], civPort)
	putU16be(b[0x80:], audioPort)
	putU16be(b[0x84:], 0x96)
	b[0x88] = connInfoTrailingMarker
	return b
}

// ParseConnInfo parses a 144-byte inbound ConnInfo packet sent by the
// radio. Busy reports the radio's busy indicator at offset 0x60 (nonzero
// means another client already holds the connection, per §4.7 step 5 this
// must still be answered with a ConnInfo reply).
func ParseConnInfo(b []byte) (ConnInfoPacket, error) {
	if len(b) != SizeConnInfo {
		return ConnInfoPacket{}, fmt.Errorf("codec: conninfo packet must be %d bytes, got %d", SizeConnInfo, len(b))
	}
	hdr, err := parseControlHeader(b)
	if err != nil {
		return ConnInfoPacket{}, err
	}
	p := ConnInfoPacket{
		ControlHeader: hdr,
		RigName:       readFixedString(b[0x40:0x60]),
		Busy:          b[0x60] != 0,
		RxSampleRate:  u32be(b[0x74:]),
		TxSampleRate:  u32be(b[0x78:]),
		CivPort:       u16be(b[0x7C:]),
		AudioPort:     u16be(b[0x80:]),
		TxBufferSize:  u16be(b[0x84:]),
	}
	copy(p.RadioMAC[:], b[0x28:0x2E])
	return p, nil
}
