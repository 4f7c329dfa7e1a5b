package codec

import "fmt"

// Type is the single-byte discriminator carried in the 16-byte control
// header at offset 0x04. The same value (TypeAreYouReady) is used for both
// the outbound ARE_YOU_READY request and the inbound I_AM_READY reply; the
// direction disambiguates them.
type Type byte

const (
	TypeNull        Type = 0x00
	TypeRetransmit  Type = 0x01
	TypeAreYouThere Type = 0x03
	TypeIAmHere     Type = 0x04
	TypeDisconnect  Type = 0x05
	TypeAreYouReady Type = 0x06 // and I_AM_READY, direction-dependent
	TypePing        Type = 0x07
)

func (t Type) String() string {
	switch t {
	case TypeNull:
		return "NULL"
	case TypeRetransmit:
		return "RETRANSMIT"
	case TypeAreYouThere:
		return "ARE_YOU_THERE"
	case TypeIAmHere:
		return "I_AM_HERE"
	case TypeDisconnect:
		return "DISCONNECT"
	case TypeAreYouReady:
		return "ARE_YOU_READY/I_AM_READY"
	case TypePing:
		return "PING"
	default:
		return fmt.Sprintf("TYPE(0x%02x)", byte(t))
	}
}

// Fixed packet sizes, per family.
const (
	SizeControl         = 16
	SizePing             = 21
	SizeOpenClose        = 22
	SizeRetransmitRange  = 24
	SizeToken            = 64
	SizeStatus           = 80
	SizeLoginResponse    = 96
	SizeLogin            = 128
	SizeConnInfo         = 144
	SizeRadioCapRecord   = 0x66
	RadioCapBaseOffset   = 0x42
	SizeCapabilitiesOne  = RadioCapBaseOffset + SizeRadioCapRecord // 0xA8, one record
	CivPayloadOffset     = 0x15
	AudioPayloadOffset   = 0x18
	MinCivPacketSize     = CivPayloadOffset + 1 // 22: header, CI-V framing fields and at least one payload byte
	MinAudioPacketSize   = AudioPayloadOffset
)

// offsets within the 16-byte control header.
const (
	offLen    = 0x00
	offType   = 0x04
	offSeq    = 0x06
	offSentID = 0x08
	offRcvdID = 0x0C
)

// ControlHeader is the common 16-byte, little-endian header shared by every
// packet family. Family-specific fields always start at offset 0x10.
type ControlHeader struct {
	Len    uint16
	Type   Type
	Seq    uint16
	SentID uint32
	RcvdID uint32
}

func (h ControlHeader) put(b []byte) {
	putU16le(b[offLen:], h.Len)
	b[offType] = byte(h.Type)
	b[offType+1] = 0
	putU16le(b[offSeq:], h.Seq)
	putU32le(b[offSentID:], h.SentID)
	putU32le(b[offRcvdID:], h.RcvdID)
}

func parseControlHeader(b []byte) (ControlHeader, error) {
	if len(b) < SizeControl {
		return ControlHeader{}, fmt.Errorf("codec: packet too short for control header: %d bytes", len(b))
	}
	return ControlHeader{
		Len:    u16le(b[offLen:]),
		Type:   Type(b[offType]),
		Seq:    u16le(b[offSeq:]),
		SentID: u32le(b[offSentID:]),
		RcvdID: u32le(b[offRcvdID:]),
	}, nil
}

// SeqOffset is the offset a Session stamps the tracked sequence number at
// before moving bytes into tx_history, per spec.
const SeqOffset = offSeq

// StampSeq overwrites the seq field of an already-built packet at the
// control header's seq offset. A Session calls this immediately before
// moving the packet's bytes into tx_history, so a later retransmit resends
// exactly what the radio saw.
func StampSeq(b []byte, seq uint16) {
	putU16le(b[offSeq:], seq)
}

// BuildControl builds a 16-byte control-family packet (NULL, RETRANSMIT
// single-seq, ARE_YOU_THERE, I_AM_HERE, DISCONNECT, ARE_YOU_READY/I_AM_READY).
func BuildControl(typ Type, seq uint16, sentID, rcvdID uint32) []byte {
	b := make([]byte, SizeControl)
	ControlHeader{Len: SizeControl, Type: typ, Seq: seq, SentID: sentID, RcvdID: rcvdID}.put(b)
	return b
}

// ParseControl parses a 16-byte control-family packet.
func ParseControl(b []byte) (ControlHeader, error) {
	if len(b) != SizeControl {
		return ControlHeader{}, fmt.Errorf("codec: control packet must be %d bytes, got %d", SizeControl, len(b))
	}
	return parseControlHeader(b)
}

// PingPacket is the 21-byte keep-alive ping/pong.
type PingPacket struct {
	ControlHeader
	Reply     bool
	Timestamp uint32
}

// BuildPing builds a 21-byte ping request (reply=false) or reply (reply=true).
// The timestamp is echoed byte-for-byte by a reply.
func BuildPing(reply bool, seq uint16, sentID, rcvdID uint32, timestamp uint32) []byte {
	b := make([]byte, SizePing)
	ControlHeader{Len: SizePing, Type: TypePing, Seq: seq, SentID: sentID, RcvdID: rcvdID}.put(b)
	if reply {
		b[0x10] = 1
	}
	putU32be(b[0x11:], timestamp)
	return b
}

// ParsePing parses a 21-byte ping packet.
func ParsePing(b []byte) (PingPacket, error) {
	if len(b) != SizePing {
		return PingPacket{}, fmt.Errorf("codec: ping packet must be %d bytes, got %d", SizePing, len(b))
	}
	hdr, err := parseControlHeader(b)
	if err != nil {
		return PingPacket{}, err
	}
	return PingPacket{
		ControlHeader: hdr,
		Reply:         b[0x10] != 0,
		Timestamp:     u32be(b[0x11:]),
	}, nil
}

// OpenClosePacket is the 22-byte CI-V keep-alive Open/Close control packet.
type OpenClosePacket struct {
	ControlHeader
	CivLen uint16
	CivSeq uint16
	Open   bool
}

const (
	openCloseMagicOpen  = 0x04
	openCloseMagicClose = 0x00
	openCloseClassByte  = 0xC0
)

// BuildOpenClose builds a 22-byte CI-V Open (open=true) or Close (open=false) packet.
func BuildOpenClose(seq uint16, sentID, rcvdID uint32, civSeq uint16, open bool) []byte {
	b := make([]byte, SizeOpenClose)
	ControlHeader{Len: SizeOpenClose, Type: TypeNull, Seq: seq, SentID: sentID, RcvdID: rcvdID}.put(b)
	b[0x10] = openCloseClassByte
	putU16le(b[0x11:], 1)
	putU16be(b[0x13:], civSeq)
	if open {
		b[0x15] = openCloseMagicOpen
	} else {
		b[0x15] = openCloseMagicClose
	}
	return b
}

// ParseOpenClose parses a 22-byte CI-V Open/Close packet.
func ParseOpenClose(b []byte) (OpenClosePacket, error) {
	if len(b) != SizeOpenClose {
		return OpenClosePacket{}, fmt.Errorf("codec: openclose packet must be %d bytes, got %d", SizeOpenClose, len(b))
	}
	hdr, err := parseControlHeader(b)
	if err != nil {
		return OpenClosePacket{}, err
	}
	if b[0x10] != openCloseClassByte {
		return OpenClosePacket{}, fmt.Errorf("codec: openclose packet missing 0xC0 class byte at 0x10")
	}
	return OpenClosePacket{
		ControlHeader: hdr,
		CivLen:        u16le(b[0x11:]),
		CivSeq:        u16be(b[0x13:]),
		Open:          b[0x15] == openCloseMagicOpen,
	}, nil
}

// RetransmitRangePacket is the multi-seq retransmit request, variable length
// (24 bytes carries 4 seq words in the reference layout; the wire format
// allows any count, seqList is LE 16-bit words from offset 0x10).
type RetransmitRangePacket struct {
	ControlHeader
	Seqs []uint16
}

// BuildRetransmitRange builds a RETRANSMIT packet requesting retransmission
// of every seq in seqs.
func BuildRetransmitRange(seq uint16, sentID, rcvdID uint32, seqs []uint16) []byte {
	total := SizeControl + 2*len(seqs)
	b := make([]byte, total)
	ControlHeader{Len: uint16(total), Type: TypeRetransmit, Seq: seq, SentID: sentID, RcvdID: rcvdID}.put(b)
	for i, s := range seqs {
		putU16le(b[0x10+2*i:], s)
	}
	return b
}

// ParseRetransmitRange parses a multi-seq RETRANSMIT packet (length > 16).
func ParseRetransmitRange(b []byte) (RetransmitRangePacket, error) {
	if len(b) < SizeControl || (len(b)-SizeControl)%2 != 0 {
		return RetransmitRangePacket{}, fmt.Errorf("codec: malformed retransmit-range packet, length %d", len(b))
	}
	hdr, err := parseControlHeader(b)
	if err != nil {
		return RetransmitRangePacket{}, err
	}
	n := (len(b) - SizeControl) / 2
	seqs := make([]uint16, n)
	for i := 0; i < n; i++ {
		seqs[i] = u16le(b[0x10+2*i:])
	}
	return RetransmitRangePacket{ControlHeader: hdr, Seqs: seqs}, nil
}
