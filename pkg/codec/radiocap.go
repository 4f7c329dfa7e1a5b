package codec

import "fmt"

// RadioCapRecord describes one radio's identity, civ address, and audio
// capabilities, as carried in a 0x66-byte record within a Capabilities
// packet.
type RadioCapRecord struct {
	Name      string
	AudioName string
	CivAddr   byte
	RxSample  uint16
	TxSample  uint16
	SupportTX bool
}

// parseRadioCapRecord parses one 0x66-byte capability record.
func parseRadioCapRecord(b []byte) (RadioCapRecord, error) {
	if len(b) < SizeRadioCapRecord {
		return RadioCapRecord{}, fmt.Errorf("codec: radio capability record must be at least %d bytes, got %d", SizeRadioCapRecord, len(b))
	}
	return RadioCapRecord{
		Name:      readFixedString(b[0x10:0x30]),
		AudioName: readFixedString(b[0x30:0x50]),
		CivAddr:   b[0x52],
		RxSample:  u16be(b[0x53:0x55]),
		TxSample:  u16be(b[0x55:0x57]),
		SupportTX: b[0x57] != 0,
	}, nil
}

// CapabilitiesPacket lists the radios a given Icom network unit exposes.
// Every whole record is decoded; records (several on multi-radio units)
// follow at SizeRadioCapRecord strides from RadioCapBaseOffset.
type CapabilitiesPacket struct {
	ControlHeader
	Radios []RadioCapRecord
}

// ParseCapabilities parses a Capabilities packet of any length carrying a
// whole number of RadioCapRecord entries from RadioCapBaseOffset onward.
func ParseCapabilities(b []byte) (CapabilitiesPacket, error) {
	if len(b) < SizeCapabilitiesOne {
		return CapabilitiesPacket{}, fmt.Errorf("codec: capabilities packet must be at least %d bytes, got %d", SizeCapabilitiesOne, len(b))
	}
	hdr, err := parseControlHeader(b)
	if err != nil {
		return CapabilitiesPacket{}, err
	}
	body := b[RadioCapBaseOffset:]
	n := len(body) / SizeRadioCapRecord
	radios := make([]RadioCapRecord, 0, n)
	for i := 0; i < n; i++ {
		rec, err := parseRadioCapRecord(body[i*SizeRadioCapRecord:])
		if err != nil {
			return CapabilitiesPacket{}, err
		}
		radios = append(radios, rec)
	}
	return CapabilitiesPacket{ControlHeader: hdr, Radios: radios}, nil
}
