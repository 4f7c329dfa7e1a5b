package codec

import "fmt"

// Token request/response reasons, carried at offset 0x15.
const (
	TokenRequestDelete     byte = 0x01
	TokenRequestConfirm    byte = 0x02
	TokenRequestDisconnect byte = 0x04
	TokenRequestRenewal    byte = 0x05
)

// TokenRenewalRejected is the sentinel response value (BE u32 at 0x30) a
// radio sends back on RENEWAL rejection.
const TokenRenewalRejected uint32 = 0xFFFFFFFF

// TokenPacket is the 64-byte token request/confirm/renewal packet.
type TokenPacket struct {
	ControlHeader
	LocalToken   uint16
	RequestReply byte
	RequestType  byte
	Response     uint32
}

// BuildToken builds a 64-byte token packet.
func BuildToken(seq uint16, sentID, rcvdID uint32, localToken uint16, requestReply, requestType byte, response uint32) []byte {
	b := make([]byte, SizeToken)
	ControlHeader{Len: SizeToken, Type: TypeNull, Seq: seq, SentID: sentID, RcvdID: rcvdID}.put(b)
	putU16be(b[0x10:], localToken)
	b[0x14] = requestReply
	b[0x15] = requestType
	putU32be(b[0x30:], response)
	return b
}

// ParseToken parses a 64-byte token packet.
func ParseToken(b []byte) (TokenPacket, error) {
	if len(b) != SizeToken {
		return TokenPacket{}, fmt.Errorf("codec: token packet must be %d bytes, got %d", SizeToken, len(b))
	}
	hdr, err := parseControlHeader(b)
	if err != nil {
		return TokenPacket{}, err
	}
	return TokenPacket{
		ControlHeader: hdr,
		LocalToken:    u16be(b[0x10:]),
		RequestReply:  b[0x14],
		RequestType:   b[0x15],
		Response:      u32be(b[0x30:]),
	}, nil
}
