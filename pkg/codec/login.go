package codec

import "fmt"

// LoginResponsePacket is the 96-byte reply to a Login packet.
type LoginResponsePacket struct {
	ControlHeader
	Token            uint16
	Error            uint32
	ConnectionString string
}

// BuildLoginResponse builds a 96-byte login-response packet.
func BuildLoginResponse(seq uint16, sentID, rcvdID uint32, token uint16, errCode uint32, connectionString string) []byte {
	b := make([]byte, SizeLoginResponse)
	ControlHeader{Len: SizeLoginResponse, Type: TypeNull, Seq: seq, SentID: sentID, RcvdID: rcvdID}.put(b)
	putU16be(b[0x1C:], token)
	putU32be(b[0x30:], errCode)
	putFixedString(b[0x40:0x50], connectionString)
	return b
}

// ParseLoginResponse parses a 96-byte login-response packet. Error==0 means success.
func ParseLoginResponse(b []byte) (LoginResponsePacket, error) {
	if len(b) != SizeLoginResponse {
		return LoginResponsePacket{}, fmt.Errorf("codec: login-response packet must be %d bytes, got %d", SizeLoginResponse, len(b))
	}
	hdr, err := parseControlHeader(b)
	if err != nil {
		return LoginResponsePacket{}, err
	}
	return LoginResponsePacket{
		ControlHeader:    hdr,
		Token:            u16be(b[0x1C:]),
		Error:            u32be(b[0x30:]),
		ConnectionString: readFixedString(b[0x40:0x50]),
	}, nil
}

// LoginPacket is the 128-byte login request. Username and password carry the
// fixed-table credential obfuscation (see Obfuscate); ClientName is plain text.
type LoginPacket struct {
	ControlHeader
	ObfUsername [16]byte
	ObfPassword [16]byte
	ClientName  string
}

// BuildLogin builds a 128-byte login packet, obfuscating username and
// password with Obfuscate.
func BuildLogin(seq uint16, sentID, rcvdID uint32, username, password, clientName string) []byte {
	b := make([]byte, SizeLogin)
	ControlHeader{Len: SizeLogin, Type: TypeNull, Seq: seq, SentID: sentID, RcvdID: rcvdID}.put(b)
	obfUsername := Obfuscate(username)
	obfPassword := Obfuscate(password)
	copy(b[0x40:0x50], obfUsername[:])
	copy(b[0x50:0x60], obfPassword[:])
	putFixedString(b[0x60:0x70], clientName)
	return b
}

// ParseLogin parses a 128-byte login packet. Username/password remain
// obfuscated — the transform is one-way by design.
func ParseLogin(b []byte) (LoginPacket, error) {
	if len(b) != SizeLogin {
		return LoginPacket{}, fmt.Errorf("codec: login packet must be %d bytes, got %d", SizeLogin, len(b))
	}
	hdr, err := parseControlHeader(b)
	if err != nil {
		return LoginPacket{}, err
	}
	p := LoginPacket{ControlHeader: hdr, ClientName: readFixedString(b[0x60:0x70])}
	copy(p.ObfUsername[:], b[0x40:0x50])
	copy(p.ObfPassword[:], b[0x50:0x60])
	return p, nil
}

// putFixedString writes s into dst, NUL-padding or truncating to len(dst).
func putFixedString(dst []byte, s string) {
	n := copy(dst, s)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}

// readFixedString reads a NUL-terminated (or fully-occupied) fixed field.
func readFixedString(src []byte) string {
	for i, c := range src {
		if c == 0 {
			return string(src[:i])
		}
	}
	return string(src)
}
