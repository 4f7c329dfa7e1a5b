// Package codec builds and parses Icom WLAN wire packets.
//
// The on-wire format mixes byte orders within the same packet: the 16-byte
// control header is little-endian, while most inner payload fields (token,
// login, conninfo, CI-V and audio framing fields) are big-endian. Reference
// implementations in other languages have, at various points, named their
// byte-order helpers backwards (a function called "toBigEndian" that writes
// little-endian, and vice versa). To avoid repeating that mistake, every
// read and write in this package goes through one of the four explicitly
// named helpers below — direct use of encoding/binary elsewhere in this
// module is not allowed.
package codec

import "encoding/binary"

func u16le(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }
func u32le(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }
func u16be(b []byte) uint16 { return binary.BigEndian.Uint16(b) }
func u32be(b []byte) uint32 { return binary.BigEndian.Uint32(b) }

func putU16le(b []byte, v uint16) { binary.LittleEndian.PutUint16(b, v) }
func putU32le(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }
func putU16be(b []byte, v uint16) { binary.BigEndian.PutUint16(b, v) }
func putU32be(b []byte, v uint32) { binary.BigEndian.PutUint32(b, v) }
