package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/haukened/zonefwd/internal/dns/domain"
)

func boolBit(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// EncodeFlags packs the header flags into their two wire bytes.
//
//	byte 1: QR(1) OPCODE(4) AA(1) TC(1) RD(1)
//	byte 2: RA(1) Z(3) RCODE(4)
func EncodeFlags(f domain.Flags) [2]byte {
	b1 := boolBit(f.QR)<<7 | (f.Opcode&0x0F)<<3 | boolBit(f.AA)<<2 | boolBit(f.TC)<<1 | boolBit(f.RD)
	b2 := boolBit(f.RA)<<7 | (f.Z&0x07)<<4 | byte(f.RCode)&0x0F
	return [2]byte{b1, b2}
}

// DecodeFlags is the inverse of EncodeFlags.
func DecodeFlags(b [2]byte) domain.Flags {
	return domain.Flags{
		QR:     b[0]&0x80 != 0,
		Opcode: (b[0] >> 3) & 0x0F,
		AA:     b[0]&0x04 != 0,
		TC:     b[0]&0x02 != 0,
		RD:     b[0]&0x01 != 0,
		RA:     b[1]&0x80 != 0,
		Z:      (b[1] >> 4) & 0x07,
		RCode:  domain.RCode(b[1] & 0x0F),
	}
}

// EncodeHeader writes the fixed 12-byte big-endian header.
func EncodeHeader(h domain.Header) []byte {
	buf := make([]byte, domain.HeaderLen)
	flags := EncodeFlags(h.Flags)
	binary.BigEndian.PutUint16(buf[0:2], h.ID)
	buf[2], buf[3] = flags[0], flags[1]
	binary.BigEndian.PutUint16(buf[4:6], h.QDCount)
	binary.BigEndian.PutUint16(buf[6:8], h.ANCount)
	binary.BigEndian.PutUint16(buf[8:10], h.NSCount)
	binary.BigEndian.PutUint16(buf[10:12], h.ARCount)
	return buf
}

// DecodeHeader reads the header from the first 12 bytes of msg.
func DecodeHeader(msg []byte) (domain.Header, error) {
	if len(msg) < domain.HeaderLen {
		return domain.Header{}, fmt.Errorf("%w: message of %d bytes is shorter than a header", domain.ErrFormat, len(msg))
	}
	return domain.Header{
		ID:      binary.BigEndian.Uint16(msg[0:2]),
		Flags:   DecodeFlags([2]byte{msg[2], msg[3]}),
		QDCount: binary.BigEndian.Uint16(msg[4:6]),
		ANCount: binary.BigEndian.Uint16(msg[6:8]),
		NSCount: binary.BigEndian.Uint16(msg[8:10]),
		ARCount: binary.BigEndian.Uint16(msg[10:12]),
	}, nil
}
