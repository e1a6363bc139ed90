package domain

// Opcode values carried in the four opcode bits of the header.
const (
	OpcodeQuery  uint8 = 0
	OpcodeIQuery uint8 = 1
	OpcodeStatus uint8 = 2
)

// HeaderLen is the fixed size of a DNS message header in bytes.
const HeaderLen = 12

// Flags is the decoded form of the two header flag bytes.
//
//	byte 1: QR(1) OPCODE(4) AA(1) TC(1) RD(1)
//	byte 2: RA(1) Z(3) RCODE(4)
type Flags struct {
	QR     bool
	Opcode uint8
	AA     bool
	TC     bool
	RD     bool
	RA     bool
	Z      uint8
	RCode  RCode
}

// Header is the fixed 12-byte prefix of every DNS message.
type Header struct {
	ID      uint16
	Flags   Flags
	QDCount uint16
	ANCount uint16
	NSCount uint16
	ARCount uint16
}
