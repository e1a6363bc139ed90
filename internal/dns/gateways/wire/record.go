package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/haukened/zonefwd/internal/dns/domain"
)

// QuestionOffset is where the question name starts in every message. Answers
// that echo the question name point here.
const QuestionOffset = domain.HeaderLen

// Resource is a decoded resource record. Data aliases nothing; it is a copy.
type Resource struct {
	Labels []string
	Type   domain.RRType
	Class  domain.RRClass
	TTL    uint32
	Data   []byte
}

// IsAddress reports whether the record is an IN A record with a 4-byte address.
func (r Resource) IsAddress() bool {
	return r.Type == domain.RRTypeA && r.Class == domain.RRClassIN && len(r.Data) == 4
}

// Address formats the record data as a dotted quad. Only meaningful when
// IsAddress is true.
func (r Resource) Address() string {
	var b [4]byte
	copy(b[:], r.Data)
	return domain.FormatDottedQuad(b)
}

// EncodeAddressRecord writes an IN A record whose name is a compression
// pointer to nameRef. The address must be a dotted quad.
func EncodeAddressRecord(nameRef uint16, ttl uint32, dottedQuad string) ([]byte, error) {
	addr, err := domain.ParseDottedQuad(dottedQuad)
	if err != nil {
		return nil, err
	}
	if nameRef > pointerOffset {
		return nil, fmt.Errorf("%w: name offset %d cannot be addressed by a pointer", domain.ErrFormat, nameRef)
	}
	buf := make([]byte, 0, 16)
	buf = binary.BigEndian.AppendUint16(buf, uint16(pointerMask)<<8|nameRef)
	buf = binary.BigEndian.AppendUint16(buf, uint16(domain.RRTypeA))
	buf = binary.BigEndian.AppendUint16(buf, uint16(domain.RRClassIN))
	buf = binary.BigEndian.AppendUint32(buf, ttl)
	buf = binary.BigEndian.AppendUint16(buf, 4)
	return append(buf, addr[:]...), nil
}

// DecodeResource reads one resource record at offset and returns it with the
// offset of the next record.
func DecodeResource(msg []byte, offset int) (Resource, int, error) {
	labels, n, err := DecodeNameAt(msg, offset)
	if err != nil {
		return Resource{}, 0, fmt.Errorf("failed to decode record name: %w", err)
	}
	offset += n
	if offset+10 > len(msg) {
		return Resource{}, 0, fmt.Errorf("%w: truncated record header", domain.ErrFormat)
	}
	rr := Resource{
		Labels: labels,
		Type:   domain.RRType(binary.BigEndian.Uint16(msg[offset : offset+2])),
		Class:  domain.RRClass(binary.BigEndian.Uint16(msg[offset+2 : offset+4])),
		TTL:    binary.BigEndian.Uint32(msg[offset+4 : offset+8]),
	}
	rdLen := int(binary.BigEndian.Uint16(msg[offset+8 : offset+10]))
	offset += 10
	if offset+rdLen > len(msg) {
		return Resource{}, 0, fmt.Errorf("%w: truncated rdata", domain.ErrFormat)
	}
	rr.Data = make([]byte, rdLen)
	copy(rr.Data, msg[offset:offset+rdLen])
	return rr, offset + rdLen, nil
}
