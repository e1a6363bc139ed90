package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/haukened/zonefwd/internal/dns/domain"
)

// EncodeQuery builds a standard single-question query with RD=1.
func EncodeQuery(id uint16, labels []string, qtype domain.RRType, qclass domain.RRClass) ([]byte, error) {
	name, err := EncodeLabels(labels)
	if err != nil {
		return nil, err
	}
	msg := EncodeHeader(domain.Header{
		ID:      id,
		Flags:   domain.Flags{Opcode: domain.OpcodeQuery, RD: true},
		QDCount: 1,
	})
	msg = append(msg, name...)
	msg = binary.BigEndian.AppendUint16(msg, uint16(qtype))
	msg = binary.BigEndian.AppendUint16(msg, uint16(qclass))
	return msg, nil
}

// DecodeQuery parses an inbound query. When the header is intact but the
// question is not, the returned Query still carries the header fields and the
// labels decoded so far, together with an ErrFormat, so a FORMERR can echo
// the transaction id.
func DecodeQuery(msg []byte) (domain.Query, error) {
	h, err := DecodeHeader(msg)
	if err != nil {
		return domain.Query{}, err
	}
	q := domain.Query{
		ID:               h.ID,
		Opcode:           h.Flags.Opcode,
		RecursionDesired: h.Flags.RD,
	}
	if h.QDCount == 0 {
		return q, fmt.Errorf("%w: query has no question", domain.ErrFormat)
	}
	labels, qtype, qclass, _, err := DecodeQuestion(msg[domain.HeaderLen:])
	q.Labels = labels
	if err != nil {
		return q, err
	}
	q.Type = qtype
	q.Class = qclass
	return q, nil
}

// SkipQuestions returns the offset just past count question entries that
// start at offset.
func SkipQuestions(msg []byte, offset int, count int) (int, error) {
	for i := 0; i < count; i++ {
		_, n, err := DecodeNameAt(msg, offset)
		if err != nil {
			return 0, fmt.Errorf("question %d: %w", i, err)
		}
		offset += n + 4
		if offset > len(msg) {
			return 0, fmt.Errorf("%w: question %d truncated", domain.ErrFormat, i)
		}
	}
	return offset, nil
}
