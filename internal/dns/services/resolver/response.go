package resolver

import (
	"encoding/binary"
	"fmt"

	"github.com/haukened/zonefwd/internal/dns/domain"
	"github.com/haukened/zonefwd/internal/dns/gateways/wire"
)

// answer is one A record to emit, named by a pointer to the question.
type answer struct {
	ttl   uint32
	value string
}

// encodeResponse assembles header, question echo and answers. QDCOUNT is
// always 1; the question bytes are left out when echoQuestion is false.
func encodeResponse(q domain.Query, flags domain.Flags, echoQuestion bool, answers []answer) ([]byte, error) {
	if !flags.RCode.IsValid() {
		return nil, fmt.Errorf("rcode %d does not fit the header", flags.RCode)
	}
	if len(answers) > 0xFFFF {
		return nil, fmt.Errorf("too many answer records: %d", len(answers))
	}
	msg := wire.EncodeHeader(domain.Header{
		ID:      q.ID,
		Flags:   flags,
		QDCount: 1,
		ANCount: uint16(len(answers)),
	})
	if echoQuestion {
		name, err := wire.EncodeLabels(q.Labels)
		if err != nil {
			return nil, err
		}
		msg = append(msg, name...)
		msg = binary.BigEndian.AppendUint16(msg, uint16(q.Type))
		msg = binary.BigEndian.AppendUint16(msg, uint16(q.Class))
	}
	for _, a := range answers {
		rr, err := wire.EncodeAddressRecord(wire.QuestionOffset, a.ttl, a.value)
		if err != nil {
			return nil, err
		}
		msg = append(msg, rr...)
	}
	return msg, nil
}

// responseFlags returns the flags every reply shares: QR set, opcode and RD
// echoed from the query.
func responseFlags(q domain.Query, rcode domain.RCode) domain.Flags {
	return domain.Flags{
		QR:     true,
		Opcode: q.Opcode,
		RD:     q.RecursionDesired,
		RCode:  rcode,
	}
}
