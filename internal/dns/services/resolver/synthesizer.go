package resolver

import (
	"errors"
	"fmt"

	"github.com/haukened/zonefwd/internal/dns/common/log"
	"github.com/haukened/zonefwd/internal/dns/domain"
	"github.com/haukened/zonefwd/internal/dns/gateways/wire"
)

// SynthesizerOptions configures a Synthesizer.
type SynthesizerOptions struct {
	Zones  ZoneStore
	Logger log.Logger
	// RecursionAvailable sets RA on every reply; true when forwarding is on.
	RecursionAvailable bool
	// StrictQType answers NOTIMP for any qtype other than A. When false every
	// qtype is answered as if it asked for A.
	StrictQType bool
}

// Synthesizer answers queries from the zone store alone.
type Synthesizer struct {
	zones       ZoneStore
	logger      log.Logger
	ra          bool
	strictQType bool
}

// Answer is a synthesized reply together with what it answered.
type Answer struct {
	Query   domain.Query
	RCode   domain.RCode
	Message []byte
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(opts SynthesizerOptions) *Synthesizer {
	return &Synthesizer{
		zones:       opts.Zones,
		logger:      opts.Logger,
		ra:          opts.RecursionAvailable,
		strictQType: opts.StrictQType,
	}
}

// Respond answers one query datagram. A packet shorter than a header has no
// id to echo and returns domain.ErrFormat with no reply. Every other input
// yields a reply: FORMERR for an undecodable question (without question
// echo), NOTIMP for a refused qtype, else NOERROR with one A record per zone
// record or NXDOMAIN when there are none.
func (s *Synthesizer) Respond(packet []byte) (Answer, error) {
	if len(packet) < domain.HeaderLen {
		return Answer{}, fmt.Errorf("%w: packet of %d bytes has no header", domain.ErrFormat, len(packet))
	}

	q, err := wire.DecodeQuery(packet)
	if err != nil {
		s.logger.Warn(map[string]any{
			"query_id": q.ID,
			"error":    err.Error(),
		}, "Failed to decode DNS question")
		return s.reply(q, domain.RCodeFormErr, false, nil)
	}

	if s.strictQType && q.Type != domain.RRTypeA {
		s.logger.Debug(map[string]any{
			"query_id": q.ID,
			"name":     q.Name(),
			"type":     q.Type.String(),
		}, "Refusing unsupported query type")
		return s.reply(q, domain.RCodeNotImp, true, nil)
	}

	records, err := s.zones.Lookup(q.Labels, domain.RRTypeA)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return Answer{}, err
	}
	if len(records) == 0 {
		return s.reply(q, domain.RCodeNXDomain, true, nil)
	}

	answers := make([]answer, 0, len(records))
	for _, r := range records {
		answers = append(answers, answer{ttl: r.TTL, value: r.Value})
	}
	s.logger.Debug(map[string]any{
		"query_id": q.ID,
		"name":     q.Name(),
		"answers":  len(answers),
	}, "Answered authoritatively")
	return s.reply(q, domain.RCodeNoError, true, answers)
}

func (s *Synthesizer) reply(q domain.Query, rcode domain.RCode, echoQuestion bool, answers []answer) (Answer, error) {
	flags := responseFlags(q, rcode)
	flags.AA = true
	flags.RA = s.ra
	msg, err := encodeResponse(q, flags, echoQuestion, answers)
	if err != nil {
		return Answer{}, fmt.Errorf("failed to encode response: %w", err)
	}
	return Answer{Query: q, RCode: rcode, Message: msg}, nil
}
