package resolver

import (
	"context"
	"errors"

	"github.com/haukened/zonefwd/internal/dns/common/clock"
	"github.com/haukened/zonefwd/internal/dns/common/log"
	"github.com/haukened/zonefwd/internal/dns/common/metrics"
	"github.com/haukened/zonefwd/internal/dns/domain"
)

// HandlerOptions configures a Handler.
type HandlerOptions struct {
	Synthesizer *Synthesizer
	// Forwarder is nil when forwarding is disabled.
	Forwarder *Forwarder
	Clock     clock.Clock
	Logger    log.Logger
}

// Handler turns request datagrams into response datagrams: authoritative
// answers first, forwarded answers for names no zone serves.
type Handler struct {
	synth     *Synthesizer
	forwarder *Forwarder
	clock     clock.Clock
	logger    log.Logger
}

// NewHandler creates a Handler.
func NewHandler(opts HandlerOptions) *Handler {
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	return &Handler{
		synth:     opts.Synthesizer,
		forwarder: opts.Forwarder,
		clock:     opts.Clock,
		logger:    opts.Logger,
	}
}

// HandlePacket answers one datagram. It returns an error, and no bytes, only
// when the packet cannot be answered at all.
func (h *Handler) HandlePacket(ctx context.Context, packet []byte) ([]byte, error) {
	metrics.Queries.Inc()

	ans, err := h.synth.Respond(packet)
	if err != nil {
		return nil, err
	}
	if h.shouldForward(ans) {
		ans = h.forward(ctx, ans)
	}

	metrics.Response(ans.RCode)
	h.logger.Debug(map[string]any{
		"query_id": ans.Query.ID,
		"name":     ans.Query.Name(),
		"rcode":    ans.RCode.String(),
	}, "Answered DNS query")
	return ans.Message, nil
}

// shouldForward is true for NXDOMAIN answers to standard queries when a
// forwarder is configured. FORMERR and NOTIMP never reach here.
func (h *Handler) shouldForward(ans Answer) bool {
	return h.forwarder != nil &&
		ans.RCode == domain.RCodeNXDomain &&
		ans.Query.Opcode == domain.OpcodeQuery &&
		len(ans.Query.Labels) > 0
}

func (h *Handler) forward(ctx context.Context, ans Answer) Answer {
	q := ans.Query
	flags := responseFlags(q, domain.RCodeNoError)
	flags.RA = true

	entry, err := h.forwarder.ResolveEntry(ctx, q.Name())
	var answers []answer
	switch {
	case err == nil:
		answers = []answer{{ttl: entry.TTLRemaining(h.clock.Now()), value: entry.Value}}
	case errors.Is(err, domain.ErrNotFound):
		return ans
	default:
		flags.RCode = domain.RCodeServFail
	}

	msg, encErr := encodeResponse(q, flags, true, answers)
	if encErr != nil {
		h.logger.Error(map[string]any{
			"query_id": q.ID,
			"name":     q.Name(),
			"error":    encErr.Error(),
		}, "Failed to encode forwarded response")
		return ans
	}
	return Answer{Query: q, RCode: flags.RCode, Message: msg}
}
