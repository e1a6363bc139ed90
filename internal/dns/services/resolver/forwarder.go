package resolver

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/haukened/zonefwd/internal/dns/common/clock"
	"github.com/haukened/zonefwd/internal/dns/common/log"
	"github.com/haukened/zonefwd/internal/dns/common/metrics"
	"github.com/haukened/zonefwd/internal/dns/common/utils"
	"github.com/haukened/zonefwd/internal/dns/domain"
	"github.com/haukened/zonefwd/internal/dns/gateways/wire"
)

// IDGenerator returns the transaction id for the next upstream query.
type IDGenerator func() uint16

// RandomID draws a transaction id uniformly at random.
func RandomID() uint16 {
	return uint16(rand.Uint32())
}

// FixedID returns a generator that always yields id.
func FixedID(id uint16) IDGenerator {
	return func() uint16 { return id }
}

// ForwarderOptions configures a Forwarder.
type ForwarderOptions struct {
	Cache    RecordCache
	Upstream Upstream
	Clock    clock.Clock
	Logger   log.Logger
	// NextID defaults to RandomID.
	NextID IDGenerator
}

// Forwarder resolves names that are not served authoritatively, first from
// the record cache, then from the upstream server.
type Forwarder struct {
	cache    RecordCache
	upstream Upstream
	clock    clock.Clock
	logger   log.Logger
	nextID   IDGenerator
}

// NewForwarder creates a Forwarder.
func NewForwarder(opts ForwarderOptions) *Forwarder {
	if opts.NextID == nil {
		opts.NextID = RandomID
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	return &Forwarder{
		cache:    opts.Cache,
		upstream: opts.Upstream,
		clock:    opts.Clock,
		logger:   opts.Logger,
		nextID:   opts.NextID,
	}
}

// Resolve returns the IPv4 address for name in dotted-quad form.
func (f *Forwarder) Resolve(ctx context.Context, name string) (string, error) {
	e, err := f.ResolveEntry(ctx, name)
	if err != nil {
		return "", err
	}
	return e.Value, nil
}

// ResolveEntry returns the cache entry for name, querying the upstream on a
// miss. A stored entry is returned even when expired. Upstream failures wrap
// domain.ErrResolution, answers without an address wrap domain.ErrNotFound.
func (f *Forwarder) ResolveEntry(ctx context.Context, name string) (domain.CacheEntry, error) {
	name = utils.CanonicalDNSName(name)
	if e, ok := f.cache.Entry(name); ok {
		metrics.CacheHits.Inc()
		return e, nil
	}
	metrics.CacheMisses.Inc()

	id := f.nextID()
	query, err := wire.EncodeQuery(id, utils.SplitLabels(name), domain.RRTypeA, domain.RRClassIN)
	if err != nil {
		return domain.CacheEntry{}, fmt.Errorf("%w: cannot encode query for %q: %w", domain.ErrNotFound, name, err)
	}

	reply, err := f.upstream.Exchange(ctx, query)
	if err != nil {
		metrics.UpstreamErrors.Inc()
		f.logger.Warn(map[string]any{
			"name":  name,
			"error": err.Error(),
		}, "Upstream resolution failed")
		if !errors.Is(err, domain.ErrResolution) {
			err = fmt.Errorf("%w: %w", domain.ErrResolution, err)
		}
		return domain.CacheEntry{}, err
	}

	value, ttl, err := parseReply(reply, id)
	if err != nil {
		if errors.Is(err, domain.ErrResolution) {
			metrics.UpstreamErrors.Inc()
		}
		f.logger.Debug(map[string]any{
			"name":  name,
			"error": err.Error(),
		}, "Upstream returned no usable answer")
		return domain.CacheEntry{}, err
	}

	f.cache.Put(name, value, ttl)
	metrics.Forwarded.Inc()
	f.logger.Debug(map[string]any{
		"name":  name,
		"value": value,
		"ttl":   ttl,
	}, "Forwarded answer cached")

	if e, ok := f.cache.Entry(name); ok {
		return e, nil
	}
	return domain.NewCacheEntry(name, value, ttl, f.clock.Now()), nil
}

// parseReply extracts the first IN A answer from an upstream reply.
func parseReply(reply []byte, id uint16) (string, uint32, error) {
	h, err := wire.DecodeHeader(reply)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %w", domain.ErrResolution, err)
	}
	if h.ID != id {
		return "", 0, fmt.Errorf("%w: reply id %d does not match query id %d", domain.ErrResolution, h.ID, id)
	}
	if !h.Flags.QR {
		return "", 0, fmt.Errorf("%w: reply is not a response", domain.ErrResolution)
	}
	if h.Flags.RCode != domain.RCodeNoError {
		return "", 0, fmt.Errorf("%w: upstream answered %s", domain.ErrNotFound, h.Flags.RCode)
	}

	offset, err := wire.SkipQuestions(reply, wire.QuestionOffset, int(h.QDCount))
	if err != nil {
		return "", 0, fmt.Errorf("%w: %w", domain.ErrResolution, err)
	}
	for i := 0; i < int(h.ANCount); i++ {
		rr, next, err := wire.DecodeResource(reply, offset)
		if err != nil {
			return "", 0, fmt.Errorf("%w: answer %d: %w", domain.ErrResolution, i, err)
		}
		if rr.IsAddress() {
			return rr.Address(), rr.TTL, nil
		}
		offset = next
	}
	return "", 0, fmt.Errorf("%w: no A record among %d answers", domain.ErrNotFound, h.ANCount)
}
