package resolver

import (
	"context"

	"github.com/haukened/zonefwd/internal/dns/domain"
)

// ZoneStore answers authoritative lookups. Implementations must be safe for
// concurrent reads.
type ZoneStore interface {
	Lookup(labels []string, qtype domain.RRType) ([]domain.Record, error)
}

// RecordCache holds forwarded answers.
type RecordCache interface {
	Put(name, value string, ttl uint32)
	Entry(name string) (domain.CacheEntry, bool)
}

// Upstream sends one raw query to the forwarder and returns its raw reply.
// Failures wrap domain.ErrResolution.
type Upstream interface {
	Exchange(ctx context.Context, query []byte) ([]byte, error)
}
