// Package zonestore serves the authoritative zones loaded at startup. A Store
// is immutable after New, so lookups take no lock.
package zonestore

import (
	"fmt"
	"sort"

	bitsbloom "github.com/bits-and-blooms/bloom/v3"

	"github.com/haukened/zonefwd/internal/dns/common/utils"
	"github.com/haukened/zonefwd/internal/dns/domain"
)

// Store maps canonical origins to their zones.
type Store struct {
	zones  map[string]domain.Zone
	filter *bitsbloom.BloomFilter
}

// New copies zones into a Store. Each zone is re-keyed by its canonical
// origin so the map key always equals the origin.
func New(zones map[string]domain.Zone) *Store {
	s := &Store{zones: make(map[string]domain.Zone, len(zones))}
	origins := make([]string, 0, len(zones))
	for _, z := range zones {
		origin := utils.CanonicalDNSName(z.Origin)
		records := make(map[string][]domain.Record, len(z.Records))
		for tag, recs := range z.Records {
			records[tag] = append([]domain.Record(nil), recs...)
		}
		s.zones[origin] = domain.Zone{Origin: origin, Records: records}
		origins = append(origins, origin)
	}
	s.filter = newOriginFilter(origins)
	return s
}

// Lookup joins labels with "." and returns the zone's records for qtype.
// An unknown zone and a known zone without such records are both
// domain.ErrNotFound. The returned slice must not be modified.
func (s *Store) Lookup(labels []string, qtype domain.RRType) ([]domain.Record, error) {
	name := utils.JoinLabels(labels)
	if !s.filter.TestString(name) {
		return nil, fmt.Errorf("%w: no zone for %q", domain.ErrNotFound, name)
	}
	z, ok := s.zones[name]
	if !ok {
		return nil, fmt.Errorf("%w: no zone for %q", domain.ErrNotFound, name)
	}
	records := z.Records[qtype.Tag()]
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no %s records for %q", domain.ErrNotFound, qtype, name)
	}
	return records, nil
}

// Len returns the number of zones.
func (s *Store) Len() int {
	return len(s.zones)
}

// Origins returns every origin served, sorted.
func (s *Store) Origins() []string {
	out := make([]string, 0, len(s.zones))
	for origin := range s.zones {
		out = append(out, origin)
	}
	sort.Strings(out)
	return out
}
