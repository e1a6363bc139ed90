package domain

import (
	"fmt"

	"github.com/haukened/zonefwd/internal/dns/common/utils"
)

// Zone is the authoritative record set for one origin. Records are keyed by
// lower-case record-type tag ("a") and keep zone-file order.
type Zone struct {
	Origin  string
	Records map[string][]Record
}

// NewZone builds a Zone with a canonical origin.
func NewZone(origin string, records map[string][]Record) (Zone, error) {
	z := Zone{Origin: utils.CanonicalDNSName(origin), Records: records}
	if z.Records == nil {
		z.Records = map[string][]Record{}
	}
	if err := z.Validate(); err != nil {
		return Zone{}, err
	}
	return z, nil
}

// Validate checks the origin is set and every record value parses.
func (z Zone) Validate() error {
	if z.Origin == "" {
		return fmt.Errorf("zone origin must not be empty")
	}
	for tag, records := range z.Records {
		for i, r := range records {
			if err := r.Validate(); err != nil {
				return fmt.Errorf("zone %s %s[%d]: %w", z.Origin, tag, i, err)
			}
		}
	}
	return nil
}

// Count returns the number of records across all tags.
func (z Zone) Count() int {
	n := 0
	for _, records := range z.Records {
		n += len(records)
	}
	return n
}
