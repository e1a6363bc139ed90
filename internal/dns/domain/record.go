package domain

import "fmt"

// Record is one authoritative answer loaded from a zone. Immutable once loaded.
type Record struct {
	TTL   uint32
	Value string // dotted-quad for A records
}

// Validate checks the value is a well-formed dotted quad.
func (r Record) Validate() error {
	if _, err := ParseDottedQuad(r.Value); err != nil {
		return fmt.Errorf("record %q: %w", r.Value, err)
	}
	return nil
}
