package domain

import (
	"github.com/haukened/zonefwd/internal/dns/common/utils"
)

// Query is the parsed form of an inbound request: header fields the
// response must echo plus the single question.
type Query struct {
	ID               uint16
	Opcode           uint8
	RecursionDesired bool
	Labels           []string
	Type             RRType
	Class            RRClass
}

// Name returns the canonical dotted form of the question name.
func (q Query) Name() string {
	return utils.JoinLabels(q.Labels)
}
