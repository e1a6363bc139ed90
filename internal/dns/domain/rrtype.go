package domain

import (
	"fmt"
	"strings"
)

// RRType represents a DNS resource record type (e.g. A, AAAA, MX).
// See IANA DNS Parameters for assigned codes.
type RRType uint16

// Only A records are served and consumed; the other codes exist so that
// queries and upstream answers can be named in logs.
const (
	RRTypeA     RRType = 1
	RRTypeNS    RRType = 2
	RRTypeCNAME RRType = 5
	RRTypeSOA   RRType = 6
	RRTypePTR   RRType = 12
	RRTypeMX    RRType = 15
	RRTypeTXT   RRType = 16
	RRTypeAAAA  RRType = 28
	RRTypeSRV   RRType = 33
	RRTypeOPT   RRType = 41
	RRTypeANY   RRType = 255
)

var rrTypeNames = map[RRType]string{
	RRTypeA:     "A",
	RRTypeNS:    "NS",
	RRTypeCNAME: "CNAME",
	RRTypeSOA:   "SOA",
	RRTypePTR:   "PTR",
	RRTypeMX:    "MX",
	RRTypeTXT:   "TXT",
	RRTypeAAAA:  "AAAA",
	RRTypeSRV:   "SRV",
	RRTypeOPT:   "OPT",
	RRTypeANY:   "ANY",
}

// String returns the mnemonic of the type, or "UNKNOWN(<value>)".
func (t RRType) String() string {
	if s, ok := rrTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("UNKNOWN(%d)", t)
}

// RRTypeFromTag converts a zone-file record-type tag ("a", "A") to its RRType.
// Unknown tags return 0.
func RRTypeFromTag(tag string) RRType {
	tag = strings.ToUpper(strings.TrimSpace(tag))
	for t, name := range rrTypeNames {
		if name == tag {
			return t
		}
	}
	return 0
}

// Tag returns the lower-case zone-file tag used as the record-set key.
func (t RRType) Tag() string {
	return strings.ToLower(t.String())
}
