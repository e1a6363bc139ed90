package zonestore

import (
	"math"

	bitsbloom "github.com/bits-and-blooms/bloom/v3"
)

// falsePositiveRate is the target rate of the origin prefilter.
const falsePositiveRate = 0.01

// bloomSize returns bit count m and hash count k for n keys at rate p:
//
//	m = - (n * ln p) / (ln 2)^2
//	k = (m / n) * ln 2
//
// Results are clamped to at least 1.
func bloomSize(n uint64, p float64) (uint64, uint8) {
	if n == 0 {
		n = 1
	}
	if !(p > 0 && p < 1) {
		p = falsePositiveRate
	}
	ln2 := math.Ln2
	m := uint64(math.Ceil(-float64(n) * math.Log(p) / (ln2 * ln2)))
	if m == 0 {
		m = 1
	}
	k := uint8(math.Max(1, math.Round((float64(m)/float64(n))*ln2)))
	return m, k
}

// newOriginFilter builds a filter holding every origin. It is filled once
// and only read afterwards.
func newOriginFilter(origins []string) *bitsbloom.BloomFilter {
	m, k := bloomSize(uint64(len(origins)), falsePositiveRate)
	bf := bitsbloom.New(uint(m), uint(k))
	for _, o := range origins {
		bf.AddString(o)
	}
	return bf
}
