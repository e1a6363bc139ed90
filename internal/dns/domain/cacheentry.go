package domain

import (
	"math"
	"time"
)

// CacheEntry is a forwarded answer held until Expiration.
type CacheEntry struct {
	Domain     string
	Expiration time.Time
	Value      string
}

// NewCacheEntry builds an entry that expires ttl seconds after now.
func NewCacheEntry(domain, value string, ttl uint32, now time.Time) CacheEntry {
	return CacheEntry{
		Domain:     domain,
		Value:      value,
		Expiration: now.Add(time.Duration(ttl) * time.Second),
	}
}

// Expired reports whether the entry is due for removal. An entry whose
// expiration equals now is expired.
func (e CacheEntry) Expired(now time.Time) bool {
	return !e.Expiration.After(now)
}

// TTLRemaining returns whole seconds until expiration, clamped at 0.
func (e CacheEntry) TTLRemaining(now time.Time) uint32 {
	d := e.Expiration.Sub(now)
	if d <= 0 {
		return 0
	}
	secs := int64(d / time.Second)
	if secs > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(secs)
}
