// Package recordcache holds forwarded answers until their TTL runs out and
// persists them across restarts.
package recordcache

import (
	"fmt"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/haukened/zonefwd/internal/dns/common/clock"
	"github.com/haukened/zonefwd/internal/dns/common/log"
	"github.com/haukened/zonefwd/internal/dns/common/metrics"
	"github.com/haukened/zonefwd/internal/dns/common/utils"
	"github.com/haukened/zonefwd/internal/dns/domain"
)

// Persister writes and reads complete cache snapshots.
type Persister interface {
	Save(entries []domain.CacheEntry) error
	// Load returns whatever entries could be read. A non-nil error with
	// entries means a partial restore.
	Load() ([]domain.CacheEntry, error)
}

// Cache maps domains to their last forwarded address. Every operation holds
// the same mutex.
//
// Get does not check expiry. An expired entry stays readable until the next
// Sweep removes it; callers that care use Entry and look at the expiration.
// The only other removal is capacity eviction, which is logged and counted.
type Cache struct {
	mu     sync.Mutex
	lru    *lru.Cache[string, domain.CacheEntry]
	clock  clock.Clock
	store  Persister
	logger log.Logger

	// adding is set while add runs so the evict callback ignores
	// Remove and Purge.
	adding  bool
	evicted []domain.CacheEntry

	persistMu sync.Mutex
}

// New returns a cache bounded to size entries. Beyond that the least
// recently used entry is evicted. store may be nil for a memory-only cache.
func New(size int, clk clock.Clock, store Persister, logger log.Logger) (*Cache, error) {
	c := &Cache{
		clock:  clk,
		store:  store,
		logger: logger,
	}
	backing, err := lru.NewWithEvict[string, domain.CacheEntry](size, c.onEvict)
	if err != nil {
		return nil, fmt.Errorf("failed to create record cache: %w", err)
	}
	c.lru = backing
	return c, nil
}

// onEvict runs inside lru calls made with c.mu held.
func (c *Cache) onEvict(_ string, entry domain.CacheEntry) {
	if c.adding {
		c.evicted = append(c.evicted, entry)
	}
}

// add stores entry under key. Callers hold c.mu, then pass takeEvicted to
// reportEvicted after unlocking.
func (c *Cache) add(key string, entry domain.CacheEntry) {
	c.adding = true
	c.lru.Add(key, entry)
	c.adding = false
}

func (c *Cache) takeEvicted() []domain.CacheEntry {
	evicted := c.evicted
	c.evicted = nil
	return evicted
}

func (c *Cache) reportEvicted(evicted []domain.CacheEntry) {
	if len(evicted) == 0 {
		return
	}
	metrics.CacheEvicted.Add(len(evicted))
	for _, e := range evicted {
		c.logger.Debug(map[string]any{
			"name":       e.Domain,
			"expiration": e.Expiration,
		}, "Evicted record cache entry at capacity")
	}
}

// Put stores value for name, replacing any previous entry. The entry
// expires ttl seconds from now.
func (c *Cache) Put(name, value string, ttl uint32) {
	key := utils.CanonicalDNSName(name)
	entry := domain.NewCacheEntry(key, value, ttl, c.clock.Now())

	c.mu.Lock()
	c.add(key, entry)
	evicted := c.takeEvicted()
	c.mu.Unlock()

	c.reportEvicted(evicted)
}

// Get returns the stored value for name, expired or not.
func (c *Cache) Get(name string) (string, bool) {
	entry, ok := c.Entry(name)
	if !ok {
		return "", false
	}
	return entry.Value, true
}

// Entry returns the full entry for name, expired or not.
func (c *Cache) Entry(name string) (domain.CacheEntry, bool) {
	key := utils.CanonicalDNSName(name)

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Get(key)
}

// Sweep removes every entry whose expiration is at or before now and
// returns how many were removed.
func (c *Cache) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, key := range c.lru.Keys() {
		entry, ok := c.lru.Peek(key)
		if ok && entry.Expired(now) {
			c.lru.Remove(key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Snapshot copies every entry, ordered by domain.
func (c *Cache) Snapshot() []domain.CacheEntry {
	c.mu.Lock()
	entries := c.lru.Values()
	c.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].Domain < entries[j].Domain })
	return entries
}

// Persist writes a snapshot to the persister. Writes are serialized so an
// older snapshot never overwrites a newer one.
func (c *Cache) Persist() error {
	if c.store == nil {
		return nil
	}
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	entries := c.Snapshot()
	if err := c.store.Save(entries); err != nil {
		return fmt.Errorf("failed to persist record cache: %w", err)
	}
	c.logger.Debug(map[string]any{"entries": len(entries)}, "Persisted record cache")
	return nil
}

// Restore replaces the cache contents with the persisted snapshot. Whatever
// could be read is kept even when an error is returned; a missing snapshot
// leaves the cache empty without error.
func (c *Cache) Restore() error {
	if c.store == nil {
		return nil
	}
	entries, loadErr := c.store.Load()

	c.mu.Lock()
	c.lru.Purge()
	for _, e := range entries {
		c.add(utils.CanonicalDNSName(e.Domain), e)
	}
	restored := c.lru.Len()
	evicted := c.takeEvicted()
	c.mu.Unlock()

	c.reportEvicted(evicted)

	c.logger.Info(map[string]any{"entries": restored}, "Restored record cache")
	if loadErr != nil {
		return fmt.Errorf("failed to restore record cache: %w", loadErr)
	}
	return nil
}
