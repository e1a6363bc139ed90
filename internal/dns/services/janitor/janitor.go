// Package janitor periodically removes expired entries from the record cache
// and writes the result to its persistent snapshot.
package janitor

import (
	"context"
	"sync"
	"time"

	"github.com/haukened/zonefwd/internal/dns/common/clock"
	"github.com/haukened/zonefwd/internal/dns/common/log"
	"github.com/haukened/zonefwd/internal/dns/common/metrics"
)

// Cache is the part of the record cache the janitor maintains.
type Cache interface {
	Sweep(now time.Time) int
	Persist() error
}

// Options configures a Janitor.
type Options struct {
	Cache    Cache
	Interval time.Duration
	Clock    clock.Clock
	Logger   log.Logger
	// tick overrides the ticker channel in tests.
	tick <-chan time.Time
}

// Janitor runs sweep then persist on a fixed interval.
type Janitor struct {
	cache    Cache
	interval time.Duration
	clock    clock.Clock
	logger   log.Logger
	tick     <-chan time.Time

	done chan struct{}
	once sync.Once
}

// New creates a Janitor. Run starts it.
func New(opts Options) *Janitor {
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	return &Janitor{
		cache:    opts.Cache,
		interval: opts.Interval,
		clock:    opts.Clock,
		logger:   opts.Logger,
		tick:     opts.tick,
		done:     make(chan struct{}),
	}
}

// Run blocks until ctx is cancelled, then persists once more and returns.
func (j *Janitor) Run(ctx context.Context) {
	defer j.once.Do(func() { close(j.done) })

	tick := j.tick
	if tick == nil {
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			j.persist()
			j.logger.Info(nil, "Cache janitor stopped")
			return
		case <-tick:
			j.RunOnce()
		}
	}
}

// Done is closed once Run has returned.
func (j *Janitor) Done() <-chan struct{} {
	return j.done
}

// RunOnce sweeps expired entries and persists the cache.
func (j *Janitor) RunOnce() {
	removed := j.cache.Sweep(j.clock.Now())
	if removed > 0 {
		metrics.CacheSwept.Add(removed)
		j.logger.Debug(map[string]any{"removed": removed}, "Swept expired cache entries")
	}
	j.persist()
}

func (j *Janitor) persist() {
	if err := j.cache.Persist(); err != nil {
		j.logger.Warn(map[string]any{"error": err.Error()}, "Failed to persist cache")
	}
}
