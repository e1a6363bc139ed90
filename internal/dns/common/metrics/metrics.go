// Package metrics holds the server's Prometheus counters and the optional
// HTTP endpoint that exposes them.
package metrics

import (
	"fmt"
	"io"

	vm "github.com/VictoriaMetrics/metrics"

	"github.com/haukened/zonefwd/internal/dns/domain"
)

var set = vm.NewSet()

var (
	Queries        = set.NewCounter("zonefwd_queries_total")
	CacheHits      = set.NewCounter("zonefwd_cache_hits_total")
	CacheMisses    = set.NewCounter("zonefwd_cache_misses_total")
	UpstreamErrors = set.NewCounter("zonefwd_upstream_errors_total")
	Forwarded      = set.NewCounter("zonefwd_forwarded_total")
	CacheSwept     = set.NewCounter("zonefwd_cache_swept_total")
	CacheEvicted   = set.NewCounter("zonefwd_cache_evicted_total")
	DroppedPackets = set.NewCounter("zonefwd_dropped_packets_total")
)

// Response counts one answered query under its rcode label.
func Response(rcode domain.RCode) {
	set.GetOrCreateCounter(fmt.Sprintf(`zonefwd_responses_total{rcode=%q}`, rcode.String())).Inc()
}

// ResponseCount returns how many responses carried rcode so far.
func ResponseCount(rcode domain.RCode) uint64 {
	return set.GetOrCreateCounter(fmt.Sprintf(`zonefwd_responses_total{rcode=%q}`, rcode.String())).Get()
}

// WritePrometheus writes every counter in the Prometheus text format,
// followed by the Go runtime and process metrics.
func WritePrometheus(w io.Writer) {
	set.WritePrometheus(w)
	vm.WriteProcessMetrics(w)
}
