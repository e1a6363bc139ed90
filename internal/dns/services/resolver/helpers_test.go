package resolver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/haukened/zonefwd/internal/dns/common/clock"
	"github.com/haukened/zonefwd/internal/dns/common/log"
	"github.com/haukened/zonefwd/internal/dns/domain"
	"github.com/haukened/zonefwd/internal/dns/repos/recordcache"
	"github.com/haukened/zonefwd/internal/dns/repos/zonestore"
)

var epoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// MockUpstream implements Upstream for testing
type MockUpstream struct {
	mock.Mock
}

func (m *MockUpstream) Exchange(ctx context.Context, query []byte) ([]byte, error) {
	args := m.Called(ctx, query)
	if b, ok := args.Get(0).([]byte); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

// upstreamFunc answers queries with a miekg/dns message built by fn.
type upstreamFunc func(q *dns.Msg) *dns.Msg

func (f upstreamFunc) Exchange(_ context.Context, query []byte) ([]byte, error) {
	var q dns.Msg
	if err := q.Unpack(query); err != nil {
		return nil, err
	}
	return f(&q).Pack()
}

func aReply(ttl uint32, addrs ...string) upstreamFunc {
	return func(q *dns.Msg) *dns.Msg {
		r := new(dns.Msg)
		r.SetReply(q)
		r.Compress = true
		r.RecursionAvailable = true
		for _, a := range addrs {
			r.Answer = append(r.Answer, &dns.A{
				Hdr: dns.RR_Header{Name: q.Question[0].Name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: ttl},
				A:   net.ParseIP(a).To4(),
			})
		}
		return r
	}
}

func testZoneStore() *zonestore.Store {
	return zonestore.New(map[string]domain.Zone{
		"example.com": {
			Origin: "example.com",
			Records: map[string][]domain.Record{
				"a": {{TTL: 300, Value: "93.184.216.34"}, {TTL: 60, Value: "93.184.216.35"}},
			},
		},
		"single.test": {
			Origin:  "single.test",
			Records: map[string][]domain.Record{"a": {{TTL: 5, Value: "10.0.0.1"}}},
		},
	})
}

func newTestCache(t *testing.T, clk clock.Clock) *recordcache.Cache {
	t.Helper()
	c, err := recordcache.New(100, clk, nil, log.NewNoopLogger())
	require.NoError(t, err)
	return c
}

func packQuery(t *testing.T, name string, qtype uint16, id uint16) []byte {
	t.Helper()
	m := new(dns.Msg)
	m.SetQuestion(name, qtype)
	m.Id = id
	b, err := m.Pack()
	require.NoError(t, err)
	return b
}

func unpack(t *testing.T, b []byte) *dns.Msg {
	t.Helper()
	var m dns.Msg
	require.NoError(t, m.Unpack(b))
	return &m
}
