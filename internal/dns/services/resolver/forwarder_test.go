package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/haukened/zonefwd/internal/dns/common/clock"
	"github.com/haukened/zonefwd/internal/dns/common/log"
	"github.com/haukened/zonefwd/internal/dns/domain"
	"github.com/haukened/zonefwd/internal/dns/gateways/wire"
)

func newTestForwarder(t *testing.T, up Upstream) (*Forwarder, *clock.MockClock) {
	t.Helper()
	clk := clock.NewMockClock(epoch)
	return NewForwarder(ForwarderOptions{
		Cache:    newTestCache(t, clk),
		Upstream: up,
		Clock:    clk,
		Logger:   log.NewNoopLogger(),
	}), clk
}

func TestForwarder_Resolve(t *testing.T) {
	f, clk := newTestForwarder(t, aReply(300, "93.184.216.34"))

	addr, err := f.Resolve(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, "93.184.216.34", addr)

	e, ok := f.cache.Entry("example.com")
	require.True(t, ok)
	assert.Equal(t, clk.Now().Add(300*time.Second), e.Expiration)
}

func TestForwarder_CacheHitSkipsUpstream(t *testing.T) {
	up := &MockUpstream{}
	f, clk := newTestForwarder(t, up)
	f.cache.Put("cached.test", "10.1.2.3", 60)

	addr, err := f.Resolve(context.Background(), "Cached.Test.")
	require.NoError(t, err)
	assert.Equal(t, "10.1.2.3", addr)

	// expired but unswept entries are still served
	clk.Advance(time.Hour)
	e, err := f.ResolveEntry(context.Background(), "cached.test")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), e.TTLRemaining(clk.Now()))
	up.AssertNotCalled(t, "Exchange", mock.Anything, mock.Anything)
}

func TestForwarder_QueryShape(t *testing.T) {
	var seen *dns.Msg
	up := upstreamFunc(func(q *dns.Msg) *dns.Msg {
		seen = q
		return aReply(30, "1.2.3.4")(q)
	})
	clk := clock.NewMockClock(epoch)
	f := NewForwarder(ForwarderOptions{
		Cache:    newTestCache(t, clk),
		Upstream: up,
		Clock:    clk,
		Logger:   log.NewNoopLogger(),
		NextID:   FixedID(0xCAFE),
	})
	_, err := f.Resolve(context.Background(), "www.example.org")
	require.NoError(t, err)

	require.NotNil(t, seen)
	assert.Equal(t, uint16(0xCAFE), seen.Id)
	assert.True(t, seen.RecursionDesired)
	require.Len(t, seen.Question, 1)
	assert.Equal(t, "www.example.org.", seen.Question[0].Name)
	assert.Equal(t, dns.TypeA, seen.Question[0].Qtype)
	assert.Equal(t, uint16(dns.ClassINET), seen.Question[0].Qclass)
}

func TestForwarder_SkipsNonAddressAnswers(t *testing.T) {
	up := upstreamFunc(func(q *dns.Msg) *dns.Msg {
		r := aReply(120, "198.51.100.7")(q)
		cname := &dns.CNAME{
			Hdr:    dns.RR_Header{Name: q.Question[0].Name, Rrtype: dns.TypeCNAME, Class: dns.ClassINET, Ttl: 60},
			Target: "edge.example.net.",
		}
		txt := &dns.TXT{
			Hdr: dns.RR_Header{Name: q.Question[0].Name, Rrtype: dns.TypeTXT, Class: dns.ClassINET, Ttl: 60},
			Txt: []string{"hello"},
		}
		r.Answer = append([]dns.RR{cname, txt}, r.Answer...)
		return r
	})
	f, _ := newTestForwarder(t, up)
	addr, err := f.Resolve(context.Background(), "alias.example.net")
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.7", addr)
}

func TestForwarder_Failures(t *testing.T) {
	tests := []struct {
		name    string
		up      Upstream
		wantErr error
	}{
		{
			name:    "transport error",
			up:      upstreamErr(errors.New("connection refused")),
			wantErr: domain.ErrResolution,
		},
		{
			name: "nxdomain upstream",
			up: upstreamFunc(func(q *dns.Msg) *dns.Msg {
				r := new(dns.Msg)
				r.SetRcode(q, dns.RcodeNameError)
				return r
			}),
			wantErr: domain.ErrNotFound,
		},
		{
			name:    "no answers",
			up:      aReply(60),
			wantErr: domain.ErrNotFound,
		},
		{
			name: "id mismatch",
			up: upstreamFunc(func(q *dns.Msg) *dns.Msg {
				r := aReply(60, "1.1.1.1")(q)
				r.Id = q.Id + 1
				return r
			}),
			wantErr: domain.ErrResolution,
		},
		{
			name: "not a response",
			up: upstreamFunc(func(q *dns.Msg) *dns.Msg {
				r := aReply(60, "1.1.1.1")(q)
				r.Response = false
				return r
			}),
			wantErr: domain.ErrResolution,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, _ := newTestForwarder(t, tt.up)
			_, err := f.Resolve(context.Background(), "example.com")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			_, cached := f.cache.Entry("example.com")
			assert.False(t, cached, "failures are not cached")
		})
	}
}

func upstreamErr(err error) Upstream {
	up := &MockUpstream{}
	up.On("Exchange", mock.Anything, mock.Anything).Return(nil, err)
	return up
}

func TestParseReply_Malformed(t *testing.T) {
	_, _, err := parseReply([]byte{0x00, 0x01}, 1)
	assert.True(t, errors.Is(err, domain.ErrResolution))

	// header claims one answer that is not there
	hdr := wire.EncodeHeader(domain.Header{ID: 5, Flags: domain.Flags{QR: true}, ANCount: 1})
	_, _, err = parseReply(hdr, 5)
	assert.True(t, errors.Is(err, domain.ErrResolution))

	// answer whose name is a pointer loop
	loop := append(wire.EncodeHeader(domain.Header{ID: 5, Flags: domain.Flags{QR: true}, ANCount: 1}), 0x01, 'a', 0xc0, 0x0c)
	_, _, err = parseReply(loop, 5)
	assert.True(t, errors.Is(err, domain.ErrResolution))
}

func TestRandomID(t *testing.T) {
	seen := map[uint16]bool{}
	for i := 0; i < 64; i++ {
		seen[RandomID()] = true
	}
	assert.Greater(t, len(seen), 1)
}
