package metrics

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/zonefwd/internal/dns/common/log"
	"github.com/haukened/zonefwd/internal/dns/domain"
)

func TestResponseCounters(t *testing.T) {
	before := ResponseCount(domain.RCodeNXDomain)
	Response(domain.RCodeNXDomain)
	Response(domain.RCodeNXDomain)
	assert.Equal(t, before+2, ResponseCount(domain.RCodeNXDomain))
}

func TestWritePrometheus(t *testing.T) {
	Queries.Inc()
	Response(domain.RCodeNoError)

	var buf bytes.Buffer
	WritePrometheus(&buf)
	out := buf.String()
	assert.Contains(t, out, "zonefwd_queries_total")
	assert.Contains(t, out, `zonefwd_responses_total{rcode="NOERROR"}`)
	assert.Contains(t, out, "zonefwd_dropped_packets_total")
}

func TestRouter(t *testing.T) {
	r := NewRouter()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "zonefwd_cache_hits_total")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/metrics", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ServeAndShutdown(t *testing.T) {
	s, err := Listen("127.0.0.1:0", log.NewNoopLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get("http://" + s.Addr() + "/metrics")
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "zonefwd_forwarded_total")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("metrics server did not stop")
	}
}
