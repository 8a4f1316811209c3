package rendezvous

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/nyatetris/internal/relay"
)

func newTestServer(t *testing.T, opts ...Option) (*Server, *Client) {
	t.Helper()
	srv := NewServer(opts...)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return srv, NewClient(ts.URL, ts.Client())
}

func TestClaimResolveRelease(t *testing.T) {
	srv, c := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, c.Claim(ctx, "nyatetris-ABCD", "ws://10.0.0.1:4000/ws"))
	got, err := c.Resolve(ctx, "nyatetris-ABCD")
	require.NoError(t, err)
	assert.Equal(t, "ws://10.0.0.1:4000/ws", got)
	assert.Equal(t, 1.0, testutil.ToFloat64(srv.metrics.addresses))

	require.NoError(t, c.Release(ctx, "nyatetris-ABCD"))
	_, err = c.Resolve(ctx, "nyatetris-ABCD")
	assert.ErrorIs(t, err, relay.ErrPeerUnreachable)
	assert.Equal(t, 0.0, testutil.ToFloat64(srv.metrics.addresses))
}

func TestClaimConflict(t *testing.T) {
	srv, c := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, c.Claim(ctx, "room", "ws://a:1/ws"))
	// Renewing with the same URL is fine.
	require.NoError(t, c.Claim(ctx, "room", "ws://a:1/ws"))

	err := c.Claim(ctx, "room", "ws://b:2/ws")
	assert.ErrorIs(t, err, relay.ErrAddressTaken)
	assert.Equal(t, 1.0, testutil.ToFloat64(srv.metrics.claims.WithLabelValues("conflict")))
	assert.Equal(t, 2.0, testutil.ToFloat64(srv.metrics.claims.WithLabelValues("ok")))
}

func TestClaimExpires(t *testing.T) {
	var offset atomic.Int64
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return base.Add(time.Duration(offset.Load())) }
	_, c := newTestServer(t, WithTTL(time.Minute), WithClock(clock))
	ctx := context.Background()

	require.NoError(t, c.Claim(ctx, "room", "ws://a:1/ws"))
	offset.Store(int64(2 * time.Minute))

	require.NoError(t, c.Claim(ctx, "room", "ws://b:2/ws"), "expired claim should be reusable")
	got, err := c.Resolve(ctx, "room")
	require.NoError(t, err)
	assert.Equal(t, "ws://b:2/ws", got)
}

func TestReleaseUnknownIsNoop(t *testing.T) {
	_, c := newTestServer(t)
	assert.NoError(t, c.Release(context.Background(), "nobody"))
}

func TestClaimRejectsBadBody(t *testing.T) {
	srv := NewServer()
	tests := []struct {
		name string
		body string
	}{
		{"not json", "nope"},
		{"relative url", `{"url":"/ws"}`},
		{"empty", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/peers/room", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	srv := NewServer()

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/peers/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `nyatetris_rendezvous_lookups_total{result="miss"} 1`)
}
