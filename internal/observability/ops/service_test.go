package ops

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suggestbot/internal/observability/metrics"
	logx "suggestbot/pkg/logx"
)

func get(t *testing.T, h http.Handler, target string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	ok := New(Config{}, func(context.Context) error { return nil }, logx.Nop()).Handler()
	rec := get(t, ok, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	down := New(Config{}, func(context.Context) error { return errors.New("db gone") }, logx.Nop()).Handler()
	rec = get(t, down, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "db gone")
}

func TestMetricsExposesBotCounters(t *testing.T) {
	t.Parallel()

	metrics.DroppedUpdates(1)
	rec := get(t, New(Config{}, nil, logx.Nop()).Handler(), "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "suggestbot_updates_dropped_total")
}

func TestTokenRequired(t *testing.T) {
	t.Parallel()

	h := New(Config{Token: "s3cret"}, nil, logx.Nop()).Handler()
	assert.Equal(t, http.StatusUnauthorized, get(t, h, "/healthz", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, h, "/healthz?token=nope", nil).Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/healthz?token=s3cret", nil).Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/healthz", map[string]string{"Authorization": "Bearer s3cret"}).Code)
}

func TestPprofOnlyWhenEnabled(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusNotFound, get(t, New(Config{}, nil, logx.Nop()).Handler(), "/debug/pprof/", nil).Code)
	assert.Equal(t, http.StatusOK, get(t, New(Config{Pprof: true}, nil, logx.Nop()).Handler(), "/debug/pprof/", nil).Code)
}

func TestStartRefusesPublicAddrWithoutToken(t *testing.T) {
	t.Parallel()

	s := New(Config{Enabled: true, Addr: "0.0.0.0:0"}, nil, logx.Nop())
	assert.Error(t, s.Start(context.Background()))
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	s := New(Config{Enabled: true, Addr: "127.0.0.1:0"}, nil, logx.Nop())
	require.NoError(t, s.Start(context.Background()))
	s.Stop(context.Background())

	disabled := New(Config{}, nil, logx.Nop())
	require.NoError(t, disabled.Start(context.Background()))
	disabled.Stop(context.Background())
}

func TestIsLoopbackAddr(t *testing.T) {
	t.Parallel()

	assert.True(t, isLoopbackAddr("127.0.0.1:9090"))
	assert.True(t, isLoopbackAddr("localhost:9090"))
	assert.True(t, isLoopbackAddr("[::1]:9090"))
	assert.False(t, isLoopbackAddr(":9090"))
	assert.False(t, isLoopbackAddr("10.0.0.1:9090"))
}
