package metrics

import (
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/personalvault/internal/errors"
	"github.com/manav03panchal/personalvault/internal/remote"
	"github.com/manav03panchal/personalvault/internal/repo"
	"github.com/manav03panchal/personalvault/internal/syncer"
)

var (
	_ remote.Observer = (*Collector)(nil)
	_ syncer.Observer = (*Collector)(nil)
	_ repo.Observer   = (*Collector)(nil)
)

func TestResultLabels(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ResultOK},
		{fmt.Errorf("x: %w", errors.ErrAuthExpired), ResultAuth},
		{fmt.Errorf("x: %w", errors.ErrRemoteUnavailable), ResultUnavailable},
		{fmt.Errorf("x: %w", errors.ErrMalformedRemoteData), ResultMalformed},
		{fmt.Errorf("x: %w", errors.ErrRemoteNotFound), ResultNotFound},
		{fmt.Errorf("boom"), ResultError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Result(tt.err), "%v", tt.err)
	}
}

func TestCollectorCounts(t *testing.T) {
	c := New()

	c.ObserveFlush("notes", 20*time.Millisecond, nil)
	c.ObserveFlush("notes", time.Millisecond, errors.ErrRemoteUnavailable)
	c.ObserveCoalesced("notes")
	c.ObserveCoalesced("notes")
	c.ObserveRemoteRead("habits", nil)
	c.ObserveRemoteCall("read file", time.Millisecond, nil)
	c.ObserveAuthRefresh(fmt.Errorf("invalid_grant"))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Flushes.WithLabelValues("notes", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Flushes.WithLabelValues("notes", ResultUnavailable)))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Coalesced.WithLabelValues("notes")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.RemoteReads.WithLabelValues("habits", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.RemoteCalls.WithLabelValues("read file", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.AuthRefreshes.WithLabelValues(ResultError)))
}

func TestBreakerStateIsExclusive(t *testing.T) {
	c := New()
	assert.Equal(t, 1.0, testutil.ToFloat64(c.BreakerState.WithLabelValues("closed")))

	c.ObserveBreakerState("open")
	assert.Equal(t, 0.0, testutil.ToFloat64(c.BreakerState.WithLabelValues("closed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.BreakerState.WithLabelValues("open")))
}

func TestCollectorsAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.ObserveCoalesced("notes")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Coalesced.WithLabelValues("notes")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := New()
	c.ObserveFlush("videos", time.Millisecond, nil)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `personalvault_sync_flushes_total{domain="videos",result="ok"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
