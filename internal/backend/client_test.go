package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/personalvault/internal/errors"
	"github.com/manav03panchal/personalvault/internal/model"
	"github.com/manav03panchal/personalvault/internal/storage"
)

type fakeService struct {
	*httptest.Server
	quoteCalls atomic.Int32
	failures   atomic.Int32 // remaining 503 responses
	lastBody   map[string]any
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()
	s := &fakeService{}

	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	decode := func(r *http.Request) {
		s.lastBody = map[string]any{}
		_ = json.NewDecoder(r.Body).Decode(&s.lastBody)
	}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.failures.Load() > 0 {
				s.failures.Add(-1)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"detail": "warming up"})
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	r.Post("/api/chat/", func(w http.ResponseWriter, r *http.Request) {
		decode(r)
		writeJSON(w, http.StatusOK, map[string]any{
			"response":  "echo: " + s.lastBody["message"].(string),
			"timestamp": "2024-05-01T09:00:00Z",
		})
	})
	r.Get("/api/chat/history/{user}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"history": []map[string]string{
			{"id": "m1", "user_id": chi.URLParam(r, "user"), "role": "user", "message": "hi"},
		}})
	})
	r.Post("/api/coach/feedback", func(w http.ResponseWriter, r *http.Request) {
		decode(r)
		writeJSON(w, http.StatusOK, map[string]string{"feedback": "sounds good"})
	})
	r.Get("/api/quotes/daily-quote", func(w http.ResponseWriter, r *http.Request) {
		n := s.quoteCalls.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{"quote": fmt.Sprintf("quote %d", n), "date": "2024-05-01", "cached": false})
	})
	r.Post("/api/tracking/log", func(w http.ResponseWriter, r *http.Request) {
		decode(r)
		writeJSON(w, http.StatusOK, map[string]any{
			"id": "t1", "user_id": s.lastBody["user_id"], "type": s.lastBody["type"],
			"value": s.lastBody["value"], "timestamp": "2024-05-01T09:00:00Z",
		})
	})
	r.Get("/api/tracking/{user}", func(w http.ResponseWriter, r *http.Request) {
		entries := []map[string]any{{"id": "t1", "type": r.URL.Query().Get("type"), "value": 2}}
		writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "count": 1})
	})
	r.Get("/api/analytics/dashboard/{user}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "user") == "nobody" {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "unknown user"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"sleep_avg": 7.5, "water_avg": 6, "gym_count": 3, "mood_avg": 0.5,
			"total_entries": 12, "insights": []string{"Sleep is steady"},
		})
	})

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

func newClient(t *testing.T, baseURL string, attempts int) *Client {
	t.Helper()
	delays := make([]time.Duration, attempts)
	for i := 1; i < attempts; i++ {
		delays[i] = time.Millisecond
	}
	c, err := New(Options{BaseURL: baseURL, RetryDelays: delays, Timeout: time.Second})
	require.NoError(t, err)
	return c
}

// =============================================================================
// Endpoint Tests
// =============================================================================

func TestChatAndCoach(t *testing.T) {
	svc := newFakeService(t)
	c := newClient(t, svc.URL, 1)
	ctx := context.Background()

	require.NoError(t, c.Health(ctx))

	resp, err := c.Chat(ctx, "ada", "hello")
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", resp.Response)
	assert.Equal(t, "ada", svc.lastBody["user_id"])

	history, err := c.History(ctx, "ada", 5)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "ada", history[0].UserID)

	fb, err := c.Coach(ctx, "ada", "I ran today")
	require.NoError(t, err)
	assert.Equal(t, "sounds good", fb.Feedback)
}

func TestTrackingAndDashboard(t *testing.T) {
	svc := newFakeService(t)
	c := newClient(t, svc.URL, 1)
	ctx := context.Background()

	rec, err := c.LogTracking(ctx, TrackingEntry{UserID: "ada", Type: "water", Value: 2})
	require.NoError(t, err)
	assert.Equal(t, "t1", rec.ID)
	assert.Equal(t, "water", rec.Type)

	_, err = c.LogTracking(ctx, TrackingEntry{UserID: "ada", Type: "juggling"})
	assert.True(t, errors.IsUserError(err))

	entries, err := c.Tracking(ctx, "ada", "water", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "water", entries[0].Type)

	d, err := c.Dashboard(ctx, "ada", 7)
	require.NoError(t, err)
	assert.Equal(t, 3, d.GymCount)
	assert.Equal(t, []string{"Sleep is steady"}, d.Insights)
}

// =============================================================================
// Failure Tests
// =============================================================================

func TestClientErrorIsNotRetried(t *testing.T) {
	svc := newFakeService(t)
	c := newClient(t, svc.URL, 3)

	_, err := c.Dashboard(context.Background(), "nobody", 7)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Equal(t, "unknown user", httpErr.Detail)
	assert.NotErrorIs(t, err, errors.ErrBackendUnavailable)
}

func TestServerErrorsAreRetried(t *testing.T) {
	svc := newFakeService(t)
	svc.failures.Store(2)
	c := newClient(t, svc.URL, 3)

	q, err := c.DailyQuote(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "quote 1", q.Quote)
}

func TestExhaustedRetriesAreUnavailable(t *testing.T) {
	svc := newFakeService(t)
	svc.failures.Store(5)
	c := newClient(t, svc.URL, 2)

	_, err := c.DailyQuote(context.Background())
	assert.ErrorIs(t, err, errors.ErrBackendUnavailable)
	assert.Contains(t, err.Error(), "warming up")
}

func TestUnreachableBackend(t *testing.T) {
	svc := newFakeService(t)
	url := svc.URL
	svc.Close()

	c := newClient(t, url, 2)
	err := c.Health(context.Background())
	assert.ErrorIs(t, err, errors.ErrBackendUnavailable)
}

func TestNewRejectsMissingURL(t *testing.T) {
	_, err := New(Options{})
	assert.True(t, errors.IsUserError(err))
	_, err = New(Options{BaseURL: "not a url"})
	assert.Error(t, err)
}

// =============================================================================
// Daily Quote Cache Tests
// =============================================================================

func TestCachedQuoteFetchesOncePerDay(t *testing.T) {
	svc := newFakeService(t)
	c := newClient(t, svc.URL, 1)
	db, err := storage.Open(storage.Options{InMemory: true})
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	day1 := time.Date(2024, 5, 1, 8, 0, 0, 0, time.Local)

	q, err := CachedQuote(ctx, c, db, day1)
	require.NoError(t, err)
	assert.Equal(t, "quote 1", q.Quote)
	assert.False(t, q.Cached)

	q, err = CachedQuote(ctx, c, db, day1.Add(10*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "quote 1", q.Quote)
	assert.True(t, q.Cached)
	assert.EqualValues(t, 1, svc.quoteCalls.Load())

	q, err = CachedQuote(ctx, c, db, day1.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, "quote 2", q.Quote)

	var stored Quote
	require.NoError(t, db.GetJSON(model.KeyDailyQuote, &stored))
	assert.Equal(t, "2024-05-02", stored.Date)
}

func TestCachedQuoteFallsBackWhenOffline(t *testing.T) {
	db, err := storage.Open(storage.Options{InMemory: true})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.SetJSON(model.KeyDailyQuote, Quote{Quote: "yesterday's", Date: "2024-04-30"}))

	svc := newFakeService(t)
	url := svc.URL
	svc.Close()
	c := newClient(t, url, 1)

	q, err := CachedQuote(context.Background(), c, db, time.Date(2024, 5, 1, 8, 0, 0, 0, time.Local))
	assert.ErrorIs(t, err, errors.ErrBackendUnavailable)
	assert.Equal(t, "yesterday's", q.Quote)
}
