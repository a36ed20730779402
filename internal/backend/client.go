// Package backend is a JSON client for the assistant service that powers
// chat, coaching, the daily quote and server-side tracking. The service is
// optional: when it cannot be reached every call fails with
// ErrBackendUnavailable and the rest of the application keeps working.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/manav03panchal/personalvault/internal/errors"
	"github.com/manav03panchal/personalvault/internal/logging"
	"github.com/manav03panchal/personalvault/internal/validate"
)

// HTTPError is a non-retryable response from the service.
type HTTPError struct {
	StatusCode int
	Detail     string
}

func (e *HTTPError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend returned HTTP %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("backend returned HTTP %d", e.StatusCode)
}

// Options configures a Client.
type Options struct {
	BaseURL string
	// Timeout is the per-request timeout.
	Timeout time.Duration
	// RetryDelays are the waits before each attempt; its length is the
	// attempt count.
	RetryDelays []time.Duration
	HTTPClient  *http.Client
}

// Client talks to the assistant service.
type Client struct {
	baseURL string
	client  *http.Client
	delays  []time.Duration
	log     *slog.Logger
}

// New creates a Client. An empty BaseURL is rejected.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, errors.NewUserError("backend URL is not configured", "Set backend.base_url in the config file")
	}
	if err := validate.URL(opts.BaseURL); err != nil {
		return nil, err
	}

	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	delays := opts.RetryDelays
	if len(delays) == 0 {
		delays = []time.Duration{0}
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		client:  client,
		delays:  delays,
		log:     logging.ForComponent("backend"),
	}, nil
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string { return c.baseURL }

// Health reports whether the service answers /health.
func (c *Client) Health(ctx context.Context) error {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return err
	}
	if out.Status != "healthy" {
		return fmt.Errorf("backend reports status %q: %w", out.Status, errors.ErrBackendUnavailable)
	}
	return nil
}

// Chat sends a message to the assistant.
func (c *Client) Chat(ctx context.Context, userID, message string) (ChatResponse, error) {
	var out ChatResponse
	err := c.do(ctx, http.MethodPost, "/api/chat/", ChatRequest{Message: message, UserID: userID}, &out)
	return out, err
}

// History returns up to limit recent chat turns.
func (c *Client) History(ctx context.Context, userID string, limit int) ([]HistoryMessage, error) {
	var out struct {
		History []HistoryMessage `json:"history"`
	}
	p := "/api/chat/history/" + url.PathEscape(userID) + "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	err := c.do(ctx, http.MethodGet, p, nil, &out)
	return out.History, err
}

// Coach asks the conversation partner for feedback on message.
func (c *Client) Coach(ctx context.Context, userID, message string) (CoachResponse, error) {
	var out CoachResponse
	err := c.do(ctx, http.MethodPost, "/api/coach/feedback", CoachRequest{Message: message, UserID: userID}, &out)
	return out, err
}

// DailyQuote fetches today's quote from the service.
func (c *Client) DailyQuote(ctx context.Context) (Quote, error) {
	var out Quote
	err := c.do(ctx, http.MethodGet, "/api/quotes/daily-quote", nil, &out)
	return out, err
}

// LogTracking records an entry server-side.
func (c *Client) LogTracking(ctx context.Context, e TrackingEntry) (TrackingRecord, error) {
	if err := validate.Struct(e); err != nil {
		return TrackingRecord{}, err
	}
	var out TrackingRecord
	err := c.do(ctx, http.MethodPost, "/api/tracking/log", e, &out)
	return out, err
}

// Tracking lists entries, optionally filtered by type.
func (c *Client) Tracking(ctx context.Context, userID, typ string, limit int) ([]TrackingRecord, error) {
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if typ != "" {
		q.Set("type", typ)
	}
	var out struct {
		Entries []TrackingRecord `json:"entries"`
		Count   int              `json:"count"`
	}
	err := c.do(ctx, http.MethodGet, "/api/tracking/"+url.PathEscape(userID)+"?"+q.Encode(), nil, &out)
	return out.Entries, err
}

// Dashboard returns analytics over the last days days.
func (c *Client) Dashboard(ctx context.Context, userID string, days int) (Dashboard, error) {
	var out Dashboard
	p := "/api/analytics/dashboard/" + url.PathEscape(userID) + "?" + url.Values{"days": {strconv.Itoa(days)}}.Encode()
	err := c.do(ctx, http.MethodGet, p, nil, &out)
	return out, err
}

// do sends one JSON request, retrying transport failures, 429 and 5xx
// responses on the configured delays.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return err
		}
	}

	requestID := logging.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = logging.GenerateRequestID()
	}
	log := c.log.With(logging.KeyRequestID, requestID, logging.KeyOperation, method+" "+path)

	var lastErr error
	for attempt, delay := range c.delays {
		if delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "PersonalVault/1.0")
		req.Header.Set("X-Request-Id", requestID)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		start := time.Now()
		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			log.Debug("backend request failed", logging.KeyAttempt, attempt+1, logging.KeyError, err)
			continue
		}
		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		log.Debug("backend responded", logging.KeyAttempt, attempt+1, logging.KeyStatus, resp.StatusCode,
			logging.KeyDuration, time.Since(start).Milliseconds())

		switch {
		case readErr != nil:
			lastErr = fmt.Errorf("read response: %w", readErr)
			continue
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if out == nil || len(data) == 0 {
				return nil
			}
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("decode %s response: %w", path, err)
			}
			return nil
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("rate limited (HTTP 429)")
			continue
		case resp.StatusCode >= 500:
			lastErr = httpError(resp.StatusCode, data)
			continue
		default:
			return httpError(resp.StatusCode, data)
		}
	}

	log.Warn("backend unreachable", logging.KeyError, lastErr)
	return fmt.Errorf("%s %s: %w", method, path, stderrors.Join(errors.ErrBackendUnavailable, lastErr))
}

func httpError(status int, body []byte) *HTTPError {
	var payload struct {
		Detail any `json:"detail"`
	}
	e := &HTTPError{StatusCode: status}
	if json.Unmarshal(body, &payload) == nil && payload.Detail != nil {
		if s, ok := payload.Detail.(string); ok {
			e.Detail = s
		} else if b, err := json.Marshal(payload.Detail); err == nil {
			e.Detail = string(b)
		}
	}
	return e
}
