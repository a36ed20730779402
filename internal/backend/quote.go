package backend

import (
	"context"
	"encoding/json"
	"time"

	"github.com/manav03panchal/personalvault/internal/model"
)

// QuoteCache stores the last fetched quote.
type QuoteCache interface {
	GetBytes(key string) ([]byte, error)
	SetBytes(key string, data []byte) error
}

// QuoteSource fetches quotes from the service.
type QuoteSource interface {
	DailyQuote(ctx context.Context) (Quote, error)
}

// CachedQuote returns today's quote, asking the service at most once per
// local calendar day. When the service is unreachable the last cached quote
// is returned with the error.
func CachedQuote(ctx context.Context, src QuoteSource, cache QuoteCache, now time.Time) (Quote, error) {
	today := model.FormatDate(now)

	var cached Quote
	if data, err := cache.GetBytes(model.KeyDailyQuote); err == nil {
		if json.Unmarshal(data, &cached) == nil && cached.Date == today && cached.Quote != "" {
			cached.Cached = true
			return cached, nil
		}
	}

	q, err := src.DailyQuote(ctx)
	if err != nil {
		if cached.Quote != "" {
			cached.Cached = true
			return cached, err
		}
		return Quote{}, err
	}

	q.Date = today
	if data, err := json.Marshal(q); err == nil {
		_ = cache.SetBytes(model.KeyDailyQuote, data)
	}
	return q, nil
}
