package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/manav03panchal/personalvault/internal/logging"
)

// FlushFunc writes out every pending change.
type FlushFunc func(ctx context.Context) error

// NewRouter serves the daemon's HTTP surface:
//
//	GET  /health   health JSON; 503 when a check fails
//	GET  /metrics  Prometheus exposition
//	POST /flush    write out pending changes now
func NewRouter(health *HealthChecker, metrics http.Handler, flush FlushFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		st := health.Check()
		code := http.StatusOK
		if st.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, st)
	})

	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	if flush != nil {
		r.Post("/flush", func(w http.ResponseWriter, req *http.Request) {
			if err := flush(req.Context()); err != nil {
				writeJSON(w, http.StatusBadGateway, map[string]string{"status": "error", "error": err.Error()})
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	}

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r.WithContext(ctx))

		logging.DebugContext(ctx, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			logging.KeyStatus, ww.Status(),
			logging.KeyDuration, time.Since(start).Milliseconds(),
		)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
