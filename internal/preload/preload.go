// Package preload warms every domain at startup: cache first, then a
// concurrent remote refresh once the session is usable.
package preload

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/manav03panchal/personalvault/internal/logging"
	"github.com/manav03panchal/personalvault/internal/model"
	"github.com/manav03panchal/personalvault/internal/repo"
)

// DefaultDelay is the pause between session validation and the remote
// fan-out.
const DefaultDelay = time.Second

// Source says where a domain's data came from.
type Source string

const (
	SourceCache  Source = "cache"
	SourceRemote Source = "remote"
)

// Result describes one domain's preload.
type Result struct {
	Domain   model.Domain  `json:"domain"`
	Source   Source        `json:"source"`
	Items    int           `json:"items"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`

	err error
}

// Err returns the refresh error, if any.
func (r Result) Err() error { return r.err }

// Report is the outcome of Run.
type Report struct {
	Results []Result `json:"results"`
	// Skipped explains why no remote refresh ran.
	Skipped string        `json:"skipped,omitempty"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// Failed returns the results that carry an error.
func (r Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.err != nil {
			out = append(out, res)
		}
	}
	return out
}

// Session is checked before the remote fan-out.
type Session interface {
	IsValid() bool
	SilentRefresh(ctx context.Context) bool
}

// Options tunes an Orchestrator.
type Options struct {
	// Delay before the remote fan-out. Zero means none.
	Delay time.Duration
	// Session is optional; nil means the remote needs no sign-in.
	Session Session
	// Offline skips the remote fan-out.
	Offline bool
}

// Orchestrator runs the startup preload.
type Orchestrator struct {
	domains []repo.Syncable
	opts    Options
	log     *slog.Logger
}

// New creates an Orchestrator over domains.
func New(domains []repo.Syncable, opts Options) *Orchestrator {
	return &Orchestrator{
		domains: domains,
		opts:    opts,
		log:     logging.ForComponent("preload"),
	}
}

// Run loads every domain from the cache, then refreshes the remote-backed
// ones concurrently. One domain failing never stops the others.
func (o *Orchestrator) Run(ctx context.Context) Report {
	start := time.Now()
	report := Report{Results: make([]Result, len(o.domains))}

	for i, d := range o.domains {
		t := time.Now()
		report.Results[i] = Result{
			Domain:   d.Name(),
			Source:   SourceCache,
			Items:    d.Warm(),
			Duration: time.Since(t),
		}
	}

	if reason := o.skipReason(ctx); reason != "" {
		report.Skipped = reason
		report.Elapsed = time.Since(start)
		o.log.Info("preloaded from cache only", "reason", reason)
		return report
	}

	if o.opts.Delay > 0 {
		select {
		case <-time.After(o.opts.Delay):
		case <-ctx.Done():
			report.Skipped = fmt.Sprintf("cancelled: %v", ctx.Err())
			report.Elapsed = time.Since(start)
			return report
		}
	}

	// A plain Group: errors are recorded per domain, never returned, so
	// one failure cannot cancel its siblings.
	var g errgroup.Group
	var mu sync.Mutex
	for i, d := range o.domains {
		if d.LocalOnly() {
			continue
		}
		g.Go(func() error {
			t := time.Now()
			n, err := d.Sync(ctx)
			res := Result{
				Domain:   d.Name(),
				Source:   SourceRemote,
				Items:    n,
				Duration: time.Since(t),
				err:      err,
			}
			if err != nil {
				res.Source = SourceCache
				res.Error = err.Error()
				o.log.Warn("remote refresh failed", logging.KeyDomain, string(d.Name()), logging.KeyError, err)
			}
			mu.Lock()
			report.Results[i] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	report.Elapsed = time.Since(start)
	o.log.Debug("preload finished", logging.KeyDuration, report.Elapsed.Milliseconds(), logging.KeyCount, len(report.Failed()))
	return report
}

func (o *Orchestrator) skipReason(ctx context.Context) string {
	switch {
	case o.opts.Offline:
		return "offline mode"
	case o.opts.Session == nil, o.opts.Session.IsValid():
		return ""
	case o.opts.Session.SilentRefresh(ctx):
		return ""
	default:
		return "not signed in or session expired"
	}
}
