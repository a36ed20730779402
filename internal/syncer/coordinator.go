// Package syncer batches rapid local changes into single remote writes.
//
// Each domain moves through Idle -> PendingWrite -> Flushing -> Idle. A new
// Schedule while PendingWrite re-arms the timer, so only the snapshot current
// when the timer fires is written. FlushNow cancels the timer and writes
// immediately.
package syncer

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/manav03panchal/personalvault/internal/logging"
)

// DefaultWindow is the debounce window when none is configured.
const DefaultWindow = 1500 * time.Millisecond

// FlushFunc writes a domain's current snapshot to the remote store.
type FlushFunc func(ctx context.Context) error

// State is a domain's position in the flush cycle.
type State int

const (
	StateIdle State = iota
	StatePendingWrite
	StateFlushing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePendingWrite:
		return "pending"
	case StateFlushing:
		return "flushing"
	default:
		return "unknown"
	}
}

// Observer receives flush outcomes. The metrics package implements it.
type Observer interface {
	ObserveFlush(domain string, d time.Duration, err error)
	ObserveCoalesced(domain string)
}

// Options tunes a Coordinator.
type Options struct {
	// Window is the default debounce window.
	Window time.Duration
	// Windows overrides Window per domain.
	Windows map[string]time.Duration
	// FlushTimeout bounds timer-fired flushes. Zero means no bound.
	FlushTimeout time.Duration
	// Observer receives flush outcomes. Optional.
	Observer Observer
}

// DomainStatus is a point-in-time view of one domain.
type DomainStatus struct {
	Domain    string    `json:"domain"`
	State     string    `json:"state"`
	LastFlush time.Time `json:"last_flush,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	Writes    int       `json:"writes"`
	Failures  int       `json:"failures"`
	Coalesced int       `json:"coalesced"`
}

type domain struct {
	// Guarded by Coordinator.mu.
	timer     *time.Timer
	gen       uint64
	fn        FlushFunc
	pending   bool
	flushing  bool
	lastFlush time.Time
	lastErr   error
	writes    int
	failures  int
	coalesced int

	// Serializes flushes of this domain.
	flushMu sync.Mutex
}

func (d *domain) state() State {
	switch {
	case d.flushing:
		return StateFlushing
	case d.pending:
		return StatePendingWrite
	default:
		return StateIdle
	}
}

// Coordinator owns one debounce timer per domain.
type Coordinator struct {
	opts Options
	log  *slog.Logger

	mu      sync.Mutex
	domains map[string]*domain
	closed  bool
	inWork  sync.WaitGroup
}

// New creates a Coordinator.
func New(opts Options) *Coordinator {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	return &Coordinator{
		opts:    opts,
		log:     logging.ForComponent("syncer"),
		domains: make(map[string]*domain),
	}
}

// Window returns the debounce window for name.
func (c *Coordinator) Window(name string) time.Duration {
	if w, ok := c.opts.Windows[name]; ok && w > 0 {
		return w
	}
	return c.opts.Window
}

// Schedule arms or re-arms name's debounce timer. fn runs once the window
// passes without another Schedule for name.
func (c *Coordinator) Schedule(name string, fn FlushFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		c.log.Warn("schedule after close ignored", logging.KeyDomain, name)
		return
	}

	d := c.domainLocked(name)
	if d.timer != nil {
		d.timer.Stop()
		d.coalesced++
		if c.opts.Observer != nil {
			c.opts.Observer.ObserveCoalesced(name)
		}
	}
	d.gen++
	gen := d.gen
	d.fn = fn
	d.pending = true
	d.timer = time.AfterFunc(c.Window(name), func() { c.fire(name, gen) })
}

// FlushNow cancels any pending timer for name and flushes synchronously.
// A nil fn reuses the last scheduled one. Waits for an in-flight flush of
// the same domain first.
func (c *Coordinator) FlushNow(ctx context.Context, name string, fn FlushFunc) error {
	c.mu.Lock()
	d := c.domainLocked(name)
	c.cancelLocked(d)
	if fn == nil {
		fn = d.fn
	}
	c.mu.Unlock()

	if fn == nil {
		return nil
	}
	return c.flush(ctx, name, d, fn)
}

// Cancel drops a pending flush without running it.
func (c *Coordinator) Cancel(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d, ok := c.domains[name]; ok {
		c.cancelLocked(d)
	}
}

// Pending reports whether name has an armed timer.
func (c *Coordinator) Pending(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.domains[name]
	return ok && d.pending
}

// State returns name's current state.
func (c *Coordinator) State(name string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d, ok := c.domains[name]; ok {
		return d.state()
	}
	return StateIdle
}

// Status returns every known domain sorted by name.
func (c *Coordinator) Status() []DomainStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]DomainStatus, 0, len(c.domains))
	for name, d := range c.domains {
		st := DomainStatus{
			Domain:    name,
			State:     d.state().String(),
			LastFlush: d.lastFlush,
			Writes:    d.writes,
			Failures:  d.failures,
			Coalesced: d.coalesced,
		}
		if d.lastErr != nil {
			st.LastError = d.lastErr.Error()
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out
}

// FlushPending flushes every domain with an armed timer and returns the
// joined errors.
func (c *Coordinator) FlushPending(ctx context.Context) error {
	c.mu.Lock()
	var names []string
	for name, d := range c.domains {
		if d.pending {
			names = append(names, name)
		}
	}
	c.mu.Unlock()
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		if err := c.FlushNow(ctx, name, nil); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// Close flushes pending domains, waits for timer-fired flushes in progress
// and rejects further scheduling.
func (c *Coordinator) Close(ctx context.Context) error {
	err := c.FlushPending(ctx)

	c.mu.Lock()
	c.closed = true
	for _, d := range c.domains {
		c.cancelLocked(d)
	}
	c.mu.Unlock()

	c.inWork.Wait()
	return err
}

func (c *Coordinator) domainLocked(name string) *domain {
	d, ok := c.domains[name]
	if !ok {
		d = &domain{}
		c.domains[name] = d
	}
	return d
}

func (c *Coordinator) cancelLocked(d *domain) {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	d.pending = false
}

// fire runs when a timer expires. A stale generation means the timer was
// re-armed or cancelled after it had already fired. The closed check and
// inWork.Add share the critical section Close takes before inWork.Wait.
func (c *Coordinator) fire(name string, gen uint64) {
	c.mu.Lock()
	d := c.domains[name]
	if c.closed || d == nil || d.gen != gen || !d.pending {
		c.mu.Unlock()
		return
	}
	d.timer = nil
	d.pending = false
	fn := d.fn
	c.inWork.Add(1)
	c.mu.Unlock()
	defer c.inWork.Done()

	ctx := context.Background()
	if c.opts.FlushTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.FlushTimeout)
		defer cancel()
	}
	_ = c.flush(ctx, name, d, fn)
}

func (c *Coordinator) flush(ctx context.Context, name string, d *domain, fn FlushFunc) error {
	d.flushMu.Lock()
	defer d.flushMu.Unlock()

	c.mu.Lock()
	d.flushing = true
	c.mu.Unlock()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	c.mu.Lock()
	d.flushing = false
	d.lastErr = err
	if err != nil {
		d.failures++
	} else {
		d.writes++
		d.lastFlush = time.Now()
	}
	c.mu.Unlock()

	if c.opts.Observer != nil {
		c.opts.Observer.ObserveFlush(name, elapsed, err)
	}
	if err != nil {
		c.log.Warn("flush failed", logging.KeyDomain, name, logging.KeyDuration, elapsed.Milliseconds(), logging.KeyError, err)
	} else {
		c.log.Debug("flushed", logging.KeyDomain, name, logging.KeyDuration, elapsed.Milliseconds())
	}
	return err
}
