// Package scheduler runs the daemon's periodic jobs on a cron schedule:
// pulling every domain, retrying writes that never reached the remote and
// renewing the session token ahead of expiry.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/manav03panchal/personalvault/internal/logging"
)

// StaleGap is the longest pause between ticks before a run is treated as
// a wake from sleep and skipped.
const StaleGap = time.Hour

// Job is one periodic task.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// JobStatus describes a registered job.
type JobStatus struct {
	Name      string    `json:"name"`
	Spec      string    `json:"spec"`
	LastRun   time.Time `json:"last_run,omitzero"`
	LastError string    `json:"last_error,omitempty"`
	Runs      int       `json:"runs"`
	Next      time.Time `json:"next,omitzero"`
}

type entry struct {
	id      cron.EntryID
	job     Job
	spec    string
	lastRun time.Time
	lastErr error
	runs    int
}

// Scheduler manages scheduled jobs using cron.
type Scheduler struct {
	cron *cron.Cron
	log  *slog.Logger
	now  func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	jobs     map[string]*entry
	lastTick time.Time
}

// New creates a Scheduler. Overlapping runs of the same job are skipped
// and panics are recovered and logged.
func New() *Scheduler {
	log := logging.ForComponent("scheduler")
	cl := cronLogger{log: log}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)), cron.WithLogger(cl)),
		log:    log,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]*entry),
	}
}

// Every registers job to run at a fixed interval. A zero interval leaves
// the job unregistered.
func (s *Scheduler) Every(interval time.Duration, job Job) error {
	if interval <= 0 {
		s.log.Debug("job disabled", "job", job.Name())
		return nil
	}
	return s.Add("@every "+interval.String(), job)
}

// Add registers job under a cron spec. Job names are unique.
func (s *Scheduler) Add(spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.jobs[job.Name()]; dup {
		return fmt.Errorf("job %q already registered", job.Name())
	}
	e := &entry{job: job, spec: spec}
	id, err := s.cron.AddFunc(spec, func() { s.tick(e) })
	if err != nil {
		return fmt.Errorf("schedule %s: %w", job.Name(), err)
	}
	e.id = id
	s.jobs[job.Name()] = e
	return nil
}

// Remove unregisters a job by name.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.jobs[name]; ok {
		s.cron.Remove(e.id)
		delete(s.jobs, name)
	}
}

// Start begins running jobs.
func (s *Scheduler) Start() {
	s.mu.Lock()
	s.lastTick = s.now()
	s.mu.Unlock()
	s.cron.Start()
	s.log.Debug("scheduler started", logging.KeyCount, len(s.cron.Entries()))
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.log.Debug("scheduler stopped")
}

// RunNow runs the named job immediately, outside the schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	e, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	return s.run(ctx, e)
}

// tick is the cron callback. Runs after a long gap, as when the machine
// wakes from sleep, are skipped once so the backlog does not fire at
// once.
func (s *Scheduler) tick(e *entry) {
	s.mu.Lock()
	now := s.now()
	gap := now.Sub(s.lastTick)
	s.lastTick = now
	s.mu.Unlock()

	if gap > StaleGap {
		s.log.Info("skipping stale run after sleep", "job", e.job.Name(), logging.KeyDuration, gap.Round(time.Second).String())
		return
	}
	_ = s.run(s.ctx, e)
}

func (s *Scheduler) run(ctx context.Context, e *entry) error {
	start := s.now()
	err := e.job.Run(ctx)

	s.mu.Lock()
	e.lastRun = start
	e.lastErr = err
	e.runs++
	s.mu.Unlock()

	log := s.log.With("job", e.job.Name(), logging.KeyDuration, time.Since(start).Milliseconds())
	if err != nil {
		log.Warn("job failed", logging.KeyError, err)
	} else {
		log.Debug("job finished")
	}
	return err
}

// Status lists jobs sorted by name.
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JobStatus, 0, len(s.jobs))
	for name, e := range s.jobs {
		st := JobStatus{Name: name, Spec: e.spec, LastRun: e.lastRun, Runs: e.runs, Next: s.cron.Entry(e.id).Next}
		if e.lastErr != nil {
			st.LastError = e.lastErr.Error()
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// NextRun returns the next scheduled run time for any job.
func (s *Scheduler) NextRun() time.Time {
	var next time.Time
	for _, e := range s.cron.Entries() {
		if next.IsZero() || (!e.Next.IsZero() && e.Next.Before(next)) {
			next = e.Next
		}
	}
	return next
}

// cronLogger adapts slog to cron's logger.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append([]any{logging.KeyError, err}, keysAndValues...)...)
}
