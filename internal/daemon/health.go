package daemon

import (
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/manav03panchal/personalvault/internal/output"
	"github.com/manav03panchal/personalvault/internal/scheduler"
)

// Health states.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status        string    `json:"status"`
	Version       string    `json:"version,omitempty"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	MemoryMB      float64   `json:"memory_mb"`
	Goroutines    int       `json:"goroutines"`
	LastCheck     time.Time `json:"last_check"`

	Remote  string   `json:"remote"`
	Breaker string   `json:"breaker"`
	Session string   `json:"session"`
	Offline bool     `json:"offline"`
	Pending []string `json:"pending"`

	Jobs     []scheduler.JobStatus `json:"jobs"`
	Checks   []CheckResult         `json:"checks,omitempty"`
	Warnings []string              `json:"warnings,omitempty"`
}

// CheckResult represents the result of a single health check.
type CheckResult struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// HealthChecker assembles the daemon's health from the sync state, the
// scheduler and any registered checks.
type HealthChecker struct {
	version   string
	startTime time.Time
	sync      func() output.SyncStatus
	jobs      func() []scheduler.JobStatus

	mu     sync.RWMutex
	checks map[string]func() error
	warns  map[string]func() string
}

// NewHealthChecker creates a health checker. Either source may be nil.
func NewHealthChecker(version string, sync func() output.SyncStatus, jobs func() []scheduler.JobStatus) *HealthChecker {
	return &HealthChecker{
		version:   version,
		startTime: time.Now(),
		sync:      sync,
		jobs:      jobs,
		checks:    make(map[string]func() error),
		warns:     make(map[string]func() string),
	}
}

// AddCheck registers a named check; a failing check makes the daemon
// unhealthy.
func (h *HealthChecker) AddCheck(name string, check func() error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// AddWarning registers a named source of warnings. A non-empty warning
// degrades an otherwise healthy daemon.
func (h *HealthChecker) AddWarning(name string, warn func() string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.warns[name] = warn
}

// RemoveCheck removes a check or warning registered under name.
func (h *HealthChecker) RemoveCheck(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.checks, name)
	delete(h.warns, name)
}

// Uptime returns how long the daemon has been running.
func (h *HealthChecker) Uptime() time.Duration {
	return time.Since(h.startTime)
}

// Check runs every check and reports the current health. A remote behind
// an open breaker, or none at all, is degraded: the cache keeps serving.
func (h *HealthChecker) Check() *HealthStatus {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	st := &HealthStatus{
		Status:        StatusHealthy,
		Version:       h.version,
		UptimeSeconds: int64(h.Uptime().Seconds()),
		MemoryMB:      float64(mem.Alloc) / 1024 / 1024,
		Goroutines:    runtime.NumGoroutine(),
		LastCheck:     time.Now(),
		Pending:       []string{},
		Jobs:          []scheduler.JobStatus{},
	}

	if h.sync != nil {
		ss := h.sync()
		st.Remote = ss.Remote
		st.Breaker = ss.Breaker
		st.Session = ss.Session
		st.Offline = ss.Offline
		for _, d := range ss.Domains {
			if d.Pending {
				st.Pending = append(st.Pending, d.Domain)
			}
		}
		if ss.Degraded {
			st.Status = StatusDegraded
		}
	}
	if h.jobs != nil {
		st.Jobs = h.jobs()
	}

	h.mu.RLock()
	for name, check := range h.checks {
		res := CheckResult{Name: name, Healthy: true}
		if err := check(); err != nil {
			res.Healthy = false
			res.Error = err.Error()
			st.Status = StatusUnhealthy
		}
		st.Checks = append(st.Checks, res)
	}
	for _, warn := range h.warns {
		if msg := warn(); msg != "" {
			st.Warnings = append(st.Warnings, msg)
		}
	}
	h.mu.RUnlock()
	sort.Slice(st.Checks, func(i, j int) bool { return st.Checks[i].Name < st.Checks[j].Name })
	sort.Strings(st.Warnings)
	if len(st.Warnings) > 0 && st.Status == StatusHealthy {
		st.Status = StatusDegraded
	}

	return st
}

// IsHealthy returns true unless a check fails.
func (h *HealthChecker) IsHealthy() bool {
	return h.Check().Status != StatusUnhealthy
}
