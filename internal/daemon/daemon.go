package daemon

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/manav03panchal/personalvault/internal/logging"
	"github.com/manav03panchal/personalvault/internal/output"
	"github.com/manav03panchal/personalvault/internal/preload"
	"github.com/manav03panchal/personalvault/internal/runtime"
	"github.com/manav03panchal/personalvault/internal/scheduler"
	"github.com/manav03panchal/personalvault/internal/storage"
)

// TokenCheckInterval is how often the daemon checks the session token.
const TokenCheckInterval = time.Minute

// Options configures a foreground daemon.
type Options struct {
	Paths   Paths
	Version string
	// HealthAddr overrides the configured listen address. "-" disables
	// the HTTP server.
	HealthAddr string
}

// Daemon is the foreground daemon process.
type Daemon struct {
	rt      *runtime.Context
	opts    Options
	pidFile *PIDFile
	sched   *scheduler.Scheduler
	health  *HealthChecker
	log     *slog.Logger

	ready chan struct{}
	addr  string
}

// New creates a daemon over rt. The caller closes rt after Run returns.
func New(rt *runtime.Context, opts Options) *Daemon {
	if opts.Paths.Dir == "" {
		opts.Paths = DefaultPaths()
	}
	if opts.HealthAddr == "" {
		opts.HealthAddr = rt.Config.Daemon.HealthAddr
	}

	d := &Daemon{
		rt:      rt,
		opts:    opts,
		pidFile: NewPIDFile(opts.Paths.PID()),
		sched:   scheduler.New(),
		log:     logging.ForComponent("daemon"),
		ready:   make(chan struct{}),
	}
	d.health = NewHealthChecker(opts.Version, rt.SyncStatus, d.sched.Status)
	d.health.AddCheck("cache", func() error {
		_, err := rt.DB.Exists("daemon:health")
		return err
	})
	d.health.AddCheck("integrity", func() error {
		return storage.CheckIntegrity(rt.DB).Err()
	})
	if !rt.DB.InMemory() {
		d.health.AddCheck("disk", func() error {
			return storage.CheckDiskSpace(rt.DB.Path(), rt.Config.Storage.MinFreeSpace)
		})
		d.health.AddWarning("disk", func() string {
			return storage.DiskSpaceWarning(rt.DB.Path(), rt.Config.Storage.MinFreeSpaceWarning)
		})
	}
	return d
}

// Scheduler exposes the job scheduler.
func (d *Daemon) Scheduler() *scheduler.Scheduler { return d.sched }

// Health exposes the health checker.
func (d *Daemon) Health() *HealthChecker { return d.health }

// Ready is closed once Run is serving.
func (d *Daemon) Ready() <-chan struct{} { return d.ready }

// Addr is the bound health address, valid after Ready.
func (d *Daemon) Addr() string { return d.addr }

// registerJobs schedules the periodic refresh, the pending retry and, for
// remotes that use the session, the token check. A zero interval disables
// a job.
func (d *Daemon) registerJobs() error {
	cfg := d.rt.Config
	domains := d.rt.Repos.All()
	offline := d.rt.Offline || d.rt.Store == nil

	refresh := &scheduler.RefreshJob{Domains: domains, Offline: offline}
	if d.rt.NeedsSignIn() {
		refresh.Session = d.rt.Session
	}
	if err := d.sched.Every(cfg.Sync.RefreshInterval, refresh); err != nil {
		return err
	}
	if err := d.sched.Every(cfg.Sync.PendingRetryInterval, &scheduler.PendingJob{Domains: domains, Offline: offline}); err != nil {
		return err
	}
	if d.rt.NeedsSignIn() {
		if err := d.sched.Every(TokenCheckInterval, &scheduler.TokenJob{Session: d.rt.Session}); err != nil {
			return err
		}
	}
	return nil
}

// Run serves until ctx is done or a shutdown signal arrives, then writes
// out pending changes and removes its PID and state files.
func (d *Daemon) Run(ctx context.Context) error {
	if d.pidFile.IsRunning() {
		return ErrAlreadyRunning
	}

	var ln net.Listener
	if d.opts.HealthAddr != "-" {
		var err error
		ln, err = net.Listen("tcp", d.opts.HealthAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", d.opts.HealthAddr, err)
		}
		d.addr = ln.Addr().String()
	}

	if err := d.pidFile.Write(); err != nil {
		closeListener(ln)
		return err
	}
	defer d.pidFile.Remove()

	if err := writeState(d.opts.Paths.State(), &State{
		PID:        os.Getpid(),
		StartedAt:  time.Now(),
		HealthAddr: d.addr,
		Version:    d.opts.Version,
	}); err != nil {
		closeListener(ln)
		return err
	}
	defer removeState(d.opts.Paths.State())

	if err := d.registerJobs(); err != nil {
		closeListener(ln)
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.logPreload(d.rt.Preload(runCtx, d.rt.Config.Sync.PreloadDelay))
	}()

	d.sched.Start()

	var srv *http.Server
	if ln != nil {
		srv = &http.Server{
			Handler:           NewRouter(d.health, d.rt.Metrics.Handler(), d.rt.Sync.FlushPending),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
				d.log.Error("health server stopped", logging.KeyError, err)
			}
		}()
	}

	d.log.Info("daemon started", "pid", os.Getpid(), "addr", d.addr, logging.KeyBackend, d.rt.Config.Remote.Type)
	close(d.ready)

	if sig := waitForShutdown(runCtx); sig != nil {
		d.log.Info("received signal", "signal", sig.String())
	}
	cancel()

	d.sched.Stop()
	wg.Wait()

	shutdownCtx, done := context.WithTimeout(context.Background(), d.rt.Config.Daemon.KillTimeout)
	defer done()
	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			d.log.Warn("health server shutdown", logging.KeyError, err)
		}
	}
	if err := d.rt.Sync.FlushPending(shutdownCtx); err != nil {
		d.log.Warn("pending changes not written", logging.KeyError, err)
	}

	d.log.Info("daemon stopped")
	return nil
}

func (d *Daemon) logPreload(r preload.Report) {
	for _, res := range r.Results {
		if err := res.Err(); err != nil {
			d.log.Warn("preload failed", logging.KeyDomain, res.Domain, logging.KeyError, err)
			continue
		}
		d.log.Debug("preloaded", logging.KeyDomain, res.Domain, "source", res.Source, logging.KeyCount, res.Items)
	}
}

func closeListener(ln net.Listener) {
	if ln != nil {
		_ = ln.Close()
	}
}

// State is what a running daemon records about itself.
type State struct {
	PID        int       `json:"pid"`
	StartedAt  time.Time `json:"started_at"`
	HealthAddr string    `json:"health_addr,omitempty"`
	Version    string    `json:"version,omitempty"`
}

func writeState(path string, st *State) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func readState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func removeState(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logging.Warn("failed to remove daemon state file", logging.KeyError, err, logging.KeyFile, path)
	}
}

// formatUptime renders d, adding days past 24 hours.
func formatUptime(d time.Duration) string {
	if d < 24*time.Hour {
		return output.FormatDurationShort(d)
	}
	days := int(d.Hours() / 24)
	if hours := int(d.Hours()) % 24; hours > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	return fmt.Sprintf("%dd", days)
}
