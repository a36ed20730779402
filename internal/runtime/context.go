// Package runtime wires the cache, session, remote store, sync coordinator
// and repositories into the context every command runs with.
package runtime

import (
	"context"
	stderrors "errors"
	"os"
	"strings"
	"time"

	"github.com/manav03panchal/personalvault/internal/backend"
	"github.com/manav03panchal/personalvault/internal/config"
	"github.com/manav03panchal/personalvault/internal/logging"
	"github.com/manav03panchal/personalvault/internal/metrics"
	"github.com/manav03panchal/personalvault/internal/model"
	"github.com/manav03panchal/personalvault/internal/output"
	"github.com/manav03panchal/personalvault/internal/preload"
	"github.com/manav03panchal/personalvault/internal/remote"
	"github.com/manav03panchal/personalvault/internal/repo"
	"github.com/manav03panchal/personalvault/internal/session"
	"github.com/manav03panchal/personalvault/internal/storage"
	"github.com/manav03panchal/personalvault/internal/syncer"
)

// Context holds the application runtime context.
type Context struct {
	Config    *config.RuntimeConfig
	DB        *storage.DB
	Formatter *output.Formatter
	Metrics   *metrics.Collector

	Session *session.Manager
	// Store is nil when the remote backend could not be opened.
	Store *remote.Store
	Sync  *syncer.Coordinator
	Repos *repo.Set

	// Debug mode
	Debug bool
	// Offline keeps every change in the local cache.
	Offline bool

	remoteErr error
	backend   *backend.Client
}

// Options configures the runtime context.
type Options struct {
	DBPath    string
	InMemory  bool
	Format    output.Format
	ColorMode output.ColorMode
	Debug     bool
	Offline   bool

	// Config defaults to config.Global.
	Config *config.RuntimeConfig
	// Identity replaces Google sign-in.
	Identity session.Identity
	// Remote replaces the backend selected by Config.Remote.Type.
	Remote remote.Backend
}

// DefaultOptions returns default runtime options.
func DefaultOptions() Options {
	return Options{
		DBPath:    storage.DefaultPath(),
		Format:    output.FormatCLI,
		ColorMode: output.ColorAuto,
	}
}

// New creates a new runtime context. A remote backend that cannot be opened
// is not fatal: the context runs on the local cache and RemoteErr reports
// why.
func New(ctx context.Context, opts Options) (*Context, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Global
	}

	if envPath := os.Getenv("PERSONALVAULT_DATABASE"); envPath != "" {
		if envPath == ":memory:" {
			opts.InMemory = true
		} else {
			opts.DBPath = envPath
		}
	}
	if opts.DBPath == "" && !opts.InMemory {
		opts.DBPath = cfg.Storage.Path
		if opts.DBPath == "" {
			opts.DBPath = storage.DefaultPath()
		}
	}

	db, err := storage.Open(storage.Options{
		Path:         opts.DBPath,
		InMemory:     opts.InMemory,
		MinFreeSpace: cfg.Storage.MinFreeSpace,
		Recover:      true,
	})
	if err != nil {
		return nil, err
	}

	c := &Context{
		Config:  cfg,
		DB:      db,
		Metrics: metrics.New(),
		Debug:   opts.Debug,
		Offline: opts.Offline,
	}

	identity := opts.Identity
	if identity == nil {
		identity = &session.GoogleIdentity{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			Scopes:       cfg.Google.Scopes,
		}
	}
	c.Session = session.NewManager(identity, db, session.Options{
		TokenLifetime: cfg.Session.TokenLifetime,
		RefreshMargin: cfg.Session.RefreshMargin,
	})

	signIn := remote.NeedsSignIn(cfg.Remote.Type)
	var refresher remote.TokenRefresher
	if signIn {
		refresher = remote.TokenRefresherFunc(c.Session.Refresh)
	}
	if opts.Remote != nil {
		c.Store = remote.NewStore(opts.Remote, remote.StoreOptions(cfg.Remote, refresher, c.Metrics))
	} else {
		c.Store, err = remote.NewFromConfig(ctx, cfg.Remote, c.Session, refresher, c.Metrics)
	}
	if err != nil {
		c.remoteErr = err
		logging.ForComponent("runtime").Warn("remote store unavailable, running on the local cache",
			logging.KeyError, err)
	} else {
		c.Session.OnSignIn(func(_ model.User) { c.Store.Reset() })
		c.Session.OnSignOut(c.Store.Reset)
	}

	c.Sync = syncer.New(syncer.Options{
		Window:       cfg.Sync.DebounceWindow,
		Windows:      cfg.Sync.DomainWindows,
		FlushTimeout: 2 * cfg.Remote.RequestTimeout,
		Observer:     c.Metrics,
	})

	deps := repo.Deps{
		Cache:    db,
		Sync:     c.Sync,
		Offline:  opts.Offline,
		Observer: c.Metrics,
	}
	// Interface fields stay nil rather than holding typed nil pointers.
	if c.Store != nil {
		deps.Remote = c.Store
	}
	if signIn {
		deps.Session = c.Session
	}
	c.Repos = repo.NewSet(deps)

	c.Formatter = output.NewFormatter()
	c.Formatter.Format = opts.Format
	c.Formatter.ColorMode = opts.ColorMode
	if c.Formatter.Format == "" {
		c.Formatter.Format = output.FormatCLI
	}
	if c.Formatter.ColorMode == "" {
		c.Formatter.ColorMode = output.ColorAuto
	}

	return c, nil
}

// RemoteErr reports why no remote store is available, if it is not.
func (c *Context) RemoteErr() error {
	return c.remoteErr
}

// NeedsSignIn reports whether the configured remote uses the session.
func (c *Context) NeedsSignIn() bool {
	return remote.NeedsSignIn(c.Config.Remote.Type)
}

// Preload warms every repository from the cache and refreshes the
// remote-backed ones.
func (c *Context) Preload(ctx context.Context, delay time.Duration) preload.Report {
	opts := preload.Options{Delay: delay, Offline: c.Offline || c.Store == nil}
	if c.NeedsSignIn() {
		opts.Session = c.Session
	}
	return preload.New(c.Repos.All(), opts).Run(ctx)
}

// SyncStatus summarizes the remote and every domain's sync state.
func (c *Context) SyncStatus() output.SyncStatus {
	st := output.SyncStatus{
		Remote:  c.Config.Remote.Type,
		Breaker: "unavailable",
		Offline: c.Offline,
		Session: c.Session.State().String(),
	}
	if c.Store != nil {
		st.Breaker = c.Store.BreakerState()
		st.Degraded = c.Store.Degraded()
		for _, h := range c.Store.Handles() {
			st.FolderID = h.FolderID
			st.Handles++
		}
	} else {
		st.Degraded = true
	}
	if u, ok := c.Session.User(); ok {
		st.User = u.Email
	}

	flushes := make(map[string]syncer.DomainStatus)
	for _, ds := range c.Sync.Status() {
		flushes[ds.Domain] = ds
	}
	for _, r := range c.Repos.All() {
		name := string(r.Name())
		ds := output.DomainStatus{
			Domain:    name,
			Items:     r.Count(),
			LocalOnly: r.LocalOnly(),
			Pending:   r.Pending(),
			State:     syncer.StateIdle.String(),
		}
		if f, ok := flushes[name]; ok {
			ds.State = f.State
			ds.LastFlush = f.LastFlush
			ds.LastError = f.LastError
		}
		st.Domains = append(st.Domains, ds)
	}
	return st
}

// Backend returns the assistant service client, creating it on first use.
func (c *Context) Backend() (*backend.Client, error) {
	if c.backend != nil {
		return c.backend, nil
	}
	client, err := backend.New(backend.Options{
		BaseURL:     c.Config.Backend.BaseURL,
		Timeout:     c.Config.Backend.Timeout,
		RetryDelays: c.Config.Backend.RetryDelays,
	})
	if err != nil {
		return nil, err
	}
	c.backend = client
	return client, nil
}

// UserID identifies the user to the assistant service: the configured id,
// else the signed-in email, else "default".
func (c *Context) UserID() string {
	if id := strings.TrimSpace(c.Config.Backend.UserID); id != "" {
		return id
	}
	if u, ok := c.Session.User(); ok && u.Email != "" {
		return u.Email
	}
	return "default"
}

// Close writes out pending changes, then closes the cache. The flush is
// bounded by the remote request timeout.
func (c *Context) Close() error {
	var errs []error
	if c.Sync != nil {
		timeout := 30 * time.Second
		if c.Config != nil && c.Config.Remote.RequestTimeout > 0 {
			timeout = 2 * c.Config.Remote.RequestTimeout
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := c.Sync.Close(ctx); err != nil {
			errs = append(errs, err)
		}
		cancel()
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// CLIFormatter returns a CLI formatter.
func (c *Context) CLIFormatter() *output.CLIFormatter {
	return output.NewCLIFormatter(c.Formatter)
}

// JSONFormatter returns a JSON formatter.
func (c *Context) JSONFormatter() *output.JSONFormatter {
	return output.NewJSONFormatter(c.Formatter)
}

// IsJSON returns true if output format is JSON.
func (c *Context) IsJSON() bool {
	return c.Formatter.Format == output.FormatJSON
}

// Debugf prints debug output if debug mode is enabled.
func (c *Context) Debugf(format string, args ...any) {
	if c.Debug {
		c.Formatter.Printf("[DEBUG] "+format+"\n", args...)
	}
}
