package remote

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"

	"github.com/manav03panchal/personalvault/internal/errors"
	"github.com/manav03panchal/personalvault/internal/logging"
)

// Observer receives remote call outcomes. The metrics package implements it.
type Observer interface {
	ObserveRemoteCall(op string, d time.Duration, err error)
	ObserveAuthRefresh(err error)
	ObserveBreakerState(state string)
}

// BreakerSettings decide when repeated unavailability opens the breaker.
type BreakerSettings struct {
	// MinRequests is the number of calls in an interval before the failure
	// ratio is evaluated.
	MinRequests uint32
	// FailureRatio opens the breaker when reached.
	FailureRatio float64
	// Interval clears the counts while closed. Zero never clears.
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration
}

// DefaultBreakerSettings returns the settings used when none are given.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MinRequests:  3,
		FailureRatio: 0.6,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
	}
}

// Options configures a Store.
type Options struct {
	// FolderName is the application folder holding the domain files.
	FolderName string
	// Refresher renews credentials after an authorization failure.
	Refresher TokenRefresher
	// RequestTimeout bounds each backend call. Zero disables the bound.
	RequestTimeout time.Duration
	// Breaker tunes the failure breaker. Zero value uses defaults.
	Breaker BreakerSettings
	// Observer receives call outcomes. Optional.
	Observer Observer
}

// Store resolves domain files inside the application folder and reads and
// writes them through a Backend.
//
// Resolved ids are cached for the life of the Store and cleared only by
// Reset, which callers invoke on sign-in and sign-out.
type Store struct {
	backend Backend
	opts    Options
	breaker *gobreaker.CircuitBreaker
	group   singleflight.Group
	log     *slog.Logger

	mu         sync.Mutex
	folderID   string
	files      map[string]string
	generation uint64
}

// NewStore wraps backend.
func NewStore(backend Backend, opts Options) *Store {
	if opts.FolderName == "" {
		opts.FolderName = "PersonalVault"
	}
	if opts.Breaker == (BreakerSettings{}) {
		opts.Breaker = DefaultBreakerSettings()
	}

	s := &Store{
		backend: backend,
		opts:    opts,
		files:   make(map[string]string),
		log:     logging.ForComponent("remote").With(logging.KeyBackend, backend.Name()),
	}

	bs := opts.Breaker
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "remote-" + backend.Name(),
		MaxRequests: 1,
		Interval:    bs.Interval,
		Timeout:     bs.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < bs.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= bs.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.log.Warn("remote breaker state changed", "from", from.String(), logging.KeyState, to.String())
			if s.opts.Observer != nil {
				s.opts.Observer.ObserveBreakerState(to.String())
			}
		},
		// Only unavailability counts toward opening the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || !stderrors.Is(err, errors.ErrRemoteUnavailable)
		},
	})
	return s
}

// Backend returns the wrapped backend.
func (s *Store) Backend() Backend {
	return s.backend
}

// FolderName returns the application folder name.
func (s *Store) FolderName() string {
	return s.opts.FolderName
}

// Degraded reports whether repeated failures opened the breaker. The shell
// shows a dismissible notice while this is true.
func (s *Store) Degraded() bool {
	return s.breaker.State() != gobreaker.StateClosed
}

// BreakerState returns closed, half-open or open.
func (s *Store) BreakerState() string {
	return s.breaker.State().String()
}

// Reset forgets every resolved id.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folderID = ""
	s.files = make(map[string]string)
	s.generation++
}

// Handles returns a copy of the cached file ids keyed by file name.
func (s *Store) Handles() map[string]Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Handle, len(s.files))
	for name, id := range s.files {
		out[name] = Handle{FolderID: s.folderID, FileID: id}
	}
	return out
}

// -----------------------------------------------------------------------------
// Primitive operations
// -----------------------------------------------------------------------------

// FindOrCreateFolder returns the first folder named name, creating it when
// none exists.
func (s *Store) FindOrCreateFolder(ctx context.Context, name string) (string, error) {
	var id string
	var found bool
	err := s.call(ctx, "find folder", func(ctx context.Context) error {
		var err error
		id, found, err = s.backend.FindFolder(ctx, name)
		return err
	})
	if err != nil || found {
		return id, err
	}

	err = s.call(ctx, "create folder", func(ctx context.Context) error {
		var err error
		id, err = s.backend.CreateFolder(ctx, name)
		return err
	})
	if err == nil {
		s.log.Info("created remote folder", logging.KeyFile, name, logging.KeyFolderID, id)
	}
	return id, err
}

// FindFile returns the first file named name inside folderID.
func (s *Store) FindFile(ctx context.Context, name, folderID string) (string, bool, error) {
	var id string
	var found bool
	err := s.call(ctx, "find file", func(ctx context.Context) error {
		var err error
		id, found, err = s.backend.FindFile(ctx, name, folderID)
		return err
	})
	return id, found, err
}

// WriteFile updates fileID in place when given, otherwise creates name
// inside folderID. It returns the file's id.
func (s *Store) WriteFile(ctx context.Context, fileID, folderID, name string, content []byte) (string, error) {
	if fileID != "" {
		err := s.call(ctx, "update file", func(ctx context.Context) error {
			return s.backend.UpdateFile(ctx, fileID, content)
		})
		return fileID, err
	}

	var id string
	err := s.call(ctx, "create file", func(ctx context.Context) error {
		var err error
		id, err = s.backend.CreateFile(ctx, folderID, name, content)
		return err
	})
	return id, err
}

// ReadFile returns the content of fileID.
func (s *Store) ReadFile(ctx context.Context, fileID string) ([]byte, error) {
	var data []byte
	err := s.call(ctx, "read file", func(ctx context.Context) error {
		var err error
		data, err = s.backend.ReadFile(ctx, fileID)
		return err
	})
	return data, err
}

// -----------------------------------------------------------------------------
// Domain file operations
// -----------------------------------------------------------------------------

// Resolve returns the handle for a domain file, creating the application
// folder if needed. FileID is empty when the file does not exist yet.
// Concurrent resolutions of the same name share one lookup.
func (s *Store) Resolve(ctx context.Context, name string) (Handle, error) {
	s.mu.Lock()
	folderID, fileID, gen := s.folderID, s.files[name], s.generation
	s.mu.Unlock()
	if folderID != "" && fileID != "" {
		return Handle{FolderID: folderID, FileID: fileID}, nil
	}

	v, err, _ := s.group.Do("file:"+name, func() (any, error) {
		folderID, err := s.folder(ctx)
		if err != nil {
			return Handle{}, err
		}
		id, found, err := s.FindFile(ctx, name, folderID)
		if err != nil {
			return Handle{}, err
		}
		if found {
			s.remember(gen, name, id)
		}
		return Handle{FolderID: folderID, FileID: id}, nil
	})
	if err != nil {
		return Handle{}, err
	}
	return v.(Handle), nil
}

// Read returns the content of a domain file. found is false when the file
// has never been written.
func (s *Store) Read(ctx context.Context, name string) (data []byte, found bool, err error) {
	for attempt := 0; attempt < 2; attempt++ {
		h, err := s.Resolve(ctx, name)
		if err != nil {
			return nil, false, err
		}
		if !h.Resolved() {
			return nil, false, nil
		}

		data, err = s.ReadFile(ctx, h.FileID)
		if err == nil {
			return data, true, nil
		}
		if !errors.IsNotFound(err) || attempt > 0 {
			return nil, false, err
		}
		s.log.Warn("cached file id is stale, re-resolving", logging.KeyFile, name, logging.KeyFileID, h.FileID)
		s.forget(name)
	}
	return nil, false, nil
}

// Write replaces the content of a domain file, creating it on first write.
// A cached id that no longer exists is dropped and resolved again once.
func (s *Store) Write(ctx context.Context, name string, content []byte) error {
	for attempt := 0; attempt < 2; attempt++ {
		s.mu.Lock()
		gen := s.generation
		s.mu.Unlock()

		h, err := s.Resolve(ctx, name)
		if err != nil {
			return err
		}

		id, err := s.WriteFile(ctx, h.FileID, h.FolderID, name, content)
		if err == nil {
			s.remember(gen, name, id)
			s.log.Debug("wrote remote file", logging.KeyFile, name, logging.KeyFileID, id, logging.KeyCount, len(content))
			return nil
		}
		if !errors.IsNotFound(err) || attempt > 0 {
			return err
		}
		s.log.Warn("remote location is stale, re-resolving", logging.KeyFile, name, logging.KeyFileID, h.FileID)
		if h.Resolved() {
			s.forget(name)
		} else {
			s.forgetFolder()
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Internals
// -----------------------------------------------------------------------------

func (s *Store) folder(ctx context.Context) (string, error) {
	s.mu.Lock()
	id, gen := s.folderID, s.generation
	s.mu.Unlock()
	if id != "" {
		return id, nil
	}

	v, err, _ := s.group.Do("folder", func() (any, error) {
		id, err := s.FindOrCreateFolder(ctx, s.opts.FolderName)
		if err != nil {
			return "", err
		}
		s.mu.Lock()
		if s.generation == gen {
			s.folderID = id
		}
		s.mu.Unlock()
		return id, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *Store) remember(gen uint64, name, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation == gen && id != "" {
		s.files[name] = id
	}
}

func (s *Store) forget(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, name)
}

func (s *Store) forgetFolder() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folderID = ""
	s.files = make(map[string]string)
}

// call runs fn with the request timeout through the breaker. An
// authorization failure triggers exactly one credential refresh and one
// retry; a second failure is returned as is.
func (s *Store) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	err := s.attempt(ctx, op, fn)
	if err == nil || !errors.IsAuthExpired(err) || s.opts.Refresher == nil {
		return err
	}

	s.log.Info("remote rejected credentials, refreshing", logging.KeyOperation, op)
	rerr := s.opts.Refresher.Refresh(ctx)
	if s.opts.Observer != nil {
		s.opts.Observer.ObserveAuthRefresh(rerr)
	}
	if rerr != nil {
		return AuthExpired(op, rerr)
	}
	return s.attempt(ctx, op, fn)
}

func (s *Store) attempt(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if s.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()
	}

	start := time.Now()
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})
	if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
		err = Unavailable(op, fmt.Errorf("remote store is failing repeatedly: %w", err))
	}
	if s.opts.Observer != nil {
		s.opts.Observer.ObserveRemoteCall(op, time.Since(start), err)
	}
	if err != nil {
		s.log.Debug("remote call failed", logging.KeyOperation, op, logging.KeyError, err)
	}
	return err
}
