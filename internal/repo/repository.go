// Package repo keeps each replicated collection in memory, backed by the
// local cache and reconciled with the remote store.
//
// Reads are cache first: LoadCached answers synchronously and Refresh
// overlays the remote copy. Writes land in the cache before they return and
// reach the remote store through the sync coordinator's debounced flush. A
// sync_pending:<domain> marker records a local change the remote has not
// seen yet, so the next Refresh pushes instead of pulling.
package repo

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/manav03panchal/personalvault/internal/errors"
	"github.com/manav03panchal/personalvault/internal/logging"
	"github.com/manav03panchal/personalvault/internal/model"
	"github.com/manav03panchal/personalvault/internal/storage"
	"github.com/manav03panchal/personalvault/internal/syncer"
)

// Cache is the subset of the local cache a repository needs.
type Cache interface {
	GetBytes(key string) ([]byte, error)
	SetBytes(key string, data []byte) error
	SetMany(pairs map[string][]byte) error
	Delete(key string) error
	Exists(key string) (bool, error)
}

// Store reads and writes whole named files in the remote application folder.
type Store interface {
	Read(ctx context.Context, name string) ([]byte, bool, error)
	Write(ctx context.Context, name string, content []byte) error
}

// Scheduler debounces flushes per domain.
type Scheduler interface {
	Schedule(name string, fn syncer.FlushFunc)
	FlushNow(ctx context.Context, name string, fn syncer.FlushFunc) error
}

// SessionGate lets a repository check the session before touching the
// remote store.
type SessionGate interface {
	IsValid() bool
	SilentRefresh(ctx context.Context) bool
}

// Observer receives remote read outcomes. The metrics package implements it.
type Observer interface {
	ObserveRemoteRead(domain string, err error)
}

// Deps are the collaborators shared by every repository.
type Deps struct {
	Cache Cache
	// Remote is nil when no remote store is configured.
	Remote Store
	// Sync is required whenever Remote is set.
	Sync Scheduler
	// Session is optional; backends without sign-in leave it nil.
	Session SessionGate
	// Offline keeps the remote untouched. Changes stay marked pending.
	Offline  bool
	Observer Observer
}

// Domain describes one replicated collection.
type Domain[T any] struct {
	Name     model.Domain
	CacheKey string
	// FileName is the remote file. Empty means local-only.
	FileName  string
	Empty     func() T
	Normalize func(T) T
	Clone     func(T) T
	Count     func(T) int
}

// Repository holds one collection in memory. Mutations are applied in call
// order under mu.
type Repository[T any] struct {
	domain Domain[T]
	deps   Deps
	log    *slog.Logger

	mu      sync.Mutex
	value   T
	loaded  bool
	version uint64
}

// New creates a repository for d.
func New[T any](d Domain[T], deps Deps) *Repository[T] {
	if d.Normalize == nil {
		d.Normalize = func(v T) T { return v }
	}
	if d.Clone == nil {
		d.Clone = func(v T) T { return v }
	}
	return &Repository[T]{
		domain: d,
		deps:   deps,
		log:    logging.ForComponent("repo").With(logging.KeyDomain, string(d.Name)),
		value:  d.Empty(),
	}
}

// Name returns the domain name.
func (r *Repository[T]) Name() model.Domain { return r.domain.Name }

// LocalOnly reports whether the collection never reaches the remote store.
func (r *Repository[T]) LocalOnly() bool {
	return r.domain.FileName == "" || r.deps.Remote == nil
}

// LoadCached reads the collection from the local cache. A missing or
// unreadable entry yields the empty collection.
func (r *Repository[T]) LoadCached() T {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.value = r.readCache()
	r.loaded = true
	return r.domain.Clone(r.value)
}

// Warm loads the cache and returns the item count.
func (r *Repository[T]) Warm() int {
	return r.count(r.LoadCached())
}

// Load returns the cached collection at once and refreshes from the remote
// store in the background. The channel carries the refreshed collection, or
// closes without a value when the remote could not be read.
func (r *Repository[T]) Load(ctx context.Context) (T, <-chan T) {
	cached := r.LoadCached()
	out := make(chan T, 1)
	if r.LocalOnly() || r.deps.Offline {
		close(out)
		return cached, out
	}

	go func() {
		defer close(out)
		v, err := r.Refresh(ctx)
		if err != nil {
			r.log.Debug("background refresh skipped", logging.KeyError, err)
			return
		}
		out <- v
	}()
	return cached, out
}

// Refresh overlays the remote copy onto the local one and returns the result.
// A pending local change is pushed instead. A missing or malformed remote
// file leaves local data and the remote file untouched.
func (r *Repository[T]) Refresh(ctx context.Context) (T, error) {
	r.ensureLoaded()
	if r.LocalOnly() || r.deps.Offline {
		return r.Snapshot(), nil
	}
	if err := r.ensureSession(ctx); err != nil {
		return r.Snapshot(), err
	}

	r.mu.Lock()
	before := r.version
	r.mu.Unlock()

	pending, err := r.deps.Cache.Exists(model.PendingKey(r.domain.Name))
	if err != nil {
		r.log.Warn("pending marker unreadable", logging.KeyError, err)
	}
	if pending {
		r.log.Info("pushing pending local change")
		if err := r.flushNow(ctx); err != nil {
			return r.Snapshot(), err
		}
		return r.Snapshot(), nil
	}

	data, found, err := r.deps.Remote.Read(ctx, r.domain.FileName)
	if r.deps.Observer != nil {
		r.deps.Observer.ObserveRemoteRead(string(r.domain.Name), err)
	}
	if err != nil {
		return r.Snapshot(), fmt.Errorf("refresh %s: %w", r.domain.Name, err)
	}
	if !found {
		r.log.Debug("no remote copy yet", logging.KeyFile, r.domain.FileName)
		return r.Snapshot(), nil
	}

	v, err := r.decode(data)
	if err != nil {
		r.log.Warn("remote copy unreadable, keeping local", logging.KeyFile, r.domain.FileName, logging.KeyError, err)
		return r.Snapshot(), fmt.Errorf("refresh %s: %w", r.domain.Name, stderrors.Join(errors.ErrMalformedRemoteData, err))
	}
	v = r.domain.Normalize(v)

	// The cache write shares the lock with Mutate so a local edit can never
	// be overwritten by the older remote copy.
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.version != before {
		r.log.Debug("local change during refresh wins")
		return r.domain.Clone(r.value), nil
	}
	r.value = v
	if err := r.writeCache(v); err != nil {
		r.log.Warn("could not cache remote copy", logging.KeyError, err)
	}
	return r.domain.Clone(v), nil
}

// Sync refreshes and returns the item count.
func (r *Repository[T]) Sync(ctx context.Context) (int, error) {
	v, err := r.Refresh(ctx)
	return r.count(v), err
}

// Mutate applies fn to a copy of the collection, normalizes the result and
// writes it to the cache before returning. On a cache failure the in-memory
// collection is left unchanged. A successful change schedules a flush.
func (r *Repository[T]) Mutate(fn func(T) (T, error)) (T, error) {
	r.ensureLoaded()

	r.mu.Lock()
	next, err := fn(r.domain.Clone(r.value))
	if err != nil {
		r.mu.Unlock()
		var zero T
		return zero, err
	}
	next = r.domain.Normalize(next)

	data, err := json.Marshal(next)
	if err != nil {
		r.mu.Unlock()
		var zero T
		return zero, fmt.Errorf("encode %s: %w", r.domain.Name, err)
	}

	remote := !r.LocalOnly()
	if remote {
		err = r.deps.Cache.SetMany(map[string][]byte{
			r.domain.CacheKey:              data,
			model.PendingKey(r.domain.Name): []byte(strconv.FormatInt(time.Now().UnixMilli(), 10)),
		})
	} else {
		err = r.deps.Cache.SetBytes(r.domain.CacheKey, data)
	}
	if err != nil {
		r.mu.Unlock()
		var zero T
		return zero, fmt.Errorf("save %s: %w", r.domain.Name, cacheError(err))
	}

	r.value = next
	r.version++
	r.mu.Unlock()

	if remote && !r.deps.Offline && r.deps.Sync != nil {
		r.deps.Sync.Schedule(string(r.domain.Name), r.flush)
	}
	return r.domain.Clone(next), nil
}

// ForceFlush rewrites the cache and, when a change is pending, writes it to
// the remote store immediately, cancelling any debounced flush.
func (r *Repository[T]) ForceFlush(ctx context.Context) error {
	r.ensureLoaded()
	if err := r.persist(); err != nil {
		return fmt.Errorf("save %s: %w", r.domain.Name, cacheError(err))
	}
	if r.LocalOnly() || r.deps.Offline || !r.Pending() {
		return nil
	}
	return r.flushNow(ctx)
}

// Push writes the local collection to the remote store even when nothing
// is pending.
func (r *Repository[T]) Push(ctx context.Context) error {
	r.ensureLoaded()
	if r.LocalOnly() {
		return nil
	}
	if r.deps.Offline {
		return fmt.Errorf("push %s: %w", r.domain.Name, errors.ErrRemoteUnavailable)
	}
	return r.flushNow(ctx)
}

// Snapshot returns a copy of the in-memory collection.
func (r *Repository[T]) Snapshot() T {
	r.ensureLoaded()
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.domain.Clone(r.value)
}

// Count returns the number of items in the collection.
func (r *Repository[T]) Count() int {
	return r.count(r.Snapshot())
}

// Pending reports whether a local change has not reached the remote store.
func (r *Repository[T]) Pending() bool {
	if r.LocalOnly() {
		return false
	}
	ok, err := r.deps.Cache.Exists(model.PendingKey(r.domain.Name))
	return err == nil && ok
}

func (r *Repository[T]) flushNow(ctx context.Context) error {
	if r.deps.Sync == nil {
		return r.flush(ctx)
	}
	return r.deps.Sync.FlushNow(ctx, string(r.domain.Name), r.flush)
}

// flush writes the snapshot current at call time. The pending marker is
// cleared only if no mutation landed while the write was in flight.
func (r *Repository[T]) flush(ctx context.Context) error {
	if err := r.ensureSession(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	version := r.version
	data, err := json.Marshal(r.value)
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encode %s: %w", r.domain.Name, err)
	}

	if err := r.deps.Remote.Write(ctx, r.domain.FileName, data); err != nil {
		return fmt.Errorf("flush %s: %w", r.domain.Name, err)
	}

	r.mu.Lock()
	current := r.version == version
	r.mu.Unlock()
	if current {
		if err := r.deps.Cache.Delete(model.PendingKey(r.domain.Name)); err != nil {
			r.log.Warn("could not clear pending marker", logging.KeyError, err)
		}
	}
	return nil
}

func (r *Repository[T]) ensureSession(ctx context.Context) error {
	if r.deps.Session == nil || r.deps.Session.IsValid() {
		return nil
	}
	if r.deps.Session.SilentRefresh(ctx) {
		return nil
	}
	return fmt.Errorf("%s: %w", r.domain.Name, errors.ErrAuthExpired)
}

func (r *Repository[T]) ensureLoaded() {
	r.mu.Lock()
	loaded := r.loaded
	r.mu.Unlock()
	if !loaded {
		r.LoadCached()
	}
}

func (r *Repository[T]) readCache() T {
	data, err := r.deps.Cache.GetBytes(r.domain.CacheKey)
	if err != nil {
		if !storage.IsErrKeyNotFound(err) {
			r.log.Warn("cache unreadable, starting empty", logging.KeyError, err)
		}
		return r.domain.Empty()
	}
	v, err := r.decode(data)
	if err != nil {
		r.log.Warn("cached copy unreadable, starting empty", logging.KeyError, err)
		return r.domain.Empty()
	}
	return r.domain.Normalize(v)
}

// persist rewrites the cache entry from memory.
func (r *Repository[T]) persist() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writeCache(r.value)
}

// writeCache is called with r.mu held.
func (r *Repository[T]) writeCache(v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.deps.Cache.SetBytes(r.domain.CacheKey, data)
}

func (r *Repository[T]) decode(data []byte) (T, error) {
	v := r.domain.Empty()
	if err := json.Unmarshal(data, &v); err != nil {
		return r.domain.Empty(), err
	}
	return v, nil
}

func (r *Repository[T]) count(v T) int {
	if r.domain.Count == nil {
		return 0
	}
	return r.domain.Count(v)
}

func cacheError(err error) error {
	if stderrors.Is(err, errors.ErrLocalCacheUnavailable) {
		return err
	}
	return stderrors.Join(errors.ErrLocalCacheUnavailable, err)
}
