// Package remotetest provides an in-memory remote backend for tests.
package remotetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/manav03panchal/personalvault/internal/errors"
)

// Method names accepted by SetError, FailNext and Calls.
const (
	FindFolder   = "FindFolder"
	CreateFolder = "CreateFolder"
	FindFile     = "FindFile"
	CreateFile   = "CreateFile"
	UpdateFile   = "UpdateFile"
	ReadFile     = "ReadFile"
)

// Injected errors carrying the sentinels the remote store reacts to.
var (
	ErrUnavailable = fmt.Errorf("injected: %w", errors.ErrRemoteUnavailable)
	ErrAuth        = fmt.Errorf("injected: %w", errors.ErrAuthExpired)
	ErrNotFound    = fmt.Errorf("injected: %w", errors.ErrRemoteNotFound)
)

type file struct {
	parent  string
	name    string
	content []byte
}

// Memory is an in-memory remote backend with call counters, error injection
// and a gate that holds calls until released.
type Memory struct {
	mu sync.Mutex

	folders map[string]string // id -> name
	files   map[string]*file  // id -> file
	nextID  int
	calls   map[string]int

	// For testing error scenarios
	shouldFailOn map[string]error
	failNext     map[string][]error

	gate chan struct{}
}

// New returns an empty Memory backend.
func New() *Memory {
	return &Memory{
		folders:      make(map[string]string),
		files:        make(map[string]*file),
		calls:        make(map[string]int),
		shouldFailOn: make(map[string]error),
		failNext:     make(map[string][]error),
	}
}

// SetError makes every call to method fail with err until ClearErrors.
func (m *Memory) SetError(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailOn[method] = err
}

// FailNext makes the next n calls to method fail with err.
func (m *Memory) FailNext(method string, n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < n; i++ {
		m.failNext[method] = append(m.failNext[method], err)
	}
}

// ClearErrors removes all configured errors.
func (m *Memory) ClearErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailOn = make(map[string]error)
	m.failNext = make(map[string][]error)
}

// Hold makes subsequent calls block until Release.
func (m *Memory) Hold() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gate == nil {
		m.gate = make(chan struct{})
	}
}

// Release unblocks held calls.
func (m *Memory) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gate != nil {
		close(m.gate)
		m.gate = nil
	}
}

// Calls returns how many times method was invoked.
func (m *Memory) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// Writes returns the number of create and update calls.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[CreateFile] + m.calls[UpdateFile]
}

// ResetCalls zeroes the counters.
func (m *Memory) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = make(map[string]int)
}

// Seed stores content as name inside the folder named folder, creating the
// folder if needed. It returns the file id.
func (m *Memory) Seed(folder, name string, content []byte) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	parent := m.folderByName(folder)
	if parent == "" {
		parent = m.newID("folder")
		m.folders[parent] = folder
	}
	for id, f := range m.files {
		if f.parent == parent && f.name == name {
			f.content = append([]byte(nil), content...)
			return id
		}
	}
	id := m.newID("file")
	m.files[id] = &file{parent: parent, name: name, content: append([]byte(nil), content...)}
	return id
}

// Content returns the stored content of name inside folder.
func (m *Memory) Content(folder, name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	parent := m.folderByName(folder)
	for _, f := range m.files {
		if f.parent == parent && f.name == name {
			return append([]byte(nil), f.content...), true
		}
	}
	return nil, false
}

// Remove deletes a file by id, leaving callers holding a stale id.
func (m *Memory) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, id)
}

// FolderCount returns how many folders are named name.
func (m *Memory) FolderCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, folder := range m.folders {
		if folder == name {
			n++
		}
	}
	return n
}

// Name implements remote.Backend.
func (m *Memory) Name() string { return "memory" }

// FindFolder implements remote.Backend.
func (m *Memory) FindFolder(ctx context.Context, name string) (string, bool, error) {
	if err := m.enter(ctx, FindFolder); err != nil {
		return "", false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.folderByName(name)
	return id, id != "", nil
}

// CreateFolder implements remote.Backend.
func (m *Memory) CreateFolder(ctx context.Context, name string) (string, error) {
	if err := m.enter(ctx, CreateFolder); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.newID("folder")
	m.folders[id] = name
	return id, nil
}

// FindFile implements remote.Backend.
func (m *Memory) FindFile(ctx context.Context, name, parentID string) (string, bool, error) {
	if err := m.enter(ctx, FindFile); err != nil {
		return "", false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, f := range m.files {
		if f.parent == parentID && f.name == name {
			return id, true, nil
		}
	}
	return "", false, nil
}

// CreateFile implements remote.Backend.
func (m *Memory) CreateFile(ctx context.Context, parentID, name string, content []byte) (string, error) {
	if err := m.enter(ctx, CreateFile); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.folders[parentID]; !ok {
		return "", fmt.Errorf("folder %s: %w", parentID, errors.ErrRemoteNotFound)
	}
	id := m.newID("file")
	m.files[id] = &file{parent: parentID, name: name, content: append([]byte(nil), content...)}
	return id, nil
}

// UpdateFile implements remote.Backend.
func (m *Memory) UpdateFile(ctx context.Context, fileID string, content []byte) error {
	if err := m.enter(ctx, UpdateFile); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[fileID]
	if !ok {
		return fmt.Errorf("file %s: %w", fileID, errors.ErrRemoteNotFound)
	}
	f.content = append([]byte(nil), content...)
	return nil
}

// ReadFile implements remote.Backend.
func (m *Memory) ReadFile(ctx context.Context, fileID string) ([]byte, error) {
	if err := m.enter(ctx, ReadFile); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[fileID]
	if !ok {
		return nil, fmt.Errorf("file %s: %w", fileID, errors.ErrRemoteNotFound)
	}
	return append([]byte(nil), f.content...), nil
}

// enter counts the call, waits on the gate and returns any injected error.
func (m *Memory) enter(ctx context.Context, method string) error {
	m.mu.Lock()
	m.calls[method]++
	gate := m.gate
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if queued := m.failNext[method]; len(queued) > 0 {
		m.failNext[method] = queued[1:]
		return queued[0]
	}
	if err, ok := m.shouldFailOn[method]; ok {
		return err
	}
	return nil
}

func (m *Memory) folderByName(name string) string {
	// Lowest id wins so repeated lookups are stable.
	best := ""
	for id, folder := range m.folders {
		if folder == name && (best == "" || less(id, best)) {
			best = id
		}
	}
	return best
}

func (m *Memory) newID(kind string) string {
	m.nextID++
	return fmt.Sprintf("%s-%04d", kind, m.nextID)
}

func less(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
