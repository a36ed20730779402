package session

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/manav03panchal/personalvault/internal/errors"
	"github.com/manav03panchal/personalvault/internal/logging"
	"github.com/manav03panchal/personalvault/internal/model"
	"github.com/manav03panchal/personalvault/internal/storage"
)

// Options tunes a Manager.
type Options struct {
	// TokenLifetime is added to the issue time to compute expiry.
	TokenLifetime time.Duration
	// RefreshMargin makes AccessToken refresh this long before expiry.
	RefreshMargin time.Duration
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Manager owns the current session. It is safe for concurrent use.
type Manager struct {
	identity Identity
	cache    Cache
	opts     Options
	group    singleflight.Group
	log      *slog.Logger

	mu      sync.RWMutex
	session *model.Session
	state   State

	hooksMu   sync.Mutex
	onReauth  []func()
	onSignIn  []func(model.User)
	onSignOut []func()
}

// NewManager creates a Manager and restores any persisted session.
func NewManager(identity Identity, cache Cache, opts Options) *Manager {
	if opts.TokenLifetime <= 0 {
		opts.TokenLifetime = time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	m := &Manager{
		identity: identity,
		cache:    cache,
		opts:     opts,
		log:      logging.ForComponent("session"),
	}
	m.restore()
	return m
}

// restore loads the session persisted under the googleUser and tokenExpiry
// keys. Unreadable entries are treated as signed out.
func (m *Manager) restore() {
	data, err := m.cache.GetBytes(model.KeyUser)
	if err != nil {
		if !storage.IsErrKeyNotFound(err) {
			m.log.Warn("cannot read persisted session", logging.KeyError, err)
		}
		return
	}

	var s model.Session
	if err := json.Unmarshal(data, &s); err != nil {
		m.log.Warn("persisted session is unreadable", logging.KeyError, err)
		return
	}
	if raw, err := m.cache.GetBytes(model.KeyTokenExpiry); err == nil {
		if ms, err := strconv.ParseInt(string(raw), 10, 64); err == nil {
			s.Expiry = time.UnixMilli(ms)
		}
	}

	m.session = &s
	m.state = StateSignedIn
}

// SignIn runs the interactive flow and persists the resulting session.
func (m *Manager) SignIn(ctx context.Context) (model.User, error) {
	m.setState(StateAuthenticating)

	grant, err := m.identity.SignIn(ctx)
	if err != nil {
		m.mu.Lock()
		if m.session != nil {
			m.state = StateSignedIn
		} else {
			m.state = StateSignedOut
		}
		m.mu.Unlock()
		return model.User{}, fmt.Errorf("sign in: %w", err)
	}

	s := m.install(grant, "")
	m.log.Info("signed in", logging.KeyUser, s.Email)

	for _, fn := range m.signInHooks() {
		fn(s.User)
	}
	return s.User, nil
}

// IsValid reports whether a session exists and its token has not expired.
func (m *Manager) IsValid() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session != nil && !m.session.Expired(m.opts.Now())
}

// SilentRefresh renews the access token without user interaction. On
// failure the session is left intact, re-login hooks fire and false is
// returned.
func (m *Manager) SilentRefresh(ctx context.Context) bool {
	return m.Refresh(ctx) == nil
}

// Refresh is SilentRefresh returning the cause. Concurrent callers share one
// provider round trip. It satisfies remote.TokenRefresher.
func (m *Manager) Refresh(ctx context.Context) error {
	_, err, _ := m.group.Do("refresh", func() (any, error) {
		m.mu.Lock()
		if m.session == nil {
			m.mu.Unlock()
			return nil, errors.ErrSignedOut
		}
		refreshToken := m.session.RefreshToken
		m.state = StateRefreshPending
		m.mu.Unlock()

		if refreshToken == "" {
			m.setState(StateSignedIn)
			m.fireReauth()
			return nil, fmt.Errorf("no refresh token: %w", errors.ErrAuthExpired)
		}

		grant, err := m.identity.RefreshSilently(ctx, refreshToken)
		if err != nil {
			m.setState(StateSignedIn)
			m.log.Warn("silent refresh failed", logging.KeyError, err)
			m.fireReauth()
			return nil, fmt.Errorf("%w: %w", errors.ErrAuthExpired, err)
		}

		s := m.install(grant, refreshToken)
		m.log.Debug("refreshed access token", "expires_in", s.Remaining(m.opts.Now()).String())
		return nil, nil
	})
	return err
}

// SignOut clears the persisted session and revokes the token best-effort.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	s := m.session
	m.session = nil
	m.state = StateSignedOut
	m.mu.Unlock()

	if err := m.cache.DeleteMany(model.KeyUser, model.KeyTokenExpiry); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	if s != nil {
		token := s.RefreshToken
		if token == "" {
			token = s.AccessToken
		}
		if token != "" {
			if err := m.identity.Revoke(ctx, token); err != nil {
				m.log.Warn("token revocation failed", logging.KeyError, err)
			}
		}
		m.log.Info("signed out", logging.KeyUser, s.Email)
	}

	for _, fn := range m.signOutHooks() {
		fn()
	}
	return nil
}

// Current returns a copy of the session.
func (m *Manager) Current() (model.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return model.Session{}, false
	}
	return *m.session, true
}

// User returns the signed-in profile.
func (m *Manager) User() (model.User, bool) {
	s, ok := m.Current()
	return s.User, ok
}

// State returns the lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// NeedsRefresh reports whether the token is expired or inside the refresh
// margin.
func (m *Manager) NeedsRefresh() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session != nil && m.session.ExpiresWithin(m.opts.Now(), m.opts.RefreshMargin)
}

// AccessToken returns a usable token, refreshing it first when it is
// expired or about to expire.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	s, ok := m.Current()
	if !ok {
		return "", errors.ErrSignedOut
	}
	if !s.ExpiresWithin(m.opts.Now(), m.opts.RefreshMargin) {
		return s.AccessToken, nil
	}

	if err := m.Refresh(ctx); err != nil {
		// Still usable inside the margin.
		if !s.Expired(m.opts.Now()) {
			return s.AccessToken, nil
		}
		return "", err
	}
	s, _ = m.Current()
	return s.AccessToken, nil
}

// Token implements oauth2.TokenSource for the Drive backend.
func (m *Manager) Token() (*oauth2.Token, error) {
	token, err := m.AccessToken(context.Background())
	if err != nil {
		return nil, err
	}
	s, _ := m.Current()
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer", Expiry: s.Expiry}, nil
}

// OnReauthRequired registers fn to run when a silent refresh fails.
func (m *Manager) OnReauthRequired(fn func()) {
	m.hooksMu.Lock()
	defer m.hooksMu.Unlock()
	m.onReauth = append(m.onReauth, fn)
}

// OnSignIn registers fn to run after a successful interactive sign-in.
func (m *Manager) OnSignIn(fn func(model.User)) {
	m.hooksMu.Lock()
	defer m.hooksMu.Unlock()
	m.onSignIn = append(m.onSignIn, fn)
}

// OnSignOut registers fn to run after sign-out, e.g. to reset remote
// handles.
func (m *Manager) OnSignOut(fn func()) {
	m.hooksMu.Lock()
	defer m.hooksMu.Unlock()
	m.onSignOut = append(m.onSignOut, fn)
}

// StartAutoRefresh refreshes the token ahead of expiry until ctx is done.
func (m *Manager) StartAutoRefresh(ctx context.Context) {
	go func() {
		for {
			wait := time.Minute
			if s, ok := m.Current(); ok {
				if d := s.Remaining(m.opts.Now()) - m.opts.RefreshMargin; d > 0 {
					wait = d
				} else {
					m.CheckAndRefresh(ctx)
				}
			}

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}()
}

// CheckAndRefresh refreshes the token if it is inside the refresh margin.
// Failures are logged; re-login hooks have already fired.
func (m *Manager) CheckAndRefresh(ctx context.Context) {
	if !m.NeedsRefresh() {
		return
	}
	if err := m.Refresh(ctx); err != nil && !stderrors.Is(err, errors.ErrSignedOut) {
		m.log.Warn("scheduled token refresh failed", logging.KeyError, err)
	}
}

// install stores grant as the current session and persists it. An empty
// refresh token in grant keeps fallbackRefresh.
func (m *Manager) install(grant Grant, fallbackRefresh string) model.Session {
	issued := grant.IssuedAt
	if issued.IsZero() {
		issued = m.opts.Now()
	}

	m.mu.Lock()
	s := model.Session{
		User:         grant.User,
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		Expiry:       issued.Add(m.opts.TokenLifetime),
	}
	if s.RefreshToken == "" {
		s.RefreshToken = fallbackRefresh
	}
	if s.Email == "" && m.session != nil {
		s.User = m.session.User
	}
	m.session = &s
	m.state = StateSignedIn
	m.mu.Unlock()

	if err := m.persist(s); err != nil {
		m.log.Warn("cannot persist session", logging.KeyError, err)
	}
	return s
}

func (m *Manager) persist(s model.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := m.cache.SetBytes(model.KeyUser, data); err != nil {
		return err
	}
	return m.cache.SetBytes(model.KeyTokenExpiry, []byte(strconv.FormatInt(s.Expiry.UnixMilli(), 10)))
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
}

func (m *Manager) fireReauth() {
	m.hooksMu.Lock()
	hooks := append([]func(){}, m.onReauth...)
	m.hooksMu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

func (m *Manager) signInHooks() []func(model.User) {
	m.hooksMu.Lock()
	defer m.hooksMu.Unlock()
	return append([]func(model.User){}, m.onSignIn...)
}

func (m *Manager) signOutHooks() []func() {
	m.hooksMu.Lock()
	defer m.hooksMu.Unlock()
	return append([]func(){}, m.onSignOut...)
}
