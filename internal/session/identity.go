// Package session owns the signed-in identity: the access token, its
// expiry, silent renewal and sign-out.
package session

import (
	"context"
	"time"

	"github.com/manav03panchal/personalvault/internal/model"
)

// Grant is what the identity provider hands back on sign-in or refresh.
type Grant struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	User         model.User
	IssuedAt     time.Time
}

// Identity is the interactive identity provider.
type Identity interface {
	// SignIn runs the interactive consent flow.
	SignIn(ctx context.Context) (Grant, error)
	// RefreshSilently renews the access token without user interaction.
	RefreshSilently(ctx context.Context, refreshToken string) (Grant, error)
	// Revoke invalidates a token at the provider.
	Revoke(ctx context.Context, token string) error
}

// Cache is the subset of the local cache the manager persists to.
type Cache interface {
	GetBytes(key string) ([]byte, error)
	SetBytes(key string, data []byte) error
	DeleteMany(keys ...string) error
}

// State is the manager's position in the sign-in lifecycle.
type State int

const (
	StateSignedOut State = iota
	StateAuthenticating
	StateSignedIn
	StateRefreshPending
)

func (s State) String() string {
	switch s {
	case StateSignedOut:
		return "signed-out"
	case StateAuthenticating:
		return "authenticating"
	case StateSignedIn:
		return "signed-in"
	case StateRefreshPending:
		return "refresh-pending"
	default:
		return "unknown"
	}
}
