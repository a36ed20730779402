package model

import "time"

// User is the signed-in identity profile.
type User struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}

// Session is the persisted sign-in state.
type Session struct {
	User
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	Expiry       time.Time `json:"-"`
}

// Expired reports whether the access token is past its expiry.
func (s Session) Expired(now time.Time) bool {
	return s.AccessToken == "" || !now.Before(s.Expiry)
}

// ExpiresWithin reports whether the token expires within margin of now.
func (s Session) ExpiresWithin(now time.Time, margin time.Duration) bool {
	return s.Expired(now.Add(margin))
}

// Remaining returns the time until expiry, never negative.
func (s Session) Remaining(now time.Time) time.Duration {
	if d := s.Expiry.Sub(now); d > 0 {
		return d
	}
	return 0
}
