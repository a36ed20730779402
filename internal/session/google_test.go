package session

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func testIDToken(t *testing.T) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email":   "ada@example.com",
		"name":    "Ada Lovelace",
		"picture": "https://example.com/ada.png",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return tok
}

type tokenServer struct {
	*httptest.Server
	lastForm url.Values
	revoked  []string
}

func newTokenServer(t *testing.T) *tokenServer {
	t.Helper()
	ts := &tokenServer{}
	idToken := testIDToken(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		ts.lastForm = r.PostForm

		resp := map[string]any{
			"access_token": "fresh-access",
			"token_type":   "Bearer",
			"expires_in":   3600,
			"id_token":     idToken,
		}
		if r.PostForm.Get("grant_type") == "authorization_code" {
			resp["refresh_token"] = "fresh-refresh"
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/revoke", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		ts.revoked = append(ts.revoked, r.PostForm.Get("token"))
		if r.PostForm.Get("token") == "bad" {
			w.WriteHeader(http.StatusBadRequest)
		}
	})

	ts.Server = httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func (ts *tokenServer) identity() *GoogleIdentity {
	return &GoogleIdentity{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Scopes:       []string{"openid", "email"},
		Endpoint: oauth2.Endpoint{
			AuthURL:   ts.URL + "/auth",
			TokenURL:  ts.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RevokeURL:  ts.URL + "/revoke",
		HTTPClient: ts.Client(),
		Out:        io.Discard,
	}
}

func TestGoogleSignInLoopback(t *testing.T) {
	ts := newTokenServer(t)
	g := ts.identity()

	g.OpenURL = func(authURL string) error {
		u, err := url.Parse(authURL)
		if err != nil {
			return err
		}
		q := u.Query()
		assert.Equal(t, "S256", q.Get("code_challenge_method"))
		assert.Equal(t, "offline", q.Get("access_type"))

		go func() {
			resp, err := http.Get(q.Get("redirect_uri") + "?code=auth-code&state=" + url.QueryEscape(q.Get("state")))
			if err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	grant, err := g.SignIn(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", grant.AccessToken)
	assert.Equal(t, "fresh-refresh", grant.RefreshToken)
	assert.Equal(t, "ada@example.com", grant.User.Email)
	assert.Equal(t, "Ada Lovelace", grant.User.Name)

	assert.Equal(t, "auth-code", ts.lastForm.Get("code"))
	assert.NotEmpty(t, ts.lastForm.Get("code_verifier"))
}

func TestGoogleSignInRejectsStateMismatch(t *testing.T) {
	ts := newTokenServer(t)
	g := ts.identity()
	g.OpenURL = func(authURL string) error {
		u, _ := url.Parse(authURL)
		go func() {
			resp, err := http.Get(u.Query().Get("redirect_uri") + "?code=x&state=forged")
			if err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := g.SignIn(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "state mismatch")
}

func TestGoogleSignInHonoursContext(t *testing.T) {
	ts := newTokenServer(t)
	g := ts.identity()
	g.OpenURL = func(string) error { return nil }

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := g.SignIn(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGoogleSignInNeedsClientID(t *testing.T) {
	_, err := (&GoogleIdentity{}).SignIn(context.Background())
	assert.Error(t, err)
}

func TestGoogleRefreshSilently(t *testing.T) {
	ts := newTokenServer(t)

	grant, err := ts.identity().RefreshSilently(context.Background(), "stored-refresh")
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", grant.AccessToken)
	assert.Equal(t, "ada@example.com", grant.User.Email)
	assert.Equal(t, "refresh_token", ts.lastForm.Get("grant_type"))
	assert.Equal(t, "stored-refresh", ts.lastForm.Get("refresh_token"))
}

func TestGoogleRevoke(t *testing.T) {
	ts := newTokenServer(t)
	g := ts.identity()

	require.NoError(t, g.Revoke(context.Background(), "some-token"))
	assert.Error(t, g.Revoke(context.Background(), "bad"))
	assert.Equal(t, []string{"some-token", "bad"}, ts.revoked)
}

func TestGrantFromTokenWithoutIDToken(t *testing.T) {
	g, err := grantFromToken(&oauth2.Token{AccessToken: "a"})
	require.NoError(t, err)
	assert.Equal(t, "a", g.AccessToken)
	assert.Empty(t, g.User.Email)
}
