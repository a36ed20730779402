package session

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/browser"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/manav03panchal/personalvault/internal/logging"
	"github.com/manav03panchal/personalvault/internal/model"
)

// DefaultRevokeURL is Google's token revocation endpoint.
const DefaultRevokeURL = "https://oauth2.googleapis.com/revoke"

const callbackPath = "/callback"

// GoogleIdentity signs in with Google using the installed-app loopback
// flow with PKCE.
type GoogleIdentity struct {
	ClientID     string
	ClientSecret string
	Scopes       []string

	// Endpoint defaults to Google's.
	Endpoint oauth2.Endpoint
	// RevokeURL defaults to DefaultRevokeURL.
	RevokeURL string
	// HTTPClient is used for token and revoke requests.
	HTTPClient *http.Client
	// OpenURL opens the consent page. Defaults to the system browser.
	OpenURL func(string) error
	// Out receives the consent URL as a fallback. Defaults to stderr.
	Out io.Writer
}

var _ Identity = (*GoogleIdentity)(nil)

func (g *GoogleIdentity) config(redirect string) *oauth2.Config {
	ep := g.Endpoint
	if ep.AuthURL == "" {
		ep = endpoints.Google
	}
	return &oauth2.Config{
		ClientID:     g.ClientID,
		ClientSecret: g.ClientSecret,
		Endpoint:     ep,
		RedirectURL:  redirect,
		Scopes:       g.Scopes,
	}
}

func (g *GoogleIdentity) context(ctx context.Context) context.Context {
	if g.HTTPClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, g.HTTPClient)
	}
	return ctx
}

type callbackResult struct {
	code string
	err  error
}

// SignIn implements Identity. It serves the redirect on a random loopback
// port and waits for the browser to return or ctx to end.
func (g *GoogleIdentity) SignIn(ctx context.Context) (Grant, error) {
	if g.ClientID == "" {
		return Grant{}, fmt.Errorf("google client id is not configured (set google.client_id)")
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return Grant{}, fmt.Errorf("listen for oauth callback: %w", err)
	}
	redirect := "http://" + ln.Addr().String() + callbackPath
	cfg := g.config(redirect)

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	authURL := cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("prompt", "consent"),
	)

	results := make(chan callbackResult, 1)
	r := chi.NewRouter()
	r.Get(callbackPath, func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		var res callbackResult
		switch {
		case q.Get("state") != state:
			res.err = fmt.Errorf("oauth callback state mismatch")
		case q.Get("error") != "":
			res.err = fmt.Errorf("consent denied: %s", q.Get("error"))
		case q.Get("code") == "":
			res.err = fmt.Errorf("oauth callback carried no code")
		default:
			res.code = q.Get("code")
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if res.err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, "<p>Sign-in failed. You can close this window.</p>")
		} else {
			_, _ = io.WriteString(w, "<p>Signed in to PersonalVault. You can close this window.</p>")
		}
		select {
		case results <- res:
		default:
		}
	})

	srv := &http.Server{Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	out := g.Out
	if out == nil {
		out = os.Stderr
	}
	fmt.Fprintf(out, "Opening your browser to sign in. If it does not open, visit:\n\n  %s\n\n", authURL)

	open := g.OpenURL
	if open == nil {
		open = browser.OpenURL
	}
	if err := open(authURL); err != nil {
		logging.DebugLog("could not open browser", logging.KeyError, err)
	}

	var res callbackResult
	select {
	case res = <-results:
	case <-ctx.Done():
		return Grant{}, fmt.Errorf("waiting for browser sign-in: %w", ctx.Err())
	}
	if res.err != nil {
		return Grant{}, res.err
	}

	tok, err := cfg.Exchange(g.context(ctx), res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return Grant{}, fmt.Errorf("exchange authorization code: %w", err)
	}
	return grantFromToken(tok)
}

// RefreshSilently implements Identity.
func (g *GoogleIdentity) RefreshSilently(ctx context.Context, refreshToken string) (Grant, error) {
	ts := g.config("").TokenSource(g.context(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := ts.Token()
	if err != nil {
		return Grant{}, fmt.Errorf("refresh token: %w", err)
	}
	return grantFromToken(tok)
}

// Revoke implements Identity.
func (g *GoogleIdentity) Revoke(ctx context.Context, token string) error {
	revokeURL := g.RevokeURL
	if revokeURL == "" {
		revokeURL = DefaultRevokeURL
	}
	client := g.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoke token: %s", resp.Status)
	}
	return nil
}

// grantFromToken builds a Grant, reading the profile from the ID token. The
// token came straight from the token endpoint over TLS, so its signature is
// not checked.
func grantFromToken(tok *oauth2.Token) (Grant, error) {
	g := Grant{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		IssuedAt:     time.Now(),
	}

	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		return g, nil
	}
	g.IDToken = idToken

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return Grant{}, fmt.Errorf("parse id token: %w", err)
	}
	g.User = model.User{
		Email:   claimString(claims, "email"),
		Name:    claimString(claims, "name"),
		Picture: claimString(claims, "picture"),
	}
	return g, nil
}

func claimString(claims jwt.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}
