// Package google implements the OAuth2 authorization-code flow against
// Google, including ID-token verification and the session-bound
// credential bundle used by the analytics clients.
package google

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
)

// AnalyticsReadonlyScope is required for every analytics read call.
const AnalyticsReadonlyScope = "https://www.googleapis.com/auth/analytics.readonly"

// Scopes requested at consent time.
var Scopes = []string{
	"openid",
	AnalyticsReadonlyScope,
	"https://www.googleapis.com/auth/userinfo.email",
}

var (
	// ErrStateMismatch means the callback state did not match the one
	// stored when authorization began (replayed or forged callback).
	ErrStateMismatch = errors.New("oauth state mismatch")

	// ErrTokenExchange means Google rejected the authorization code.
	ErrTokenExchange = errors.New("token exchange failed")

	// ErrIdentityVerification means the ID token could not be verified;
	// the email claim must not be trusted.
	ErrIdentityVerification = errors.New("identity verification failed")
)

// Credentials is the session-bound token bundle. It carries the minimum
// needed to resume API calls; the client ID/secret stay in process
// config. Never log token values.
type Credentials struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry"`
	Scopes       []string  `json:"scopes"`
}

// Valid reports whether the bundle is non-expired and carries the
// analytics read scope. Expiry mutates out of band (refresh), so
// callers re-check before every dependent call.
func (c *Credentials) Valid() bool {
	if c == nil || c.AccessToken == "" {
		return false
	}
	if !c.Expiry.IsZero() && !c.Expiry.After(time.Now()) {
		return false
	}
	for _, s := range c.Scopes {
		if s == AnalyticsReadonlyScope {
			return true
		}
	}
	return false
}

// Token converts the bundle into an oauth2 token.
func (c *Credentials) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		Expiry:       c.Expiry,
	}
}

// Flow drives the authorization-code dance for a single Google client.
type Flow struct {
	cfg      *oauth2.Config
	verifier IDTokenVerifier
}

// NewFlow builds a Flow for the given client material and callback URL.
func NewFlow(clientID, clientSecret, redirectURL string) *Flow {
	cfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
		Endpoint:     googleoauth.Endpoint,
	}
	return &Flow{
		cfg:      cfg,
		verifier: NewIDTokenVerifier(clientID),
	}
}

// WithVerifier overrides the ID-token verifier (tests).
func (f *Flow) WithVerifier(v IDTokenVerifier) *Flow {
	f.verifier = v
	return f
}

// BeginAuthorization returns a fresh anti-forgery state token and the
// consent URL bound to it. The state must be stored server-side and
// matched on callback.
func (f *Flow) BeginAuthorization() (state, authURL string) {
	b := make([]byte, 16)
	rand.Read(b)
	state = hex.EncodeToString(b)
	authURL = f.cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
	return state, authURL
}

// CompleteAuthorization exchanges the callback code for tokens and
// verifies the identity token. It returns the credential bundle and
// the verified email. A state mismatch or a missing stored state
// rejects the callback before any exchange happens.
func (f *Flow) CompleteAuthorization(ctx context.Context, code, callbackState, storedState string) (*Credentials, string, error) {
	if storedState == "" || callbackState != storedState {
		return nil, "", ErrStateMismatch
	}

	token, err := f.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}

	rawIDToken, _ := token.Extra("id_token").(string)
	if rawIDToken == "" {
		return nil, "", fmt.Errorf("%w: no id_token in token response", ErrIdentityVerification)
	}
	email, err := f.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrIdentityVerification, err)
	}

	creds := &Credentials{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
		Scopes:       append([]string(nil), f.cfg.Scopes...),
	}
	return creds, email, nil
}

// Client returns an HTTP client that authorizes requests with the
// bundle and refreshes the access token transparently.
func (f *Flow) Client(ctx context.Context, creds *Credentials) *http.Client {
	return oauth2.NewClient(ctx, f.cfg.TokenSource(ctx, creds.Token()))
}

// Refresh forces a token refresh and returns the updated bundle so the
// caller can persist it back into the session.
func (f *Flow) Refresh(ctx context.Context, creds *Credentials) (*Credentials, error) {
	token, err := f.cfg.TokenSource(ctx, creds.Token()).Token()
	if err != nil {
		return nil, err
	}
	updated := &Credentials{
		AccessToken:  token.AccessToken,
		RefreshToken: creds.RefreshToken,
		Expiry:       token.Expiry,
		Scopes:       append([]string(nil), creds.Scopes...),
	}
	// Persist a rotated refresh token if Google issued one.
	if token.RefreshToken != "" {
		updated.RefreshToken = token.RefreshToken
	}
	return updated, nil
}
