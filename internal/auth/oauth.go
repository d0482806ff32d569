package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/resume-builder/internal/config"
	"github.com/jonathan/resume-builder/internal/types"
	"golang.org/x/oauth2"
)

// stateTTL bounds how long a user may sit on the provider's consent page.
const stateTTL = 10 * time.Minute

type pendingState struct {
	verifier    string
	redirectURL string
	expiresAt   time.Time
}

// OAuthProvider signs users in with the OAuth2 authorization code flow and
// PKCE. The redirect and popup strategies differ only in how the client is
// sent to the authorization page.
type OAuthProvider struct {
	strategy    string
	oauth       *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
	redirects   map[string]bool

	mu     sync.Mutex
	states map[string]pendingState
	now    func() time.Time
}

// NewOAuthProvider creates a provider from cfg. httpClient may be nil.
func NewOAuthProvider(cfg config.AuthConfig, httpClient *http.Client) *OAuthProvider {
	redirects := make(map[string]bool, len(cfg.AllowedRedirectURLs))
	for _, u := range cfg.AllowedRedirectURLs {
		redirects[u] = true
	}
	return &OAuthProvider{
		strategy: cfg.Strategy,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
			RedirectURL: cfg.RedirectURL,
			Scopes:      cfg.Scopes,
		},
		userInfoURL: cfg.UserInfoURL,
		httpClient:  httpClient,
		redirects:   redirects,
		states:      make(map[string]pendingState),
		now:         time.Now,
	}
}

// Strategy returns "redirect" or "popup".
func (p *OAuthProvider) Strategy() string { return p.strategy }

// Begin creates a fresh state and PKCE verifier and returns the authorization
// URL. A requested redirect URL must be the configured one or on the allow-list;
// it is remembered with the state so the code exchange sends the same value.
func (p *OAuthProvider) Begin(_ context.Context, req types.BeginAuthRequest) (*Challenge, error) {
	redirectURL := p.oauth.RedirectURL
	if req.RedirectURL != "" && req.RedirectURL != redirectURL {
		if !p.redirects[req.RedirectURL] {
			return nil, fmt.Errorf("%w: %s", ErrRedirectNotAllowed, req.RedirectURL)
		}
		redirectURL = req.RedirectURL
	}

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	expiresAt := p.now().Add(stateTTL)

	p.mu.Lock()
	p.pruneLocked()
	p.states[state] = pendingState{verifier: verifier, redirectURL: redirectURL, expiresAt: expiresAt}
	p.mu.Unlock()

	opts := []oauth2.AuthCodeOption{oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(verifier)}
	if redirectURL != p.oauth.RedirectURL {
		opts = append(opts, oauth2.SetAuthURLParam("redirect_uri", redirectURL))
	}

	return &Challenge{
		Strategy:  p.strategy,
		URL:       p.oauth.AuthCodeURL(state, opts...),
		State:     state,
		Redirect:  p.strategy == config.AuthStrategyRedirect,
		ExpiresAt: &expiresAt,
	}, nil
}

// Complete exchanges the code and loads the user's profile. Each state can
// be completed once.
func (p *OAuthProvider) Complete(ctx context.Context, req types.CompleteAuthRequest) (*types.Identity, error) {
	if req.Code == "" {
		return nil, ErrMissingCode
	}

	p.mu.Lock()
	pending, ok := p.states[req.State]
	delete(p.states, req.State)
	p.mu.Unlock()
	if !ok || p.now().After(pending.expiresAt) {
		return nil, ErrInvalidState
	}

	if p.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	}

	opts := []oauth2.AuthCodeOption{oauth2.VerifierOption(pending.verifier)}
	if pending.redirectURL != p.oauth.RedirectURL {
		opts = append(opts, oauth2.SetAuthURLParam("redirect_uri", pending.redirectURL))
	}
	token, err := p.oauth.Exchange(ctx, req.Code, opts...)
	if err != nil {
		return nil, &ProviderError{Message: "code exchange failed", Cause: err}
	}

	info, err := p.fetchUserInfo(ctx, token)
	if err != nil {
		return nil, err
	}

	return &types.Identity{
		ID:          IdentityID(p.strategy, info.Subject),
		Subject:     info.Subject,
		Provider:    p.strategy,
		DisplayName: info.Name,
		Email:       info.Email,
	}, nil
}

type userInfo struct {
	Subject string `json:"sub"`
	Name    string `json:"name"`
	Email   string `json:"email"`
}

func (p *OAuthProvider) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*userInfo, error) {
	if p.userInfoURL == "" {
		// no userinfo endpoint: fall back to claims returned with the token
		sub, _ := token.Extra("sub").(string)
		email, _ := token.Extra("email").(string)
		if sub == "" {
			sub = email
		}
		if sub == "" {
			return nil, &ProviderError{Message: "token carries no subject and no userinfo_url is configured"}
		}
		return &userInfo{Subject: sub, Email: email}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, &ProviderError{Message: "failed to build userinfo request", Cause: err}
	}
	resp, err := p.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, &ProviderError{Message: "userinfo request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &ProviderError{Message: fmt.Sprintf("userinfo returned %d: %s", resp.StatusCode, body)}
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, &ProviderError{Message: "failed to decode userinfo", Cause: err}
	}
	if info.Subject == "" {
		return nil, &ProviderError{Message: "userinfo has no subject"}
	}
	return &info, nil
}

// pruneLocked drops expired states. Caller holds mu.
func (p *OAuthProvider) pruneLocked() {
	now := p.now()
	for k, s := range p.states {
		if now.After(s.expiresAt) {
			delete(p.states, k)
		}
	}
}
