package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/jonathan/resume-builder/internal/config"
	"github.com/jonathan/resume-builder/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type recordingSender struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func (s *recordingSender) SendCode(_ context.Context, phone, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.codes == nil {
		s.codes = map[string]string{}
	}
	s.codes[phone] = code
	return nil
}

func (s *recordingSender) code(phone string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[phone]
}

func testOTPConfig() *config.OTPConfig {
	return &config.OTPConfig{BcryptCost: bcrypt.MinCost, TTL: time.Minute, MaxAttempts: 3}
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(config.AuthConfig{Strategy: "none"}, Deps{})
	require.NoError(t, err)
	assert.Equal(t, "none", p.Strategy())

	p, err = NewProvider(config.AuthConfig{Strategy: "popup"}, Deps{})
	require.NoError(t, err)
	assert.Equal(t, "popup", p.Strategy())

	p, err = NewProvider(config.AuthConfig{Strategy: "otp"}, Deps{OTP: testOTPConfig()})
	require.NoError(t, err)
	assert.Equal(t, "otp", p.Strategy())

	_, err = NewProvider(config.AuthConfig{Strategy: "otp"}, Deps{})
	assert.Error(t, err)

	_, err = NewProvider(config.AuthConfig{Strategy: "saml"}, Deps{})
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestIdentityID_Stable(t *testing.T) {
	assert.Equal(t, IdentityID("otp", "+15550100"), IdentityID("otp", "+15550100"))
	assert.NotEqual(t, IdentityID("otp", "+15550100"), IdentityID("redirect", "+15550100"))
}

func TestNoneProvider(t *testing.T) {
	p := NoneProvider{}
	ch, err := p.Begin(context.Background(), types.BeginAuthRequest{})
	require.NoError(t, err)
	assert.Equal(t, "none", ch.Strategy)

	id, err := p.Complete(context.Background(), types.CompleteAuthRequest{})
	require.NoError(t, err)
	assert.Equal(t, IdentityID("none", "local"), id.ID)
}

func TestOTP_HappyPath(t *testing.T) {
	sender := &recordingSender{}
	p := NewOTPProvider(testOTPConfig(), sender)

	ch, err := p.Begin(context.Background(), types.BeginAuthRequest{Phone: "+15550100"})
	require.NoError(t, err)
	require.NotNil(t, ch.ExpiresAt)

	code := sender.code("+15550100")
	assert.Regexp(t, `^\d{6}$`, code)

	id, err := p.Complete(context.Background(), types.CompleteAuthRequest{Phone: "+15550100", Code: code})
	require.NoError(t, err)
	assert.Equal(t, "+15550100", id.Phone)
	assert.Equal(t, "otp", id.Provider)

	// single use
	_, err = p.Complete(context.Background(), types.CompleteAuthRequest{Phone: "+15550100", Code: code})
	assert.ErrorIs(t, err, ErrCodeExpired)
}

func TestOTP_Expiry(t *testing.T) {
	sender := &recordingSender{}
	p := NewOTPProvider(testOTPConfig(), sender)
	clock := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return clock }

	_, err := p.Begin(context.Background(), types.BeginAuthRequest{Phone: "+15550100"})
	require.NoError(t, err)

	clock = clock.Add(2 * time.Minute)
	_, err = p.Complete(context.Background(), types.CompleteAuthRequest{Phone: "+15550100", Code: sender.code("+15550100")})
	assert.ErrorIs(t, err, ErrCodeExpired)
}

func TestOTP_BeginPrunesExpiredCodes(t *testing.T) {
	sender := &recordingSender{}
	p := NewOTPProvider(testOTPConfig(), sender)
	clock := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return clock }

	for _, phone := range []string{"+15550101", "+15550102", "+15550103"} {
		_, err := p.Begin(context.Background(), types.BeginAuthRequest{Phone: phone})
		require.NoError(t, err)
	}
	require.Len(t, p.pending, 3)

	clock = clock.Add(2 * time.Minute)
	_, err := p.Begin(context.Background(), types.BeginAuthRequest{Phone: "+15550199"})
	require.NoError(t, err)

	assert.Len(t, p.pending, 1)
	assert.Contains(t, p.pending, "+15550199")
}

func TestOTP_AttemptLimit(t *testing.T) {
	sender := &recordingSender{}
	p := NewOTPProvider(testOTPConfig(), sender)
	p.newCode = func() (string, error) { return "111111", nil }

	_, err := p.Begin(context.Background(), types.BeginAuthRequest{Phone: "+15550100"})
	require.NoError(t, err)

	req := types.CompleteAuthRequest{Phone: "+15550100", Code: "000000"}
	_, err = p.Complete(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidCode)
	_, err = p.Complete(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidCode)
	_, err = p.Complete(context.Background(), req)
	assert.ErrorIs(t, err, ErrTooManyAttempts)

	// the right code no longer works either
	_, err = p.Complete(context.Background(), types.CompleteAuthRequest{Phone: "+15550100", Code: "111111"})
	assert.ErrorIs(t, err, ErrCodeExpired)
}

func TestOTP_InputErrors(t *testing.T) {
	p := NewOTPProvider(testOTPConfig(), &recordingSender{})

	_, err := p.Begin(context.Background(), types.BeginAuthRequest{})
	assert.ErrorIs(t, err, ErrMissingPhone)
	_, err = p.Complete(context.Background(), types.CompleteAuthRequest{Phone: "+15550100"})
	assert.ErrorIs(t, err, ErrMissingCode)
}

func TestOTP_SendFailure(t *testing.T) {
	sender := &recordingSender{err: errors.New("sms gateway down")}
	p := NewOTPProvider(testOTPConfig(), sender)

	_, err := p.Begin(context.Background(), types.BeginAuthRequest{Phone: "+15550100"})
	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Empty(t, p.pending)
}

// fakeIDP serves a token endpoint and a userinfo endpoint.
func fakeIDP(t *testing.T) *httptest.Server {
	t.Helper()
	return recordingIDP(t, nil)
}

// recordingIDP is fakeIDP that hands every token request form to onToken.
func recordingIDP(t *testing.T, onToken func(url.Values)) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		if onToken != nil {
			onToken(r.Form)
		}
		if r.Form.Get("code") != "good-code" || r.Form.Get("code_verifier") == "" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access-123",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("GET /userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sub":"user-42","name":"Jane Doe","email":"jane@example.com"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func oauthConfig(srv *httptest.Server, strategy string) config.AuthConfig {
	return config.AuthConfig{
		Strategy:    strategy,
		ClientID:    "client",
		AuthURL:     srv.URL + "/authorize",
		TokenURL:    srv.URL + "/token",
		UserInfoURL: srv.URL + "/userinfo",
		RedirectURL: "http://localhost:8080/auth/callback",
		Scopes:      []string{"openid", "email"},
	}
}

func TestOAuth_BeginBuildsAuthorizationURL(t *testing.T) {
	srv := fakeIDP(t)
	p := NewOAuthProvider(oauthConfig(srv, "redirect"), srv.Client())

	ch, err := p.Begin(context.Background(), types.BeginAuthRequest{})
	require.NoError(t, err)
	assert.True(t, ch.Redirect)
	assert.NotEmpty(t, ch.State)

	u, err := url.Parse(ch.URL)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "/authorize", u.Path)
	assert.Equal(t, ch.State, q.Get("state"))
	assert.Equal(t, "client", q.Get("client_id"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.NotEmpty(t, q.Get("code_challenge"))

	popup := NewOAuthProvider(oauthConfig(srv, "popup"), srv.Client())
	ch, err = popup.Begin(context.Background(), types.BeginAuthRequest{})
	require.NoError(t, err)
	assert.False(t, ch.Redirect)
}

func TestOAuth_Complete(t *testing.T) {
	srv := fakeIDP(t)
	p := NewOAuthProvider(oauthConfig(srv, "popup"), srv.Client())

	ch, err := p.Begin(context.Background(), types.BeginAuthRequest{})
	require.NoError(t, err)

	id, err := p.Complete(context.Background(), types.CompleteAuthRequest{State: ch.State, Code: "good-code"})
	require.NoError(t, err)
	assert.Equal(t, "user-42", id.Subject)
	assert.Equal(t, "Jane Doe", id.DisplayName)
	assert.Equal(t, "jane@example.com", id.Email)
	assert.Equal(t, IdentityID("popup", "user-42"), id.ID)

	// state is single use
	_, err = p.Complete(context.Background(), types.CompleteAuthRequest{State: ch.State, Code: "good-code"})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestOAuth_RedirectOverrideRoundTrip(t *testing.T) {
	var tokenRedirect string
	srv := recordingIDP(t, func(form url.Values) { tokenRedirect = form.Get("redirect_uri") })
	cfg := oauthConfig(srv, "popup")
	cfg.AllowedRedirectURLs = []string{"https://app.example/popup-done"}
	p := NewOAuthProvider(cfg, srv.Client())

	ch, err := p.Begin(context.Background(), types.BeginAuthRequest{RedirectURL: "https://app.example/popup-done"})
	require.NoError(t, err)
	u, err := url.Parse(ch.URL)
	require.NoError(t, err)
	assert.Equal(t, "https://app.example/popup-done", u.Query().Get("redirect_uri"))

	_, err = p.Complete(context.Background(), types.CompleteAuthRequest{State: ch.State, Code: "good-code"})
	require.NoError(t, err)
	assert.Equal(t, "https://app.example/popup-done", tokenRedirect)
}

func TestOAuth_DefaultRedirectRoundTrip(t *testing.T) {
	var tokenRedirect string
	srv := recordingIDP(t, func(form url.Values) { tokenRedirect = form.Get("redirect_uri") })
	p := NewOAuthProvider(oauthConfig(srv, "redirect"), srv.Client())

	// asking for the configured URL explicitly is the same as not asking
	ch, err := p.Begin(context.Background(), types.BeginAuthRequest{RedirectURL: "http://localhost:8080/auth/callback"})
	require.NoError(t, err)
	u, err := url.Parse(ch.URL)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/auth/callback", u.Query().Get("redirect_uri"))

	_, err = p.Complete(context.Background(), types.CompleteAuthRequest{State: ch.State, Code: "good-code"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/auth/callback", tokenRedirect)
}

func TestOAuth_RedirectNotAllowed(t *testing.T) {
	srv := fakeIDP(t)
	p := NewOAuthProvider(oauthConfig(srv, "popup"), srv.Client())

	ch, err := p.Begin(context.Background(), types.BeginAuthRequest{RedirectURL: "https://attacker.example/steal"})
	assert.ErrorIs(t, err, ErrRedirectNotAllowed)
	assert.Nil(t, ch)
	assert.Empty(t, p.states)
}

func TestOAuth_CompleteFailures(t *testing.T) {
	srv := fakeIDP(t)
	p := NewOAuthProvider(oauthConfig(srv, "redirect"), srv.Client())

	_, err := p.Complete(context.Background(), types.CompleteAuthRequest{State: "forged", Code: "good-code"})
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = p.Complete(context.Background(), types.CompleteAuthRequest{State: "x"})
	assert.ErrorIs(t, err, ErrMissingCode)

	ch, err := p.Begin(context.Background(), types.BeginAuthRequest{})
	require.NoError(t, err)
	_, err = p.Complete(context.Background(), types.CompleteAuthRequest{State: ch.State, Code: "bad-code"})
	var provErr *ProviderError
	assert.ErrorAs(t, err, &provErr)
}

func TestOAuth_StateExpires(t *testing.T) {
	srv := fakeIDP(t)
	p := NewOAuthProvider(oauthConfig(srv, "redirect"), srv.Client())
	clock := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return clock }

	ch, err := p.Begin(context.Background(), types.BeginAuthRequest{})
	require.NoError(t, err)

	clock = clock.Add(stateTTL + time.Second)
	_, err = p.Complete(context.Background(), types.CompleteAuthRequest{State: ch.State, Code: "good-code"})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestTracker(t *testing.T) {
	tr := NewTracker()
	assert.True(t, tr.Loading())
	assert.Nil(t, tr.User())
	assert.True(t, tr.State().IsLoading)

	// a signed-out answer still ends loading
	tr.Resolve(nil)
	assert.False(t, tr.Loading())
	assert.Nil(t, tr.User())

	user := &types.Identity{ID: IdentityID("none", "local"), Subject: "local"}
	tr.Resolve(user)
	assert.Equal(t, user, tr.User())
	assert.False(t, tr.State().IsLoading)

	tr.Fail(errors.New("token expired"))
	st := tr.State()
	assert.Nil(t, st.User)
	assert.False(t, st.IsLoading)
	assert.Equal(t, "token expired", st.Error)
}

func TestTracker_FailEndsLoading(t *testing.T) {
	tr := NewTracker()
	tr.Fail(errors.New("network"))
	assert.False(t, tr.Loading())
}
