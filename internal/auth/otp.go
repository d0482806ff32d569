package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"sync"
	"time"

	"github.com/jonathan/resume-builder/internal/config"
	"github.com/jonathan/resume-builder/internal/types"
)

// CodeSender delivers a one-time code to a phone number.
type CodeSender interface {
	SendCode(ctx context.Context, phone, code string) error
}

// LogSender writes codes to the process log. Development only.
type LogSender struct{}

// SendCode logs the code.
func (LogSender) SendCode(_ context.Context, phone, code string) error {
	log.Printf("[AUTH] One-time code for %s: %s", phone, code)
	return nil
}

type pendingCode struct {
	hash      string
	expiresAt time.Time
	attempts  int
}

// OTPProvider signs users in with a six-digit code sent to their phone.
// Codes are stored hashed, expire, and are consumed on first success.
type OTPProvider struct {
	cfg    *config.OTPConfig
	sender CodeSender

	mu      sync.Mutex
	pending map[string]*pendingCode
	now     func() time.Time
	newCode func() (string, error)
}

// NewOTPProvider creates an OTP provider.
func NewOTPProvider(cfg *config.OTPConfig, sender CodeSender) *OTPProvider {
	return &OTPProvider{
		cfg:     cfg,
		sender:  sender,
		pending: make(map[string]*pendingCode),
		now:     time.Now,
		newCode: randomCode,
	}
}

// Strategy returns "otp".
func (p *OTPProvider) Strategy() string { return config.AuthStrategyOTP }

// Begin issues a new code for req.Phone, replacing any earlier one.
func (p *OTPProvider) Begin(ctx context.Context, req types.BeginAuthRequest) (*Challenge, error) {
	if req.Phone == "" {
		return nil, ErrMissingPhone
	}

	code, err := p.newCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code: %w", err)
	}
	hash, err := p.cfg.HashCode(code)
	if err != nil {
		return nil, err
	}
	expiresAt := p.now().Add(p.cfg.TTL)

	p.mu.Lock()
	p.pruneLocked()
	p.pending[req.Phone] = &pendingCode{hash: hash, expiresAt: expiresAt}
	p.mu.Unlock()

	if err := p.sender.SendCode(ctx, req.Phone, code); err != nil {
		p.mu.Lock()
		delete(p.pending, req.Phone)
		p.mu.Unlock()
		return nil, &ProviderError{Message: "failed to send code", Cause: err}
	}

	return &Challenge{Strategy: config.AuthStrategyOTP, ExpiresAt: &expiresAt}, nil
}

// Complete checks req.Code against the live code for req.Phone.
func (p *OTPProvider) Complete(_ context.Context, req types.CompleteAuthRequest) (*types.Identity, error) {
	if req.Phone == "" {
		return nil, ErrMissingPhone
	}
	if req.Code == "" {
		return nil, ErrMissingCode
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	pc, ok := p.pending[req.Phone]
	if !ok {
		return nil, ErrCodeExpired
	}
	if p.now().After(pc.expiresAt) {
		delete(p.pending, req.Phone)
		return nil, ErrCodeExpired
	}

	if !p.cfg.VerifyCode(req.Code, pc.hash) {
		pc.attempts++
		if pc.attempts >= p.cfg.MaxAttempts {
			delete(p.pending, req.Phone)
			return nil, ErrTooManyAttempts
		}
		return nil, ErrInvalidCode
	}

	delete(p.pending, req.Phone)
	return &types.Identity{
		ID:       IdentityID(config.AuthStrategyOTP, req.Phone),
		Subject:  req.Phone,
		Provider: config.AuthStrategyOTP,
		Phone:    req.Phone,
	}, nil
}

// pruneLocked drops expired codes. Caller holds mu.
func (p *OTPProvider) pruneLocked() {
	now := p.now()
	for phone, pc := range p.pending {
		if now.After(pc.expiresAt) {
			delete(p.pending, phone)
		}
	}
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
