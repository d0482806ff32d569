package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// OTPConfig holds configuration for one-time sign-in codes.
type OTPConfig struct {
	BcryptCost  int
	Pepper      string // optional global secret mixed into every code
	TTL         time.Duration
	MaxAttempts int
}

// NewOTPConfig creates an OTP configuration from environment variables.
// It reads OTP_BCRYPT_COST (default: 10), OTP_PEPPER, OTP_TTL_SECONDS
// (default: 300) and OTP_MAX_ATTEMPTS (default: 5).
func NewOTPConfig() (*OTPConfig, error) {
	cost, err := envInt("OTP_BCRYPT_COST", 10)
	if err != nil {
		return nil, err
	}
	ttl, err := envInt("OTP_TTL_SECONDS", 300)
	if err != nil {
		return nil, err
	}
	attempts, err := envInt("OTP_MAX_ATTEMPTS", 5)
	if err != nil {
		return nil, err
	}

	config := &OTPConfig{
		BcryptCost:  cost,
		Pepper:      os.Getenv("OTP_PEPPER"),
		TTL:         time.Duration(ttl) * time.Second,
		MaxAttempts: attempts,
	}

	if err := config.normalize(); err != nil {
		return nil, err
	}

	return config, nil
}

// normalize validates the configuration.
func (c *OTPConfig) normalize() error {
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > 14 {
		return fmt.Errorf("bcrypt cost out of range: %d (must be %d-14)", c.BcryptCost, bcrypt.MinCost)
	}
	if c.TTL < 30*time.Second {
		return fmt.Errorf("OTP_TTL_SECONDS must be at least 30, got: %v", c.TTL.Seconds())
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("OTP_MAX_ATTEMPTS must be at least 1, got: %d", c.MaxAttempts)
	}
	return nil
}

// HashCode hashes a one-time code using bcrypt (with optional pepper).
func (c *OTPConfig) HashCode(code string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code+c.Pepper), c.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash code: %w", err)
	}
	return string(hash), nil
}

// VerifyCode checks a code against a stored hash (with optional pepper).
func (c *OTPConfig) VerifyCode(code, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(code+c.Pepper)) == nil
}

func envInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return n, nil
}
