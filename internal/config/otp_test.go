package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewOTPConfig_Defaults(t *testing.T) {
	t.Setenv("OTP_BCRYPT_COST", "")
	t.Setenv("OTP_TTL_SECONDS", "")
	t.Setenv("OTP_MAX_ATTEMPTS", "")
	t.Setenv("OTP_PEPPER", "")

	cfg, err := NewOTPConfig()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, 5*time.Minute, cfg.TTL)
	assert.Equal(t, 5, cfg.MaxAttempts)
}

func TestNewOTPConfig_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"cost too high":   {"OTP_BCRYPT_COST": "20"},
		"cost not number": {"OTP_BCRYPT_COST": "high"},
		"ttl too short":   {"OTP_TTL_SECONDS": "5"},
		"no attempts":     {"OTP_MAX_ATTEMPTS": "0"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := NewOTPConfig()
			assert.Error(t, err)
		})
	}
}

func TestOTPConfig_HashAndVerify(t *testing.T) {
	cfg := &OTPConfig{BcryptCost: bcrypt.MinCost, Pepper: "pepper", TTL: time.Minute, MaxAttempts: 3}

	hash, err := cfg.HashCode("123456")
	require.NoError(t, err)
	assert.NotEqual(t, "123456", hash)

	assert.True(t, cfg.VerifyCode("123456", hash))
	assert.False(t, cfg.VerifyCode("654321", hash))

	other := *cfg
	other.Pepper = "different"
	assert.False(t, other.VerifyCode("123456", hash), "pepper must participate in the hash")
}
