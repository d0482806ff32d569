// Package config provides configuration loading and validation for the
// resume builder server and CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Auth strategies
const (
	AuthStrategyRedirect = "redirect"
	AuthStrategyPopup    = "popup"
	AuthStrategyOTP      = "otp"
	AuthStrategyNone     = "none"
)

// Config is the server configuration. It can be loaded from a JSON or YAML
// file and then overridden from the environment. Zero values mean "use the
// default".
type Config struct {
	Port           int      `json:"port,omitempty" yaml:"port,omitempty"`
	AllowedOrigins []string `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty"`
	APIKey         string   `json:"api_key,omitempty" yaml:"api_key,omitempty"` // Gemini API key
	Verbose        bool     `json:"verbose,omitempty" yaml:"verbose,omitempty"`

	// SessionIdleMinutes is how long an untouched editing session survives.
	SessionIdleMinutes int `json:"session_idle_minutes,omitempty" yaml:"session_idle_minutes,omitempty"`

	Export ExportConfig `json:"export" yaml:"export"`
	Auth   AuthConfig   `json:"auth" yaml:"auth"`
	LLM    LLMConfig    `json:"llm" yaml:"llm"`
}

// ExportConfig controls rasterization and page geometry.
type ExportConfig struct {
	ChromePath     string  `json:"chrome_path,omitempty" yaml:"chrome_path,omitempty"`
	Scale          float64 `json:"scale,omitempty" yaml:"scale,omitempty"`
	TimeoutSeconds int     `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
	PageWidthMM    float64 `json:"page_width_mm,omitempty" yaml:"page_width_mm,omitempty"`
	PageHeightMM   float64 `json:"page_height_mm,omitempty" yaml:"page_height_mm,omitempty"`
}

// AuthConfig selects and configures the sign-in strategy.
type AuthConfig struct {
	Strategy     string   `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	ClientID     string   `json:"client_id,omitempty" yaml:"client_id,omitempty"`
	ClientSecret string   `json:"client_secret,omitempty" yaml:"client_secret,omitempty"`
	AuthURL      string   `json:"auth_url,omitempty" yaml:"auth_url,omitempty"`
	TokenURL     string   `json:"token_url,omitempty" yaml:"token_url,omitempty"`
	UserInfoURL  string   `json:"userinfo_url,omitempty" yaml:"userinfo_url,omitempty"`
	RedirectURL  string   `json:"redirect_url,omitempty" yaml:"redirect_url,omitempty"`
	Scopes       []string `json:"scopes,omitempty" yaml:"scopes,omitempty"`
	// AllowedRedirectURLs lists the redirect URLs a client may ask for in
	// place of RedirectURL.
	AllowedRedirectURLs []string `json:"allowed_redirect_urls,omitempty" yaml:"allowed_redirect_urls,omitempty"`
}

// LLMConfig tunes the text-generation collaborator.
type LLMConfig struct {
	Model             string  `json:"model,omitempty" yaml:"model,omitempty"`
	Temperature       float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	RequestsPerMinute int     `json:"requests_per_minute,omitempty" yaml:"requests_per_minute,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:               8080,
		AllowedOrigins:     []string{"*"},
		SessionIdleMinutes: 120,
		Export: ExportConfig{
			Scale:          2,
			TimeoutSeconds: 30,
			PageWidthMM:    210,
			PageHeightMM:   297,
		},
		Auth: AuthConfig{
			Strategy: AuthStrategyNone,
			Scopes:   []string{"openid", "email", "profile"},
		},
		LLM: LLMConfig{
			RequestsPerMinute: 30,
		},
	}
}

// LoadConfig loads configuration from a JSON or YAML file, chosen by
// extension (.yaml/.yml are YAML, anything else is JSON).
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// ApplyEnv overrides fields from environment variables that are set.
func (c *Config) ApplyEnv() error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) error {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %v", key, err)
		}
		*dst = n
		return nil
	}
	float := func(key string, dst *float64) error {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %v", key, err)
		}
		*dst = f
		return nil
	}

	str("GEMINI_API_KEY", &c.APIKey)
	str("CHROME_PATH", &c.Export.ChromePath)
	str("AUTH_STRATEGY", &c.Auth.Strategy)
	str("OAUTH_CLIENT_ID", &c.Auth.ClientID)
	str("OAUTH_CLIENT_SECRET", &c.Auth.ClientSecret)
	str("OAUTH_AUTH_URL", &c.Auth.AuthURL)
	str("OAUTH_TOKEN_URL", &c.Auth.TokenURL)
	str("OAUTH_USERINFO_URL", &c.Auth.UserInfoURL)
	str("OAUTH_REDIRECT_URL", &c.Auth.RedirectURL)
	str("LLM_MODEL", &c.LLM.Model)

	if v := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS")); v != "" {
		c.AllowedOrigins = splitList(v)
	}
	if v := strings.TrimSpace(os.Getenv("OAUTH_SCOPES")); v != "" {
		c.Auth.Scopes = splitList(v)
	}
	if v := strings.TrimSpace(os.Getenv("OAUTH_ALLOWED_REDIRECT_URLS")); v != "" {
		c.Auth.AllowedRedirectURLs = splitList(v)
	}

	for key, dst := range map[string]*int{
		"PORT":                    &c.Port,
		"SESSION_IDLE_MINUTES":    &c.SessionIdleMinutes,
		"EXPORT_TIMEOUT_SECONDS":  &c.Export.TimeoutSeconds,
		"LLM_REQUESTS_PER_MINUTE": &c.LLM.RequestsPerMinute,
	} {
		if err := integer(key, dst); err != nil {
			return err
		}
	}
	for key, dst := range map[string]*float64{
		"EXPORT_SCALE":    &c.Export.Scale,
		"LLM_TEMPERATURE": &c.LLM.Temperature,
	} {
		if err := float(key, dst); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}
	if c.SessionIdleMinutes < 0 {
		return fmt.Errorf("config error: 'session_idle_minutes' must be non-negative")
	}
	if c.Export.Scale != 0 && c.Export.Scale < 2 {
		return fmt.Errorf("config error: 'export.scale' must be at least 2")
	}
	if c.Export.PageWidthMM < 0 || c.Export.PageHeightMM < 0 {
		return fmt.Errorf("config error: page dimensions must be positive")
	}
	if c.Export.TimeoutSeconds < 0 {
		return fmt.Errorf("config error: 'export.timeout_seconds' must be non-negative")
	}
	if c.LLM.RequestsPerMinute < 0 {
		return fmt.Errorf("config error: 'llm.requests_per_minute' must be non-negative")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("config error: 'llm.temperature' must be between 0 and 2")
	}

	if c.Export.ChromePath != "" {
		if _, err := os.Stat(c.Export.ChromePath); os.IsNotExist(err) {
			return fmt.Errorf("config error: chrome binary not found: %s", c.Export.ChromePath)
		}
	}

	switch c.Auth.Strategy {
	case "", AuthStrategyNone, AuthStrategyOTP:
	case AuthStrategyRedirect, AuthStrategyPopup:
		if c.Auth.ClientID == "" || c.Auth.AuthURL == "" || c.Auth.TokenURL == "" {
			return fmt.Errorf("config error: auth strategy %q needs client_id, auth_url and token_url", c.Auth.Strategy)
		}
	default:
		return fmt.Errorf("config error: unknown auth strategy %q", c.Auth.Strategy)
	}

	return nil
}

// MergeWithDefaults returns a new Config with zero fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if len(result.AllowedOrigins) == 0 {
		result.AllowedOrigins = defaults.AllowedOrigins
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.SessionIdleMinutes == 0 {
		result.SessionIdleMinutes = defaults.SessionIdleMinutes
	}

	if result.Export.ChromePath == "" {
		result.Export.ChromePath = defaults.Export.ChromePath
	}
	if result.Export.Scale == 0 {
		result.Export.Scale = defaults.Export.Scale
	}
	if result.Export.TimeoutSeconds == 0 {
		result.Export.TimeoutSeconds = defaults.Export.TimeoutSeconds
	}
	if result.Export.PageWidthMM == 0 {
		result.Export.PageWidthMM = defaults.Export.PageWidthMM
	}
	if result.Export.PageHeightMM == 0 {
		result.Export.PageHeightMM = defaults.Export.PageHeightMM
	}

	if result.Auth.Strategy == "" {
		result.Auth.Strategy = defaults.Auth.Strategy
	}
	if len(result.Auth.Scopes) == 0 {
		result.Auth.Scopes = defaults.Auth.Scopes
	}

	if result.LLM.Model == "" {
		result.LLM.Model = defaults.LLM.Model
	}
	if result.LLM.Temperature == 0 {
		result.LLM.Temperature = defaults.LLM.Temperature
	}
	if result.LLM.RequestsPerMinute == 0 {
		result.LLM.RequestsPerMinute = defaults.LLM.RequestsPerMinute
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge

	return result
}

// SessionIdleTimeout returns the idle timeout as a duration.
func (c *Config) SessionIdleTimeout() time.Duration {
	return time.Duration(c.SessionIdleMinutes) * time.Minute
}

// ExportTimeout returns the per-export rasterization timeout.
func (c *Config) ExportTimeout() time.Duration {
	return time.Duration(c.Export.TimeoutSeconds) * time.Second
}

// Load reads an optional config file, applies environment overrides, fills
// defaults and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	merged := cfg.MergeWithDefaults(Defaults())
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
