// Package llm wraps the text-generation collaborator used for content
// refinement and summary generation.
package llm

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ModelTier represents the capability level of a model
type ModelTier string

const (
	// TierLite is for short rewrites
	TierLite ModelTier = "lite"
	// TierStandard is the default for refinement and summaries
	TierStandard ModelTier = "standard"
	// TierAdvanced is for longer multi-entry prompts
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	ProviderGemini Provider = "gemini"
)

// Config holds the model configuration for the collaborator.
type Config struct {
	Provider    Provider
	Models      map[ModelTier]string
	Temperature float32
	// RequestsPerMinute caps outbound calls; zero disables throttling.
	RequestsPerMinute int
}

// DefaultConfig returns the default Gemini configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		Temperature:       0.4,
		RequestsPerMinute: 30,
	}
}

// ConfigFromEnv starts from DefaultConfig and applies LLM_MODEL,
// LLM_TEMPERATURE and LLM_REQUESTS_PER_MINUTE when set.
func ConfigFromEnv() (*Config, error) {
	cfg := DefaultConfig()

	if model := strings.TrimSpace(os.Getenv("LLM_MODEL")); model != "" {
		cfg = cfg.WithModel(TierStandard, model)
	}
	if raw := os.Getenv("LLM_TEMPERATURE"); raw != "" {
		t, err := strconv.ParseFloat(raw, 32)
		if err != nil || t < 0 || t > 2 {
			return nil, fmt.Errorf("invalid LLM_TEMPERATURE %q", raw)
		}
		cfg.Temperature = float32(t)
	}
	if raw := os.Getenv("LLM_REQUESTS_PER_MINUTE"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid LLM_REQUESTS_PER_MINUTE %q", raw)
		}
		cfg.RequestsPerMinute = n
	}
	return cfg, nil
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	out := *c
	out.Models = make(map[ModelTier]string, len(c.Models)+1)
	for k, v := range c.Models {
		out.Models[k] = v
	}
	out.Models[tier] = model
	return &out
}
