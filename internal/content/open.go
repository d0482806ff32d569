package content

import (
	"context"
	"fmt"

	"github.com/jonathan/resume-builder/internal/config"
	"github.com/jonathan/resume-builder/internal/llm"
)

// Open builds a Refiner backed by a live LLM client configured from cfg.
// The caller must Close the returned Refiner.
func Open(ctx context.Context, cfg config.LLMConfig, apiKey string, verbose bool) (*Refiner, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required for text generation")
	}

	llmConfig := llm.DefaultConfig()
	if cfg.Model != "" {
		llmConfig = llmConfig.WithModel(llm.TierStandard, cfg.Model)
	}
	if cfg.Temperature > 0 {
		llmConfig.Temperature = float32(cfg.Temperature)
	}
	llmConfig.RequestsPerMinute = cfg.RequestsPerMinute

	client, err := llm.NewClient(ctx, llmConfig, apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return NewRefiner(client, WithVerbose(verbose)), nil
}
