// Package content asks the text-generation collaborator to refine resume
// text and to draft professional summaries.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/jonathan/resume-builder/internal/llm"
	"github.com/jonathan/resume-builder/internal/prompts"
	"github.com/jonathan/resume-builder/internal/types"
)

// Refiner turns raw resume text into improved text via an llm.Client.
type Refiner struct {
	client  llm.Client
	tier    llm.ModelTier
	verbose bool
}

// Option configures a Refiner
type Option func(*Refiner)

// WithTier selects the model tier used for every call.
func WithTier(tier llm.ModelTier) Option {
	return func(r *Refiner) { r.tier = tier }
}

// WithVerbose enables request logging.
func WithVerbose(v bool) Option {
	return func(r *Refiner) { r.verbose = v }
}

// NewRefiner creates a Refiner around client.
func NewRefiner(client llm.Client, opts ...Option) *Refiner {
	r := &Refiner{client: client, tier: llm.TierStandard}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Close releases the underlying client.
func (r *Refiner) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

type refineResponse struct {
	RefinedText string `json:"refinedText"`
}

type summaryResponse struct {
	Summary string `json:"summary"`
}

// Refine returns an improved version of text. Blank text is rejected with
// ErrEmptyContent before any call is made. Failures are not retried.
func (r *Refiner) Refine(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyContent
	}

	prompt, err := prompts.Render("refine.json", "refine-resume-content", map[string]string{
		"ResumeText": text,
	})
	if err != nil {
		return "", fmt.Errorf("failed to build refine prompt: %w", err)
	}

	if r.verbose {
		log.Printf("[REFINE] Requesting refinement of %d characters", len(text))
	}

	var resp refineResponse
	if err := r.generate(ctx, prompt, &resp); err != nil {
		return "", err
	}

	refined := strings.TrimSpace(resp.RefinedText)
	if refined == "" {
		return "", &CollaboratorError{Message: "response has no refinedText"}
	}
	return refined, nil
}

// GenerateSummary drafts a professional summary from the experience and
// skills lists. Both lists empty is ErrEmptyContent.
func (r *Refiner) GenerateSummary(ctx context.Context, experience []types.Experience, skills []types.Skill) (string, error) {
	if len(experience) == 0 && len(skills) == 0 {
		return "", ErrEmptyContent
	}

	prompt, err := prompts.Render("summary.json", "generate-summary", map[string]string{
		"Experience": formatExperience(experience),
		"Skills":     formatSkills(skills),
	})
	if err != nil {
		return "", fmt.Errorf("failed to build summary prompt: %w", err)
	}

	if r.verbose {
		log.Printf("[SUMMARY] Requesting summary from %d experience entries and %d skills", len(experience), len(skills))
	}

	var resp summaryResponse
	if err := r.generate(ctx, prompt, &resp); err != nil {
		return "", err
	}

	summary := strings.TrimSpace(resp.Summary)
	if summary == "" {
		return "", &CollaboratorError{Message: "response has no summary"}
	}
	return summary, nil
}

func (r *Refiner) generate(ctx context.Context, prompt string, out any) error {
	if r.client == nil {
		return &CollaboratorError{Message: "no LLM client configured"}
	}

	raw, err := r.client.GenerateJSON(ctx, prompt, r.tier)
	if err != nil {
		return &CollaboratorError{Message: "failed to generate content", Cause: err}
	}

	if err := json.Unmarshal([]byte(llm.CleanJSONBlock(raw)), out); err != nil {
		return &CollaboratorError{Message: "failed to parse response JSON", Cause: err}
	}
	return nil
}

func formatExperience(experience []types.Experience) string {
	if len(experience) == 0 {
		return "(none)"
	}
	var sb strings.Builder
	for i, e := range experience {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "- Role: %s at %s\n  Description: %s", e.Role, e.Company, e.Description)
	}
	return sb.String()
}

func formatSkills(skills []types.Skill) string {
	if len(skills) == 0 {
		return "(none)"
	}
	lines := make([]string, 0, len(skills))
	for _, s := range skills {
		lines = append(lines, "- "+s.Name)
	}
	return strings.Join(lines, "\n")
}
