package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jonathan/resume-builder/internal/config"
	"github.com/jonathan/resume-builder/internal/content"
	"github.com/jonathan/resume-builder/internal/observability"
	"github.com/jonathan/resume-builder/internal/resume"
	"github.com/jonathan/resume-builder/internal/types"
	"github.com/spf13/cobra"
)

// contentService is the slice of content.Refiner the commands use.
type contentService interface {
	Refine(ctx context.Context, text string) (string, error)
	GenerateSummary(ctx context.Context, experience []types.Experience, skills []types.Skill) (string, error)
	Close() error
}

// openContent connects to the LLM; tests replace it.
var openContent = func(ctx context.Context, cfg *config.Config) (contentService, error) {
	refiner, err := content.Open(ctx, cfg.LLM, cfg.APIKey, cfg.Verbose)
	if err != nil {
		return nil, err
	}
	return refiner, nil
}

var (
	refineText    string
	refineInFile  string
	refineEntryID string
	refineOutFile string
)

var refineCmd = &cobra.Command{
	Use:   "refine",
	Short: "Refine an experience description with the LLM",
	Long: "Rewrites raw responsibilities into concise, achievement-focused resume text. Pass " +
		"--text to refine free text, or --in and --entry to refine one experience entry of a " +
		"document and write the updated document.",
	RunE: runRefine,
}

var (
	summarizeInFile  string
	summarizeApply   bool
	summarizeOutFile string
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Draft a professional summary from experience and skills",
	RunE:  runSummarize,
}

func init() {
	refineCmd.Flags().StringVar(&refineText, "text", "", "Free text to refine")
	refineCmd.Flags().StringVarP(&refineInFile, "in", "i", "", "Path to document JSON file")
	refineCmd.Flags().StringVarP(&refineEntryID, "entry", "e", "", "Experience entry id to refine (with --in)")
	refineCmd.Flags().StringVarP(&refineOutFile, "out", "o", "", "Path to output document (default stdout)")
	rootCmd.AddCommand(refineCmd)

	summarizeCmd.Flags().StringVarP(&summarizeInFile, "in", "i", "", "Path to document JSON file (default: sample document)")
	summarizeCmd.Flags().BoolVar(&summarizeApply, "apply", false, "Write the document with the summary set instead of the summary text")
	summarizeCmd.Flags().StringVarP(&summarizeOutFile, "out", "o", "", "Path to output file (default stdout)")
	rootCmd.AddCommand(summarizeCmd)
}

//nolint:errcheck // writing to stdout; errors are not recoverable
func runRefine(cmd *cobra.Command, _ []string) error {
	useText := refineText != ""
	useDocument := refineInFile != "" || refineEntryID != ""
	if useText && useDocument {
		return fmt.Errorf("cannot use --text with --in/--entry")
	}
	if !useText && (refineInFile == "" || refineEntryID == "") {
		return fmt.Errorf("must provide either --text or both --in and --entry")
	}

	var doc types.Document
	index := -1
	before := refineText
	if useDocument {
		var err error
		if doc, err = loadDocument(refineInFile); err != nil {
			return err
		}
		var ok bool
		if index, ok = resume.FindExperience(doc, refineEntryID); !ok {
			return fmt.Errorf("experience entry %q not found", refineEntryID)
		}
		before = doc.Experience[index].Description
		if strings.TrimSpace(before) == "" {
			fmt.Fprintf(os.Stderr, "Entry %s has no description; nothing to refine\n", refineEntryID)
			return writeJSON(cmd.OutOrStdout(), refineOutFile, doc)
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	svc, err := openContent(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	refined, err := svc.Refine(ctx, before)
	if err != nil {
		return fmt.Errorf("refine failed: %w", err)
	}
	if cfg.Verbose {
		observability.NewPrinter(os.Stderr).PrintRefinement(before, refined)
	}

	if useText {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), refined)
		return err
	}

	updated, err := resume.SetField(doc, types.SectionExperience, &index, "description", refined)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), refineOutFile, updated)
}

func runSummarize(cmd *cobra.Command, _ []string) error {
	doc, err := loadDocument(summarizeInFile)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	svc, err := openContent(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	summary, err := svc.GenerateSummary(ctx, doc.Experience, doc.Skills)
	if err != nil {
		return fmt.Errorf("summary generation failed: %w", err)
	}

	if !summarizeApply {
		return writeOutput(cmd.OutOrStdout(), summarizeOutFile, []byte(summary+"\n"))
	}
	updated, err := resume.SetField(doc, types.SectionSummary, nil, "", summary)
	if err != nil {
		return err
	}
	if cfg.Verbose {
		observability.NewPrinter(os.Stderr).PrintDocument(&updated)
	}
	return writeJSON(cmd.OutOrStdout(), summarizeOutFile, updated)
}
