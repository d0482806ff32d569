package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/resume-builder/internal/config"
	"github.com/jonathan/resume-builder/internal/export"
	"github.com/jonathan/resume-builder/internal/observability"
	"github.com/jonathan/resume-builder/internal/rendering"
	"github.com/spf13/cobra"
)

var (
	exportInFile  string
	exportFormats string
	exportOutDir  string
	exportName    string
)

// newRasterizer builds the browser-backed rasterizer; tests replace it.
var newRasterizer = func(cfg *config.Config) export.Rasterizer {
	return export.NewChromedpRasterizer(cfg.Export.ChromePath, cfg.ExportTimeout(), cfg.Verbose)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a document as PDF and/or PNG",
	Long: "Renders the document preview in a headless browser and writes one file per requested " +
		"format. Formats run concurrently; no file is written unless every format succeeds.",
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportInFile, "in", "i", "", "Path to document JSON file (default: sample document)")
	exportCmd.Flags().StringVarP(&exportFormats, "formats", "f", "pdf", "Comma-separated formats: pdf, pdf-single, png")
	exportCmd.Flags().StringVarP(&exportOutDir, "out-dir", "o", ".", "Directory to write exported files to")
	exportCmd.Flags().StringVar(&exportName, "name", "resume", "Base file name for exported files")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	formats, err := parseFormats(exportFormats)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	doc, err := loadDocument(exportInFile)
	if err != nil {
		return err
	}
	html, err := rendering.RenderHTML(rendering.Render(doc))
	if err != nil {
		return fmt.Errorf("failed to render HTML: %w", err)
	}

	exporter := export.New(newRasterizer(cfg), export.Options{
		Scale:      cfg.Export.Scale,
		PageWidth:  cfg.Export.PageWidthMM,
		PageHeight: cfg.Export.PageHeightMM,
		Verbose:    cfg.Verbose,
	})
	surface := export.Surface{HTML: html, Selector: rendering.CaptureSelector, Name: exportName}

	blobs := make([]*export.Blob, len(formats))
	g, ctx := errgroup.WithContext(commandContext(cmd))
	for i, format := range formats {
		g.Go(func() error {
			blob, err := exporter.Export(ctx, surface, format)
			if err != nil {
				return fmt.Errorf("export %s: %w", format, err)
			}
			blobs[i] = blob
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, blob := range blobs {
		path := filepath.Join(exportOutDir, blob.Filename)
		if err := writeOutput(nil, path, blob.Data); err != nil {
			return err
		}
		if cfg.Verbose {
			fmt.Fprintf(os.Stderr, "[EXPORT] Wrote %s (%d page(s))\n", path, blob.Pages)
		}
	}
	if cfg.Verbose {
		observability.NewPrinter(os.Stderr).PrintExports(blobs)
	}
	return nil
}

// parseFormats splits a comma-separated format list, dropping duplicates.
// pdf and pdf-single share a file name, so asking for both is an error.
func parseFormats(s string) ([]export.Format, error) {
	var formats []export.Format
	seen := map[export.Format]bool{}
	ext := map[string]export.Format{}
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		f, err := export.ParseFormat(part)
		if err != nil {
			return nil, err
		}
		if seen[f] {
			continue
		}
		if other, ok := ext[f.Extension()]; ok {
			return nil, fmt.Errorf("formats %s and %s both write .%s files", other, f, f.Extension())
		}
		seen[f] = true
		ext[f.Extension()] = f
		formats = append(formats, f)
	}
	if len(formats) == 0 {
		return nil, fmt.Errorf("at least one export format is required")
	}
	return formats, nil
}
