package main

import (
	"fmt"
	"os"

	"github.com/jonathan/resume-builder/internal/observability"
	"github.com/jonathan/resume-builder/internal/rendering"
	"github.com/jonathan/resume-builder/internal/types"
	"github.com/spf13/cobra"
)

var (
	renderInFile   string
	renderTemplate string
	renderHTML     bool
	renderOutFile  string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a document into its layout or preview HTML",
	Long: "Projects a document into the presentation layout used by the preview, filling " +
		"placeholders for empty fields. With --html the standalone preview page is written instead.",
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderInFile, "in", "i", "", "Path to document JSON file (default: sample document)")
	renderCmd.Flags().StringVarP(&renderTemplate, "template", "t", "", "Override the document template (standard, modern, classic)")
	renderCmd.Flags().BoolVar(&renderHTML, "html", false, "Write the preview HTML page instead of the layout JSON")
	renderCmd.Flags().StringVarP(&renderOutFile, "out", "o", "", "Path to output file (default stdout)")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, _ []string) error {
	doc, err := loadDocument(renderInFile)
	if err != nil {
		return err
	}
	if renderTemplate != "" {
		tmpl, err := types.ParseTemplate(renderTemplate)
		if err != nil {
			return err
		}
		doc.Template = tmpl
	}

	layout := rendering.Render(doc)
	if verbose {
		observability.NewPrinter(os.Stderr).PrintLayout(&layout)
	}

	if !renderHTML {
		return writeJSON(cmd.OutOrStdout(), renderOutFile, layout)
	}

	html, err := rendering.RenderHTML(layout)
	if err != nil {
		return fmt.Errorf("failed to render HTML: %w", err)
	}
	return writeOutput(cmd.OutOrStdout(), renderOutFile, []byte(html))
}
