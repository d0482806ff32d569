// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/resume-builder/internal/export"
	"github.com/jonathan/resume-builder/internal/rendering"
	"github.com/jonathan/resume-builder/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// PrintDocument outputs a human-readable summary of a resume document.
func (p *Printer) PrintDocument(doc *types.Document) {
	if doc == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Name:      %s\n", orDash(doc.PersonalInfo.Name)))
	sb.WriteString(fmt.Sprintf("Email:     %s\n", orDash(doc.PersonalInfo.Email)))
	sb.WriteString(fmt.Sprintf("Template:  %s\n", doc.Template))
	sb.WriteString("\n")

	if len(doc.Experience) > 0 {
		sb.WriteString(fmt.Sprintf("Experience (%d):\n", len(doc.Experience)))
		count := min(len(doc.Experience), maxItemsToShow)
		for i := 0; i < count; i++ {
			exp := doc.Experience[i]
			sb.WriteString(fmt.Sprintf("  • %s @ %s [%s]\n", orDash(exp.Role), orDash(exp.Company), exp.ID))
		}
		if len(doc.Experience) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(doc.Experience)-maxItemsToShow))
		}
		sb.WriteString("\n")
	}

	if len(doc.Education) > 0 {
		sb.WriteString(fmt.Sprintf("Education (%d):\n", len(doc.Education)))
		count := min(len(doc.Education), 3)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", orDash(doc.Education[i].Institution)))
		}
		if len(doc.Education) > 3 {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(doc.Education)-3))
		}
		sb.WriteString("\n")
	}

	if len(doc.Skills) > 0 {
		names := make([]string, 0, len(doc.Skills))
		for _, s := range doc.Skills {
			names = append(names, s.Name)
		}
		sb.WriteString(fmt.Sprintf("Skills:    %s\n", strings.Join(names, ", ")))
	}

	p.printBox("RESUME DOCUMENT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintLayout outputs the section structure of a rendered layout.
func (p *Printer) PrintLayout(layout *rendering.Layout) {
	if layout == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s (%s)\n\n", layout.Header.Name, layout.Template))
	for i, section := range layout.Sections {
		if section.Text != "" {
			sb.WriteString(fmt.Sprintf("%s\n  %s\n", section.Title, section.Text))
		} else {
			sb.WriteString(fmt.Sprintf("%s: %d items\n", section.Title, len(section.Items)))
		}
		if i < len(layout.Sections)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("RENDERED LAYOUT", sb.String())
}

// PrintRefinement shows an entry description before and after refinement.
func (p *Printer) PrintRefinement(before, after string) {
	var sb strings.Builder
	sb.WriteString("Before:\n")
	sb.WriteString(fmt.Sprintf("  %s\n\n", orDash(before)))
	sb.WriteString("After:\n")
	sb.WriteString(fmt.Sprintf("  %s", orDash(after)))

	p.printBox("REFINED DESCRIPTION", sb.String())
}

// PrintExports lists finished export files and their page counts.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintExports(blobs []*export.Blob) {
	if len(blobs) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "NO FILES EXPORTED")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	for i, b := range blobs {
		sb.WriteString(fmt.Sprintf("✓ %s\n", b.Filename))
		sb.WriteString(fmt.Sprintf("  %s, %d page(s), %d bytes", b.ContentType, b.Pages, len(b.Data)))
		if i < len(blobs)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("EXPORTED FILES", sb.String())
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
