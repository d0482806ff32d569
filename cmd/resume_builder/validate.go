package main

import (
	"errors"
	"fmt"

	"github.com/jonathan/resume-builder/internal/schemas"
	"github.com/spf13/cobra"
)

var validateInFile string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a document file against the document schema",
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&validateInFile, "in", "i", "", "Path to document JSON file (required)")
	_ = validateCmd.MarkFlagRequired("in")
	rootCmd.AddCommand(validateCmd)
}

//nolint:errcheck // writing to stdout; errors are not recoverable
func runValidate(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	_, err := schemas.ParseDocumentFile(validateInFile)
	if err == nil {
		fmt.Fprintf(out, "✓ %s is a valid resume document\n", validateInFile)
		return nil
	}

	var verr *schemas.ValidationError
	if errors.As(err, &verr) {
		fmt.Fprintf(out, "✗ %s failed validation:\n", validateInFile)
		for _, fe := range verr.Errors {
			fmt.Fprintf(out, "  - %s: %s\n", fe.Field, fe.Message)
		}
	}
	return err
}
