package main

import (
	"github.com/jonathan/resume-builder/internal/resume"
	"github.com/spf13/cobra"
)

var seedOutFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write the sample resume document",
	Long:  "Writes the document a new editing session starts from. Use it as a starting point for a document file.",
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&seedOutFile, "out", "o", "", "Path to output JSON file (default stdout)")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, _ []string) error {
	return writeJSON(cmd.OutOrStdout(), seedOutFile, resume.Seed())
}
