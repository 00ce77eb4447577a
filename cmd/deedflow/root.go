package main

import (
	"github.com/spf13/cobra"

	"github.com/mkandasamy/deedflow/internal/api"
	"github.com/mkandasamy/deedflow/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "deedflow",
	Short: "Land document processing pipeline with OCR and LLM translation",
	Long: `Deedflow turns scanned Tamil land documents into plain-English records.

The pipeline includes:
  - Tesseract OCR for Tamil text extraction (PDF and image scans)
  - Page-by-page translation into formal legal English
  - Simplification for lay readers
  - Whole-document structured summaries
  - Live per-document progress streaming`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.deedflow/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "deedflow home directory (default: ~/.deedflow)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
