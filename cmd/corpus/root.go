package main

import (
	"github.com/spf13/cobra"

	"github.com/corpus-kb/corpus/internal/api"
	"github.com/corpus-kb/corpus/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Multilingual document knowledge base with an async processing pipeline",
	Long: `Corpus ingests documents, normalizes them to English, and builds a
reviewable knowledge base of the entities they mention.

The pipeline includes:
  - Content extraction with language detection
  - HTML-preserving translation to English and the target locale
  - Named entity extraction with review and merge tooling
  - Summaries, key points, and question answering over ingested content`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.corpus/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "corpus home directory (default: ~/.corpus)",
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
