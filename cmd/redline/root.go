package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/redline/internal/config"
	"github.com/jackzampolin/redline/version"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "redline",
	Short: "Grammar and spelling correction for markdown and EPUB documents",
	Long: `Redline corrects markdown and EPUB files without disturbing their
structure. Text is extracted span by span, corrected through a
configurable engine, and written back into the original markup.

The pipeline includes:
  - Structure-preserving span extraction for markdown and EPUB
  - LanguageTool (annotator) and OpenAI (rewriter) engines
  - A safety gate that reverts edits breaking document formatting
  - A paragraph and word level diff for reviewing corrections`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.redline/config.yaml)",
	)

	rootCmd.AddCommand(versionCmd)
}

// loadConfig builds the config manager and a logger at the configured
// level. Commands call this in RunE so flag parsing has happened.
func loadConfig() (*config.Manager, *slog.Logger, error) {
	mgr, err := config.NewManager(cfgFile)
	if err != nil {
		return nil, nil, err
	}

	level := slog.LevelInfo
	switch mgr.Get().LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	return mgr, logger, nil
}
