// Package cmd defines the finsight CLI: serving the HTTP API, ingesting
// document directories, asking one-off questions and running the MCP
// server.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/finsight0/finsight/internal/log"
)

// Version information (injected at build time via ldflags).
var (
	Version   = "development"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "finsight",
	Short: "Financial document research assistant",
	Long: `finsight answers questions over ingested financial documents
(10-K filings, annual reports) using namespace-routed retrieval with
cross-encoder re-ranking, plus live web search and a calculator.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	slog.SetDefault(initLogger())
	return rootCmd.Execute()
}

// initLogger builds the process logger. DEBUG enables debug level;
// FINSIGHT_LOG_JSON switches to JSON output. Logs go to stderr so stdout
// stays clean for command output and the MCP stdio transport.
func initLogger() *slog.Logger {
	cfg := log.Config{Level: slog.LevelInfo}
	if os.Getenv("DEBUG") != "" {
		cfg.Level = slog.LevelDebug
	}
	if os.Getenv("FINSIGHT_LOG_JSON") != "" {
		cfg.JSON = true
	}
	return log.New(cfg)
}
