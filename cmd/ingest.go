package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/finsight0/finsight/internal/app"
	"github.com/finsight0/finsight/internal/config"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Ingest a directory of documents into the vector store",
	Long: `Ingest walks the given directory (default: the configured data
directory). Each subfolder becomes a document namespace named after the
folder; files already ingested with unchanged content are skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := ""
		if len(args) > 0 {
			dir = args[0]
		}
		return runIngest(cmd, dir)
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, dir string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if dir == "" {
		dir = cfg.DataDir
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, slog.Default())
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			slog.Warn("shutdown error", "error", closeErr)
		}
	}()

	result, err := a.Ingest.IngestDir(ctx, dir)
	if err != nil {
		return fmt.Errorf("ingesting %s: %w", dir, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Namespaces: %s\n", strings.Join(result.Namespaces, ", "))
	fmt.Fprintf(out, "Ingested:   %d files (%d chunks)\n", result.Ingested, result.Chunks)
	fmt.Fprintf(out, "Skipped:    %d files (unchanged)\n", result.Skipped)
	if result.Failed > 0 {
		fmt.Fprintf(out, "Failed:     %d files (will retry on next run)\n", result.Failed)
	}
	return nil
}
