package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/finsight0/finsight/internal/app"
	"github.com/finsight0/finsight/internal/config"
)

var namespacesCmd = &cobra.Command{
	Use:   "namespaces",
	Short: "List the ingested document namespaces",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			namespaces, err := a.Store.Namespaces(ctx)
			if err != nil {
				return fmt.Errorf("listing namespaces: %w", err)
			}
			if len(namespaces) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No namespaces. Run 'finsight ingest' first.")
				return nil
			}
			for _, ns := range namespaces {
				fmt.Fprintln(cmd.OutOrStdout(), ns)
			}
			return nil
		})
	},
}

var namespacesDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a namespace and all its chunks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			deleted, err := a.Store.DeleteNamespace(ctx, args[0])
			if err != nil {
				return fmt.Errorf("deleting namespace %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d chunks from %s\n", deleted, args[0])
			return nil
		})
	},
}

func init() {
	namespacesCmd.AddCommand(namespacesDeleteCmd)
	rootCmd.AddCommand(namespacesCmd)
}

// withApp runs fn against a fully initialized application and tears it
// down afterwards.
func withApp(fn func(context.Context, *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
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

	return fn(ctx, a)
}
