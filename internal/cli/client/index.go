package client

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/brightforge/sitechat/internal/config"
)

// IndexCmd creates the index command with its subcommands.
func IndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the embedding index",
	}

	cmd.AddCommand(indexRebuildCmd())
	cmd.AddCommand(indexStatusCmd())

	return cmd
}

func indexRebuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the embedding index from the content store",
		Long:  "Re-chunks all crawled pages and embeds new or changed chunks. Unchanged chunks are reused from the previous build.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			stack, err := buildLocalStack(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			report, err := stack.indexSvc.Rebuild(ctx)
			if report != nil {
				fmt.Printf("Build %d: %d embedded, %d reused, %d removed\n",
					report.BuildCount, report.Embedded, report.Reused, report.Removed)
				if len(report.Failed) > 0 {
					fmt.Printf("Failed chunks (%d): %v\n", len(report.Failed), report.Failed)
				}
			}
			if err != nil {
				return fmt.Errorf("rebuild failed: %w", err)
			}
			return nil
		},
	}
}

func indexStatusCmd() *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the index state and its drift against the content store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			stack, err := buildLocalStack(cfg)
			if err != nil {
				return err
			}

			status, err := stack.indexSvc.Status(context.Background())
			if err != nil {
				return fmt.Errorf("status failed: %w", err)
			}

			if outputJSON {
				output, _ := json.MarshalIndent(status, "", "  ")
				fmt.Println(string(output))
				return nil
			}

			if status.BuildCount == 0 {
				fmt.Println("Index has not been built yet.")
				return nil
			}
			fmt.Printf("Model:      %s (%d dimensions)\n", status.Model, status.Dimensions)
			fmt.Printf("Chunks:     %d\n", status.Chunks)
			fmt.Printf("Build:      %d at %s\n", status.BuildCount, status.BuiltAt.Format("2006-01-02 15:04:05"))
			if status.Stale {
				fmt.Printf("Stale:      yes (%d missing, %d changed, %d removed)\n",
					status.Missing, status.Changed, status.Removed)
			} else {
				fmt.Println("Stale:      no")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&outputJSON, "output", false, "Output as JSON")

	return cmd
}
