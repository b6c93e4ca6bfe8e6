package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/EBOLABOY/FeedPilot/internal/app"
	"github.com/EBOLABOY/FeedPilot/internal/config"
	"github.com/EBOLABOY/FeedPilot/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "feedpilot",
		Short:         "Scheduled feed ingestion and notification pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to the YAML configuration file")

	root.AddCommand(
		newRunCmd(&configPath),
		newOnceCmd(&configPath),
		newTestCmd(&configPath),
		newStatsCmd(&configPath),
		newPurgeCmd(&configPath),
	)
	return root
}

// withApp loads configuration, builds the application and hands it to fn,
// closing resources afterwards.
func withApp(configPath string, fn func(ctx context.Context, a *app.Application) error) error {
	cfg := config.Load(configPath)
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return fn(ctx, application)
}

func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the scheduler and deliver on every trigger",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*configPath, func(ctx context.Context, a *app.Application) error {
				return a.Run(ctx)
			})
		},
	}
}

func newOnceCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Execute a single fetch-and-deliver run and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*configPath, func(ctx context.Context, a *app.Application) error {
				return a.RunOnce(ctx)
			})
		},
	}
}

func newTestCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Check connectivity of every configured channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*configPath, func(ctx context.Context, a *app.Application) error {
				return a.TestChannels(ctx)
			})
		},
	}
}

func newStatsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print delivery-ledger statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*configPath, func(ctx context.Context, a *app.Application) error {
				stats, err := a.Stats(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("total records:   %d\n", stats.Total)
				fmt.Printf("sent:            %d\n", stats.Sent)
				fmt.Printf("rejected:        %d\n", stats.Rejected)
				fmt.Printf("today:           %d\n", stats.Today)
				if stats.LastDelivered.IsZero() {
					fmt.Println("last delivery:   never")
				} else {
					fmt.Printf("last delivery:   %s\n", stats.LastDelivered.Format("2006-01-02 15:04:05"))
				}
				return nil
			})
		},
	}
}

func newPurgeCmd(configPath *string) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete ledger records older than the retention age",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*configPath, func(ctx context.Context, a *app.Application) error {
				deleted, err := a.Purge(ctx, days)
				if err != nil {
					return err
				}
				fmt.Printf("deleted %d record(s)\n", deleted)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "retention age in days (default: configured retentionDays)")
	return cmd
}
