// Command notify is the Courtwatch notification CLI.
//
// Usage:
//
//	courtwatch-notify run --force
//	courtwatch-notify rules list
//	courtwatch-notify rules import rules.yaml --replace
//	courtwatch-notify rules validate rules.yaml
//	courtwatch-notify rules export > rules.yaml
//	courtwatch-notify rules delete 1f0c...
//	courtwatch-notify test-delivery telegram
//	courtwatch-notify history --limit 5
//	courtwatch-notify history clear
//	courtwatch-notify maintenance
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/albapepper/courtwatch/internal/app"
	"github.com/albapepper/courtwatch/internal/config"
	"github.com/albapepper/courtwatch/internal/maintenance"
	"github.com/albapepper/courtwatch/internal/notifications"
	"github.com/albapepper/courtwatch/internal/rules"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

var (
	jsonOutput bool
	verbose    bool
)

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:           "courtwatch-notify",
		Short:         "Courtwatch notification CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print JSON instead of tables")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log engine activity to stderr")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if verbose {
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
		}
	}

	root.AddCommand(runCmd())
	root.AddCommand(rulesCmd())
	root.AddCommand(testDeliveryCmd())
	root.AddCommand(historyCmd())
	root.AddCommand(maintenanceCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, colors.Error("error:"), err)
		os.Exit(1)
	}
}

// withApp loads config, wires the app and hands it to fn.
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer a.Close()

	return fn(ctx, a)
}

// --------------------------------------------------------------------------
// run command
// --------------------------------------------------------------------------

func runCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the notification pipeline once",
		Long:  "Fetches tennis data, evaluates enabled rules and dispatches alerts. --force bypasses dedup.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				mode := rules.ModeScheduled
				if force {
					mode = rules.ModeManual
				}
				result, err := a.Engine.Run(ctx, mode)
				if errors.Is(err, notifications.ErrRunInProgress) {
					return fmt.Errorf("another run is in progress")
				}
				if err != nil {
					return err
				}
				if err := printRun(cmd.OutOrStdout(), result); err != nil {
					return err
				}
				if result.Status == rules.RunFailed {
					return fmt.Errorf("run failed: %s", result.Summary)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Bypass dedup (manual run)")
	return cmd
}

// --------------------------------------------------------------------------
// test-delivery command
// --------------------------------------------------------------------------

func testDeliveryCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "test-delivery CHANNEL",
		Short:     "Send a test message on one channel",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"email", "telegram", "discord", "webpush"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				res, err := a.Engine.TestDelivery(ctx, rules.Channel(args[0]))
				if err != nil {
					return err
				}
				if err := printChannelResult(cmd.OutOrStdout(), res); err != nil {
					return err
				}
				if res.Status != rules.OutcomeSent {
					return fmt.Errorf("test delivery on %s did not send", args[0])
				}
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// history command
// --------------------------------------------------------------------------

func historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				return printHistory(cmd.OutOrStdout(), a.Store.History(limit))
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Max entries (0 = all)")
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all run history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				if err := a.Store.ClearHistory(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), colors.Success("History cleared"))
				return nil
			})
		},
	})
	return cmd
}

// --------------------------------------------------------------------------
// maintenance command
// --------------------------------------------------------------------------

func maintenanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "maintenance",
		Short: "Evict old fingerprints, observations and history (one pass)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				start := time.Now()
				res, err := maintenance.Sweep(ctx, a.Store, a.Config.FingerprintRetention, time.Now(), logger)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), res)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Evicted %d state entries, pruned %d runs in %s\n",
					res.Evicted, res.Pruned, time.Since(start).Round(time.Millisecond))
				return nil
			})
		},
	}
}
