package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"GrantScanner/internal/app"
	"GrantScanner/internal/config"
	"GrantScanner/internal/logging"
)

const version = "0.1.0"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath string
	envFile    string
	logLevel   string
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "grantscanner",
		Short:         "Grant proposal analytics",
		Long:          "grantscanner collects grant proposals from pull-request based grant programs, classifies their lifecycle, aggregates metrics and scores proposal quality.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", os.Getenv("GRANT_SCANNER_CONFIG"), "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "Dotenv file loaded before environment overrides")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	cmd.AddCommand(
		runCmd(flags),
		scheduleCmd(flags),
		metricsCmd(flags),
		evaluateCmd(flags),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "grantscanner version %s\n", version)
			},
		},
	)
	return cmd
}

func runCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Fetch, classify and store proposals once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), flags, func(ctx context.Context, a *app.Application, logger *slog.Logger) error {
				res, err := a.Run(ctx)
				if err != nil {
					return err
				}
				logger.Info("refresh finished",
					"run_id", res.Batch.RunID,
					"proposals", len(res.Batch.Proposals),
					"skipped", res.Batch.Skipped,
				)
				return writeJSON(cmd.OutOrStdout(), res.Summary)
			})
		},
	}
}

func scheduleCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Refresh on the configured cron expression until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return withApp(ctx, flags, func(ctx context.Context, a *app.Application, _ *slog.Logger) error {
				return a.Schedule(ctx)
			})
		},
	}
}

func metricsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Print the aggregated metrics summary as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), flags, func(ctx context.Context, a *app.Application, _ *slog.Logger) error {
				summary, err := a.Metrics(ctx)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), summary)
			})
		},
	}
}

func evaluateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate <repository#number | id>",
		Short: "Score a stored proposal and print the curator report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), flags, func(ctx context.Context, a *app.Application, _ *slog.Logger) error {
				report, err := a.Evaluate(ctx, args[0])
				if err != nil {
					return err
				}
				_, err = io.WriteString(cmd.OutOrStdout(), report)
				return err
			})
		},
	}
}

func withApp(ctx context.Context, flags *globalFlags, fn func(context.Context, *app.Application, *slog.Logger) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.LoadFrom(flags.configPath, flags.envFile)
	if err != nil {
		return err
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(ctx, cfg, logger, app.Options{})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := application.Close(); closeErr != nil {
			logger.Error("close application", "error", closeErr)
		}
	}()

	return fn(ctx, application, logger)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
