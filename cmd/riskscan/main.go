package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/riskscan/riskscan/internal/config"
	"github.com/riskscan/riskscan/internal/domain/assessment"
	"github.com/riskscan/riskscan/internal/platform/mockapi"
	"github.com/riskscan/riskscan/internal/platform/transport"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "riskscan",
		Short: "Patient risk assessment pipeline",
	}

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(mockapiCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Fetch all patients, classify them, and submit the alert lists",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssessment()
		},
	}
}

func runAssessment() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Error().Err(err).Msg("failed to load config")
		return err
	}
	logger = newLeveledLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := transport.New(cfg.APIKey,
		transport.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout()}),
		transport.WithLogger(logger),
	)

	runner := assessment.NewRunner(client, assessment.Config{
		BaseURL:   cfg.BaseURL,
		PageSize:  cfg.PageSize,
		PageDelay: cfg.PageDelay(),
		FetchPolicy: transport.Policy{
			MaxAttempts: cfg.FetchRetries,
			BaseDelay:   cfg.FetchBaseDelay(),
			JitterMax:   transport.FetchPolicy.JitterMax,
		},
		SubmitPolicy: transport.Policy{
			MaxAttempts: cfg.SubmitRetries,
			BaseDelay:   cfg.SubmitBaseDelay(),
			JitterMax:   transport.SubmitPolicy.JitterMax,
		},
	}, logger)

	summary, err := runner.Run(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("assessment run failed")
		return err
	}

	logger.Info().
		Str("run_id", summary.RunID).
		Int("pages", summary.Pages).
		Int("fetched", summary.Fetched).
		Int("skipped", summary.Skipped).
		Int("high_risk", summary.HighRisk).
		Int("fever", summary.Fever).
		Int("data_quality", summary.DataQuality).
		Dur("duration", summary.Duration).
		Msg("assessment submitted")

	// The raw response goes to stdout for the operator; it is not interpreted.
	out, err := json.MarshalIndent(summary.Response, "", "  ")
	if err != nil {
		out = summary.Response
	}
	fmt.Println(string(out))
	return nil
}

func mockapiCmd() *cobra.Command {
	var (
		addr        string
		apiKey      string
		patients    int
		failureRate float64
		seed        int64
	)

	cmd := &cobra.Command{
		Use:   "mockapi",
		Short: "Serve a flaky local simulation of the assessment API",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			srv := mockapi.New(mockapi.Config{
				APIKey:      apiKey,
				Patients:    patients,
				FailureRate: failureRate,
				Seed:        seed,
			}, logger)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start(addr) }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				return srv.Shutdown(context.Background())
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&apiKey, "api-key", "ak_local", "api key the simulator requires")
	cmd.Flags().IntVar(&patients, "patients", 50, "number of synthetic patients")
	cmd.Flags().Float64Var(&failureRate, "failure-rate", 0.2, "probability of an injected 429/500/503 per request")
	cmd.Flags().Int64Var(&seed, "seed", 1, "rng seed for the synthetic roster")
	return cmd
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" || os.Getenv("ENV") == "" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return logger
}

func newLeveledLogger(cfg *config.Config) zerolog.Logger {
	logger := newLogger()
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}
