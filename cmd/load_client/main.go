package main

import (
	"fmt"
	"github.com/Gallegarmy/monitorizacion-champagne/internal/loadgen"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := loadgen.Config{}
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:           "load_client",
		Short:         "Generate traffic against the demo server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := zap.NewProduction()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			runner := loadgen.NewRunner(&http.Client{Timeout: timeout}, logger)
			report, err := runner.Run(ctx, cfg)
			if err != nil {
				logger.Error("Load test encountered errors", zap.Error(err))
				return err
			}
			report.Log(logger)
			logger.Info("Load test completed")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.BaseURL, "url", "http://localhost:8000", "base URL of the demo server")
	flags.StringSliceVar(&cfg.Routes, "routes", loadgen.DefaultRoutes, "routes to cycle through")
	flags.IntVar(&cfg.Users, "users", 5, "number of concurrent virtual users")
	flags.DurationVar(&cfg.Duration, "duration", time.Minute, "how long to run, zero to rely on --requests")
	flags.IntVar(&cfg.Requests, "requests", 0, "total request budget, zero for no cap")
	flags.DurationVar(&timeout, "timeout", 10*time.Second, "per-request timeout")
	return cmd
}
