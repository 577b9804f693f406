package main

import (
	"context"
	"errors"
	"fmt"
	"github.com/Gallegarmy/monitorizacion-champagne/internal/config"
	"github.com/Gallegarmy/monitorizacion-champagne/internal/logging"
	"github.com/Gallegarmy/monitorizacion-champagne/internal/server/handler"
	"github.com/Gallegarmy/monitorizacion-champagne/internal/server/router"
	"github.com/Gallegarmy/monitorizacion-champagne/internal/telemetry"
	"github.com/Gallegarmy/monitorizacion-champagne/internal/work"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const readHeaderTimeout = 5 * time.Second

// @title Monitorizacion Champagne demo API
// @version 0.1.0
// @description A small HTTP service that emits traces, metrics and logs for every request.

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := viper.New()
	var configPath string

	cmd := &cobra.Command{
		Use:           "demo_server",
		Short:         "Serve the instrumented demo endpoints",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "path to a YAML config file")
	flags.String("addr", config.DefaultAddr, "address to listen on")
	flags.String("log-level", config.DefaultLogLevel, "minimum log level")
	_ = v.BindPFlag("server.addr", flags.Lookup("addr"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	return cmd
}

func run(ctx context.Context, cfg config.Config) error {
	logger, err := logging.New(cfg.Log, cfg.Service)
	if err != nil {
		return err
	}
	defer logger.Sync()

	providers, err := telemetry.Setup(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to set up telemetry", zap.Error(err))
		return err
	}
	if providers.LoggerProvider != nil {
		logger = logging.WithOTelBridge(logger, providers.LoggerProvider, telemetry.InstrumentationName)
	}

	tel := telemetry.New(providers.TracerProvider, providers.MeterProvider, providers.Propagator)
	worker := work.NewWorker(logger, work.WithTaskUnit(cfg.Work.TaskUnit))
	r := router.CreateRouter(
		cfg.Service.Name,
		tel,
		worker,
		handler.MetricsHandler(providers.Registry, logger),
		logger,
	)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          zap.NewStdLog(logger.Named("http")),
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting webserver", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("unable to serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down webserver")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("unable to shut down webserver: %w", err))
		}
		if err := providers.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Webserver stopped with error", zap.Error(err))
		return err
	}
	logger.Info("Webserver stopped")
	return nil
}
