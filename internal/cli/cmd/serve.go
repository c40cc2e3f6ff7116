package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mediakit/internal/compress"
	"mediakit/internal/http/handlers"
	"mediakit/internal/http/httpapi"
	"mediakit/internal/infra"
	"mediakit/internal/metrics"
	"mediakit/internal/storage"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "serve",
		Short:         "Run the HTTP API",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          runServe,
	}
	cmd.Flags().String("addr", ":8080", "Listen address")
	cmd.Flags().String("app-env", "production", "Environment: production or development")
	_ = viper.BindPFlag("addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("app_env", cmd.Flags().Lookup("app-env"))
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := infra.NewLogger(cfg.AppEnv)

	gauge := metrics.NewGauge()
	store, err := metrics.OpenStore(cfg.MetricsDBPath(), logger)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("open metrics store: %w", err)}
	}
	defer store.Close()
	sink := metrics.Fanout{gauge, store}

	svc, err := newPipeline(cfg, logger, nil, sink)
	if err != nil {
		return err
	}
	blobs, err := storage.NewFileStore(cfg.OptimizedDir())
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}

	app := &handlers.App{
		Media:          svc,
		Images:         compress.New(compress.ImagingEncoder{}),
		Blobs:          blobs,
		Metrics:        sink,
		Live:           gauge,
		Totals:         store,
		Logger:         logger,
		MaxUploadBytes: int64(cfg.MaxUploadMB) << 20,
		PublicBaseURL:  cfg.PublicBaseURL,
	}
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
	})
	srv := infra.NewHTTPServer(cfg, router)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", srv.Addr()).
			Str("env", cfg.AppEnv).
			Str("temp_dir", cfg.TempDir).
			Str("metrics_db", store.Path()).
			Msg("http server listening")
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("http server: %w", err)}
		}
		return nil
	case <-cmd.Context().Done():
	}

	logger.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	return nil
}
