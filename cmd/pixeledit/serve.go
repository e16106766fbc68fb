package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dunamismax/pixeledit/internal/api"
	"github.com/dunamismax/pixeledit/internal/config"
	"github.com/dunamismax/pixeledit/internal/convert"
	"github.com/dunamismax/pixeledit/internal/ratelimit"
	"github.com/dunamismax/pixeledit/internal/session"
	"github.com/dunamismax/pixeledit/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local editing widget host",
	Long: `Run the widget host on a loopback address. It holds one editing
session: upload an image, adjust it, preview it and download the export.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, loopback only)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Serve.Addr = serveAddr
	}
	if err := ensureLoopback(cfg.Serve.Addr); err != nil {
		return err
	}
	logger := newLogger(cfg, "serve")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.TraceConfig{
		ServiceName:  "pixeledit",
		Exporter:     cfg.Tracing.Exporter,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		OTLPInsecure: cfg.Tracing.OTLPInsecure,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn().Err(err).Msg("tracing shutdown failed")
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	sess, err := newSession(cfg, logger, session.NewMetrics(registry))
	if err != nil {
		return err
	}

	ledger, closeLedger, err := newLedger(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLedger()

	var emitter convert.Emitter
	if cfg.Output.Sink == "s3" {
		client, err := newObjectStore(ctx, cfg)
		if err != nil {
			return err
		}
		emitter = convert.ObjectStoreEmitter{
			Storage:      client,
			OutputPrefix: cfg.Output.Prefix,
			PresignTTL:   cfg.Storage.PresignTTL,
		}
		logger.Info().Str("bucket", client.Bucket()).Msg("exports mirrored to object storage")
	}

	limiter, closeLimiter, err := newRateLimiter(cfg, logger)
	if err != nil {
		return err
	}
	defer closeLimiter()

	app, err := api.NewServer(api.Config{
		Session:        sess,
		MaxBytes:       cfg.Limits.MaxUploadBytes,
		DefaultQuality: cfg.Encode.DefaultQuality,
		Publisher: convert.NewPublisher(convert.PublisherConfig{
			Emitter:    emitter,
			Ledger:     ledger,
			Notifier:   newNotifier(cfg),
			WebhookURL: cfg.Webhook.URL,
			Logger:     logger,
		}),
		Ledger:      ledger,
		RateLimiter: limiter,
		Logger:      logger,
		Tracer:      otel.Tracer("pixeledit/api"),
		Registry:    registry,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Serve.Addr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Serve.Addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info().Msg("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// newRateLimiter returns a nil limiter when no Redis address is configured.
func newRateLimiter(cfg config.Config, logger zerolog.Logger) (api.RateLimiter, func(), error) {
	if cfg.RateLimit.RedisAddr == "" {
		return nil, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RateLimit.RedisAddr,
		Password: cfg.RateLimit.RedisPassword,
		DB:       cfg.RateLimit.RedisDB,
	})
	limiter, err := ratelimit.NewRedisTokenBucket(client, cfg.RateLimit.Capacity, cfg.RateLimit.Window, ratelimit.DefaultKeyPrefix)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	logger.Info().
		Str("redis", cfg.RateLimit.RedisAddr).
		Int("capacity", cfg.RateLimit.Capacity).
		Dur("window", cfg.RateLimit.Window).
		Msg("rate limiting enabled")
	return limiter, func() {
		if err := client.Close(); err != nil {
			logger.Warn().Err(err).Msg("close redis client")
		}
	}, nil
}

// ensureLoopback rejects listen addresses reachable from other hosts. The
// widget host serves a single local session.
func ensureLoopback(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("serve address %q: %w", addr, err)
	}
	if host == "localhost" {
		return nil
	}
	ip := net.ParseIP(host)
	if ip == nil || !ip.IsLoopback() {
		return fmt.Errorf("serve address %q must be a loopback address", addr)
	}
	return nil
}
