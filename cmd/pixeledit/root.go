package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/dunamismax/pixeledit/internal/config"
	"github.com/dunamismax/pixeledit/internal/convert"
	"github.com/dunamismax/pixeledit/internal/loader"
	"github.com/dunamismax/pixeledit/internal/pipeline"
	"github.com/dunamismax/pixeledit/internal/session"
	"github.com/dunamismax/pixeledit/internal/storage"
	"github.com/dunamismax/pixeledit/internal/store"
	"github.com/dunamismax/pixeledit/internal/telemetry"
	"github.com/dunamismax/pixeledit/internal/webhook"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "pixeledit",
	Short: "Rotate, flip, tone and re-encode images",
	Long: `pixeledit loads a JPEG, PNG, WebP or GIF image, applies quarter-turn
rotation, horizontal flip, brightness and contrast, and exports the result
as JPEG, PNG or WebP.

Run "pixeledit serve" for the local editing widget host.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./pixeledit.toml if present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"pixeledit %s (%s/%s, %s)\n",
		version, runtime.GOOS, runtime.GOARCH, runtime.Version(),
	))
}

func loadConfig() (config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load()
}

func newLogger(cfg config.Config, component string) zerolog.Logger {
	logCfg := telemetry.LogConfig{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty}
	if verbose {
		logCfg.Level = "debug"
	}
	return telemetry.NewLogger(logCfg, os.Stderr).With().Str("component", component).Logger()
}

func newSession(cfg config.Config, logger zerolog.Logger, metrics *session.Metrics) (*session.Session, error) {
	encoder, err := pipeline.NewEncoder()
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("backend", encoder.Backend()).Msg("encoder ready")

	return session.New(session.Options{
		Loader: loader.New(loader.Config{
			MaxBytes:   cfg.Limits.MaxUploadBytes,
			MaxPixels:  cfg.Limits.MaxPixels,
			AcceptTIFF: cfg.Features.AcceptTIFF,
		}),
		Encoder: encoder,
		Features: session.Features{
			EnableTone:         cfg.Features.EnableTone,
			EnableFormatDialog: cfg.Features.EnableFormatDialog,
		},
		DefaultFormat: cfg.Encode.DefaultFormat,
		Logger:        logger,
		Metrics:       metrics,
	})
}

// newLedger returns the Postgres ledger when a DSN is configured and the
// in-memory one otherwise. The returned func releases it.
func newLedger(ctx context.Context, cfg config.Config, logger zerolog.Logger) (store.ExportStore, func(), error) {
	if cfg.Database.DSN == "" {
		return store.NewMemoryExportStore(0), func() {}, nil
	}

	pg, err := store.NewPostgresExportStore(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Msg("export ledger backed by postgres")
	return pg, func() {
		if err := pg.Close(); err != nil {
			logger.Warn().Err(err).Msg("close export ledger")
		}
	}, nil
}

func newObjectStore(ctx context.Context, cfg config.Config) (*storage.Client, error) {
	client, err := storage.NewClient(storage.Config{
		Endpoint: cfg.Storage.Endpoint,
		Access:   cfg.Storage.AccessKey,
		Secret:   cfg.Storage.SecretKey,
		Bucket:   cfg.Storage.Bucket,
		UseSSL:   cfg.Storage.UseSSL,
		Region:   cfg.Storage.Region,
	})
	if err != nil {
		return nil, err
	}
	if err := client.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

func newNotifier(cfg config.Config) convert.Notifier {
	if cfg.Webhook.URL == "" {
		return nil
	}
	return webhook.NewClient(webhook.Config{
		SigningSecret: cfg.Webhook.SigningSecret,
		MaxAttempts:   cfg.Webhook.MaxAttempts,
	})
}
