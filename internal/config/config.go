package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dunamismax/pixeledit/internal/domain"
	"github.com/spf13/viper"
)

type Config struct {
	Serve     ServeConfig
	Limits    LimitsConfig
	Encode    EncodeConfig
	Features  FeaturesConfig
	Output    OutputConfig
	Storage   StorageConfig
	Database  DatabaseConfig
	RateLimit RateLimitConfig
	Webhook   WebhookConfig
	Tracing   TracingConfig
	Log       LogConfig
}

type ServeConfig struct {
	Addr string
}

type LimitsConfig struct {
	MaxUploadBytes int64
	MaxPixels      int
}

type EncodeConfig struct {
	DefaultFormat  string
	DefaultQuality float64
}

type FeaturesConfig struct {
	EnableTone         bool
	EnableFormatDialog bool
	AcceptTIFF         bool
}

type OutputConfig struct {
	Sink     string
	LocalDir string
	Prefix   string
}

type StorageConfig struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Bucket     string
	UseSSL     bool
	Region     string
	PresignTTL time.Duration
}

type DatabaseConfig struct {
	DSN string
}

type RateLimitConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Capacity      int
	Window        time.Duration
}

type WebhookConfig struct {
	URL           string
	SigningSecret string
	MaxAttempts   int
}

type TracingConfig struct {
	Exporter     string
	OTLPEndpoint string
	OTLPInsecure bool
}

type LogConfig struct {
	Level  string
	Pretty bool
}

// Load reads pixeledit.toml from the working directory when present and
// overlays PIXELEDIT_* environment variables, e.g. PIXELEDIT_SERVE_ADDR.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("pixeledit")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	return load(v)
}

// LoadFile is Load with an explicit config path.
func LoadFile(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (Config, error) {
	setDefaults(v)
	v.SetEnvPrefix("PIXELEDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Config{
		Serve: ServeConfig{
			Addr: v.GetString("serve.addr"),
		},
		Limits: LimitsConfig{
			MaxUploadBytes: v.GetInt64("limits.max_upload_bytes"),
			MaxPixels:      v.GetInt("limits.max_pixels"),
		},
		Encode: EncodeConfig{
			DefaultFormat:  v.GetString("encode.default_format"),
			DefaultQuality: v.GetFloat64("encode.default_quality"),
		},
		Features: FeaturesConfig{
			EnableTone:         v.GetBool("features.enable_tone"),
			EnableFormatDialog: v.GetBool("features.enable_format_dialog"),
			AcceptTIFF:         v.GetBool("features.accept_tiff"),
		},
		Output: OutputConfig{
			Sink:     v.GetString("output.sink"),
			LocalDir: v.GetString("output.local_dir"),
			Prefix:   v.GetString("output.prefix"),
		},
		Storage: StorageConfig{
			Endpoint:   v.GetString("storage.endpoint"),
			AccessKey:  v.GetString("storage.access_key"),
			SecretKey:  v.GetString("storage.secret_key"),
			Bucket:     v.GetString("storage.bucket"),
			UseSSL:     v.GetBool("storage.use_ssl"),
			Region:     v.GetString("storage.region"),
			PresignTTL: v.GetDuration("storage.presign_ttl"),
		},
		Database: DatabaseConfig{
			DSN: v.GetString("database.dsn"),
		},
		RateLimit: RateLimitConfig{
			RedisAddr:     v.GetString("ratelimit.redis_addr"),
			RedisPassword: v.GetString("ratelimit.redis_password"),
			RedisDB:       v.GetInt("ratelimit.redis_db"),
			Capacity:      v.GetInt("ratelimit.capacity"),
			Window:        v.GetDuration("ratelimit.window"),
		},
		Webhook: WebhookConfig{
			URL:           v.GetString("webhook.url"),
			SigningSecret: v.GetString("webhook.signing_secret"),
			MaxAttempts:   v.GetInt("webhook.max_attempts"),
		},
		Tracing: TracingConfig{
			Exporter:     v.GetString("tracing.exporter"),
			OTLPEndpoint: v.GetString("tracing.otlp_endpoint"),
			OTLPInsecure: v.GetBool("tracing.otlp_insecure"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Pretty: v.GetBool("log.pretty"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("serve.addr", "127.0.0.1:8080")
	v.SetDefault("limits.max_upload_bytes", domain.MaxUploadBytes)
	v.SetDefault("limits.max_pixels", domain.MaxPixels)
	v.SetDefault("encode.default_format", domain.FormatPNG)
	v.SetDefault("encode.default_quality", domain.DefaultQuality)
	v.SetDefault("features.enable_tone", true)
	v.SetDefault("features.enable_format_dialog", true)
	v.SetDefault("features.accept_tiff", false)
	v.SetDefault("output.sink", "local")
	v.SetDefault("output.local_dir", ".")
	v.SetDefault("output.prefix", "exports")
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.access_key", "minioadmin")
	v.SetDefault("storage.secret_key", "minioadmin")
	v.SetDefault("storage.bucket", "pixeledit-exports")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.presign_ttl", 15*time.Minute)
	v.SetDefault("database.dsn", "")
	v.SetDefault("ratelimit.redis_addr", "")
	v.SetDefault("ratelimit.redis_db", 0)
	v.SetDefault("ratelimit.capacity", 30)
	v.SetDefault("ratelimit.window", time.Minute)
	v.SetDefault("webhook.url", "")
	v.SetDefault("webhook.max_attempts", 3)
	v.SetDefault("tracing.exporter", "none")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
}

func (c Config) Validate() error {
	if c.Limits.MaxUploadBytes <= 0 {
		return fmt.Errorf("limits.max_upload_bytes must be positive")
	}
	if c.Limits.MaxPixels <= 0 {
		return fmt.Errorf("limits.max_pixels must be positive")
	}
	if _, err := domain.ParseOutputFormat(c.Encode.DefaultFormat); err != nil {
		return fmt.Errorf("encode.default_format: %w", err)
	}
	if c.Encode.DefaultQuality < 0 || c.Encode.DefaultQuality > 1 {
		return fmt.Errorf("encode.default_quality must be within [0,1]")
	}
	switch c.Output.Sink {
	case "local", "s3":
	default:
		return fmt.Errorf("output.sink must be local or s3, got %q", c.Output.Sink)
	}
	return nil
}
