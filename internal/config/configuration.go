package config

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	// WebServer Configuration
	WebServerPort  int   `mapstructure:"WEBSERVER_PORT" validate:"min=1,max=65535"`
	MaxUploadBytes int64 `mapstructure:"MAX_UPLOAD_BYTES" validate:"min=1"`

	// Database Configuration
	DatabaseDSN     string `mapstructure:"DATABASE_DSN"`
	DatabaseRetries int    `mapstructure:"DATABASE_RETRIES"`

	// Cookie jar encryption and admin API
	EncryptionKey    string `mapstructure:"ENCRYPTION_KEY" validate:"omitempty,hexadecimal"`
	EncryptionCipher string `mapstructure:"ENCRYPTION_CIPHER" validate:"omitempty,oneof=chacha20-poly1305 xchacha20-poly1305 aes-256-gcm"`
	AdminTokenHash   string `mapstructure:"ADMIN_TOKEN_HASH" validate:"omitempty,startswith=$argon2id$"`

	// AI
	GeminiAPIKey        string `mapstructure:"GEMINI_API_KEY"`
	GeminiModel         string `mapstructure:"GEMINI_MODEL" validate:"required"`
	AIRequestsPerMinute int    `mapstructure:"AI_REQUESTS_PER_MINUTE" validate:"min=1"`

	// Acquisition
	YouTubeAPIKey         string        `mapstructure:"YOUTUBE_API_KEY"`
	YtdlpPath             string        `mapstructure:"YTDLP_PATH"`
	CookiesFile           string        `mapstructure:"COOKIES_FILE" validate:"omitempty,file"`
	AcquireAttemptTimeout time.Duration `mapstructure:"ACQUIRE_ATTEMPT_TIMEOUT" validate:"min=1s"`
	AcquireStrategies     string        `mapstructure:"ACQUIRE_STRATEGIES"`

	// Description
	CaptionLanguage string `mapstructure:"CAPTION_LANGUAGE" validate:"required,bcp47_language_tag"`
	DescribeWorkers int    `mapstructure:"DESCRIBE_WORKERS" validate:"min=1,max=16"`

	// Per-call time limits for the later stages
	CaptionTimeout time.Duration `mapstructure:"CAPTION_TIMEOUT" validate:"min=1s"`
	FrameTimeout   time.Duration `mapstructure:"FRAME_TIMEOUT" validate:"min=1s"`
	SceneTimeout   time.Duration `mapstructure:"SCENE_TIMEOUT" validate:"min=1s"`
	SelectTimeout  time.Duration `mapstructure:"SELECT_TIMEOUT" validate:"min=1s"`
	RenderTimeout  time.Duration `mapstructure:"RENDER_TIMEOUT" validate:"min=1s"`

	// Rendering and storage
	FontPath          string `mapstructure:"FONT_PATH"`
	WorkDir           string `mapstructure:"WORK_DIR"`
	ArtifactDir       string `mapstructure:"ARTIFACT_DIR" validate:"required"`
	ArtifactBackend   string `mapstructure:"ARTIFACT_BACKEND" validate:"oneof=disk gcs"`
	GCSBucket         string `mapstructure:"GCS_BUCKET" validate:"required_if=ArtifactBackend gcs"`
	RenderConcurrency int    `mapstructure:"RENDER_CONCURRENCY" validate:"min=1,max=3"`

	// Logging
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"oneof=json text"`
	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"oneof=debug info warn error"`
}

// Strategies returns the configured acquisition strategy names in order.
// An empty result means "use the built-in order".
func (c Config) Strategies() []string {
	var out []string
	for _, s := range strings.Split(c.AcquireStrategies, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// LogValue keeps secrets out of structured logs.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("webserver_port", c.WebServerPort),
		slog.Bool("database", c.DatabaseDSN != ""),
		slog.Bool("encryption", c.EncryptionKey != ""),
		slog.Bool("admin_token", c.AdminTokenHash != ""),
		slog.Bool("gemini", c.GeminiAPIKey != ""),
		slog.String("gemini_model", c.GeminiModel),
		slog.Bool("youtube_api", c.YouTubeAPIKey != ""),
		slog.Duration("acquire_attempt_timeout", c.AcquireAttemptTimeout),
		slog.Duration("select_timeout", c.SelectTimeout),
		slog.Duration("render_timeout", c.RenderTimeout),
		slog.String("artifact_backend", c.ArtifactBackend),
		slog.String("artifact_dir", c.ArtifactDir),
		slog.Int("render_concurrency", c.RenderConcurrency),
	)
}

// use reflect to bind environment variables based on mapstructure tags
func bindEnv(c Config) {
	typ := reflect.TypeOf(c)
	for i := 0; i < typ.NumField(); i++ {
		if tag := typ.Field(i).Tag.Get("mapstructure"); tag != "" {
			viper.BindEnv(tag)
		}
	}
}

func setDefaults() {
	viper.SetDefault("WEBSERVER_PORT", 8080)
	viper.SetDefault("MAX_UPLOAD_BYTES", 500<<20)
	viper.SetDefault("DATABASE_RETRIES", 10)
	viper.SetDefault("GEMINI_MODEL", "gemini-2.0-flash")
	viper.SetDefault("AI_REQUESTS_PER_MINUTE", 30)
	viper.SetDefault("YTDLP_PATH", "yt-dlp")
	viper.SetDefault("ACQUIRE_ATTEMPT_TIMEOUT", "3m")
	viper.SetDefault("CAPTION_LANGUAGE", "en")
	viper.SetDefault("DESCRIBE_WORKERS", 3)
	viper.SetDefault("CAPTION_TIMEOUT", "1m")
	viper.SetDefault("FRAME_TIMEOUT", "45s")
	viper.SetDefault("SCENE_TIMEOUT", "2m")
	viper.SetDefault("SELECT_TIMEOUT", "1m")
	viper.SetDefault("RENDER_TIMEOUT", "2m")
	viper.SetDefault("ARTIFACT_DIR", "./data/gifs")
	viper.SetDefault("ARTIFACT_BACKEND", "disk")
	viper.SetDefault("RENDER_CONCURRENCY", 3)
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("LOG_LEVEL", "info")
}

func LoadConfig(ctx context.Context) (*Config, error) {
	bindEnv(Config{})
	viper.AutomaticEnv()
	setDefaults()

	cfg := Config{}
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	slog.InfoContext(ctx, "loaded configuration", "config", cfg)
	return &cfg, nil
}
