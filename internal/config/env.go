package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type EnvConfig struct {
	Credentials     Credentials
	Reddit          RedditEnvConfig
	OutputDir       string     `env:"OUTPUT_DIR" envDefault:"output/subreddits"`
	LogLevel        slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	SubredditFilter string     `env:"SUBREDDIT_FILTER"`
	Schedule        string     `env:"SCHEDULE"`
	ScheduleTZ      string     `env:"SCHEDULE_TIMEZONE"`
	MetricsTextfile string     `env:"METRICS_TEXTFILE"`
	RunSnapshotDir  string     `env:"RUN_SNAPSHOT_DIR"`
	HistoryDB       string     `env:"HISTORY_DB"`
	OTel            OTelEnvConfig
}

type RedditEnvConfig struct {
	HTTPTimeout   time.Duration `env:"REDDIT_HTTP_TIMEOUT" envDefault:"30s"`
	BaseURL       string        `env:"REDDIT_BASE_URL"`
	TokenURL      string        `env:"REDDIT_TOKEN_URL"`
	RetryAttempts int           `env:"REDDIT_RETRY_ATTEMPTS" envDefault:"1"`
	PageSize      int           `env:"REDDIT_PAGE_SIZE" envDefault:"100"`
}

type OTelEnvConfig struct {
	Enabled     bool              `env:"OTEL_ENABLED" envDefault:"false"`
	ServiceName string            `env:"OTEL_SERVICE_NAME" envDefault:"subsync"`
	Endpoint    string            `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Protocol    string            `env:"OTEL_EXPORTER_OTLP_PROTOCOL" envDefault:"grpc"` // "grpc" or "http/protobuf"
	Headers     map[string]string `env:"OTEL_EXPORTER_OTLP_HEADERS" envSeparator:"," envKeyValSeparator:"="`
	InsecureRaw string            `env:"OTEL_EXPORTER_OTLP_INSECURE"`
	SampleRatio float64           `env:"OTEL_TRACES_SAMPLE_RATIO" envDefault:"1.0"`

	// Insecure is resolved from InsecureRaw and the endpoint scheme.
	Insecure bool
}

// LoadEnv reads the given .env files (".env" when none are given) into the
// process environment and parses it. Variables already set in the process
// are not overridden, and a missing .env file is not an error.
func LoadEnv(envFiles ...string) (EnvConfig, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return EnvConfig{}, fmt.Errorf("load %s: %w", file, err)
		}
	}
	return parse(env.Options{})
}

// LoadEnvFrom parses an explicit environment instead of the process one.
func LoadEnvFrom(environ map[string]string) (EnvConfig, error) {
	if environ == nil {
		environ = map[string]string{}
	}
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (EnvConfig, error) {
	opts.FuncMap = map[reflect.Type]env.ParserFunc{
		reflect.TypeOf(time.Duration(0)): func(v string) (interface{}, error) {
			return parseDurationExtended(v)
		},
	}

	var cfg EnvConfig
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return EnvConfig{}, fmt.Errorf("parse environment: %w", err)
	}

	cfg.Credentials = cfg.Credentials.trimmed()
	cfg.OutputDir = strings.TrimSpace(cfg.OutputDir)
	cfg.OTel.Protocol = strings.ToLower(strings.TrimSpace(cfg.OTel.Protocol))
	cfg.OTel.Endpoint = strings.TrimSpace(cfg.OTel.Endpoint)
	cfg.OTel.SampleRatio = clamp01(cfg.OTel.SampleRatio)
	cfg.OTel.Insecure = parseBool(cfg.OTel.InsecureRaw, defaultInsecure(cfg.OTel.Endpoint))

	if cfg.Reddit.HTTPTimeout <= 0 {
		return EnvConfig{}, fmt.Errorf("REDDIT_HTTP_TIMEOUT must be positive, got %s", cfg.Reddit.HTTPTimeout)
	}
	if cfg.Reddit.RetryAttempts < 1 {
		cfg.Reddit.RetryAttempts = 1
	}
	if cfg.Reddit.PageSize <= 0 || cfg.Reddit.PageSize > 100 {
		cfg.Reddit.PageSize = 100
	}
	return cfg, nil
}

func parseBool(v string, fallback bool) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func defaultInsecure(endpoint string) bool {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return true
	}
	if strings.Contains(endpoint, "://") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return false
		}
		return u.Scheme == "http"
	}
	return strings.HasPrefix(endpoint, "localhost:") ||
		strings.HasPrefix(endpoint, "127.0.0.1:") ||
		strings.HasPrefix(endpoint, "0.0.0.0:")
}
