// Package config loads relay configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"c1fapp/internal/feed"
	"c1fapp/internal/mapping"
)

const (
	// DefaultEntitiesLimit is the per-observable record cap when none is configured.
	DefaultEntitiesLimit = 100
	// MaxEntitiesLimit is the hard ceiling applied to any configured or requested limit.
	MaxEntitiesLimit = 1000
)

// Config holds relay configuration
type Config struct {
	Env         string
	HTTPAddr    string
	GRPCAddr    string
	MetricsAddr string
	SecretKey   string

	EntitiesLimit int
	Workers       int

	Feed       feed.Config
	Confidence []mapping.ConfidenceRange

	LogJSON  bool
	LogLevel string
}

// Load reads environment variables and returns a validated Config.
// In development a .env file in the working directory is loaded first.
func Load() (*Config, error) {
	cfg := &Config{Env: getEnv("C1FAPP_ENV", "development")}
	if cfg.IsDevelopment() {
		_ = godotenv.Load()
	}

	*cfg = Config{
		Env:           cfg.Env,
		HTTPAddr:      getEnv("C1FAPP_HTTP_ADDR", ":8080"),
		GRPCAddr:      getEnv("C1FAPP_GRPC_ADDR", ""),
		MetricsAddr:   getEnv("C1FAPP_METRICS_ADDR", ":9090"),
		SecretKey:     getEnv("SECRET_KEY", ""),
		EntitiesLimit: ClampLimit(getEnvInt("CTR_ENTITIES_LIMIT", DefaultEntitiesLimit)),
		Workers:       getEnvInt("C1FAPP_WORKERS", 4),
		Feed: feed.Config{
			APIURL:          getEnv("C1FAPP_API_URL", feed.DefaultAPIURL),
			UserAgent:       getEnv("C1FAPP_USER_AGENT", feed.DefaultUserAgent),
			Timeout:         getEnvDuration("C1FAPP_FEED_TIMEOUT", 30*time.Second),
			MaxRetries:      uint64(getEnvInt("C1FAPP_FEED_RETRIES", 3)),
			NoDataSentinels: getEnvList("C1FAPP_NO_DATA_SENTINELS", feed.DefaultNoDataSentinels),
		},
		Confidence: mapping.DefaultConfidenceTable(),
		LogJSON:    getEnvBool("C1FAPP_LOG_JSON", false),
		LogLevel:   getEnv("C1FAPP_LOG_LEVEL", "info"),
	}

	if path := getEnv("C1FAPP_CONFIDENCE_TABLE", ""); path != "" {
		table, err := LoadConfidenceTable(path)
		if err != nil {
			return nil, err
		}
		cfg.Confidence = table
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("C1FAPP_HTTP_ADDR is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("C1FAPP_WORKERS must be positive, got %d", c.Workers)
	}
	if c.EntitiesLimit < 1 || c.EntitiesLimit > MaxEntitiesLimit {
		return fmt.Errorf("CTR_ENTITIES_LIMIT must be in [1,%d], got %d", MaxEntitiesLimit, c.EntitiesLimit)
	}
	if err := mapping.ValidateConfidenceTable(c.Confidence); err != nil {
		return fmt.Errorf("confidence table: %w", err)
	}
	return nil
}

// IsDevelopment reports whether the relay runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ClampLimit replaces a non-positive limit with the default and caps it at MaxEntitiesLimit.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultEntitiesLimit
	}
	if limit > MaxEntitiesLimit {
		return MaxEntitiesLimit
	}
	return limit
}

type confidenceFile struct {
	Ranges []mapping.ConfidenceRange `yaml:"ranges"`
}

// LoadConfidenceTable reads a YAML confidence table:
//
//	ranges:
//	  - {min: 0, max: 26, level: Low}
//	  - {min: 26, max: 80, level: Medium}
//	  - {min: 80, max: 101, level: High}
func LoadConfidenceTable(path string) ([]mapping.ConfidenceRange, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read confidence table: %w", err)
	}
	var f confidenceFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse confidence table %s: %w", path, err)
	}
	if err := mapping.ValidateConfidenceTable(f.Ranges); err != nil {
		return nil, fmt.Errorf("confidence table %s: %w", path, err)
	}
	return f.Ranges, nil
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getEnvList(k string, def []string) []string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
