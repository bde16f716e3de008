package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	LogLevel string
	Port     string

	DatabaseDriver string
	DatabaseURL    string

	JWTSecret         string
	GoalEncryptionKey string

	TraitServerURL string
	TraitTimeout   time.Duration
	TipLLMURL      string
	TipTimeout     time.Duration
	Mock           bool

	CatalogPath string
	UploadDir   string
	Location    *time.Location

	TipWorkers   int
	TipQueueSize int

	// UpstreamWait bounds how long remote calls are held back at startup
	// while the trait and tip services come up.
	UpstreamWait time.Duration
}

// Load reads .env files (missing files are ignored) and then the process
// environment. Values already set in the environment win.
func Load(files ...string) (Config, error) {
	_ = godotenv.Load(files...)
	return FromEnv(os.LookupEnv)
}

func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return fallback
	}

	var errs []error
	duration := func(key string, fallback time.Duration) time.Duration {
		raw := get(key, "")
		if raw == "" {
			return fallback
		}
		if d, err := time.ParseDuration(raw); err == nil {
			return d
		}
		// Bare numbers are seconds.
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
		errs = append(errs, fmt.Errorf("%s: invalid duration %q", key, raw))
		return fallback
	}
	integer := func(key string, fallback int) int {
		raw := get(key, "")
		if raw == "" {
			return fallback
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			errs = append(errs, fmt.Errorf("%s: must be a positive integer, got %q", key, raw))
			return fallback
		}
		return n
	}

	cfg := Config{
		Env:               get("APP_ENV", "development"),
		LogLevel:          get("LOG_LEVEL", "info"),
		Port:              get("PORT", "8080"),
		DatabaseDriver:    get("DATABASE_DRIVER", "pgx"),
		DatabaseURL:       get("DATABASE_URL", ""),
		JWTSecret:         get("JWT_SECRET", ""),
		GoalEncryptionKey: get("GOAL_ENCRYPTION_KEY", ""),
		TraitServerURL:    get("TRAIT_SERVER_URL", "http://localhost:9100/predict-trait"),
		TraitTimeout:      duration("TRAIT_TIMEOUT", 30*time.Second),
		TipLLMURL:         get("TIP_LLM_URL", "http://localhost:9000/generate"),
		TipTimeout:        duration("TIP_TIMEOUT", 60*time.Second),
		CatalogPath:       get("CATALOG_PATH", ""),
		UploadDir:         get("UPLOAD_DIR", "uploads/food"),
		TipWorkers:        integer("TIP_WORKERS", 4),
		TipQueueSize:      integer("TIP_QUEUE_SIZE", 256),
		UpstreamWait:      duration("UPSTREAM_WAIT", 30*time.Second),
	}

	if raw := get("MOCK", ""); raw != "" {
		mock, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("MOCK: invalid boolean %q", raw))
		}
		cfg.Mock = mock
	}

	cfg.Location = time.Local
	if tz := get("APP_TIMEZONE", ""); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			errs = append(errs, fmt.Errorf("APP_TIMEZONE: %w", err))
		} else {
			cfg.Location = loc
		}
	}

	switch cfg.DatabaseDriver {
	case "pgx", "sqlite3":
	case "postgres":
		cfg.DatabaseDriver = "pgx"
	case "sqlite":
		cfg.DatabaseDriver = "sqlite3"
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER: unsupported driver %q", cfg.DatabaseDriver))
	}
	if cfg.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	return cfg, errors.Join(errs...)
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}
