package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/Pedroca011/finflow-dashboard/internal/domain"
	"github.com/Pedroca011/finflow-dashboard/internal/quote"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreBolt   = "bolt"
	StorePebble = "pebble"
)

// Quote providers.
const (
	QuotesStatic = "static"
	QuotesBrapi  = "brapi"
	QuotesAlpaca = "alpaca"
)

// Config holds all runtime configuration for the paper trading service.
type Config struct {
	Port            int
	LogLevel        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	WebhookTimeout  time.Duration

	DefaultBalance decimal.Decimal

	StoreDriver string
	StorePath   string

	QuoteProvider    string
	QuoteTimeout     time.Duration
	QuoteCacheTTL    time.Duration // 0 disables caching
	QuoteCacheSize   int
	QuoteConcurrency int
	StaticQuotes     map[string]decimal.Decimal
	BrapiBaseURL     string
	BrapiToken       string
	AlpacaAPIKey     string
	AlpacaAPISecret  string
	AlpacaDataURL    string

	CORSAllowedOrigins []string
}

// Load reads configuration, applies defaults, and validates values. It
// returns an error for any invalid value.
//
// Values come from, in increasing priority: built-in defaults, the flat
// YAML file named by CONFIG_FILE, the .env file (or ENV_FILE), and the
// process environment.
func Load() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	// godotenv never overrides variables that are already set.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	src := source{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		vals, err := readFile(path)
		if err != nil {
			return nil, err
		}
		src.file = vals
	}
	return src.load()
}

func (s source) load() (*Config, error) {
	cfg := &Config{}
	var err error

	if cfg.Port, err = s.getInt("PORT", 8080); err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid PORT: %d out of range", cfg.Port)
	}

	cfg.LogLevel = s.getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(cfg.LogLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", cfg.LogLevel)
	}

	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"READ_TIMEOUT", 5 * time.Second, &cfg.ReadTimeout},
		{"WRITE_TIMEOUT", 10 * time.Second, &cfg.WriteTimeout},
		{"IDLE_TIMEOUT", 60 * time.Second, &cfg.IdleTimeout},
		{"SHUTDOWN_TIMEOUT", 10 * time.Second, &cfg.ShutdownTimeout},
		{"WEBHOOK_TIMEOUT", 5 * time.Second, &cfg.WebhookTimeout},
		{"QUOTE_TIMEOUT", 2 * time.Second, &cfg.QuoteTimeout},
		{"QUOTE_CACHE_TTL", 15 * time.Second, &cfg.QuoteCacheTTL},
	}
	for _, d := range durations {
		if *d.dst, err = s.getDuration(d.key, d.def); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		if *d.dst < 0 {
			return nil, fmt.Errorf("invalid %s: must not be negative", d.key)
		}
	}
	if cfg.QuoteTimeout == 0 {
		return nil, errors.New("invalid QUOTE_TIMEOUT: must be positive")
	}

	if cfg.DefaultBalance, err = domain.ParseMoney(s.getStr("DEFAULT_BALANCE", "10000")); err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_BALANCE: %w", err)
	}

	cfg.StoreDriver = s.getStr("STORE_DRIVER", StoreMemory)
	cfg.StorePath = s.getStr("STORE_PATH", "")
	switch cfg.StoreDriver {
	case StoreMemory:
	case StoreSQLite, StoreBolt, StorePebble:
		if cfg.StorePath == "" {
			return nil, fmt.Errorf("STORE_PATH is required for STORE_DRIVER=%s", cfg.StoreDriver)
		}
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER: %q, must be one of: memory, sqlite, bolt, pebble", cfg.StoreDriver)
	}

	if cfg.QuoteCacheSize, err = s.getInt("QUOTE_CACHE_SIZE", 256); err != nil {
		return nil, fmt.Errorf("invalid QUOTE_CACHE_SIZE: %w", err)
	}
	if cfg.QuoteCacheSize < 1 {
		return nil, errors.New("invalid QUOTE_CACHE_SIZE: must be positive")
	}
	if cfg.QuoteConcurrency, err = s.getInt("QUOTE_CONCURRENCY", 8); err != nil {
		return nil, fmt.Errorf("invalid QUOTE_CONCURRENCY: %w", err)
	}
	if cfg.QuoteConcurrency < 1 {
		return nil, errors.New("invalid QUOTE_CONCURRENCY: must be positive")
	}

	if cfg.StaticQuotes, err = quote.ParseStatic(s.getStr("STATIC_QUOTES", "")); err != nil {
		return nil, fmt.Errorf("invalid STATIC_QUOTES: %w", err)
	}
	cfg.BrapiBaseURL = s.getStr("BRAPI_BASE_URL", quote.DefaultBrapiURL)
	cfg.BrapiToken = s.getStr("BRAPI_TOKEN", "")
	cfg.AlpacaAPIKey = s.getStr("ALPACA_API_KEY", "")
	cfg.AlpacaAPISecret = s.getStr("ALPACA_API_SECRET", "")
	cfg.AlpacaDataURL = s.getStr("ALPACA_DATA_URL", "")

	cfg.QuoteProvider = s.getStr("QUOTE_PROVIDER", QuotesStatic)
	switch cfg.QuoteProvider {
	case QuotesStatic, QuotesBrapi:
	case QuotesAlpaca:
		if cfg.AlpacaAPIKey == "" || cfg.AlpacaAPISecret == "" {
			return nil, errors.New("ALPACA_API_KEY and ALPACA_API_SECRET are required for QUOTE_PROVIDER=alpaca")
		}
	default:
		return nil, fmt.Errorf("invalid QUOTE_PROVIDER: %q, must be one of: static, brapi, alpaca", cfg.QuoteProvider)
	}

	cfg.CORSAllowedOrigins = splitList(s.getStr("CORS_ALLOWED_ORIGINS", ""))

	return cfg, nil
}

// source resolves a key from the environment first and the config file
// second.
type source struct {
	file map[string]string
}

func (s source) lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return s.file[key]
}

func (s source) getStr(key, defaultVal string) string {
	v := s.lookup(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func (s source) getInt(key string, defaultVal int) (int, error) {
	v := s.lookup(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func (s source) getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := s.lookup(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

// readFile reads a flat YAML mapping whose keys are the lower-case names of
// the environment variables, e.g. "store_driver: sqlite". Sequences are
// joined with commas.
func readFile(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	vals := make(map[string]string, len(doc))
	for k, v := range doc {
		key := strings.ToUpper(k)
		switch v := v.(type) {
		case nil:
		case []any:
			parts := make([]string, len(v))
			for i, item := range v {
				parts[i] = fmt.Sprint(item)
			}
			vals[key] = strings.Join(parts, ",")
		case map[string]any:
			return nil, fmt.Errorf("parse config file: key %q must be a scalar or a list", k)
		default:
			vals[key] = fmt.Sprint(v)
		}
	}
	return vals, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
