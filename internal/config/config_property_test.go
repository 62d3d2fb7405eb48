package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"
)

var validLogLevels = []string{"debug", "info", "warn", "error"}

// durationEnvKeys lists all Config fields that are parsed as time.Duration.
var durationEnvKeys = []string{
	"READ_TIMEOUT",
	"WRITE_TIMEOUT",
	"IDLE_TIMEOUT",
	"SHUTDOWN_TIMEOUT",
	"WEBHOOK_TIMEOUT",
	"QUOTE_TIMEOUT",
	"QUOTE_CACHE_TTL",
}

func unsetAllConfigEnv() {
	for _, key := range configKeys {
		os.Unsetenv(key)
	}
}

// genDurationString generates a valid Go duration string (e.g. "3s", "500ms", "2m").
func genDurationString() *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		unit := rapid.SampledFrom([]string{"ms", "s", "m"}).Draw(t, "unit")
		val := rapid.IntRange(1, 600).Draw(t, "val")
		return fmt.Sprintf("%d%s", val, unit)
	})
}

func parseDurationOrDefault(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, _ := time.ParseDuration(s)
	return d
}

func TestProperty_ValidConfigParsing(t *testing.T) {
	clearEnv(t)
	rapid.Check(t, func(t *rapid.T) {
		unsetAllConfigEnv()
		defer unsetAllConfigEnv()

		// Empty string means the variable is left unset.
		portStr := rapid.OneOf(
			rapid.Just(""),
			rapid.Map(rapid.IntRange(1, 65535), func(v int) string { return fmt.Sprintf("%d", v) }),
		).Draw(t, "port")

		logLevel := rapid.OneOf(
			rapid.Just(""),
			rapid.SampledFrom(validLogLevels),
		).Draw(t, "logLevel")

		balance := rapid.OneOf(
			rapid.Just(""),
			rapid.Map(rapid.Int64Range(0, 1_000_000_00), func(cents int64) string {
				return decimal.New(cents, -2).String()
			}),
		).Draw(t, "balance")

		durStrs := make(map[string]string, len(durationEnvKeys))
		for _, key := range durationEnvKeys {
			durStrs[key] = rapid.OneOf(
				rapid.Just(""),
				genDurationString(),
			).Draw(t, key)
		}

		if portStr != "" {
			os.Setenv("PORT", portStr)
		}
		if logLevel != "" {
			os.Setenv("LOG_LEVEL", logLevel)
		}
		if balance != "" {
			os.Setenv("DEFAULT_BALANCE", balance)
		}
		for _, key := range durationEnvKeys {
			if durStrs[key] != "" {
				os.Setenv(key, durStrs[key])
			}
		}

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() returned error for valid inputs: %v", err)
		}

		expectedPort := 8080
		if portStr != "" {
			fmt.Sscanf(portStr, "%d", &expectedPort)
		}
		if cfg.Port != expectedPort {
			t.Fatalf("Port = %d, want %d", cfg.Port, expectedPort)
		}

		expectedLogLevel := "info"
		if logLevel != "" {
			expectedLogLevel = logLevel
		}
		if cfg.LogLevel != expectedLogLevel {
			t.Fatalf("LogLevel = %q, want %q", cfg.LogLevel, expectedLogLevel)
		}

		expectedBalance := decimal.NewFromInt(10000)
		if balance != "" {
			expectedBalance = decimal.RequireFromString(balance)
		}
		if !cfg.DefaultBalance.Equal(expectedBalance) {
			t.Fatalf("DefaultBalance = %s, want %s", cfg.DefaultBalance, expectedBalance)
		}

		durFields := []struct {
			envKey string
			got    time.Duration
			defVal time.Duration
		}{
			{"READ_TIMEOUT", cfg.ReadTimeout, 5 * time.Second},
			{"WRITE_TIMEOUT", cfg.WriteTimeout, 10 * time.Second},
			{"IDLE_TIMEOUT", cfg.IdleTimeout, 60 * time.Second},
			{"SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout, 10 * time.Second},
			{"WEBHOOK_TIMEOUT", cfg.WebhookTimeout, 5 * time.Second},
			{"QUOTE_TIMEOUT", cfg.QuoteTimeout, 2 * time.Second},
			{"QUOTE_CACHE_TTL", cfg.QuoteCacheTTL, 15 * time.Second},
		}
		for _, df := range durFields {
			expected := parseDurationOrDefault(durStrs[df.envKey], df.defVal)
			if df.got != expected {
				t.Fatalf("%s = %v, want %v (env=%q)", df.envKey, df.got, expected, durStrs[df.envKey])
			}
		}
	})
}

// The environment always wins over the config file, and the file always
// wins over the built-in default.
func TestProperty_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	rapid.Check(t, func(t *rapid.T) {
		unsetAllConfigEnv()
		defer unsetAllConfigEnv()

		filePort := rapid.IntRange(1, 65535).Draw(t, "filePort")
		envPort := rapid.OneOf(rapid.Just(0), rapid.IntRange(1, 65535)).Draw(t, "envPort")

		path := filepath.Join(dir, "config.yaml")
		if err := os.WriteFile(path, []byte(fmt.Sprintf("port: %d\n", filePort)), 0o600); err != nil {
			t.Fatalf("write config: %v", err)
		}
		os.Setenv("CONFIG_FILE", path)
		if envPort != 0 {
			os.Setenv("PORT", fmt.Sprint(envPort))
		}

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() returned error: %v", err)
		}
		want := filePort
		if envPort != 0 {
			want = envPort
		}
		if cfg.Port != want {
			t.Fatalf("Port = %d, want %d (file=%d env=%d)", cfg.Port, want, filePort, envPort)
		}
	})
}

func TestProperty_InvalidPortReturnsError(t *testing.T) {
	clearEnv(t)
	rapid.Check(t, func(t *rapid.T) {
		unsetAllConfigEnv()
		defer unsetAllConfigEnv()

		invalidPort := rapid.OneOf(
			rapid.StringMatching(`[a-zA-Z]{1,10}`),
			rapid.Just("12.5"),
			rapid.Just("1.0e2"),
		).Filter(func(s string) bool {
			if s == "" {
				return false
			}
			_, err := fmt.Sscanf(s, "%d", new(int))
			return err != nil
		}).Draw(t, "invalidPort")

		os.Setenv("PORT", invalidPort)

		_, err := Load()
		if err == nil {
			t.Fatalf("Load() should return error for invalid PORT %q", invalidPort)
		}
	})
}

func TestProperty_InvalidLogLevelReturnsError(t *testing.T) {
	clearEnv(t)
	rapid.Check(t, func(t *rapid.T) {
		unsetAllConfigEnv()
		defer unsetAllConfigEnv()

		invalidLevel := rapid.StringMatching(`[a-z]{1,20}`).Filter(func(s string) bool {
			for _, v := range validLogLevels {
				if s == v {
					return false
				}
			}
			return s != ""
		}).Draw(t, "invalidLevel")

		os.Setenv("LOG_LEVEL", invalidLevel)

		_, err := Load()
		if err == nil {
			t.Fatalf("Load() should return error for invalid LOG_LEVEL %q", invalidLevel)
		}
	})
}

func TestProperty_InvalidDurationReturnsError(t *testing.T) {
	for _, key := range durationEnvKeys {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			rapid.Check(t, func(t *rapid.T) {
				unsetAllConfigEnv()
				defer unsetAllConfigEnv()

				invalidDur := rapid.OneOf(
					rapid.StringMatching(`[a-zA-Z]{2,10}`),
					rapid.Just("notaduration"),
					rapid.Just("5x"),
					rapid.Just("abc123"),
				).Filter(func(s string) bool {
					if s == "" {
						return false
					}
					_, err := time.ParseDuration(s)
					return err != nil
				}).Draw(t, "invalidDuration")

				os.Setenv(key, invalidDur)

				_, err := Load()
				if err == nil {
					t.Fatalf("Load() should return error for invalid %s=%q", key, invalidDur)
				}
			})
		})
	}
}
