// Package appconfig loads the environment variables every
// connectivity-core component reads its tunables from, with typed
// fallbacks mirroring the teacher's infrastructure/config loader.
package appconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kalshi-core/connectivity/internal/platform/xerrors"
)

// EnvOrDefault returns the trimmed environment value for key, or
// fallback when unset/blank.
func EnvOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// RequireEnv returns the trimmed environment value for key, or a
// KindConfiguration error when it is unset/blank.
func RequireEnv(key string) (string, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return "", xerrors.New(xerrors.KindConfiguration, "require_env", key+" is required but not configured")
	}
	return v, nil
}

// EnvDurationSeconds reads a seconds env var (fractions allowed, e.g.
// "1.5") into a time.Duration, falling back when unset or unparseable.
func EnvDurationSeconds(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return time.Duration(seconds * float64(time.Second))
}

// EnvIntOrDefault parses an integer env var, falling back when unset
// or unparseable.
func EnvIntOrDefault(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// EnvFloatOrDefault parses a float env var, falling back when unset or
// unparseable.
func EnvFloatOrDefault(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

// EnvBoolOrDefault accepts "true"/"1"/"yes"/"y" (case-insensitive) as
// true and "false"/"0"/"no"/"n" as false, falling back when unset or
// anything else.
func EnvBoolOrDefault(key string, fallback bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "true", "1", "yes", "y":
		return true
	case "false", "0", "no", "n":
		return false
	default:
		return fallback
	}
}

// Config is the full set of tunables spec §6 names, loaded once at
// process start.
type Config struct {
	ConnectionTimeout     time.Duration
	RequestTimeout        time.Duration
	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration
	ReconnectMultiplier   float64
	MaxConsecutiveFailures int
	HealthCheckInterval   time.Duration
	SubscriptionTimeout   time.Duration

	ServiceRuntimeDir    string
	ManagedByMonitor     bool
	SessionTrackingLevel string

	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	RedisSSL      bool

	ServiceName            string
	ExchangeBaseURL        string
	ExchangeWSURL          string
	ExchangeAccessKey      string
	ExchangePrivateKeyPath string
	ScraperURLs            []string
}

// FromEnv loads Config from the process environment. A missing
// required variable (none currently — every field has a documented
// fallback) would surface as a KindConfiguration error; the signature
// returns error to keep the call site future-proof against adding one.
func FromEnv() (Config, error) {
	cfg := Config{
		ConnectionTimeout:      EnvDurationSeconds("CONNECTION_TIMEOUT_SECONDS", 10*time.Second),
		RequestTimeout:         EnvDurationSeconds("REQUEST_TIMEOUT_SECONDS", 30*time.Second),
		ReconnectInitialDelay:  EnvDurationSeconds("RECONNECTION_INITIAL_DELAY_SECONDS", time.Second),
		ReconnectMaxDelay:      EnvDurationSeconds("RECONNECTION_MAX_DELAY_SECONDS", 60*time.Second),
		ReconnectMultiplier:    EnvFloatOrDefault("RECONNECTION_BACKOFF_MULTIPLIER", 2.0),
		MaxConsecutiveFailures: EnvIntOrDefault("MAX_CONSECUTIVE_FAILURES", 5),
		HealthCheckInterval:    EnvDurationSeconds("HEALTH_CHECK_INTERVAL_SECONDS", 30*time.Second),
		SubscriptionTimeout:    EnvDurationSeconds("SUBSCRIPTION_TIMEOUT_SECONDS", 10*time.Second),

		ServiceRuntimeDir:    EnvOrDefault("SERVICE_RUNTIME_DIR", "/tmp"),
		ManagedByMonitor:     EnvBoolOrDefault("MANAGED_BY_MONITOR", false),
		SessionTrackingLevel: EnvOrDefault("SESSION_TRACKING_LOG_LEVEL", "warn"),

		RedisHost:     EnvOrDefault("REDIS_HOST", "localhost"),
		RedisPort:     EnvIntOrDefault("REDIS_PORT", 6379),
		RedisDB:       EnvIntOrDefault("REDIS_DB", 0),
		RedisPassword: EnvOrDefault("REDIS_PASSWORD", ""),
		RedisSSL:      EnvBoolOrDefault("REDIS_SSL", false),

		ServiceName:            EnvOrDefault("SERVICE_NAME", "connectivity-core"),
		ExchangeBaseURL:        EnvOrDefault("EXCHANGE_BASE_URL", "https://trading-api.kalshi.com"),
		ExchangeWSURL:          EnvOrDefault("EXCHANGE_WS_URL", "wss://trading-api.kalshi.com/trade-api/ws/v2"),
		ExchangeAccessKey:      EnvOrDefault("EXCHANGE_ACCESS_KEY", ""),
		ExchangePrivateKeyPath: EnvOrDefault("EXCHANGE_PRIVATE_KEY_PATH", ""),
		ScraperURLs:            splitCommaList(EnvOrDefault("SCRAPER_URLS", "")),
	}
	return cfg, nil
}

func splitCommaList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// RedisAddr formats host:port for redis.Options.Addr.
func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}
