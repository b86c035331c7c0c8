package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenPort      string        // ex: ":8743"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	ScanBaseURL   string        // base URL of the external scoring endpoint (ex: https://w4.netstar.dev)
	ScanTimeout   time.Duration // per-request timeout for the scoring endpoint (default: 15s)
	CatalogFile   string        // path to indicators.yaml (optional, empty = built-in catalog)
	CacheTTL      time.Duration // freshness window for cached assessments (default: 5m)
	SignalTTL     time.Duration // freshness window for live-signal hints (same policy as CacheTTL)
	ReplyDeadline time.Duration // deadline for correlated tab queries (default: 3s)

	AlertAttempts     int           // delivery attempts to the page overlay (default: 3)
	AlertBackoff      time.Duration // initial backoff between overlay delivery attempts (default: 250ms)
	HighlightDuration time.Duration // how long the attention badge stays visible (default: 4s)
	RecentScansCap    int           // size of the recent-scans list (default: 3)
	JanitorInterval   time.Duration // interval for pruning stale sessions and signals (default: 10m)

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedOrigins []string // origins allowed to call the command API (UI surfaces)
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("ADVISOR_LISTEN_PORT", ":8743"),
		ShutdownTimeout: mustDuration("ADVISOR_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("ADVISOR_LOG_LEVEL", "info"),
		PrettyLog: mustBool("ADVISOR_PRETTY_LOG", true),

		// Assessment pipeline
		ScanBaseURL:   requireEnv("ADVISOR_SCAN_BASE_URL"),
		ScanTimeout:   mustDuration("ADVISOR_SCAN_TIMEOUT", 15*time.Second),
		CatalogFile:   getenv("ADVISOR_CATALOG_FILE", ""), // Optional, empty = built-in catalog
		CacheTTL:      mustDuration("ADVISOR_CACHE_TTL", 5*time.Minute),
		SignalTTL:     mustDuration("ADVISOR_SIGNAL_TTL", 5*time.Minute),
		ReplyDeadline: mustDuration("ADVISOR_REPLY_DEADLINE", 3*time.Second),

		// Delivery
		AlertAttempts:     getenvInt("ADVISOR_ALERT_ATTEMPTS", 3),
		AlertBackoff:      mustDuration("ADVISOR_ALERT_BACKOFF", 250*time.Millisecond),
		HighlightDuration: mustDuration("ADVISOR_HIGHLIGHT_DURATION", 4*time.Second),
		RecentScansCap:    getenvInt("ADVISOR_RECENT_SCANS_CAP", 3),
		JanitorInterval:   mustDuration("ADVISOR_JANITOR_INTERVAL", 10*time.Minute),

		// Redis settings
		RedisAddr:             requireEnv("ADVISOR_REDIS_ADDR"),
		RedisUser:             getenv("ADVISOR_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("ADVISOR_REDIS_PASSWORD_REQUIRED", true),
		RedisPassword:         getenv("ADVISOR_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("ADVISOR_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedOrigins: splitAndTrim(getenv("ADVISOR_ALLOWED_ORIGINS", "")),
	}

	// Validate Redis password configuration
	if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: ADVISOR_REDIS_PASSWORD is required when ADVISOR_REDIS_PASSWORD_REQUIRED=true")
	}

	if cfg.AlertAttempts < 1 {
		panic(fmt.Sprintf("❌ FATAL: ADVISOR_ALERT_ATTEMPTS must be >= 1, got %d", cfg.AlertAttempts))
	}
	if cfg.RecentScansCap < 1 {
		panic(fmt.Sprintf("❌ FATAL: ADVISOR_RECENT_SCANS_CAP must be >= 1, got %d", cfg.RecentScansCap))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
