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
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	ConfigFile     string        // endpoint table file, empty = bundled table
	ReloadInterval time.Duration // interval to reload ConfigFile (default: 1h)

	ReconcileInterval time.Duration // interval to reconcile overrides with Redis (default: 10m)

	// Location service
	LocationEndpoint string        // ex: "location-readonly.aliyuncs.com"
	LocationScheme   string        // "https" | "http"
	LocationTimeout  time.Duration // per call
	LocationDisabled bool          // true => only overrides and local tables answer
	PersistLocation  bool          // true => store location answers in Redis

	// Redis (optional, empty address = disabled)
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password when Redis is enabled
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

	AllowedHosts []string // optional, restrict admin routes to specific Host headers
	AllowedCIDRS []string // optional, restrict admin routes to specific IPs or CIDRs
	TrustProxy   bool     // true => trust X-Forwarded-For headers

	RateLimitBurst  int // /resolve token bucket size per client IP
	RateLimitPerMin int // /resolve refill rate per client IP
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("ENDPOINTD_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("ENDPOINTD_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("ENDPOINTD_LOG_LEVEL", "info"),
		PrettyLog: mustBool("ENDPOINTD_PRETTY_LOG", true),

		// Endpoint table
		ConfigFile:     getenv("ENDPOINTD_CONFIG_FILE", ""),
		ReloadInterval: mustDuration("ENDPOINTD_RELOAD_INTERVAL", time.Hour),

		ReconcileInterval: mustDuration("ENDPOINTD_RECONCILE_INTERVAL", 10*time.Minute),

		// Location service
		LocationEndpoint: getenv("ENDPOINTD_LOCATION_ENDPOINT", "location-readonly.aliyuncs.com"),
		LocationScheme:   getenv("ENDPOINTD_LOCATION_SCHEME", "https"),
		LocationTimeout:  mustDuration("ENDPOINTD_LOCATION_TIMEOUT", 5*time.Second),
		LocationDisabled: mustBool("ENDPOINTD_LOCATION_DISABLED", false),
		PersistLocation:  mustBool("ENDPOINTD_PERSIST_LOCATION", true),

		// Redis settings
		RedisAddr:             getenv("ENDPOINTD_REDIS_ADDR", ""),
		RedisUser:             getenv("ENDPOINTD_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("ENDPOINTD_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("ENDPOINTD_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("ENDPOINTD_REDIS_DB", 0),
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
		AllowedHosts: splitAndTrim(getenv("ENDPOINTD_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("ENDPOINTD_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("ENDPOINTD_TRUST_PROXY", false),

		RateLimitBurst:  getenvInt("ENDPOINTD_RATE_LIMIT_BURST", 60),
		RateLimitPerMin: getenvInt("ENDPOINTD_RATE_LIMIT_PER_MIN", 600),
	}

	if cfg.LocationScheme != "http" && cfg.LocationScheme != "https" {
		panic(fmt.Sprintf("❌ FATAL: ENDPOINTD_LOCATION_SCHEME must be http or https, got %q", cfg.LocationScheme))
	}

	// Validate Redis password configuration
	if cfg.RedisAddr != "" && cfg.RedisPasswordRequired {
		cfg.RedisPassword = requireEnv("ENDPOINTD_REDIS_PASSWORD")
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

// RedisEnabled reports whether persistence is configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
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

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
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
