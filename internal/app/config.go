package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config stores runtime configuration loaded from environment variables.
type Config struct {
	AppEnv          string
	HTTPAddr        string
	APIBaseURL      string
	UpstreamTimeout time.Duration

	CookieSecure bool
	CookieMaxAge time.Duration

	CORSOrigins         []string
	CSRFEnforced        bool
	AuthRateLimitPerMin int

	DBDriver          string
	DBDSN             string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifeMins int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	WorkspaceTTL time.Duration
	IdentityTTL  time.Duration
}

func LoadConfig() Config {
	appEnv := envOrDefault("APP_ENV", "development")

	baseURL := os.Getenv("API_BASE_URL")
	if strings.TrimSpace(baseURL) == "" {
		baseURL = os.Getenv("PUBLIC_API_BASE_URL")
	}

	return Config{
		AppEnv:              appEnv,
		HTTPAddr:            envOrDefault("HTTP_ADDR", ":8080"),
		APIBaseURL:          strings.TrimSpace(baseURL),
		UpstreamTimeout:     time.Duration(intOrDefault("UPSTREAM_TIMEOUT_SECONDS", 0)) * time.Second,
		CookieSecure:        boolOrDefault("COOKIE_SECURE", appEnv == "production"),
		CookieMaxAge:        time.Duration(intOrDefault("COOKIE_MAX_AGE_DAYS", 7)) * 24 * time.Hour,
		CORSOrigins:         csvOrDefault("CORS_ORIGINS", []string{"http://localhost:3000"}),
		CSRFEnforced:        boolOrDefault("CSRF_ENFORCED", false),
		AuthRateLimitPerMin: intOrDefault("AUTH_RATE_LIMIT_PER_MINUTE", 60),
		DBDriver:            envOrDefault("DB_DRIVER", "sqlite"),
		DBDSN:               os.Getenv("DB_DSN"),
		DBMaxOpenConns:      intOrDefault("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:      intOrDefault("DB_MAX_IDLE_CONNS", 25),
		DBConnMaxLifeMins:   intOrDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30),
		RedisAddr:           strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		RedisDB:             intOrDefault("REDIS_DB", 0),
		WorkspaceTTL:        time.Duration(intOrDefault("WORKSPACE_TTL_MINUTES", 12*60)) * time.Minute,
		IdentityTTL:         time.Duration(intOrDefault("IDENTITY_CACHE_MINUTES", 10)) * time.Minute,
	}
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsToInt(v string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(v))
	return n
}

func intOrDefault(key string, fallback int) int {
	v := stringsToInt(os.Getenv(key))
	if v <= 0 {
		return fallback
	}
	return v
}

func boolOrDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func csvOrDefault(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
