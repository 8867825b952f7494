package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds everything the server needs at startup
type Config struct {
	Env         string
	ServerPort  string
	StoreDriver string
	DB          *DBConfig

	JWTSecret          string
	JWTExpirationHours int64
	CookieMaxAge       time.Duration
	CookieSecure       bool
	ClientURLs         []string
	BcryptCost         int

	StrictTaskOwnership bool

	LogLevel  string
	LogFormat string

	AuthRateLimitRequests int
	AuthRateLimitWindow   time.Duration

	ShutdownGracePeriod time.Duration
}

// IsProduction reports whether ENV is production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration from environment variables. Call godotenv.Load first
// to pick up a local .env file.
func Load() (*Config, error) {
	cfg := &Config{
		Env:         getEnv("ENV", "development"),
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", DriverPostgres)),
		JWTSecret:   os.Getenv("JWT_SECRET_KEY"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY not set in environment")
	}

	var err error
	if cfg.JWTExpirationHours, err = getEnvInt64("JWT_EXPIRATION_HOURS", 24); err != nil {
		return nil, err
	}
	if cfg.CookieMaxAge, err = getEnvDuration("COOKIE_MAX_AGE", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.CookieSecure, err = getEnvBool("COOKIE_SECURE", cfg.IsProduction()); err != nil {
		return nil, err
	}
	if cfg.StrictTaskOwnership, err = getEnvBool("TASK_STRICT_OWNERSHIP", true); err != nil {
		return nil, err
	}

	cost, err := getEnvInt64("BCRYPT_COST", int64(bcrypt.DefaultCost))
	if err != nil {
		return nil, err
	}
	cfg.BcryptCost = int(cost)

	requests, err := getEnvInt64("RATELIMIT_AUTH_REQUESTS", 10)
	if err != nil {
		return nil, err
	}
	if requests <= 0 {
		return nil, fmt.Errorf("invalid RATELIMIT_AUTH_REQUESTS: must be positive, got %d", requests)
	}
	cfg.AuthRateLimitRequests = int(requests)
	if cfg.AuthRateLimitWindow, err = getEnvDuration("RATELIMIT_AUTH_WINDOW", time.Minute); err != nil {
		return nil, err
	}
	if cfg.AuthRateLimitWindow <= 0 {
		return nil, fmt.Errorf("invalid RATELIMIT_AUTH_WINDOW: must be positive, got %s", cfg.AuthRateLimitWindow)
	}
	if cfg.ShutdownGracePeriod, err = getEnvDuration("SHUTDOWN_GRACE_PERIOD", 5*time.Second); err != nil {
		return nil, err
	}

	for _, origin := range strings.Split(getEnv("CLIENT_URL", "*"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.ClientURLs = append(cfg.ClientURLs, origin)
		}
	}

	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.DB, err = LoadDBConfig(); err != nil {
			return nil, err
		}
	case DriverMemory:
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q (use %s or %s)", cfg.StoreDriver, DriverPostgres, DriverMemory)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) (int64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
