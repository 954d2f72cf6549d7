package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	AppEnv   string
	HTTPAddr string

	// Store
	StoreDriver      string
	DatabaseURL      string
	DBAutoMigrate    bool
	DBMaxOpenConns   int
	StoreLockTimeout time.Duration

	// Tokens
	JWTSecret       string
	JWTIssuer       string
	JWTTTL          time.Duration
	JWTRefreshGrace time.Duration

	BcryptCost            int
	AllowPrivilegedSignup bool
	CampusTimezone        string
	CampusLocation        *time.Location

	// Redis & caching
	RedisURL          string
	CacheTTLResources time.Duration

	// Rate limiting
	RLEnabled     bool
	RLIPLimit     int
	RLIPWindow    time.Duration
	RLLoginLimit  int
	RLLoginWindow time.Duration

	// RabbitMQ
	RabbitURL      string
	RabbitExchange string
	OutboxEnabled  bool

	LogLevel  string
	LogFormat string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.AppEnv = getEnv("APP_ENV", "dev")
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	cfg.StoreDriver = strings.ToLower(getEnv("STORE_DRIVER", DriverPostgres))
	cfg.DatabaseURL = getEnv("DATABASE_URL", "")
	cfg.DBAutoMigrate = getBool("DB_AUTO_MIGRATE", true)
	cfg.DBMaxOpenConns = getInt("DB_MAX_OPEN_CONNS", 25)
	cfg.StoreLockTimeout = getDuration("STORE_LOCK_TIMEOUT", 3*time.Second)

	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	cfg.JWTIssuer = getEnv("JWT_ISSUER", "campus-coord")
	cfg.JWTTTL = getDuration("JWT_TTL", 24*time.Hour)
	cfg.JWTRefreshGrace = getDuration("JWT_REFRESH_GRACE", 0)

	cfg.BcryptCost = getInt("BCRYPT_COST", 12)
	cfg.AllowPrivilegedSignup = getBool("AUTH_ALLOW_PRIVILEGED_SIGNUP", false)
	cfg.CampusTimezone = getEnv("CAMPUS_TIMEZONE", "UTC")

	cfg.RedisURL = getEnv("REDIS_URL", "")
	cfg.CacheTTLResources = getDuration("CACHE_TTL_RESOURCES", 5*time.Minute)

	// Defaults: 100 reqs / 1 min per IP, 5 logins / 15 min per IP+email
	cfg.RLEnabled = getBool("RL_ENABLED", true)
	cfg.RLIPLimit = getInt("RL_IP_LIMIT", 100)
	cfg.RLIPWindow = getDuration("RL_IP_WINDOW", time.Minute)
	cfg.RLLoginLimit = getInt("RL_LOGIN_LIMIT", 5)
	cfg.RLLoginWindow = getDuration("RL_LOGIN_WINDOW", 15*time.Minute)

	cfg.RabbitURL = getEnv("RABBIT_URL", "")
	cfg.RabbitExchange = getEnv("RABBIT_EXCHANGE", "campus.events")
	cfg.OutboxEnabled = getBool("OUTBOX_ENABLED", true)

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "console")

	cfg.HTTPReadTimeout = getDuration("HTTP_READ_TIMEOUT", 10*time.Second)
	cfg.HTTPWriteTimeout = getDuration("HTTP_WRITE_TIMEOUT", 20*time.Second)
	cfg.HTTPIdleTimeout = getDuration("HTTP_IDLE_TIMEOUT", 60*time.Second)

	// validation
	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("missing DATABASE_URL")
		}
	case DriverMemory:
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q (want postgres or memory)", cfg.StoreDriver)
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("missing JWT_SECRET")
	}
	if cfg.JWTTTL <= 0 {
		return nil, fmt.Errorf("JWT_TTL must be positive")
	}
	if cfg.StoreLockTimeout <= 0 {
		return nil, fmt.Errorf("STORE_LOCK_TIMEOUT must be positive")
	}

	loc, err := time.LoadLocation(cfg.CampusTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid CAMPUS_TIMEZONE %q: %w", cfg.CampusTimezone, err)
	}
	cfg.CampusLocation = loc

	// Rabbit: dev may run without a broker; elsewhere the outbox needs one
	if cfg.AppEnv != "dev" && cfg.OutboxEnabled && cfg.RabbitURL == "" {
		return nil, fmt.Errorf("missing RABBIT_URL (required when APP_ENV != dev)")
	}

	return cfg, nil
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getBool(k string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		panic(fmt.Errorf("invalid boolean env %s=%q", k, v))
	}
}

func getDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
