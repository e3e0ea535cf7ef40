package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port int

	StoreDriver string
	DBURL       string
	MongoURI    string
	MongoDB     string

	JWTSecret         string
	JWTExpiresIn      time.Duration
	JWTCookieTTL      time.Duration
	JWTCookieInsecure bool

	PasswordHasher string
	BcryptCost     int

	PublicBaseURL      string
	CORSAllowedOrigins []string
	MaxBodyBytes       int64

	RateLimitCapacity int
	RateLimitWindow   time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OTelEndpoint string
	MailDriver   string

	AdminName     string
	AdminEmail    string
	AdminPassword string
	AdminRole     string

	SweepInterval time.Duration
	SweeperPort   int
}

// Load reads the process environment, after merging an optional .env file.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not read .env file", "err", err)
	}

	return Config{
		Env:  getEnv("APP_ENV", "dev"),
		Port: getEnvInt("PORT", 8080),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", "memory")),
		DBURL:       buildDBURL(),
		MongoURI:    getEnv("MONGO_URI", "mongodb://127.0.0.1:27017"),
		MongoDB:     getEnv("MONGO_DB", "mediahub"),

		JWTSecret:         os.Getenv("JWT_SECRET"),
		JWTExpiresIn:      getEnvDuration("JWT_EXPIRES_IN", 90*24*time.Hour),
		JWTCookieTTL:      time.Duration(getEnvInt("JWT_COOKIE_EXPIRES_DAYS", 90)) * 24 * time.Hour,
		JWTCookieInsecure: getEnv("JWT_COOKIE_INSECURE", "") == "1",

		PasswordHasher: getEnv("PASSWORD_HASHER", "bcrypt"),
		BcryptCost:     getEnvInt("BCRYPT_COST", 12),

		PublicBaseURL:      strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 1000*1024)),

		RateLimitCapacity: getEnvInt("RATE_LIMIT_CAPACITY", 150),
		RateLimitWindow:   getEnvDuration("RATE_LIMIT_WINDOW", time.Hour),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		OTelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		MailDriver:   strings.ToLower(getEnv("MAIL_DRIVER", "log")),

		AdminName:     getEnv("ADMIN_NAME", "admin"),
		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		AdminRole:     getEnv("ADMIN_ROLE", "admin"),

		SweepInterval: getEnvDuration("SWEEP_INTERVAL", time.Minute),
		SweeperPort:   getEnvInt("SWEEPER_PORT", 8081),
	}
}

// Validate reports every missing or malformed required value at once.
func (c Config) Validate() error {
	var errs []error

	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.JWTExpiresIn <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRES_IN must be positive"))
	}
	switch c.StoreDriver {
	case "memory", "mongo", "postgres":
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be memory, mongo or postgres, got %q", c.StoreDriver))
	}
	switch c.MailDriver {
	case "log", "smtp":
	default:
		errs = append(errs, fmt.Errorf("MAIL_DRIVER must be log or smtp, got %q", c.MailDriver))
	}
	if c.RateLimitCapacity <= 0 || c.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_CAPACITY and RATE_LIMIT_WINDOW must be positive"))
	}
	if c.Port <= 0 {
		errs = append(errs, errors.New("PORT must be positive"))
	}

	return errors.Join(errs...)
}

func (c Config) IsDev() bool { return c.Env == "dev" }

func buildDBURL() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "mediahub")
	pass := getEnv("DB_PASSWORD", "mediahub")
	name := getEnv("DB_NAME", "mediahub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

// WithRequestTimeout bounds a request-scoped operation while keeping the
// request's values (trace span, principal).
func WithRequestTimeout(parent context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			slog.Warn("invalid integer env value, using default", "key", key, "value", v)
			return fallback
		}

		return num
	}
	return fallback
}

// getEnvDuration accepts Go durations ("15m") and a day suffix ("90d").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	if days, ok := strings.CutSuffix(v, "d"); ok {
		n, err := strconv.Atoi(days)
		if err == nil {
			return time.Duration(n) * 24 * time.Hour
		}
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("invalid duration env value, using default", "key", key, "value", v)
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
