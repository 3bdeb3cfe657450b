package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Config is the process configuration, read once at startup.
type Config struct {
	Port            string
	StoreDriver     string
	SQLitePath      string
	MongoURL        string
	MongoDatabase   string
	JWTSecret       []byte
	TokenTTL        time.Duration
	CORS            CORS
	BcryptCost      int
	LogLevel        slog.Level
	LogFormat       string
	ShutdownTimeout time.Duration
}

type CORS struct {
	AllowedOrigin  string
	AllowedMethods []string
	AllowedHeaders []string
}

// Load reads a .env file when one is present, then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv.
func FromEnv(getenv func(string) string) (Config, error) {
	env := func(name, fallback string) string {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			return v
		}
		return fallback
	}

	cfg := Config{
		Port:          env("PORT", "8080"),
		StoreDriver:   strings.ToLower(env("STORE_DRIVER", DriverSQLite)),
		SQLitePath:    env("SQLITE_PATH", "./data/blog.db"),
		MongoURL:      env("MONGO_URL", ""),
		MongoDatabase: env("MONGO_DATABASE", "blog"),
		JWTSecret:     []byte(getenv("JWT_SECRET")),
		CORS: CORS{
			AllowedOrigin:  env("CORS_ALLOWED_ORIGIN", "http://localhost:3000"),
			AllowedMethods: list(env("CORS_ALLOWED_METHODS", "GET,POST,OPTIONS,PUT,PATCH,DELETE")),
			AllowedHeaders: list(env("CORS_ALLOWED_HEADERS", "Content-Type,Authorization")),
		},
		LogFormat: strings.ToLower(env("LOG_FORMAT", "text")),
	}

	if len(cfg.JWTSecret) == 0 {
		return Config{}, errors.New("config: JWT_SECRET is required")
	}
	switch cfg.StoreDriver {
	case DriverSQLite:
	case DriverMongo:
		if cfg.MongoURL == "" {
			return Config{}, errors.New("config: MONGO_URL is required for the mongo store")
		}
	default:
		return Config{}, fmt.Errorf("config: unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	var err error
	if cfg.TokenTTL, err = duration(env("TOKEN_TTL", "24h")); err != nil {
		return Config{}, fmt.Errorf("config: TOKEN_TTL: %w", err)
	}
	if cfg.ShutdownTimeout, err = duration(env("SHUTDOWN_TIMEOUT", "10s")); err != nil {
		return Config{}, fmt.Errorf("config: SHUTDOWN_TIMEOUT: %w", err)
	}
	if raw := env("BCRYPT_COST", ""); raw != "" {
		if cfg.BcryptCost, err = strconv.Atoi(raw); err != nil {
			return Config{}, fmt.Errorf("config: BCRYPT_COST: %w", err)
		}
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(env("LOG_LEVEL", "info"))); err != nil {
		return Config{}, fmt.Errorf("config: LOG_LEVEL: %w", err)
	}
	return cfg, nil
}

func duration(raw string) (time.Duration, error) {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", raw)
	}
	return d, nil
}

func list(raw string) []string {
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
