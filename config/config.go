package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Config is built once at startup and handed to every component that needs it.
type Config struct {
	Port            string
	GinMode         string
	DBDriver        string
	DatabaseURL     string
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	CORSOrigins     []string
	RedisURL        string
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Println("[env] loaded .env")
	}

	cfg := Config{
		Port:        getenv("PORT", "8000"),
		GinMode:     getenv("GIN_MODE", "release"),
		DBDriver:    strings.ToLower(getenv("DB_DRIVER", DriverMySQL)),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		CORSOrigins: splitOrigins(getenv("CORS_ORIGINS", "http://localhost:3000")),
		RedisURL:    os.Getenv("REDIS_URL"),
	}

	var err error
	if cfg.AccessTokenTTL, err = getDuration("ACCESS_TOKEN_TTL", 30*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTokenTTL, err = getDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour); err != nil {
		return Config{}, err
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is not set"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is not set"))
	}
	if c.DBDriver != DriverMySQL && c.DBDriver != DriverPostgres {
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver))
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}
	return errors.Join(errs...)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getDuration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return d, nil
}

// allow comma-separated list of origins
func splitOrigins(s string) []string {
	var origins []string
	for _, p := range strings.Split(s, ",") {
		if o := strings.TrimRight(strings.TrimSpace(p), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
