package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries every runtime setting. It is built once in main and passed
// down explicitly; nothing reads the environment after startup.
type Config struct {
	Port string

	DBUser string
	DBPass string
	DBHost string
	DBPort string
	DBName string

	JWTSecret  string
	ReplSecret string

	LeaseTTL time.Duration
}

// Load reads the configuration from environment variables (a .env file has
// already been applied by godotenv in main, if present).
func Load() (Config, error) {
	cfg := Config{
		Port:       getenv("PORT", "8080"),
		DBUser:     strings.TrimSpace(os.Getenv("user")),
		DBPass:     strings.TrimSpace(os.Getenv("password")),
		DBHost:     strings.TrimSpace(os.Getenv("host")),
		DBPort:     strings.TrimSpace(os.Getenv("port")),
		DBName:     strings.TrimSpace(os.Getenv("dbname")),
		JWTSecret:  os.Getenv("JWT_SECRET"),
		ReplSecret: os.Getenv("REPL_SECRET"),
		LeaseTTL:   300 * time.Second,
	}

	if raw := os.Getenv("LEASE_TTL_SECONDS"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			return Config{}, fmt.Errorf("invalid LEASE_TTL_SECONDS %q", raw)
		}
		cfg.LeaseTTL = time.Duration(secs) * time.Second
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is not set")
	}
	if cfg.ReplSecret == "" {
		return Config{}, fmt.Errorf("REPL_SECRET is not set")
	}
	return cfg, nil
}

// ConnString builds the postgres connection string.
func (c Config) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=require",
		c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName)
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
