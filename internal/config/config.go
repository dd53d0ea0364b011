package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                 int
	DatabaseURL          string
	LogLevel             string
	KeywordsFile         string
	DefaultPaymentMethod string
}

// Load reads settings from the environment, falling back to ./.env.
// Environment variables win over the file.
func Load() (Config, error) {
	envPath := filepath.Join(".", ".env")

	values := map[string]string{}
	if _, err := os.Stat(envPath); err == nil {
		fileValues, err := godotenv.Read(envPath)
		if err != nil {
			return Config{}, fmt.Errorf("read %s: %w", envPath, err)
		}
		values = fileValues
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("stat %s: %w", envPath, err)
	}

	lookup := func(key string) string {
		return firstNonEmpty(os.Getenv(key), values[key])
	}

	cfg := Config{
		Port:                 8080,
		LogLevel:             "info",
		DefaultPaymentMethod: "Dinheiro",
	}
	if portRaw := lookup("PORT"); portRaw != "" {
		port, err := strconv.Atoi(portRaw)
		if err != nil || port <= 0 {
			return Config{}, fmt.Errorf("invalid PORT: %q", portRaw)
		}
		cfg.Port = port
	}

	cfg.DatabaseURL = lookup("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required (environment variable or .env)")
	}

	if level := lookup("LOG_LEVEL"); level != "" {
		cfg.LogLevel = strings.ToLower(level)
	}
	cfg.KeywordsFile = lookup("KEYWORDS_FILE")
	if method := lookup("DEFAULT_PAYMENT_METHOD"); method != "" {
		cfg.DefaultPaymentMethod = method
	}

	return cfg, nil
}

func firstNonEmpty(candidates ...string) string {
	for _, candidate := range candidates {
		if value := strings.TrimSpace(candidate); value != "" {
			return value
		}
	}
	return ""
}
