package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all client configuration.
type Config struct {
	APIBaseURL  string
	HTTPTimeout time.Duration
	TokenPath   string
	HistoryPath string
	LogLevel    string
	LogFormat   string
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load() // .env is optional

	return &Config{
		APIBaseURL:  getEnv("PREPTARA_API_URL", "http://127.0.0.1:8000"),
		HTTPTimeout: time.Duration(getEnvInt("PREPTARA_HTTP_TIMEOUT_SECONDS", 10)) * time.Second,
		TokenPath:   getEnv("PREPTARA_TOKEN_PATH", dataPath("token.json")),
		HistoryPath: getEnv("PREPTARA_HISTORY_PATH", dataPath("history.db")),
		LogLevel:    getEnv("LOG_LEVEL", "warn"),
		LogFormat:   getEnv("LOG_FORMAT", "pretty"),
	}
}

// dataPath resolves a file name inside the per-user data directory.
// Falls back to the working directory when the home directory is unknown.
func dataPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, ".preptara", name)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
