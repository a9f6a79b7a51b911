package config

import (
	"os"
	"time"
)

type Config struct {
	Port        string
	Environment string
	// Store selection
	StoreBackend string // "postgres" or "memory"
	DatabaseURL  string
	TablePrefix  string
	// Session partitioning
	AppID    string
	StateDir string // device identity file and log files
	// API
	CORSOrigins   string
	SessionSecret string
	SessionTTL    time.Duration
	// Debug flags
	Debug bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:          getEnv("PORT", "8080"),
		Environment:   env,
		StoreBackend:  getEnv("STORE_BACKEND", "postgres"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		TablePrefix:   getTablePrefix(env),
		AppID:         getEnv("APP_ID", "my-local-app"),
		StateDir:      getEnv("STATE_DIR", defaultStateDir()),
		CORSOrigins:   getEnv("CORS_ORIGINS", "http://localhost:3000"),
		SessionSecret: getEnv("SESSION_SECRET", ""),
		SessionTTL:    getDuration("SESSION_TTL", 12*time.Hour),
		// Default debug on outside production
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lifelog"
	}
	return home + "/.lifelog"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
