package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"revforecast/internal/crm"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// ForecastConfig holds the simulation defaults.
type ForecastConfig struct {
	Trials   int
	Workers  int
	TopDeals int
	Seed     int64 // 0 = seeded from the clock
}

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Backend     crm.Config
	Forecast    ForecastConfig
	HTTPAddr    string
	CORSOrigins []string
	DataPath    string
	LogDir      string
	HistoryDir  string
}

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	// 1. Try to load from the executable's directory (highest priority for MCP servers)
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// 2. Fallback to current working directory (useful for development/go run)
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	return fromEnv(exeDir), nil
}

// fromEnv builds the configuration from the process environment.
func fromEnv(exeDir string) *AppConfig {
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		if exeDir != "" {
			dataPath = exeDir
		} else {
			dataPath = "."
		}
	}

	logDir := getEnv("LOGS_FOLDER", filepath.Join(dataPath, "logs"))
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.Warn().Err(err).Str("path", logDir).Msg("Failed to create log directory")
	}

	// An empty history directory keeps forecast history in memory only.
	historyDir := ""
	if getEnvBool("FORECAST_HISTORY_PERSIST", true) {
		historyDir = filepath.Join(dataPath, "history")
		if err := os.MkdirAll(historyDir, 0755); err != nil {
			log.Warn().Err(err).Str("path", historyDir).Msg("Failed to create history directory")
		}
	}

	return &AppConfig{
		Backend: crm.Config{
			BaseURL:        getEnv("BACKEND_URL", "http://localhost:3001"),
			Token:          getEnv("BACKEND_TOKEN", ""),
			Timeout:        time.Duration(getEnvInt("BACKEND_TIMEOUT_SECONDS", 30)) * time.Second,
			RequestsPerSec: getEnvInt("BACKEND_REQUESTS_PER_SECOND", 5),
		},
		Forecast: ForecastConfig{
			Trials:   getEnvInt("FORECAST_TRIALS", 10000),
			Workers:  getEnvInt("FORECAST_WORKERS", 0),
			TopDeals: getEnvInt("FORECAST_TOP_DEALS", 20),
			Seed:     int64(getEnvInt("FORECAST_SEED", 0)),
		},
		HTTPAddr:    getEnv("HTTP_ADDR", ":8000"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "")),
		DataPath:    dataPath,
		LogDir:      logDir,
		HistoryDir:  historyDir,
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if intVal, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intVal
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-integer configuration value")
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
