package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Telegram  TelegramConfig
	Catalog   CatalogConfig
	Batch     BatchConfig
	Selection SelectionConfig
	Scheduler SchedulerConfig
}

type AppConfig struct {
	Environment      string
	LogFilePath      string
	SettingsCacheTTL time.Duration
}

type DatabaseConfig struct {
	Driver string // "sqlite3" or "postgres"
	DSN    string
}

type TelegramConfig struct {
	Token string
}

type CatalogConfig struct {
	Path         string // Imported on startup when set
	DefaultLevel string
}

type BatchConfig struct {
	Window       time.Duration
	MaxBatchSize int
	FetchTimeout time.Duration
}

type SelectionConfig struct {
	ExclusionSize int
	Seed          int64 // 0 seeds from the clock
}

type SchedulerConfig struct {
	Enabled               bool
	NotificationStartHour int
	NotificationEndHour   int
}

// IsProduction reports whether the process runs with GO_ENV=production.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.App.Environment)
	return env == "production" || env == "prod"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Environment:      getEnv("GO_ENV", "development"),
			LogFilePath:      getEnv("LOG_FILE_PATH", "logs/engdrill.log"),
			SettingsCacheTTL: time.Duration(getEnvAsInt("SETTINGS_CACHE_TTL_SEC", 300)) * time.Second,
		},
		Database: DatabaseConfig{
			Driver: getEnv("DB_TYPE", "sqlite3"),
			DSN:    getEnv("DB_DSN", ""),
		},
		Telegram: TelegramConfig{
			Token: getEnv("TELEGRAM_BOT_TOKEN", ""),
		},
		Catalog: CatalogConfig{
			Path:         getEnv("CATALOG_PATH", ""),
			DefaultLevel: getEnv("DEFAULT_LEVEL", "A1"),
		},
		Batch: BatchConfig{
			Window:       time.Duration(getEnvAsInt("BATCH_WINDOW_MS", 10)) * time.Millisecond,
			MaxBatchSize: getEnvAsInt("BATCH_MAX_SIZE", 100),
			FetchTimeout: time.Duration(getEnvAsInt("BATCH_FETCH_TIMEOUT_MS", 5000)) * time.Millisecond,
		},
		Selection: SelectionConfig{
			ExclusionSize: getEnvAsInt("EXCLUSION_SIZE", 10),
			Seed:          getEnvAsInt64("RNG_SEED", 0),
		},
		Scheduler: SchedulerConfig{
			Enabled:               getEnvAsBool("ENABLE_SCHEDULER", true),
			NotificationStartHour: getEnvAsInt("NOTIFICATION_START_HOUR", 8),
			NotificationEndHour:   getEnvAsInt("NOTIFICATION_END_HOUR", 22),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseInt(strValue, 10, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
