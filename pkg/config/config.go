package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// Every environment variable is read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External APIs
	Polygon PolygonConfig
	OpenAI  OpenAIConfig
	Finviz  FinvizConfig

	// Pipeline
	Scan     ScanConfig
	Universe UniverseConfig
	Outcome  OutcomeConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	URL string

	// Connection pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// PolygonConfig holds market data provider configuration.
type PolygonConfig struct {
	APIKey            string
	BaseURL           string
	RequestsPerSecond int
	Timeout           time.Duration
}

// OpenAIConfig holds the ranker collaborator configuration.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// FinvizConfig holds the screener scraper configuration.
type FinvizConfig struct {
	BaseURL string
	Enabled bool
}

// ScanConfig holds scan orchestrator settings.
type ScanConfig struct {
	BatchSize        int
	MinPerSector     int
	MaxPerSector     int
	LookbackDays     int
	MinBars          int
	PromoteThreshold float64
	HorizonDays      int
	ModelPath        string
	Timeframe        string

	// Trading window, evaluated in Timezone
	Timezone    string
	WindowOpen  string // "HH:MM"
	WindowClose string // "HH:MM"

	// Scan cadence, also the width of a window tag bucket
	Interval time.Duration
}

// UniverseConfig holds universe selection filters and score weights.
type UniverseConfig struct {
	MinMarketCap float64
	MinPrice     float64
	MaxPrice     float64
	AvgVolFloor  float64
	HistoryLimit int // top-N by raw volume eligible for avg-volume lookups
	UniverseTTL  time.Duration
	PrevCloseTTL time.Duration
	AvgVolTTL    time.Duration
	WeightMove   float64
	WeightRelVol float64
	WeightGap    float64
}

// OutcomeConfig holds outcome tracker settings.
type OutcomeConfig struct {
	CheckInterval time.Duration
}

// Load reads configuration from environment variables.
// This is the only function that calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},

		Polygon: PolygonConfig{
			APIKey:            getEnv("POLYGON_API_KEY", ""),
			BaseURL:           getEnv("POLYGON_BASE_URL", "https://api.polygon.io"),
			RequestsPerSecond: getEnvAsInt("POLYGON_RPS", 5),
			Timeout:           getEnvAsDuration("POLYGON_TIMEOUT", "30s"),
		},

		OpenAI: OpenAIConfig{
			APIKey:  getEnv("OPENAI_API_KEY", ""),
			BaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:   getEnv("OPENAI_MODEL", "gpt-4-turbo"),
			Timeout: getEnvAsDuration("OPENAI_TIMEOUT", "60s"),
		},

		Finviz: FinvizConfig{
			BaseURL: getEnv("FINVIZ_BASE_URL", "https://finviz.com"),
			Enabled: getEnvAsBool("FINVIZ_ENABLED", false),
		},

		Scan: ScanConfig{
			BatchSize:        getEnvAsInt("SCAN_BATCH_SIZE", 40),
			MinPerSector:     getEnvAsInt("SCAN_MIN_PER_SECTOR", 2),
			MaxPerSector:     getEnvAsInt("SCAN_MAX_PER_SECTOR", 120),
			LookbackDays:     getEnvAsInt("SCAN_LOOKBACK_DAYS", 90),
			MinBars:          getEnvAsInt("SCAN_MIN_BARS", 30),
			PromoteThreshold: getEnvAsFloat("SCAN_PROMOTE_THRESHOLD", 0.8),
			HorizonDays:      getEnvAsInt("SCAN_HORIZON_DAYS", 5),
			ModelPath:        getEnv("SCAN_MODEL_PATH", "models/stock_model.json"),
			Timeframe:        getEnv("SCAN_TIMEFRAME", "1d"),
			Timezone:         getEnv("SCAN_TIMEZONE", "Europe/London"),
			WindowOpen:       getEnv("SCAN_WINDOW_OPEN", "14:30"),
			WindowClose:      getEnv("SCAN_WINDOW_CLOSE", "21:00"),
			Interval:         getEnvAsDuration("SCAN_INTERVAL", "30m"),
		},

		Universe: UniverseConfig{
			MinMarketCap: getEnvAsFloat("UNIVERSE_MIN_MARKET_CAP", 300_000_000),
			MinPrice:     getEnvAsFloat("UNIVERSE_MIN_PRICE", 2.0),
			MaxPrice:     getEnvAsFloat("UNIVERSE_MAX_PRICE", 500.0),
			AvgVolFloor:  getEnvAsFloat("UNIVERSE_AVG_VOL_FLOOR", 500_000),
			HistoryLimit: getEnvAsInt("UNIVERSE_HISTORY_LIMIT", 1500),
			UniverseTTL:  getEnvAsDuration("UNIVERSE_TTL", "10m"),
			PrevCloseTTL: getEnvAsDuration("UNIVERSE_PREV_CLOSE_TTL", "6h"),
			AvgVolTTL:    getEnvAsDuration("UNIVERSE_AVG_VOL_TTL", "12h"),
			WeightMove:   getEnvAsFloat("UNIVERSE_WEIGHT_MOVE", 0.55),
			WeightRelVol: getEnvAsFloat("UNIVERSE_WEIGHT_RELVOL", 0.35),
			WeightGap:    getEnvAsFloat("UNIVERSE_WEIGHT_GAP", 0.10),
		},

		Outcome: OutcomeConfig{
			CheckInterval: getEnvAsDuration("OUTCOME_CHECK_INTERVAL", "1h"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set.
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Polygon.APIKey == "" {
		return fmt.Errorf("POLYGON_API_KEY is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if _, err := time.LoadLocation(c.Scan.Timezone); err != nil {
		return fmt.Errorf("SCAN_TIMEZONE is invalid: %w", err)
	}

	for name, v := range map[string]string{
		"SCAN_WINDOW_OPEN":  c.Scan.WindowOpen,
		"SCAN_WINDOW_CLOSE": c.Scan.WindowClose,
	} {
		if !validClock(v) {
			return fmt.Errorf("%s must be HH:MM, got %q", name, v)
		}
	}

	return nil
}

func validClock(v string) bool {
	parts := strings.SplitN(v, ":", 2)
	if len(parts) != 2 {
		return false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return false
	}
	return true
}

// loadEnvFile tries to load .env from multiple locations.
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
