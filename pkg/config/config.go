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

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	Database DatabaseConfig
	Redis    RedisConfig

	Scoring   ScoringConfig
	Strategy  StrategyConfig
	Backtest  BacktestConfig
	Scheduler SchedulerConfig
	RateLimit RateLimitConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	Prefix   string
}

// ScoringConfig controls the composite score batch
type ScoringConfig struct {
	IndexCodes          []string // market indices feeding the market multiplier
	FetchWorkers        int
	AvailableDatesLimit int
}

// StrategyConfig controls strategy result listing
type StrategyConfig struct {
	ResultLimit int
}

// BacktestConfig controls the hit-rate backtest
type BacktestConfig struct {
	MaxWindow int
	CacheTTL  time.Duration
}

// SchedulerConfig holds cron expressions (with seconds)
type SchedulerConfig struct {
	ScoreSnapshot  string
	BacktestReport string
	BacktestWindow int
}

// RateLimitConfig limits expensive API endpoints
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// DefaultIndexCodes are the tracked market indices
var DefaultIndexCodes = []string{"000001.SH", "399001.SZ", "399006.SZ", "000300.SH", "000905.SH"}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "3000"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 20),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Prefix:   getEnv("REDIS_PREFIX", "stex"),
		},

		Scoring: ScoringConfig{
			IndexCodes:          getEnvAsList("SCORING_INDEX_CODES", DefaultIndexCodes),
			FetchWorkers:        getEnvAsInt("SCORING_FETCH_WORKERS", 4),
			AvailableDatesLimit: getEnvAsInt("AVAILABLE_DATES_LIMIT", 60),
		},

		Strategy: StrategyConfig{
			ResultLimit: getEnvAsInt("STRATEGY_RESULT_LIMIT", 10000),
		},

		Backtest: BacktestConfig{
			MaxWindow: getEnvAsInt("BACKTEST_MAX_WINDOW", 60),
			CacheTTL:  getEnvAsDuration("BACKTEST_CACHE_TTL", "10m"),
		},

		Scheduler: SchedulerConfig{
			ScoreSnapshot:  getEnv("SCHEDULE_SCORE_SNAPSHOT", "0 0 18 * * 1-5"),
			BacktestReport: getEnv("SCHEDULE_BACKTEST_REPORT", "0 30 18 * * 1-5"),
			BacktestWindow: getEnvAsInt("SCHEDULE_BACKTEST_WINDOW", 20),
		},

		RateLimit: RateLimitConfig{
			RPS:   getEnvAsFloat("API_RATE_LIMIT_RPS", 2),
			Burst: getEnvAsInt("API_RATE_LIMIT_BURST", 4),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if len(c.Scoring.IndexCodes) == 0 {
		return fmt.Errorf("SCORING_INDEX_CODES must not be empty")
	}

	if c.Backtest.MaxWindow <= 0 {
		return fmt.Errorf("BACKTEST_MAX_WINDOW must be positive")
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
		"backend/.env",
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

// getEnvAsList splits a comma separated value, dropping blanks
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		out := make([]string, len(defaultValue))
		copy(out, defaultValue)
		return out
	}

	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
