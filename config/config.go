package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"quranreels/models"
)

// TimingConfig is the immutable set of thresholds passed into every core call.
type TimingConfig struct {
	MaxCharsPerPage     int
	MinPageDurationMs   int64
	TitleCardDurationMs int64
	TranslationDelayMs  int64
}

// DefaultTiming returns the timing thresholds used when nothing is configured.
func DefaultTiming() TimingConfig {
	return TimingConfig{
		MaxCharsPerPage:     120,
		MinPageDurationMs:   2500,
		TitleCardDurationMs: 2500,
		TranslationDelayMs:  0,
	}
}

// Validate checks the thresholds are usable by the segmenter and allocator.
func (t TimingConfig) Validate() error {
	if t.MaxCharsPerPage <= 0 {
		return fmt.Errorf("%w: MAX_CHARS_PER_PAGE must be positive", models.ErrInvalidConfig)
	}
	if t.MinPageDurationMs < 0 {
		return fmt.Errorf("%w: MIN_PAGE_DURATION_MS must not be negative", models.ErrInvalidConfig)
	}
	if t.TitleCardDurationMs <= 0 {
		return fmt.Errorf("%w: TITLE_CARD_DURATION_MS must be positive", models.ErrInvalidConfig)
	}
	if t.TranslationDelayMs < 0 {
		return fmt.Errorf("%w: TRANSLATION_DELAY_MS must not be negative", models.ErrInvalidConfig)
	}
	return nil
}

// Config holds all application configuration
type Config struct {
	// Server
	Port    string
	TempDir string
	LogMode string

	Timing TimingConfig

	// Providers
	QuranAPIBaseURL       string
	TranslationAPIBaseURL string
	QuranAPIKeys          []string
	RecitationBaseURL     string
	DefaultQari           string
	DefaultLanguage       string
	HTTPTimeout           time.Duration

	// Cache
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// Series
	SeriesConcurrency int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:    getEnv("PORT", "8080"),
		TempDir: getEnv("TEMP_DIR", "./temp"),
		LogMode: getEnv("LOG_MODE", "development"),

		Timing: TimingConfig{
			MaxCharsPerPage:     getEnvAsInt("MAX_CHARS_PER_PAGE", 120),
			MinPageDurationMs:   int64(getEnvAsInt("MIN_PAGE_DURATION_MS", 2500)),
			TitleCardDurationMs: int64(getEnvAsInt("TITLE_CARD_DURATION_MS", 2500)),
			TranslationDelayMs:  int64(getEnvAsInt("TRANSLATION_DELAY_MS", 0)),
		},

		QuranAPIBaseURL:       getEnv("QURAN_API_BASE_URL", "https://api.quran.com/api/v4"),
		TranslationAPIBaseURL: getEnv("TRANSLATION_API_BASE_URL", "https://api.qurancdn.com/api/qdc"),
		QuranAPIKeys:          parseAPIKeys(getEnv("QURAN_API_KEYS", "")),
		RecitationBaseURL:     getEnv("RECITATION_BASE_URL", "https://everyayah.com/data"),
		DefaultQari:           getEnv("DEFAULT_QARI", "mishary"),
		DefaultLanguage:       getEnv("DEFAULT_LANGUAGE", "en"),
		HTTPTimeout:           time.Duration(getEnvAsInt("HTTP_TIMEOUT_SECONDS", 30)) * time.Second,

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		CacheTTL:      time.Duration(getEnvAsInt("CACHE_TTL_SECONDS", 86400)) * time.Second,

		SeriesConcurrency: getEnvAsInt("SERIES_CONCURRENCY", 3),
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if err := c.Timing.Validate(); err != nil {
		return err
	}
	if c.SeriesConcurrency <= 0 {
		return errors.New("SERIES_CONCURRENCY must be positive")
	}
	if c.HTTPTimeout <= 0 {
		return errors.New("HTTP_TIMEOUT_SECONDS must be positive")
	}
	if c.QuranAPIBaseURL == "" || c.TranslationAPIBaseURL == "" || c.RecitationBaseURL == "" {
		return errors.New("provider base URLs are required")
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
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

func parseAPIKeys(keysStr string) []string {
	if keysStr == "" {
		return []string{}
	}
	keys := strings.Split(keysStr, ",")
	result := make([]string, 0, len(keys))
	for _, key := range keys {
		trimmed := strings.TrimSpace(key)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func (c *Config) String() string {
	return fmt.Sprintf("Config{Port: %s, MaxChars: %d, MinPageMs: %d, TitleCardMs: %d, Concurrency: %d, Cache: %t}",
		c.Port, c.Timing.MaxCharsPerPage, c.Timing.MinPageDurationMs, c.Timing.TitleCardDurationMs,
		c.SeriesConcurrency, c.RedisAddr != "")
}
