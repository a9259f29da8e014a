package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration
	QueryTimeout    time.Duration
	Environment     string

	// Data
	DataDir          string
	TaipeiFile       string
	NewTaipeiFile    string
	CacheEnabled     bool
	CacheTTL         time.Duration
	CurrentYear      int
	DefaultSpanYears int

	// Object storage (optional)
	ObjectEndpoint  string
	ObjectAccessKey string
	ObjectSecretKey string
	ObjectBucket    string
	ObjectPrefix    string

	// Charts; LINE chart images are uploaded to object storage
	ChartFontPath string        // TrueType font with CJK glyphs, optional
	ChartURLTTL   time.Duration // lifetime of presigned chart URLs

	// LLM
	GeminiAPIKey   string
	GroqAPIKey     string
	CerebrasAPIKey string
	LLMProviders   []string
	GeminiModels   []string
	GroqModels     []string
	CerebrasModels []string
	LLMMaxAttempts int

	// Scraper
	ScraperTimeout     time.Duration
	ScraperMaxRetries  int
	ScraperRPS         float64
	ScraperMaxListings int

	// Conversation memory; empty path keeps history in process memory
	MemoryPath       string
	MemoryMaxHistory int
	MemoryRetention  time.Duration

	// Per-session rate limit
	SessionRateBurst  float64
	SessionRateRefill float64

	// LINE (optional front-end)
	LineChannelSecret string
	LineChannelToken  string
	LineMultiTool     bool // answer LINE messages with the multi-tool pipeline

	// Metrics endpoint basic auth; empty password leaves /metrics open
	MetricsUsername string
	MetricsPassword string

	// Better Stack
	BetterStackLogToken    string
	BetterStackLogEndpoint string
	ErrorTrackingToken     string
	ErrorTrackingHost      string
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv(EnvPort, "10000"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, GracefulShutdown),
		QueryTimeout:    getDurationEnv(EnvQueryTimeout, QueryProcessing),
		Environment:     getEnv(EnvEnvironment, "production"),

		DataDir:          getEnv(EnvDataDir, "./data"),
		TaipeiFile:       getEnv(EnvTaipeiFile, "TP_Sales.csv"),
		NewTaipeiFile:    getEnv(EnvNewTaipeiFile, "NTP_Sales.csv"),
		CacheEnabled:     getBoolEnv(EnvCacheEnabled, false),
		CacheTTL:         getDurationEnv(EnvCacheTTL, time.Hour),
		CurrentYear:      getIntEnv(EnvCurrentYear, 2025),
		DefaultSpanYears: getIntEnv(EnvDefaultSpanYears, 10),

		ObjectEndpoint:  getEnv(EnvObjectEndpoint, ""),
		ObjectAccessKey: getEnv(EnvObjectAccessKey, ""),
		ObjectSecretKey: getEnv(EnvObjectSecretKey, ""),
		ObjectBucket:    getEnv(EnvObjectBucket, ""),
		ObjectPrefix:    getEnv(EnvObjectPrefix, ""),

		ChartFontPath: getEnv(EnvChartFontPath, ""),
		ChartURLTTL:   getDurationEnv(EnvChartURLTTL, 24*time.Hour),

		GeminiAPIKey:   getEnv(EnvGeminiAPIKey, ""),
		GroqAPIKey:     getEnv(EnvGroqAPIKey, ""),
		CerebrasAPIKey: getEnv(EnvCerebrasAPIKey, ""),
		LLMProviders:   getListEnv(EnvLLMProviders, []string{"gemini", "groq", "cerebras"}),
		GeminiModels:   getListEnv(EnvGeminiModels, nil),
		GroqModels:     getListEnv(EnvGroqModels, nil),
		CerebrasModels: getListEnv(EnvCerebrasModels, nil),
		LLMMaxAttempts: getIntEnv(EnvLLMMaxAttempts, 2),

		ScraperTimeout:     getDurationEnv(EnvScraperTimeout, ScraperRequest),
		ScraperMaxRetries:  getIntEnv(EnvScraperMaxRetries, 2),
		ScraperRPS:         getFloatEnv(EnvScraperRPS, 1),
		ScraperMaxListings: getIntEnv(EnvScraperMaxListings, 10),

		MemoryPath:       getEnv(EnvMemoryPath, ""),
		MemoryMaxHistory: getIntEnv(EnvMemoryMaxHistory, 10),
		MemoryRetention:  getDurationEnv(EnvMemoryRetention, 7*24*time.Hour),

		SessionRateBurst:  getFloatEnv(EnvSessionRateBurst, 6),
		SessionRateRefill: getFloatEnv(EnvSessionRateRefill, 1.0/10.0),

		LineChannelSecret: getEnv(EnvLineChannelSecret, ""),
		LineChannelToken:  getEnv(EnvLineChannelAccessToken, ""),
		LineMultiTool:     getBoolEnv(EnvLineMultiTool, false),

		MetricsUsername: getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword: getEnv(EnvMetricsPassword, ""),

		BetterStackLogToken:    getEnv(EnvBetterStackLogToken, ""),
		BetterStackLogEndpoint: getEnv(EnvBetterStackLogEndpoint, ""),
		ErrorTrackingToken:     getEnv(EnvErrorTrackingToken, ""),
		ErrorTrackingHost:      getEnv(EnvErrorTrackingHost, ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration consistency and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if _, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Errorf("%s must be numeric, got %q", EnvPort, c.Port))
	}
	if c.DataDir == "" && !c.HasObjectStore() {
		errs = append(errs, fmt.Errorf("%s is required without object storage", EnvDataDir))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvCacheTTL, c.CacheTTL))
	}
	if c.CurrentYear < 1990 || c.CurrentYear > 2100 {
		errs = append(errs, fmt.Errorf("%s out of range: %d", EnvCurrentYear, c.CurrentYear))
	}
	if c.DefaultSpanYears < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1, got %d", EnvDefaultSpanYears, c.DefaultSpanYears))
	}
	if c.QueryTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvQueryTimeout, c.QueryTimeout))
	}
	if c.ScraperTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvScraperTimeout, c.ScraperTimeout))
	}
	if c.ScraperMaxRetries < 0 {
		errs = append(errs, fmt.Errorf("%s cannot be negative, got %d", EnvScraperMaxRetries, c.ScraperMaxRetries))
	}
	if c.ScraperRPS <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvScraperRPS, c.ScraperRPS))
	}
	if c.LLMMaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1, got %d", EnvLLMMaxAttempts, c.LLMMaxAttempts))
	}
	if c.SessionRateBurst < 1 || c.SessionRateRefill <= 0 {
		errs = append(errs, errors.New("session rate limit requires burst >= 1 and positive refill"))
	}
	if (c.LineChannelSecret == "") != (c.LineChannelToken == "") {
		errs = append(errs, fmt.Errorf("%s and %s must be set together", EnvLineChannelSecret, EnvLineChannelAccessToken))
	}
	objectFields := []string{c.ObjectEndpoint, c.ObjectAccessKey, c.ObjectSecretKey, c.ObjectBucket}
	set := 0
	for _, f := range objectFields {
		if f != "" {
			set++
		}
	}
	if set != 0 && set != len(objectFields) {
		errs = append(errs, errors.New("object storage requires endpoint, access key, secret key and bucket"))
	}
	// SigV4 presigned URLs are valid for at most seven days.
	if c.HasObjectStore() && (c.ChartURLTTL <= 0 || c.ChartURLTTL > 7*24*time.Hour) {
		errs = append(errs, fmt.Errorf("%s must be between 1s and 168h, got %v", EnvChartURLTTL, c.ChartURLTTL))
	}
	if c.ErrorTrackingToken != "" && c.ErrorTrackingHost == "" {
		errs = append(errs, fmt.Errorf("%s is required when %s is set", EnvErrorTrackingHost, EnvErrorTrackingToken))
	}

	return errors.Join(errs...)
}

// HasObjectStore reports whether transaction files come from object storage.
func (c *Config) HasObjectStore() bool {
	return c.ObjectEndpoint != "" && c.ObjectBucket != ""
}

// HasLLMProvider returns true if at least one LLM provider is configured.
func (c *Config) HasLLMProvider() bool {
	return c.GeminiAPIKey != "" || c.GroqAPIKey != "" || c.CerebrasAPIKey != ""
}

// LineEnabled reports whether the LINE webhook should be mounted.
func (c *Config) LineEnabled() bool {
	return c.LineChannelSecret != "" && c.LineChannelToken != ""
}

// MetricsAuthEnabled reports whether /metrics requires basic auth.
func (c *Config) MetricsAuthEnabled() bool {
	return c.MetricsPassword != ""
}

// MemoryDSN returns the sqlite path for conversation memory, resolving
// relative paths against DataDir.
func (c *Config) MemoryDSN() string {
	if c.MemoryPath == "" || c.MemoryPath == ":memory:" || filepath.IsAbs(c.MemoryPath) {
		return c.MemoryPath
	}
	return filepath.Join(c.DataDir, c.MemoryPath)
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getBoolEnv retrieves boolean environment variable with fallback to default value
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value.
// Bare integers are read as seconds.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getListEnv splits a comma separated variable, dropping blanks.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for part := range strings.SplitSeq(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
