// Package config defines environment variable keys for configuration.
package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Server
	EnvPort            = "REA_PORT"
	EnvLogLevel        = "REA_LOG_LEVEL"
	EnvShutdownTimeout = "REA_SHUTDOWN_TIMEOUT"
	EnvQueryTimeout    = "REA_QUERY_TIMEOUT"

	// Data
	EnvDataDir          = "REA_DATA_DIR"
	EnvTaipeiFile       = "REA_TAIPEI_FILE"
	EnvNewTaipeiFile    = "REA_NEW_TAIPEI_FILE"
	EnvCacheEnabled     = "REA_CACHE_ENABLED"
	EnvCacheTTL         = "REA_CACHE_TTL"
	EnvCurrentYear      = "REA_CURRENT_YEAR"
	EnvDefaultSpanYears = "REA_DEFAULT_SPAN_YEARS"

	// Object storage (optional remote data source, S3 compatible)
	EnvObjectEndpoint  = "REA_OBJECT_ENDPOINT"
	EnvObjectAccessKey = "REA_OBJECT_ACCESS_KEY_ID"
	EnvObjectSecretKey = "REA_OBJECT_SECRET_ACCESS_KEY"
	EnvObjectBucket    = "REA_OBJECT_BUCKET"
	EnvObjectPrefix    = "REA_OBJECT_PREFIX"

	// Charts
	EnvChartFontPath = "REA_CHART_FONT"
	EnvChartURLTTL   = "REA_CHART_URL_TTL"

	// LLM
	EnvGeminiAPIKey   = "GEMINI_API_KEY"
	EnvGroqAPIKey     = "GROQ_API_KEY"
	EnvCerebrasAPIKey = "CEREBRAS_API_KEY"
	EnvLLMProviders   = "REA_LLM_PROVIDERS"
	EnvGeminiModels   = "REA_GEMINI_MODELS"
	EnvGroqModels     = "REA_GROQ_MODELS"
	EnvCerebrasModels = "REA_CEREBRAS_MODELS"
	EnvLLMMaxAttempts = "REA_LLM_MAX_ATTEMPTS"

	// Scraper
	EnvScraperTimeout     = "REA_SCRAPER_TIMEOUT"
	EnvScraperMaxRetries  = "REA_SCRAPER_MAX_RETRIES"
	EnvScraperRPS         = "REA_SCRAPER_RPS"
	EnvScraperMaxListings = "REA_SCRAPER_MAX_LISTINGS"

	// Conversation memory
	EnvMemoryPath       = "REA_MEMORY_PATH"
	EnvMemoryRetention  = "REA_MEMORY_RETENTION"
	EnvMemoryMaxHistory = "REA_MEMORY_MAX_HISTORY"

	// Rate limits
	EnvSessionRateBurst  = "REA_SESSION_RATE_BURST"
	EnvSessionRateRefill = "REA_SESSION_RATE_REFILL"

	// LINE
	EnvLineChannelSecret      = "LINE_CHANNEL_SECRET"
	EnvLineChannelAccessToken = "LINE_CHANNEL_ACCESS_TOKEN"
	EnvLineMultiTool          = "REA_LINE_MULTI_TOOL"

	// Metrics
	EnvMetricsUsername = "REA_METRICS_USERNAME"
	EnvMetricsPassword = "REA_METRICS_PASSWORD"

	// Better Stack
	EnvBetterStackLogToken    = "BETTERSTACK_LOG_TOKEN"
	EnvBetterStackLogEndpoint = "BETTERSTACK_LOG_ENDPOINT"
	EnvErrorTrackingToken     = "BETTERSTACK_ERRORS_TOKEN"
	EnvErrorTrackingHost      = "BETTERSTACK_ERRORS_HOST"
	EnvEnvironment            = "REA_ENVIRONMENT"
)
