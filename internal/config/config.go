package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port    string
	Version string

	RedisURL           string
	CacheTTLMarket     time.Duration
	CacheTTLMarketHard time.Duration
	CacheMaxEntries    int
	CacheSweepInterval time.Duration

	MarketTimeout    time.Duration
	AITimeout        time.Duration
	ShutdownTimeout  time.Duration
	CoinGeckoBaseURL string
	CoinGeckoAPIKey  string
	MaxCoinIDs       int

	GeminiAPIKey  string
	GeminiBaseURL string
	GeminiModel   string

	LessonCacheFile     string
	LessonGenerateDelay time.Duration
	QuizDBPath          string

	RateLimitPerMin          int
	RateLimitWindow          time.Duration
	RateLimitChatMax         int
	RateLimitPatternsMax     int
	RateLimitTrustRemoteAddr bool
	MaxMessageLength         int

	CircuitFailLimit int
	CircuitCooldown  time.Duration
}

func Load() Config {
	return Config{
		Port:    getEnv("PORT", "8080"),
		Version: os.Getenv("SERVICE_VERSION"),

		RedisURL:           os.Getenv("REDIS_URL"),
		CacheTTLMarket:     getEnvDuration("CACHE_TTL_MARKET", 60*time.Second),
		CacheTTLMarketHard: getEnvDuration("CACHE_TTL_MARKET_STALE", time.Hour),
		CacheMaxEntries:    getEnvInt("CACHE_MAX_ENTRIES", 1000),
		CacheSweepInterval: getEnvDuration("CACHE_SWEEP_INTERVAL", 60*time.Second),

		MarketTimeout:    getEnvDuration("MARKET_TIMEOUT", 12*time.Second),
		AITimeout:        getEnvDuration("AI_TIMEOUT", 30*time.Second),
		ShutdownTimeout:  getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		CoinGeckoBaseURL: getEnv("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3"),
		CoinGeckoAPIKey:  os.Getenv("COINGECKO_API_KEY"),
		MaxCoinIDs:       getEnvInt("MAX_COIN_IDS", 50),

		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		LessonCacheFile:     getEnv("LESSON_CACHE_FILE", "data/lessons/cached-content.json"),
		LessonGenerateDelay: getEnvDuration("LESSON_GENERATE_DELAY", 2*time.Second),
		QuizDBPath:          getEnvOptional("QUIZ_DB_PATH", "data/coincoach.db"),

		RateLimitPerMin:          getEnvInt("RATE_LIMIT_PER_MIN", 120),
		RateLimitWindow:          getEnvDuration("RATE_LIMIT_WINDOW", 60*time.Second),
		RateLimitChatMax:         getEnvInt("RATE_LIMIT_CHAT_MAX", 20),
		RateLimitPatternsMax:     getEnvInt("RATE_LIMIT_PATTERNS_MAX", 10),
		RateLimitTrustRemoteAddr: getEnvBool("RATE_LIMIT_TRUST_REMOTE_ADDR", false),
		MaxMessageLength:         getEnvInt("MAX_MESSAGE_LENGTH", 2000),

		CircuitFailLimit: getEnvInt("CIRCUIT_FAIL_LIMIT", 3),
		CircuitCooldown:  getEnvDuration("CIRCUIT_COOLDOWN", 20*time.Second),
	}
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

// getEnvOptional distinguishes an unset variable (default) from one set to
// the empty string, which disables the feature.
func getEnvOptional(key, def string) string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	return strings.TrimSpace(v)
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getEnvBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "":
		return def
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return time.Duration(i) * time.Second
}
