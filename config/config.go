package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingAPIKey is returned when no completion API credential is configured.
var ErrMissingAPIKey = errors.New("GROQ_API_KEY is not set")

type Config struct {
	AppPort     string
	AppEnv      string
	GinMode     string
	DatabaseURL string
	JWTSecret   string
	JWTExpiry   time.Duration

	// CORSAllowedOrigins lists browser origins; "*" allows any.
	CORSAllowedOrigins []string

	LLM       LLMConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
}

// LLMConfig configures the outbound chat-completion client.
type LLMConfig struct {
	APIKey  string
	APIURL  string
	Model   string
	Timeout time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

type RateLimitConfig struct {
	AskLimit   int
	AuthLimit  int
	WindowSize time.Duration
}

const (
	DefaultAPIURL  = "https://api.groq.com/openai/v1/chat/completions"
	DefaultModel   = "openai/gpt-oss-120b"
	DefaultTimeout = 30 * time.Second
)

// Load reads configuration from the environment, loading .env first if it
// exists, and fails when the completion API key is missing.
func Load() (*Config, error) {
	cfg := LoadUnchecked()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadUnchecked is Load without validation, for tools that never call the
// completion API.
func LoadUnchecked() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	return FromEnv()
}

func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// FromEnv builds the configuration from the current process environment.
func FromEnv() *Config {
	cfg := &Config{
		AppPort:            getEnv("APP_PORT", "8080"),
		AppEnv:             getEnv("APP_ENV", "development"),
		GinMode:            getEnv("GIN_MODE", "debug"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		JWTSecret:          getEnv("JWT_SECRET", "change-me"),
		JWTExpiry:          time.Duration(getEnvAsInt("JWT_EXPIRY_MIN", 60)) * time.Minute,
		CORSAllowedOrigins: strings.Split(getEnv("CORS_ALLOWED_ORIGINS", "*"), ","),
		LLM: LLMConfig{
			APIKey:  getEnv("GROQ_API_KEY", ""),
			APIURL:  getEnv("GROQ_API_URL", DefaultAPIURL),
			Model:   getEnv("GROQ_MODEL", DefaultModel),
			Timeout: getEnvAsDuration("GROQ_TIMEOUT", DefaultTimeout),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			AskLimit:   getEnvAsInt("RATE_LIMIT_ASK", 20),
			AuthLimit:  getEnvAsInt("RATE_LIMIT_AUTH", 5),
			WindowSize: time.Minute,
		},
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", "postgres"),
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_NAME", "convolab"),
		)
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("45s") or a bare number of seconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
