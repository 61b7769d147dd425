package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Config is the process configuration, read once at startup.
type Config struct {
	DatabaseURL        string
	Port               string
	GoEnv              string
	Auth0Domain        string
	Auth0Audience      string
	JWTSecret          string
	AWSRegion          string
	AWSS3Bucket        string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	LogLevel           string
	RedisURL           string
	RateLimitPerMinute int
	CORSAllowedOrigins []string
	StoreTimezone      string

	// ReservationLookback widens reservation conflict checks backwards from the
	// candidate start. Zero disables the widening.
	ReservationLookback time.Duration
}

var appConfig *Config

// Load reads configuration from the environment, after applying
// .env.<GO_ENV> or .env when present. Real environment variables win.
func Load() (*Config, error) {
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}
	loadDotenv(env)

	lookbackMinutes, err := getEnvInt("RESERVATION_LOOKBACK_MINUTES", 120)
	if err != nil {
		return nil, err
	}
	rateLimit, err := getEnvInt("RATE_LIMIT_PER_MINUTE", 30)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		Port:                getEnv("PORT", "8080"),
		GoEnv:               getEnv("GO_ENV", "development"),
		Auth0Domain:         getEnv("AUTH0_DOMAIN", ""),
		Auth0Audience:       getEnv("AUTH0_AUDIENCE", ""),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSS3Bucket:         getEnv("AWS_S3_BUCKET", ""),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		RedisURL:            getEnv("REDIS_URL", ""),
		RateLimitPerMinute:  rateLimit,
		CORSAllowedOrigins:  splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		StoreTimezone:       getEnv("STORE_TIMEZONE", "UTC"),
		ReservationLookback: time.Duration(lookbackMinutes) * time.Minute,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	appConfig = cfg
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Auth0Domain == "" && c.JWTSecret == "" {
		return fmt.Errorf("either AUTH0_DOMAIN or JWT_SECRET is required")
	}
	if c.ReservationLookback < 0 {
		return fmt.Errorf("RESERVATION_LOOKBACK_MINUTES must not be negative")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if _, err := time.LoadLocation(c.StoreTimezone); err != nil {
		return fmt.Errorf("STORE_TIMEZONE is invalid: %w", err)
	}
	return nil
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// IsTest returns true if the application is running in test mode
func (c *Config) IsTest() bool {
	return c.GoEnv == "test"
}

// Location returns the store timezone used for day-based listings.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.StoreTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// GetConfig returns the configuration from the last successful Load.
func GetConfig() *Config {
	return appConfig
}

// loadDotenv uses the std logger since the structured one is configured
// from the values being loaded here.
func loadDotenv(env string) {
	file := ".env." + env
	if err := godotenv.Load(file); err == nil {
		log.Printf("config: loaded %s", file)
		return
	}
	if err := godotenv.Load(); err != nil {
		log.Printf("config: no .env file, using process environment")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
