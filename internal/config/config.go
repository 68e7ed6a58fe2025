package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port        string
	Env         string
	LogLevel    string
	DatabaseURL string

	// DatabaseMaxConns caps the pgx pool; zero keeps the pgxpool default.
	DatabaseMaxConns int

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Supabase (identity service)
	SupabaseURL            string
	SupabaseAnonKey        string
	SupabaseServiceRoleKey string
	SupabaseJWTSecret      string

	SessionCookieName    string
	SessionTTL           time.Duration
	TokenRefreshInterval time.Duration
	CORSAllowedOrigins   []string

	// Booking policy
	BookingWindowDays    int
	BookingClosedWeekday int
	BookingTimezone      string
	SlotMinutes          int

	// SendGrid Email Configuration
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SalonName         string
	SalonNotifyEmail  string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	ServiceImagesBucket string

	RateLimitRPS   float64
	RateLimitBurst int

	OutboxPollInterval time.Duration
}

var (
	ErrMissingSupabaseURL     = errors.New("config: SUPABASE_URL is required")
	ErrMissingSupabaseAnonKey = errors.New("config: SUPABASE_ANON_KEY is required")
)

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		DatabaseMaxConns: getEnvAsInt("DATABASE_MAX_CONNS", 10),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		SupabaseURL:            strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
		SupabaseAnonKey:        getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceRoleKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
		SupabaseJWTSecret:      getEnv("SUPABASE_JWT_SECRET", ""),

		SessionCookieName:    getEnv("SESSION_COOKIE_NAME", "salon_session"),
		SessionTTL:           getEnvAsDuration("SESSION_TTL", 7*24*time.Hour),
		TokenRefreshInterval: getEnvAsDuration("TOKEN_REFRESH_INTERVAL", time.Minute),
		CORSAllowedOrigins:   getEnvAsList("CORS_ALLOWED_ORIGINS", nil),

		BookingWindowDays:    getEnvAsInt("BOOKING_WINDOW_DAYS", 60),
		BookingClosedWeekday: getEnvAsInt("BOOKING_CLOSED_WEEKDAY", int(time.Sunday)),
		BookingTimezone:      getEnv("BOOKING_TIMEZONE", "UTC"),
		SlotMinutes:          30,

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Nail Salon"),
		SalonName:         getEnv("SALON_NAME", "Nail Salon"),
		SalonNotifyEmail:  getEnv("SALON_NOTIFY_EMAIL", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		ServiceImagesBucket: getEnv("SERVICE_IMAGES_BUCKET", ""),

		RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 20),

		OutboxPollInterval: getEnvAsDuration("OUTBOX_POLL_INTERVAL", 5*time.Second),
	}
}

// Validate reports missing or invalid required settings. The service cannot
// start without the identity service coordinates.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.SupabaseURL) == "" {
		errs = append(errs, ErrMissingSupabaseURL)
	}
	if strings.TrimSpace(c.SupabaseAnonKey) == "" {
		errs = append(errs, ErrMissingSupabaseAnonKey)
	}
	if c.BookingClosedWeekday < -1 || c.BookingClosedWeekday > 6 {
		errs = append(errs, fmt.Errorf("config: BOOKING_CLOSED_WEEKDAY must be -1..6, got %d", c.BookingClosedWeekday))
	}
	if c.BookingWindowDays <= 0 {
		errs = append(errs, fmt.Errorf("config: BOOKING_WINDOW_DAYS must be positive, got %d", c.BookingWindowDays))
	}
	if _, err := time.LoadLocation(c.BookingTimezone); err != nil {
		errs = append(errs, fmt.Errorf("config: BOOKING_TIMEZONE: %w", err))
	}
	return errors.Join(errs...)
}

// Location returns the salon's timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.BookingTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
