// Package config loads hushmap configuration from the environment (and an
// optional .env file) into one explicit object that is handed to each
// component at construction time.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Environment string
	Port        string
	LogLevel    string
	LogFile     string

	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Posts     PostsConfig
	Threads   ThreadsConfig
	POI       POIConfig
	Screens   ScreenshotConfig
	RateLimit RateLimitConfig
	Telemetry TelemetryConfig
	Scheduler SchedulerConfig
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN returns DATABASE_URL when set, otherwise a key/value DSN built from the parts
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	dsn := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Name, d.SSLMode)
	if d.Password != "" {
		dsn += " password=" + d.Password
	}
	return dsn
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

// Enabled reports whether a redis host is configured
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

type PostsConfig struct {
	// RadiusMeters bounds how far a stored post coordinate may be from the author
	RadiusMeters float64
}

type ThreadsConfig struct {
	Min         int
	Max         int
	RetryBudget int
}

type POIConfig struct {
	Source            string
	FetchRadiusMeters float64
	MaxAgeDays        int
	FetchTimeout      time.Duration
	AsyncRefresh      bool
	ServeLimit        int
	ProviderRPS       float64
	OverpassURL       string
	GooglePlacesKey   string
	RulesFile         string
}

// MaxAge returns the freshness window as a duration
func (p POIConfig) MaxAge() time.Duration {
	return time.Duration(p.MaxAgeDays) * 24 * time.Hour
}

// ScreenshotConfig is the screenshot lockout policy: MaxPerWindow screenshots
// within Window lock the user out for Lockout
type ScreenshotConfig struct {
	MaxPerWindow int
	Window       time.Duration
	Lockout      time.Duration
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type TelemetryConfig struct {
	Enabled      bool
	Endpoint     string
	SamplingRate float64
}

type SchedulerConfig struct {
	Enabled              bool
	POIWarmSchedule      string
	RewardExpirySchedule string
}

// IsProduction reports whether ENVIRONMENT is production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

var defaults = map[string]interface{}{
	"ENVIRONMENT": "development",
	"PORT":        "8787",
	"LOG_LEVEL":   "info",
	"LOG_FILE":    "server.log",

	"DB_HOST":    "localhost",
	"DB_PORT":    "5432",
	"DB_USER":    "postgres",
	"DB_NAME":    "hushmap",
	"DB_SSLMODE": "disable",

	"REDIS_PORT": "6379",

	"POST_RADIUS_METERS": 200.0,

	"THREAD_ID_MIN":          1000,
	"THREAD_ID_MAX":          9999,
	"THREAD_ID_RETRY_BUDGET": 5,

	"POI_SOURCE":              "openstreetmap",
	"POI_FETCH_RADIUS_METERS": 300.0,
	"POI_MAX_AGE_DAYS":        30,
	"POI_FETCH_TIMEOUT":       "10s",
	"POI_ASYNC_REFRESH":       true,
	"POI_SERVE_LIMIT":         50,
	"POI_PROVIDER_RPS":        1.0,
	"OVERPASS_URL":            "https://overpass-api.de/api/interpreter",

	"SCREENSHOT_MAX_PER_WINDOW": 3,
	"SCREENSHOT_WINDOW":         "24h",
	"SCREENSHOT_LOCKOUT":        "24h",

	"RATE_LIMIT_REQUESTS": 120,
	"RATE_LIMIT_WINDOW":   "1m",

	"OTEL_ENABLED":       false,
	"OTEL_SAMPLING_RATE": 1.0,

	"SCHEDULER_ENABLED":      true,
	"POI_WARM_SCHEDULE":      "*/30 * * * *",
	"REWARD_EXPIRY_SCHEDULE": "0 * * * *",
}

// Load reads .env (if present) and the environment into a Config
func Load() (*Config, error) {
	// A missing .env is normal outside local development
	_ = godotenv.Load()
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return v
}

// FromViper builds a Config from an already-populated viper instance
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Environment: v.GetString("ENVIRONMENT"),
		Port:        v.GetString("PORT"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		LogFile:     v.GetString("LOG_FILE"),
		Database: DatabaseConfig{
			URL:      v.GetString("DATABASE_URL"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("JWT_SECRET"),
			Issuer:    v.GetString("JWT_ISSUER"),
		},
		Posts: PostsConfig{
			RadiusMeters: v.GetFloat64("POST_RADIUS_METERS"),
		},
		Threads: ThreadsConfig{
			Min:         v.GetInt("THREAD_ID_MIN"),
			Max:         v.GetInt("THREAD_ID_MAX"),
			RetryBudget: v.GetInt("THREAD_ID_RETRY_BUDGET"),
		},
		POI: POIConfig{
			Source:            v.GetString("POI_SOURCE"),
			FetchRadiusMeters: v.GetFloat64("POI_FETCH_RADIUS_METERS"),
			MaxAgeDays:        v.GetInt("POI_MAX_AGE_DAYS"),
			FetchTimeout:      v.GetDuration("POI_FETCH_TIMEOUT"),
			AsyncRefresh:      v.GetBool("POI_ASYNC_REFRESH"),
			ServeLimit:        v.GetInt("POI_SERVE_LIMIT"),
			ProviderRPS:       v.GetFloat64("POI_PROVIDER_RPS"),
			OverpassURL:       v.GetString("OVERPASS_URL"),
			GooglePlacesKey:   v.GetString("GOOGLE_PLACES_API_KEY"),
			RulesFile:         v.GetString("POI_CATEGORY_RULES_FILE"),
		},
		Screens: ScreenshotConfig{
			MaxPerWindow: v.GetInt("SCREENSHOT_MAX_PER_WINDOW"),
			Window:       v.GetDuration("SCREENSHOT_WINDOW"),
			Lockout:      v.GetDuration("SCREENSHOT_LOCKOUT"),
		},
		RateLimit: RateLimitConfig{
			Requests: v.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   v.GetDuration("RATE_LIMIT_WINDOW"),
		},
		Telemetry: TelemetryConfig{
			Enabled:      v.GetBool("OTEL_ENABLED"),
			Endpoint:     v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			SamplingRate: v.GetFloat64("OTEL_SAMPLING_RATE"),
		},
		Scheduler: SchedulerConfig{
			Enabled:              v.GetBool("SCHEDULER_ENABLED"),
			POIWarmSchedule:      v.GetString("POI_WARM_SCHEDULE"),
			RewardExpirySchedule: v.GetString("REWARD_EXPIRY_SCHEDULE"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that would otherwise fail deep inside a component
func (c *Config) Validate() error {
	if c.Posts.RadiusMeters <= 0 {
		return fmt.Errorf("POST_RADIUS_METERS must be positive, got %v", c.Posts.RadiusMeters)
	}
	if c.Threads.Min < 0 || c.Threads.Max <= c.Threads.Min {
		return fmt.Errorf("thread id range [%d, %d] is empty", c.Threads.Min, c.Threads.Max)
	}
	if c.Threads.RetryBudget < 1 {
		return fmt.Errorf("THREAD_ID_RETRY_BUDGET must be at least 1")
	}
	switch c.POI.Source {
	case "openstreetmap":
	case "google_places":
		if c.POI.GooglePlacesKey == "" {
			return fmt.Errorf("GOOGLE_PLACES_API_KEY is required when POI_SOURCE=google_places")
		}
	default:
		return fmt.Errorf("unknown POI_SOURCE %q", c.POI.Source)
	}
	if c.POI.FetchRadiusMeters <= 0 || c.POI.MaxAgeDays <= 0 || c.POI.FetchTimeout <= 0 {
		return fmt.Errorf("POI fetch radius, max age and timeout must be positive")
	}
	if c.Screens.MaxPerWindow < 1 || c.Screens.Window <= 0 || c.Screens.Lockout <= 0 {
		return fmt.Errorf("screenshot limit, window and lockout must be positive")
	}
	return nil
}
