package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Marketplace base domains by region code.
var regionBaseURLs = map[string]string{
	"ng": "https://www.jumia.com.ng",
	"ke": "https://www.jumia.co.ke",
	"eg": "https://www.jumia.com.eg",
	"gh": "https://www.jumia.com.gh",
	"ug": "https://www.jumia.ug",
	"ci": "https://www.jumia.ci",
}

type Config struct {
	Server   ServerConfig
	Scraper  ScraperConfig
	Browser  BrowserConfig
	Imaging  ImagingConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
}

type ScraperConfig struct {
	Region         string
	Workers        int
	TimeoutSeconds int
	Headless       bool
	PolitenessMin  time.Duration
	PolitenessMax  time.Duration
}

type BrowserConfig struct {
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
}

type ImagingConfig struct {
	BadgeCheck        bool
	ReferenceImageURL string
	FetchTimeout      time.Duration
	CacheSize         int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	MaxConns int32
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getIntOrDefault("PORT", 8086),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Scraper: ScraperConfig{
			Region:         getEnvOrDefault("SCRAPER_REGION", "ke"),
			Workers:        getIntOrDefault("SCRAPER_WORKERS", 2),
			TimeoutSeconds: getIntOrDefault("SCRAPER_TIMEOUT", 30),
			Headless:       getBoolOrDefault("SCRAPER_HEADLESS", true),
			PolitenessMin:  getDurationOrDefault("SCRAPER_POLITENESS_MIN", 1*time.Second),
			PolitenessMax:  getDurationOrDefault("SCRAPER_POLITENESS_MAX", 3*time.Second),
		},
		Browser: BrowserConfig{
			UserAgent:      getEnvOrDefault("BROWSER_USER_AGENT", defaultUserAgent),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1366),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 768),
		},
		Imaging: ImagingConfig{
			BadgeCheck:        getBoolOrDefault("IMAGING_BADGE_CHECK", true),
			ReferenceImageURL: getEnvOrDefault("IMAGING_REFERENCE_URL", defaultReferenceImageURL),
			FetchTimeout:      getDurationOrDefault("IMAGING_FETCH_TIMEOUT", 10*time.Second),
			CacheSize:         getIntOrDefault("IMAGING_CACHE_SIZE", 256),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			Name:     getEnvOrDefault("DB_NAME", "jumiascan"),
			MaxConns: int32(getIntOrDefault("DB_MAX_CONNS", 10)),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
			Stream:   getEnvOrDefault("REDIS_STREAM", "stream:audit_runs"),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if _, ok := regionBaseURLs[c.Scraper.Region]; !ok {
		return fmt.Errorf("unknown region %q", c.Scraper.Region)
	}
	if c.Scraper.Workers < 1 {
		return fmt.Errorf("at least 1 worker is required")
	}
	if c.Scraper.TimeoutSeconds < 1 {
		return fmt.Errorf("page timeout must be at least 1 second")
	}
	if c.Imaging.CacheSize < 1 {
		return fmt.Errorf("imaging cache size must be positive")
	}
	return nil
}

// BaseURL resolves the marketplace domain for the configured region.
func (c *Config) BaseURL() string {
	return regionBaseURLs[c.Scraper.Region]
}

// Regions lists the recognized region codes.
func Regions() []string {
	out := make([]string, 0, len(regionBaseURLs))
	for r := range regionBaseURLs {
		out = append(out, r)
	}
	return out
}

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	defaultReferenceImageURL = "https://ng.jumia.is/cms/renewed/grading-scale-promo.jpg"
)

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
