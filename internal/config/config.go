package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server     ServerConfig
	App        AppConfig
	Cache      CacheConfig
	AccountsDB AccountsDBConfig
	Store      StoreConfig
	RateLimit  RateLimitConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"farmgate-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// CacheConfig holds cache settings.
type CacheConfig struct {
	Type string `envconfig:"CACHE_TYPE" default:"memory"` // memory or redis

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// AccountsDBConfig holds MySQL connection settings for staff profiles.
type AccountsDBConfig struct {
	Host     string `envconfig:"ACCOUNTS_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"ACCOUNTS_DB_PORT" default:"3306"`
	Name     string `envconfig:"ACCOUNTS_DB_NAME" default:"farmgate"`
	User     string `envconfig:"ACCOUNTS_DB_USER" default:"root"`
	Password string `envconfig:"ACCOUNTS_DB_PASS" default:""`
}

// StoreConfig holds the primary data store settings.
type StoreConfig struct {
	Type string `envconfig:"STORE_TYPE" default:"sqlite"` // sqlite or postgres
	Path string `envconfig:"STORE_PATH" default:"./data/farmgate.db"`
	// PostgreSQL settings
	Host     string `envconfig:"STORE_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"STORE_DB_PORT" default:"5432"`
	Name     string `envconfig:"STORE_DB_NAME" default:"farmgate"`
	User     string `envconfig:"STORE_DB_USER" default:"postgres"`
	Password string `envconfig:"STORE_DB_PASS" default:""`
	SSLMode  string `envconfig:"STORE_DB_SSLMODE" default:"disable"`
}

// RateLimitConfig holds inquiry submission throttling settings.
type RateLimitConfig struct {
	InquiryLimit  int           `envconfig:"RATE_LIMIT_INQUIRIES" default:"10"`
	InquiryWindow time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

// PostgresDSN returns the PostgreSQL connection string.
func (s *StoreConfig) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		s.User, s.Password, s.Host, s.Port, s.Name, s.SSLMode)
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// DSN returns the MySQL data source name.
func (d *AccountsDBConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
