package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration. Values come from defaults, an
// optional config file and the environment, in increasing precedence.
type Config struct {
	// Server
	Port    string `mapstructure:"port"`
	AppName string `mapstructure:"app_name"`

	// Storage. An empty DatabaseURL selects the in-memory store; an empty
	// RedisURL disables caching and distributed locks.
	DatabaseURL string `mapstructure:"database_url"`
	RedisURL    string `mapstructure:"redis_url"`

	// JWT
	JWTSecret     string `mapstructure:"jwt_secret"`
	JWTIssuer     string `mapstructure:"jwt_issuer"`
	JWTExpiration int    `mapstructure:"jwt_expiration_hours"`

	// DataForSEO
	DataForSEOLogin    string `mapstructure:"dataforseo_login"`
	DataForSEOPassword string `mapstructure:"dataforseo_password"`
	DataForSEOBaseURL  string `mapstructure:"dataforseo_base_url"`

	// Fetching
	SERPLocationCode int    `mapstructure:"serp_location_code"`
	SERPLanguageCode string `mapstructure:"serp_language_code"`
	FetchConcurrency int    `mapstructure:"fetch_concurrency"`
	FetchRPM         int    `mapstructure:"fetch_rpm"`

	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds"`

	// Scheduler
	SchedulerEnabled         bool `mapstructure:"scheduler_enabled"`
	SchedulerIntervalSeconds int  `mapstructure:"scheduler_interval_seconds"`

	// Inbox watcher, disabled when empty
	InboxDir string `mapstructure:"inbox_dir"`

	// MCP
	MCPEnabled bool   `mapstructure:"mcp_enabled"`
	MCPPort    string `mapstructure:"mcp_port"`

	// Frontend
	FrontendURL string `mapstructure:"frontend_url"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

var defaults = map[string]any{
	"port":                       "3001",
	"app_name":                   "AIO Tracker",
	"database_url":               "",
	"redis_url":                  "",
	"jwt_secret":                 "change-me-in-production",
	"jwt_issuer":                 "aio-tracker",
	"jwt_expiration_hours":       24,
	"dataforseo_login":           "",
	"dataforseo_password":        "",
	"dataforseo_base_url":        "",
	"serp_location_code":         2840,
	"serp_language_code":         "en",
	"fetch_concurrency":          4,
	"fetch_rpm":                  120,
	"cache_ttl_seconds":          3600,
	"scheduler_enabled":          true,
	"scheduler_interval_seconds": 60,
	"inbox_dir":                  "",
	"mcp_enabled":                true,
	"mcp_port":                   "3002",
	"frontend_url":               "http://localhost:3000",
	"log_level":                  "info",
	"log_format":                 "text",
}

// Load reads configuration. A .env file in the working directory is loaded
// into the environment first. path names an optional config file (any format
// viper reads); when empty, config.{yaml,json,toml} is looked up in . and
// ./config and a missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the server cannot start with.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("config: port is required")
	}
	if c.JWTSecret == "" {
		return errors.New("config: jwt_secret is required")
	}
	if c.JWTExpiration <= 0 {
		return fmt.Errorf("config: jwt_expiration_hours must be > 0, got %d", c.JWTExpiration)
	}
	if c.FetchConcurrency <= 0 {
		return fmt.Errorf("config: fetch_concurrency must be > 0, got %d", c.FetchConcurrency)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("config: log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// JWTTTL returns the token lifetime.
func (c *Config) JWTTTL() time.Duration {
	return time.Duration(c.JWTExpiration) * time.Hour
}

// CacheTTL returns the analytics cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// SchedulerInterval returns how often scheduled projects are checked.
func (c *Config) SchedulerInterval() time.Duration {
	return time.Duration(c.SchedulerIntervalSeconds) * time.Second
}

// SERPConfigured reports whether DataForSEO credentials are present.
func (c *Config) SERPConfigured() bool {
	return c.DataForSEOLogin != "" && c.DataForSEOPassword != ""
}

// DSN returns the database URL with the password masked, for logging.
func (c *Config) DSN() string {
	if c.DatabaseURL == "" {
		return "memory"
	}
	at := strings.LastIndex(c.DatabaseURL, "@")
	scheme := strings.Index(c.DatabaseURL, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return c.DatabaseURL
	}
	return c.DatabaseURL[:scheme+3] + "***" + c.DatabaseURL[at:]
}
