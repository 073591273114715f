package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Database  DatabaseConfig
	Redis     RedisConfig
	Server    ServerConfig
	Auth      AuthConfig
	Cache     CacheConfig
	Vote      VoteConfig
	Logging   LoggingConfig
	Telemetry TelemetryConfig
}

// DatabaseConfig selects the storage backend
type DatabaseConfig struct {
	Driver string // "postgres" or "memory"
	URL    string
}

// RedisConfig enables the pub/sub notification sink when URL is set
type RedisConfig struct {
	URL     string
	Channel string
	Enabled bool
}

type ServerConfig struct {
	Host        string
	Port        int
	CORSOrigins []string
}

type AuthConfig struct {
	SessionSecret string
	JWTSecret     string
}

type CacheConfig struct {
	TTL  time.Duration
	Size int
}

type VoteConfig struct {
	MaxRetries int
}

type LoggingConfig struct {
	Level  string
	Format string // "json" or "text"
}

type TelemetryConfig struct {
	Enabled     bool
	ServiceName string
}

// Addr returns host:port for the HTTP listener
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database_driver", "postgres")
	v.SetDefault("database_url", "host=localhost user=postgres password=postgres dbname=agora port=5432 sslmode=disable")
	v.SetDefault("redis_url", "")
	v.SetDefault("redis_channel", "agora:notifications")
	v.SetDefault("http_server_host", "0.0.0.0")
	v.SetDefault("http_server_port", 8080)
	v.SetDefault("cors_origins", "*")
	v.SetDefault("session_secret", "secret_key_change_me")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("cache_ttl", 5*time.Minute)
	v.SetDefault("cache_size", 500)
	v.SetDefault("vote_max_retries", 3)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("telemetry_enabled", true)
	v.SetDefault("service_name", "agora")
}

// Load reads configuration from AGORA_* environment variables and an
// optional config.yaml. configFile overrides the search path when set.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("AGORA")
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/agora")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configFile != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	redisURL := v.GetString("redis_url")
	cfg := &Config{
		Database: DatabaseConfig{
			Driver: strings.ToLower(v.GetString("database_driver")),
			URL:    v.GetString("database_url"),
		},
		Redis: RedisConfig{
			URL:     redisURL,
			Channel: v.GetString("redis_channel"),
			Enabled: redisURL != "",
		},
		Server: ServerConfig{
			Host:        v.GetString("http_server_host"),
			Port:        v.GetInt("http_server_port"),
			CORSOrigins: splitList(v.GetString("cors_origins")),
		},
		Auth: AuthConfig{
			SessionSecret: v.GetString("session_secret"),
			JWTSecret:     v.GetString("jwt_secret"),
		},
		Cache: CacheConfig{
			TTL:  v.GetDuration("cache_ttl"),
			Size: v.GetInt("cache_size"),
		},
		Vote: VoteConfig{
			MaxRetries: v.GetInt("vote_max_retries"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("log_level"),
			Format: v.GetString("log_format"),
		},
		Telemetry: TelemetryConfig{
			Enabled:     v.GetBool("telemetry_enabled"),
			ServiceName: v.GetString("service_name"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("database_url is required for the postgres driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown database_driver %q", c.Database.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("http_server_port must be between 1 and 65535")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache_ttl must be positive")
	}
	if c.Cache.Size <= 0 || c.Cache.Size > 100000 {
		return fmt.Errorf("cache_size must be between 1 and 100000")
	}
	if c.Vote.MaxRetries < 1 || c.Vote.MaxRetries > 10 {
		return fmt.Errorf("vote_max_retries must be between 1 and 10")
	}
	return nil
}
