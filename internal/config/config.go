// Package config loads the engine's configuration from a YAML file,
// layering environment-variable overrides on top for anything
// deployment-sensitive (DSNs, ports, credentials).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

type ServerConfig struct {
	HTTPPort     int    `yaml:"http_port"`
	WSPort       int    `yaml:"ws_port"`
	L2Depth      int    `yaml:"l2_depth"`
	RateLimitRPS int    `yaml:"rate_limit_rps"`
	TrustedProxy string `yaml:"trusted_proxy"`
}

type StorageConfig struct {
	Backend     string        `yaml:"backend"` // "memory" or "postgres"
	PostgresDSN string        `yaml:"postgres_dsn"`
	RedisAddr   string        `yaml:"redis_addr"`
	RedisDB     int           `yaml:"redis_db"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Load reads path (if it exists; a missing file yields defaults) and
// applies .env + process environment overrides for secrets and
// deployment-specific values.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:     8080,
			WSPort:       8081,
			L2Depth:      10,
			RateLimitRPS: 100,
		},
		Storage: StorageConfig{
			Backend:  "memory",
			RedisDB:  0,
			CacheTTL: 2 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("CLOB_HTTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.HTTPPort = n
		}
	}
	if v := os.Getenv("CLOB_WS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.WSPort = n
		}
	}
	if v := os.Getenv("CLOB_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("CLOB_POSTGRES_DSN"); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := os.Getenv("CLOB_REDIS_ADDR"); v != "" {
		cfg.Storage.RedisAddr = v
	}
	if v := os.Getenv("CLOB_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks invariants a misconfigured deployment would otherwise
// fail on only once it's too late to matter (mid-startup, against a dead
// backend).
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.Server.HTTPPort)
	}
	if c.Server.WSPort <= 0 || c.Server.WSPort > 65535 {
		return fmt.Errorf("invalid ws_port: %d", c.Server.WSPort)
	}
	switch c.Storage.Backend {
	case "memory":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("postgres_dsn required when storage.backend is postgres")
		}
	default:
		return fmt.Errorf("unknown storage backend: %q", c.Storage.Backend)
	}
	return nil
}
