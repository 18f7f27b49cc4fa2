package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Config represents the complete service configuration
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Jobs     JobsConfig     `toml:"jobs"`
}

type ServerConfig struct {
	Port            int      `toml:"port"`
	LogLevel        string   `toml:"log_level"`
	ShutdownTimeout duration `toml:"shutdown_timeout"`
}

// DatabaseConfig selects the order store. The memory driver needs no URL.
type DatabaseConfig struct {
	Driver string `toml:"driver"`
	URL    string `toml:"url"`
}

// RedisConfig contains the cache connection. An empty Addr disables caching.
type RedisConfig struct {
	Addr     string   `toml:"addr"`
	Password string   `toml:"password"`
	DB       int      `toml:"db"`
	CacheTTL duration `toml:"cache_ttl"`
}

type JobsConfig struct {
	LowStockThreshold int      `toml:"low_stock_threshold"`
	LowStockInterval  duration `toml:"low_stock_interval"`
}

// duration decodes TOML strings such as "5m"
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			LogLevel:        "info",
			ShutdownTimeout: duration{10 * time.Second},
		},
		Database: DatabaseConfig{Driver: StorageDriverPostgres},
		Redis:    RedisConfig{CacheTTL: duration{5 * time.Minute}},
		Jobs: JobsConfig{
			LowStockThreshold: 10,
			LowStockInterval:  duration{15 * time.Minute},
		},
	}
}

// Load builds the configuration from defaults, the TOML file named by CONFIG_FILE
// (if set), then environment variables, in increasing precedence.
func Load() (*Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (*Config, error) {
	cfg := defaults()

	if path := getenv("CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := applyEnv(cfg, getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := getenv("STORAGE_DRIVER"); v != "" {
		cfg.Database.Driver = strings.ToLower(v)
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.Server.LogLevel = v
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"PORT", &cfg.Server.Port},
		{"REDIS_DB", &cfg.Redis.DB},
		{"LOW_STOCK_THRESHOLD", &cfg.Jobs.LowStockThreshold},
	}
	for _, e := range ints {
		if v := getenv(e.key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", e.key, v, err)
			}
			*e.dst = n
		}
	}

	durations := []struct {
		key string
		dst *duration
	}{
		{"CACHE_TTL", &cfg.Redis.CacheTTL},
		{"LOW_STOCK_INTERVAL", &cfg.Jobs.LowStockInterval},
		{"SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout},
	}
	for _, e := range durations {
		if v := getenv(e.key); v != "" {
			if err := e.dst.UnmarshalText([]byte(v)); err != nil {
				return fmt.Errorf("invalid %s %q: %w", e.key, v, err)
			}
		}
	}
	return nil
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case StorageDriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s storage driver", StorageDriverPostgres)
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Database.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Jobs.LowStockThreshold < 0 {
		return fmt.Errorf("low stock threshold cannot be negative")
	}
	if c.Jobs.LowStockInterval.Duration <= 0 {
		return fmt.Errorf("low stock interval must be positive")
	}
	return nil
}
