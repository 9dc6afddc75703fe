package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"gopkg.in/yaml.v3"

	"github.com/heysubinoy/htkv/pkg/kv"
)

// Defaults applied before the config file and environment are read.
const (
	DefaultSocketPath   = "/tmp/kvstore_ht.sock"
	DefaultBucketCount  = 1024
	DefaultMaxLineBytes = kv.MaxRequestLen
	DefaultHash         = "djb2"
	DefaultIdleTimeout  = 5 * time.Minute
	DefaultWriteTimeout = 10 * time.Second
	DefaultLogLevel     = "info"
)

// Config holds the server settings, read from YAML and the environment.
type Config struct {
	SocketPath   string        `yaml:"socket_path"`
	BucketCount  int           `yaml:"bucket_count"`
	MaxLineBytes int           `yaml:"max_line_bytes"`
	Hash         string        `yaml:"hash"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	LogLevel     string        `yaml:"log_level"`
	MetricsAddr  string        `yaml:"metrics_addr"`
}

// Default returns a Config populated with the built-in defaults.
func Default() *Config {
	return &Config{
		SocketPath:   DefaultSocketPath,
		BucketCount:  DefaultBucketCount,
		MaxLineBytes: DefaultMaxLineBytes,
		Hash:         DefaultHash,
		IdleTimeout:  DefaultIdleTimeout,
		WriteTimeout: DefaultWriteTimeout,
		LogLevel:     DefaultLogLevel,
	}
}

// LoadConfig loads configuration from a YAML file if path is provided,
// otherwise it starts from the defaults. Environment variables override
// values from either source. The result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides allows environment variables to override config values
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("HTKV_SOCKET_PATH"); v != "" {
		cfg.SocketPath = v
	}
	if v := os.Getenv("HTKV_BUCKET_COUNT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid HTKV_BUCKET_COUNT value: %w", err)
		}
		cfg.BucketCount = n
	}
	if v := os.Getenv("HTKV_MAX_LINE_BYTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid HTKV_MAX_LINE_BYTES value: %w", err)
		}
		cfg.MaxLineBytes = n
	}
	if v := os.Getenv("HTKV_HASH"); v != "" {
		cfg.Hash = v
	}
	if v := os.Getenv("HTKV_IDLE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid HTKV_IDLE_TIMEOUT value: %w", err)
		}
		cfg.IdleTimeout = d
	}
	if v := os.Getenv("HTKV_WRITE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid HTKV_WRITE_TIMEOUT value: %w", err)
		}
		cfg.WriteTimeout = d
	}
	if v := os.Getenv("HTKV_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("HTKV_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	return nil
}

// Validate checks that the configuration can start a server.
func (c *Config) Validate() error {
	var errs []error

	if c.SocketPath == "" {
		errs = append(errs, errors.New("socket_path is required"))
	}
	if c.BucketCount <= 0 {
		errs = append(errs, fmt.Errorf("bucket_count must be positive, got %d", c.BucketCount))
	}
	if c.MaxLineBytes < kv.MaxRequestLen {
		errs = append(errs, fmt.Errorf("max_line_bytes must be at least %d to fit a maximal SET, got %d", kv.MaxRequestLen, c.MaxLineBytes))
	}
	switch strings.ToLower(c.Hash) {
	case "djb2", "xxhash":
	default:
		errs = append(errs, fmt.Errorf("unknown hash %q (want djb2 or xxhash)", c.Hash))
	}
	if c.IdleTimeout < 0 {
		errs = append(errs, errors.New("idle_timeout must not be negative"))
	}
	if c.WriteTimeout < 0 {
		errs = append(errs, errors.New("write_timeout must not be negative"))
	}
	if hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
		errs = append(errs, fmt.Errorf("unknown log_level %q", c.LogLevel))
	}

	return errors.Join(errs...)
}

// Level returns the hclog level named by LogLevel.
func (c *Config) Level() hclog.Level {
	return hclog.LevelFromString(c.LogLevel)
}
