// Package config provides configuration management for the linkclean
// application. Values come from an optional YAML config file, environment
// variables, and command-line flags, all merged through viper and decoded
// into typed structs.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/jonesrussell/linkclean/internal/logger"
	"github.com/jonesrussell/linkclean/internal/urlcheck"
)

// Default configuration values.
const (
	DefaultChunkSize   = 1000
	DefaultParallelism = 1
	DefaultSuffix      = "_cleaned"
	DefaultTimeout     = 10 * time.Second
	DefaultMaxRetries  = 3
)

// Common errors returned by the config package.
var (
	// ErrInvalidChunkSize is returned when the chunk size is not positive.
	ErrInvalidChunkSize = errors.New("chunk size must be positive")
	// ErrInvalidParallelism is returned when the parallelism is not positive.
	ErrInvalidParallelism = errors.New("parallelism must be positive")
	// ErrInvalidTimeout is returned when the per-request timeout is not positive.
	ErrInvalidTimeout = errors.New("timeout must be positive")
	// ErrInvalidMaxRetries is returned when the retry count is not positive.
	ErrInvalidMaxRetries = errors.New("max retries must be positive")
)

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `mapstructure:"name" yaml:"name"`
	Environment string `mapstructure:"environment" yaml:"environment"`
	Debug       bool   `mapstructure:"debug" yaml:"debug"`
}

// PipelineConfig holds chunking and concurrency settings.
type PipelineConfig struct {
	// ChunkSize is the maximum number of records per chunk.
	ChunkSize int `mapstructure:"chunk_size" yaml:"chunk_size"`

	// Parallelism is the number of chunk workers running concurrently.
	Parallelism int `mapstructure:"parallelism" yaml:"parallelism"`
}

// OutputConfig holds output naming settings.
type OutputConfig struct {
	// Suffix is appended to the input file's stem to form the default
	// output path.
	Suffix string `mapstructure:"suffix" yaml:"suffix"`
}

// Config represents the application configuration.
type Config struct {
	App      AppConfig       `mapstructure:"app" yaml:"app"`
	Logger   logger.Config   `mapstructure:"logger" yaml:"logger"`
	Checker  urlcheck.Config `mapstructure:"checker" yaml:"checker"`
	Pipeline PipelineConfig  `mapstructure:"pipeline" yaml:"pipeline"`
	Output   OutputConfig    `mapstructure:"output" yaml:"output"`
}

// Load decodes the merged viper settings into a Config and applies defaults.
func Load() (*Config, error) {
	cfg := &Config{}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("create config decoder: %w", err)
	}

	if decodeErr := decoder.Decode(viper.AllSettings()); decodeErr != nil {
		return nil, fmt.Errorf("decode config: %w", decodeErr)
	}

	applyDefaults(cfg)
	return cfg, nil
}

// applyDefaults fills in defaults for zero-value fields.
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "linkclean"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "production"
	}
	if cfg.Pipeline.ChunkSize == 0 {
		cfg.Pipeline.ChunkSize = DefaultChunkSize
	}
	if cfg.Pipeline.Parallelism == 0 {
		cfg.Pipeline.Parallelism = DefaultParallelism
	}
	if cfg.Output.Suffix == "" {
		cfg.Output.Suffix = DefaultSuffix
	}
	if cfg.Checker.Timeout == 0 {
		cfg.Checker.Timeout = DefaultTimeout
	}
	if cfg.Checker.MaxRetries == 0 {
		cfg.Checker.MaxRetries = DefaultMaxRetries
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Pipeline.ChunkSize <= 0 {
		return ErrInvalidChunkSize
	}
	if c.Pipeline.Parallelism <= 0 {
		return ErrInvalidParallelism
	}
	if c.Checker.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Checker.MaxRetries <= 0 {
		return ErrInvalidMaxRetries
	}
	return nil
}
