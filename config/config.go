// Package config loads and validates the engine's tunables from built-in
// defaults, a config file, and environment variables, in that ascending
// order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// MemoryConfig configures the in-memory image cache.
type MemoryConfig struct {
	MaxCost  int64 `mapstructure:"max_cost" yaml:"max_cost" validate:"gt=0"`
	MaxCount int   `mapstructure:"max_count" yaml:"max_count" validate:"gt=0"`
}

// DiskConfig configures the persistent on-disk image cache.
type DiskConfig struct {
	Directory string        `mapstructure:"directory" yaml:"directory" validate:"required"`
	MaxBytes  int64         `mapstructure:"max_bytes" yaml:"max_bytes" validate:"gt=0"`
	MaxAge    time.Duration `mapstructure:"max_age" yaml:"max_age" validate:"gte=0"`
	Quality   float64       `mapstructure:"quality" yaml:"quality" validate:"gt=0,lte=1"`
}

// DownloadConfig configures the HTTP downloader's retry and transport
// behavior.
type DownloadConfig struct {
	MaxRetries int               `mapstructure:"max_retries" yaml:"max_retries" validate:"gte=0"`
	RetryDelay time.Duration     `mapstructure:"retry_delay" yaml:"retry_delay" validate:"gt=0"`
	Timeout    time.Duration     `mapstructure:"timeout" yaml:"timeout" validate:"gt=0"`
	Headers    map[string]string `mapstructure:"headers" yaml:"headers"`
}

// LimiterConfig configures the bounded-concurrency downloader semaphore.
type LimiterConfig struct {
	MaxConcurrent int `mapstructure:"max_concurrent" yaml:"max_concurrent" validate:"gt=0"`
}

// Config aggregates every subsystem's tunables into a single struct loaded
// as a unit.
type Config struct {
	Memory   MemoryConfig   `mapstructure:"memory" yaml:"memory"`
	Disk     DiskConfig     `mapstructure:"disk" yaml:"disk"`
	Download DownloadConfig `mapstructure:"download" yaml:"download"`
	Limiter  LimiterConfig  `mapstructure:"limiter" yaml:"limiter"`
}

// Default returns a Config populated with the engine's built-in defaults.
func Default() *Config {
	return &Config{
		Memory: MemoryConfig{
			MaxCost:  50 << 20,
			MaxCount: 100,
		},
		Disk: DiskConfig{
			Directory: "ImageCache",
			MaxBytes:  100 << 20,
			MaxAge:    7 * 24 * time.Hour,
			Quality:   0.8,
		},
		Download: DownloadConfig{
			MaxRetries: 3,
			RetryDelay: 500 * time.Millisecond,
			Timeout:    30 * time.Second,
			Headers:    map[string]string{},
		},
		Limiter: LimiterConfig{
			MaxConcurrent: 6,
		},
	}
}

// Load reads configuration from configPath (if non-empty and present),
// overlays IMAGECACHE_* environment variables, and fills in any unset
// fields with the built-in defaults, then validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("IMAGECACHE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	applyViperDefaults(v, Default())

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: reading %s: %w", configPath, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// applyViperDefaults registers d's fields as viper defaults so any key
// absent from both the config file and the environment falls back to it.
func applyViperDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("memory.max_cost", d.Memory.MaxCost)
	v.SetDefault("memory.max_count", d.Memory.MaxCount)
	v.SetDefault("disk.directory", d.Disk.Directory)
	v.SetDefault("disk.max_bytes", d.Disk.MaxBytes)
	v.SetDefault("disk.max_age", d.Disk.MaxAge)
	v.SetDefault("disk.quality", d.Disk.Quality)
	v.SetDefault("download.max_retries", d.Download.MaxRetries)
	v.SetDefault("download.retry_delay", d.Download.RetryDelay)
	v.SetDefault("download.timeout", d.Download.Timeout)
	v.SetDefault("download.headers", d.Download.Headers)
	v.SetDefault("limiter.max_concurrent", d.Limiter.MaxConcurrent)
}

// Validate runs struct-tag validation over cfg.
func Validate(cfg *Config) error {
	return validator.New().Struct(cfg)
}
