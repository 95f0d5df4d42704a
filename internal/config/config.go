// Package config handles vrmtool configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalid is returned by Validate for out-of-range settings.
var ErrInvalid = errors.New("invalid config")

// Config holds all tool settings.
type Config struct {
	Decoder DecoderConfig `yaml:"decoder"`
	Cache   CacheConfig   `yaml:"cache"`
	Export  ExportConfig  `yaml:"export"`
	Watch   WatchConfig   `yaml:"watch"`
	Logging LoggingConfig `yaml:"logging"`
}

// DecoderConfig holds model decoding settings.
type DecoderConfig struct {
	TargetExtent  float32 `yaml:"target_extent"`    // Largest axis after normalization
	MaxFileSizeMB int     `yaml:"max_file_size_mb"` // Files above this are refused before reading
}

// CacheConfig holds decoded model cache settings.
type CacheConfig struct {
	MaxEntries int `yaml:"max_entries"` // 0 disables caching
}

// ExportConfig holds texture export settings.
type ExportConfig struct {
	TextureDir string `yaml:"texture_dir"`
}

// WatchConfig holds file watch settings.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Decoder: DecoderConfig{
			TargetExtent:  2.0,
			MaxFileSizeMB: 256,
		},
		Cache: CacheConfig{
			MaxEntries: 16,
		},
		Export: ExportConfig{
			TextureDir: "textures",
		},
		Watch: WatchConfig{
			Debounce: 200 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// MaxFileSize returns the decoder size cap in bytes.
func (c *Config) MaxFileSize() int64 {
	return int64(c.Decoder.MaxFileSizeMB) << 20
}

// Validate checks settings that would make decoding meaningless.
func (c *Config) Validate() error {
	if !(c.Decoder.TargetExtent > 0) {
		return fmt.Errorf("%w: decoder.target_extent must be positive, got %v", ErrInvalid, c.Decoder.TargetExtent)
	}
	if c.Decoder.MaxFileSizeMB <= 0 {
		return fmt.Errorf("%w: decoder.max_file_size_mb must be positive, got %d", ErrInvalid, c.Decoder.MaxFileSizeMB)
	}
	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("%w: cache.max_entries must not be negative, got %d", ErrInvalid, c.Cache.MaxEntries)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("%w: watch.debounce must not be negative, got %v", ErrInvalid, c.Watch.Debounce)
	}
	return nil
}
