// Package config handles vrmlopt configuration loading and management.
package config

import (
	"fmt"
	"time"

	"github.com/Faultbox/vrmlopt/pkg/mesh"
)

// Config holds all vrmlopt settings.
type Config struct {
	Simplify SimplifyConfig `yaml:"simplify"`
	Input    InputConfig    `yaml:"input"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SimplifyConfig holds the mesh pipeline parameters.
type SimplifyConfig struct {
	MergeCutoff       float64  `yaml:"merge_cutoff"`
	ReductionFraction *float64 `yaml:"reduction_fraction"` // nil = merge only
	FuseShapes        bool     `yaml:"fuse_shapes"`
	FuseCutoff        float64  `yaml:"fuse_cutoff"`
	Strategy          string   `yaml:"strategy"`      // qem | cluster
	NeighborMode      string   `yaml:"neighbor_mode"` // positive | full
}

// InputConfig holds input decoding settings.
type InputConfig struct {
	Charset string `yaml:"charset"` // "auto" or an IANA/WHATWG name
}

// ServerConfig holds websocket worker settings.
type ServerConfig struct {
	Addr          string        `yaml:"addr"`
	MaxConcurrent int64         `yaml:"max_concurrent"`
	QueueSize     int           `yaml:"queue_size"`
	ReadLimitMB   int64         `yaml:"read_limit_mb"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Simplify: SimplifyConfig{
			MergeCutoff:  0.1,
			FuseShapes:   false,
			FuseCutoff:   0.001,
			Strategy:     "qem",
			NeighborMode: "positive",
		},
		Input: InputConfig{
			Charset: "auto",
		},
		Server: ServerConfig{
			Addr:          ":8765",
			MaxConcurrent: 4,
			QueueSize:     16,
			ReadLimitMB:   64,
			WriteTimeout:  30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate checks value ranges and enum names.
func (c *Config) Validate() error {
	s := c.Simplify
	if !(s.MergeCutoff > 0) {
		return fmt.Errorf("simplify.merge_cutoff must be positive, got %v", s.MergeCutoff)
	}
	if s.FuseShapes && !(s.FuseCutoff > 0) {
		return fmt.Errorf("simplify.fuse_cutoff must be positive, got %v", s.FuseCutoff)
	}
	if f := s.ReductionFraction; f != nil && !(*f > 0 && *f <= 1) {
		return fmt.Errorf("simplify.reduction_fraction must be in (0, 1], got %v", *f)
	}
	if _, err := mesh.ParseStrategy(s.Strategy); err != nil {
		return fmt.Errorf("simplify.strategy: %w", err)
	}
	if _, err := mesh.ParseNeighborMode(s.NeighborMode); err != nil {
		return fmt.Errorf("simplify.neighbor_mode: %w", err)
	}
	if c.Server.MaxConcurrent < 1 {
		return fmt.Errorf("server.max_concurrent must be at least 1, got %d", c.Server.MaxConcurrent)
	}
	return nil
}
