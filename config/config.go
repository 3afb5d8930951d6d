// Package config loads xtype configuration from defaults, a YAML file,
// XTYPE_ environment variables and command-line flags, in increasing priority.
package config

import (
	"fmt"

	"github.com/wippyai/typecore/compat"
	"github.com/wippyai/typecore/errors"
	"github.com/wippyai/typecore/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Defaults
const (
	DefaultVariance  = "strict"
	DefaultAccess    = "public"
	DefaultLogLevel  = "warn"
	DefaultLogFormat = "console"
	DefaultWorkers   = 4
)

// Config holds checker and CLI settings
type Config struct {
	// Scope is the dotted declaration path that names given on the command
	// line resolve in, for example "app".
	Scope      string `koanf:"scope"`
	Variance   string `koanf:"variance"`
	Structural bool   `koanf:"structural"`
	// Access is the default access level for variance queries.
	Access string      `koanf:"access"`
	Log    LogConfig   `koanf:"log"`
	Batch  BatchConfig `koanf:"batch"`
}

// LogConfig selects the zap logger the CLI builds
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // console or json
}

// BatchConfig configures concurrent batch queries
type BatchConfig struct {
	Workers int `koanf:"workers"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Variance:   DefaultVariance,
		Structural: true,
		Access:     DefaultAccess,
		Log:        LogConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
		Batch:      BatchConfig{Workers: DefaultWorkers},
	}
}

// ApplyDefaults fills unset fields
func (c *Config) ApplyDefaults() {
	if c.Variance == "" {
		c.Variance = DefaultVariance
	}
	if c.Access == "" {
		c.Access = DefaultAccess
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
	if c.Batch.Workers <= 0 {
		c.Batch.Workers = DefaultWorkers
	}
}

// Validate checks every enumerated setting
func (c *Config) Validate() error {
	if _, err := compat.ParseVarianceMode(c.Variance); err != nil {
		return invalid("variance: %v", err)
	}
	if _, err := types.ParseAccess(c.Access); err != nil {
		return invalid("access: %v", err)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level: %v", err)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return invalid("log.format: unknown format %q", c.Log.Format)
	}
	if c.Batch.Workers < 1 {
		return invalid("batch.workers must be positive, got %d", c.Batch.Workers)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return errors.New(errors.PhaseConfig, errors.KindInvalidInput).Detail(format, args...).Build()
}

// CheckerOptions converts the checker settings. The configuration must be valid.
func (c *Config) CheckerOptions() compat.Options {
	opts := compat.DefaultOptions()
	if mode, err := compat.ParseVarianceMode(c.Variance); err == nil {
		opts.Variance = mode
	}
	opts.Structural = c.Structural
	return opts
}

// AccessLevel returns the parsed default access
func (c *Config) AccessLevel() types.Access {
	a, err := types.ParseAccess(c.Access)
	if err != nil {
		return types.AccessPublic
	}
	return a
}

// Logger builds a zap logger for the log settings
func (l LogConfig) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if l.Format != "json" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}
