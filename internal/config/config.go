// Package config defines the pipelink configuration surface.
package config

import (
	"fmt"
	"time"
)

const (
	defaultMaxInstances     = 1
	defaultEstablishTimeout = 30 * time.Second
)

// Config represents the main configuration structure.
type Config struct {
	// Endpoint names the pipe: a bare name, unix://<path>, or
	// npipe://<path>. Empty selects a generated name.
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`

	// Direction is "in", "out", or "inout", from the server's side.
	Direction string `json:"direction" mapstructure:"direction"`

	// Mode is "byte" or "message".
	Mode string `json:"mode" mapstructure:"mode"`

	MaxInstances     int           `json:"max_instances" mapstructure:"max-instances"`
	InputBufferSize  int32         `json:"input_buffer_size" mapstructure:"input-buffer-size"`
	OutputBufferSize int32         `json:"output_buffer_size" mapstructure:"output-buffer-size"`
	ConnectTimeout   time.Duration `json:"connect_timeout" mapstructure:"connect-timeout"`

	// SecurityDescriptor is an SDDL string applied to the pipe on
	// Windows; ignored elsewhere.
	SecurityDescriptor string `json:"security_descriptor,omitempty" mapstructure:"security-descriptor"`

	// AllowReaccept overrides the platform default for accepting a new
	// client after a disconnect.
	AllowReaccept *bool `json:"allow_reaccept,omitempty" mapstructure:"allow-reaccept"`

	// Logging configuration
	Logging *LogConfig `json:"logging,omitempty" mapstructure:"logging"`

	// Metrics configuration
	Metrics *MetricsConfig `json:"metrics,omitempty" mapstructure:"metrics"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Level         string `json:"level" mapstructure:"level"`
	EnableFile    bool   `json:"enable_file" mapstructure:"enable-file"`
	EnableConsole bool   `json:"enable_console" mapstructure:"enable-console"`
	Filename      string `json:"filename" mapstructure:"filename"`
	LogDir        string `json:"log_dir,omitempty" mapstructure:"log-dir"` // Custom log directory
	MaxSize       int    `json:"max_size" mapstructure:"max-size"`         // MB
	MaxBackups    int    `json:"max_backups" mapstructure:"max-backups"`   // number of backup files
	MaxAge        int    `json:"max_age" mapstructure:"max-age"`           // days
	Compress      bool   `json:"compress" mapstructure:"compress"`
	JSONFormat    bool   `json:"json_format" mapstructure:"json-format"`
}

// MetricsConfig represents the Prometheus scrape endpoint configuration.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Listen  string `json:"listen" mapstructure:"listen"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Direction:      "inout",
		Mode:           "byte",
		MaxInstances:   defaultMaxInstances,
		ConnectTimeout: defaultEstablishTimeout,
	}
}

// Validate checks the configuration for out-of-range values.
func (c *Config) Validate() error {
	switch c.Direction {
	case "in", "out", "inout":
	default:
		return fmt.Errorf("invalid direction %q (want in, out, or inout)", c.Direction)
	}
	switch c.Mode {
	case "byte", "message":
	default:
		return fmt.Errorf("invalid transmission mode %q (want byte or message)", c.Mode)
	}
	if c.MaxInstances < 1 {
		return fmt.Errorf("max instances must be at least 1, got %d", c.MaxInstances)
	}
	if c.InputBufferSize < 0 || c.OutputBufferSize < 0 {
		return fmt.Errorf("buffer sizes must not be negative")
	}
	if c.ConnectTimeout < 0 {
		return fmt.Errorf("connect timeout must not be negative")
	}
	if c.Metrics != nil && c.Metrics.Enabled && c.Metrics.Listen == "" {
		return fmt.Errorf("metrics enabled but no listen address configured")
	}
	return nil
}
