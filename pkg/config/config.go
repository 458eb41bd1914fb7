// Package config loads, validates and persists the harness configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority, applied by the commands layer)
//  2. Environment variables (PARAMOUNT_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config represents the paramount harness configuration.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Run controls the provisioning and mount burst
	Run RunConfig `mapstructure:"run" yaml:"run"`

	// Exports controls the export table artifact
	Exports ExportsConfig `mapstructure:"exports" yaml:"exports"`

	// Metrics controls optional Prometheus run metrics
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// RunConfig controls the provisioning and mount phase.
type RunConfig struct {
	// Workers is the number of export/mount pairs and concurrent mount
	// invocations. Zero is allowed and provisions nothing.
	Workers int `mapstructure:"workers" validate:"gte=0" yaml:"workers"`

	// Preserve keeps the temporary directory tree after the run for
	// inspection.
	Preserve bool `mapstructure:"preserve" yaml:"preserve"`

	// ServerAddress is the NFS server address mounts are issued against.
	// The harness exports and mounts on the same host, so this is normally
	// the loopback address.
	ServerAddress string `mapstructure:"server_address" validate:"required" yaml:"server_address"`

	// NFSVersion is the protocol version passed to mount as nfsvers=.
	NFSVersion int `mapstructure:"nfs_version" validate:"oneof=3 4" yaml:"nfs_version"`

	// MountOptions are extra options prepended to nfsvers, e.g. "rw".
	MountOptions string `mapstructure:"mount_options" yaml:"mount_options"`

	// MountTimeout bounds a single mount invocation. Zero disables the
	// bound; a hung mount then hangs the run.
	MountTimeout time.Duration `mapstructure:"mount_timeout" validate:"gte=0" yaml:"mount_timeout"`
}

// ExportsConfig controls the export table artifact.
type ExportsConfig struct {
	// Path is the export configuration file consumed by exportfs.
	Path string `mapstructure:"path" validate:"required" yaml:"path"`

	// Tag names the begin/end sentinel lines delimiting the table.
	Tag string `mapstructure:"tag" validate:"required" yaml:"tag"`
}

// MetricsConfig controls optional Prometheus run metrics.
type MetricsConfig struct {
	// Enabled turns metric collection on.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Textfile, when non-empty, is where the gathered metrics are written
	// in text exposition format after the run (node_exporter textfile
	// collector layout). Implies Enabled.
	Textfile string `mapstructure:"textfile" yaml:"textfile"`
}

// Load loads configuration from file, environment, and defaults.
//
// A missing configuration file is not an error: the harness is usable with
// defaults and flags alone.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)
	setDefaults(v)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures environment variable and config file handling.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the PARAMOUNT_ prefix with underscores,
	// e.g. PARAMOUNT_RUN_WORKERS=256.
	v.SetEnvPrefix("PARAMOUNT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// configDecodeHooks returns the decode hooks for custom config types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
	)
}
