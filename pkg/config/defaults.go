package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Default values for every configuration key.
const (
	DefaultWorkers       = 128
	DefaultServerAddress = "127.0.0.1"
	DefaultNFSVersion    = 3
	DefaultMountOptions  = "rw"
	DefaultMountTimeout  = time.Duration(0)

	DefaultExportsPath = "/etc/exports.d/paramount.exports"
	DefaultExportsTag  = "paramount"

	DefaultLogLevel  = "INFO"
	DefaultLogFormat = "text"
	DefaultLogOutput = "stderr"
)

// setDefaults registers the default value of every key so explicit zero
// values in a config file (e.g. workers: 0) survive unmarshaling.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)
	v.SetDefault("logging.output", DefaultLogOutput)

	v.SetDefault("run.workers", DefaultWorkers)
	v.SetDefault("run.preserve", false)
	v.SetDefault("run.server_address", DefaultServerAddress)
	v.SetDefault("run.nfs_version", DefaultNFSVersion)
	v.SetDefault("run.mount_options", DefaultMountOptions)
	v.SetDefault("run.mount_timeout", DefaultMountTimeout)

	v.SetDefault("exports.path", DefaultExportsPath)
	v.SetDefault("exports.tag", DefaultExportsTag)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.textfile", "")
}

// GetDefaultConfig returns the configuration the harness runs with when no
// file, environment or flags override anything.
func GetDefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
			Output: DefaultLogOutput,
		},
		Run: RunConfig{
			Workers:       DefaultWorkers,
			ServerAddress: DefaultServerAddress,
			NFSVersion:    DefaultNFSVersion,
			MountOptions:  DefaultMountOptions,
			MountTimeout:  DefaultMountTimeout,
		},
		Exports: ExportsConfig{
			Path: DefaultExportsPath,
			Tag:  DefaultExportsTag,
		},
		Metrics: MetricsConfig{},
	}
}

// getConfigDir returns the directory holding the default config file:
// $XDG_CONFIG_HOME/paramount, falling back to ~/.config/paramount.
func getConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "/etc/paramount"
		}
		configHome = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configHome, "paramount")
}

// GetDefaultConfigPath returns the default config file location.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the default
// location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// SaveConfig saves the configuration to the given path in YAML format.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// InitConfig writes the default configuration to the default location and
// returns that path. It refuses to overwrite an existing file unless force
// is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	return path, InitConfigToPath(path, force)
}

// InitConfigToPath writes the default configuration to an explicit path.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}
	return SaveConfig(GetDefaultConfig(), path)
}
