package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_DefaultsAreValid(t *testing.T) {
	cfg := GetDefaultConfig()
	assert.NoError(t, Validate(cfg))
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log level", func(c *Config) { c.Logging.Level = "LOUD" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"negative workers", func(c *Config) { c.Run.Workers = -1 }},
		{"bad nfs version", func(c *Config) { c.Run.NFSVersion = 2 }},
		{"empty server address", func(c *Config) { c.Run.ServerAddress = "" }},
		{"negative mount timeout", func(c *Config) { c.Run.MountTimeout = -1 }},
		{"empty exports path", func(c *Config) { c.Exports.Path = "" }},
		{"empty exports tag", func(c *Config) { c.Exports.Tag = "" }},
		{"tag with whitespace", func(c *Config) { c.Exports.Tag = "my tag" }},
		{"nfsvers in mount options", func(c *Config) { c.Run.MountOptions = "rw,nfsvers=4" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestValidate_ZeroWorkersAllowed(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Run.Workers = 0
	require.NoError(t, Validate(cfg))
}
