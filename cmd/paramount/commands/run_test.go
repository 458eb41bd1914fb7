package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Subcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range GetRootCmd().Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["run"])
	assert.True(t, names["init"])
	assert.True(t, names["version"])
}

func TestLoadRunConfig_FlagOverrides(t *testing.T) {
	// Keep the loader away from any real config file on the host.
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	flags := runCmd.Flags()
	require.NoError(t, flags.Set("workers", "9"))
	require.NoError(t, flags.Set("preserve", "true"))
	require.NoError(t, flags.Set("metrics-file", "/tmp/paramount.prom"))

	cfg, err := loadRunConfig(runCmd)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Run.Workers)
	assert.True(t, cfg.Run.Preserve)
	assert.Equal(t, "/tmp/paramount.prom", cfg.Metrics.Textfile)

	// An invalid override fails validation of the merged config.
	require.NoError(t, flags.Set("nfs-version", "2"))
	_, err = loadRunConfig(runCmd)
	assert.Error(t, err)
}
