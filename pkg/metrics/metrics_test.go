package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLifecycle(t *testing.T) {
	// Not parallel: exercises the package-level registry.
	assert.False(t, IsEnabled())
	assert.Nil(t, GetRegistry())

	InitRegistry()
	require.True(t, IsEnabled())
	require.NotNil(t, GetRegistry())

	first := GetRegistry()
	InitRegistry()
	assert.Same(t, first, GetRegistry(), "repeated init keeps the same registry")
}

func TestWriteTextfile(t *testing.T) {
	InitRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "paramount_test_total",
		Help: "test counter",
	})
	require.NoError(t, GetRegistry().Register(counter))
	counter.Add(3)

	path := filepath.Join(t.TempDir(), "paramount.prom")
	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "paramount_test_total 3")
}
