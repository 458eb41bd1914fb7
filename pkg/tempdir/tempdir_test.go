package tempdir

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	d, err := New("tempdir-test")
	require.NoError(t, err)
	defer func() { _ = d.Remove() }()

	info, err := os.Stat(d.Path())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Contains(t, filepath.Base(d.Path()), "tempdir-test.")
}

func TestNew_UniqueNames(t *testing.T) {
	t.Parallel()

	a, err := New("tempdir-test")
	require.NoError(t, err)
	defer func() { _ = a.Remove() }()

	b, err := New("tempdir-test")
	require.NoError(t, err)
	defer func() { _ = b.Remove() }()

	assert.NotEqual(t, a.Path(), b.Path())
}

func TestRemove(t *testing.T) {
	t.Parallel()

	d, err := New("tempdir-test")
	require.NoError(t, err)

	// Populate so removal is recursive.
	require.NoError(t, os.MkdirAll(filepath.Join(d.Path(), "a", "b"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(d.Path(), "a", "f"), []byte("x"), 0644))

	require.NoError(t, d.Remove())
	_, err = os.Stat(d.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestRemove_Idempotent(t *testing.T) {
	t.Parallel()

	d, err := New("tempdir-test")
	require.NoError(t, err)

	require.NoError(t, d.Remove())
	require.NoError(t, d.Remove())
}

func TestPreserve(t *testing.T) {
	t.Parallel()

	d, err := New("tempdir-test")
	require.NoError(t, err)

	d.Preserve()
	assert.True(t, d.Preserved())

	require.NoError(t, d.Remove())
	_, err = os.Stat(d.Path())
	assert.NoError(t, err, "preserved directory must survive Remove")

	// Discard re-arms deletion.
	d.Discard()
	assert.False(t, d.Preserved())
	require.NoError(t, d.Remove())
	_, err = os.Stat(d.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestPath_UnderSystemTempRoot(t *testing.T) {
	t.Parallel()

	d, err := New("tempdir-test")
	require.NoError(t, err)
	defer func() { _ = d.Remove() }()

	assert.True(t, strings.HasPrefix(d.Path(), os.TempDir()))
}
