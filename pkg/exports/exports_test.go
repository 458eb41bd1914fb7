package exports

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marmos91/paramount/pkg/provision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSID_Deterministic(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "00000000-0000-0000-0000-000000000000", FSID(0).String())
	assert.Equal(t, "00000000-0000-0000-0000-000000000007", FSID(7).String())
	assert.Equal(t, "00000000-0000-0000-0000-0000000000ff", FSID(255).String())
	assert.Equal(t, FSID(42), FSID(42))
}

func TestFSID_UniquePerIdentifier(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for id := 0; id < 256; id++ {
		s := FSID(id).String()
		assert.False(t, seen[s], "fsid %s duplicated", s)
		seen[s] = true
	}
}

func TestBuildEntries(t *testing.T) {
	t.Parallel()

	pairs := []provision.MountPair{
		{ID: 0, ServerDir: "/r/mount/d0000", ClientDir: "/r/client/d0000"},
		{ID: 1, ServerDir: "/r/mount/d0001", ClientDir: "/r/client/d0001"},
		{ID: 2, ServerDir: "/r/mount/d0002", ClientDir: "/r/client/d0002"},
	}

	entries := BuildEntries(pairs)
	require.Len(t, entries, 3)

	for i, e := range entries {
		assert.Equal(t, pairs[i].ServerDir, e.Dir)
		assert.Contains(t, e.Options, "rw,no_subtree_check,no_root_squash,fsid=")
		assert.Contains(t, e.Options, FSID(i).String())
	}
}

func TestWriteTable(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "paramount.exports")
	entries := []Entry{
		{Dir: "/r/mount/d0000", Options: "rw,fsid=a"},
		{Dir: "/r/mount/d0001", Options: "rw,fsid=b"},
	}

	require.NoError(t, WriteTable(path, "paramount", entries))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "### BEGIN paramount", lines[0])
	assert.Equal(t, "/r/mount/d0000\t*(rw,fsid=a)", lines[1])
	assert.Equal(t, "/r/mount/d0001\t*(rw,fsid=b)", lines[2])
	assert.Equal(t, "### END paramount", lines[3])
}

func TestWriteTable_TruncatesPriorContent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "paramount.exports")
	require.NoError(t, os.WriteFile(path, []byte("stale content\n"), 0644))

	require.NoError(t, WriteTable(path, "paramount", nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale content")
	assert.Equal(t, "### BEGIN paramount\n### END paramount\n", string(data))
}

func TestWriteTable_UnwritablePath(t *testing.T) {
	t.Parallel()

	err := WriteTable(filepath.Join(t.TempDir(), "missing", "paramount.exports"), "paramount", nil)
	assert.Error(t, err)
}

func TestRemove(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "paramount.exports")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	require.NoError(t, Remove(path))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Removing an absent file is not an error.
	assert.NoError(t, Remove(path))
}
