// Package provision allocates the server/client directory pairs a run
// mounts against each other.
package provision

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/marmos91/paramount/pkg/system"
)

const (
	// ServerSubdir is the subtree holding the exported directories.
	ServerSubdir = "mount"

	// ClientSubdir is the subtree holding the client mountpoints.
	ClientSubdir = "client"
)

// MountPair binds one exported server directory to its client mountpoint.
// Pairs are created once per run and never mutated afterwards.
type MountPair struct {
	// ID is the pair's stable identifier, 0..N-1.
	ID int

	// ServerDir is the directory exported over NFS.
	ServerDir string

	// ClientDir is the mountpoint the export is mounted onto.
	ClientDir string
}

// DirName returns the deterministic zero-padded directory name for a pair
// index, e.g. 7 -> "d0007". The fixed width keeps listings sorted and makes
// the identifier<->path mapping inspectable.
func DirName(id int) string {
	return fmt.Sprintf("d%04d", id)
}

// Allocate creates the mount/ and client/ subtrees under root plus n
// uniquely-named directories in each, and returns the ordered pair
// sequence.
//
// Any create failure aborts allocation immediately; rollback of whatever
// was already created is the caller's job (the lifecycle controller removes
// the whole root during teardown).
func Allocate(root string, n int) ([]MountPair, error) {
	serverRoot := filepath.Join(root, ServerSubdir)
	if err := os.Mkdir(serverRoot, 0755); err != nil {
		return nil, fmt.Errorf("failed to create mount root directory %s: %w", serverRoot, err)
	}

	clientRoot := filepath.Join(root, ClientSubdir)
	if err := os.Mkdir(clientRoot, 0755); err != nil {
		return nil, fmt.Errorf("failed to create client root directory %s: %w", clientRoot, err)
	}

	pairs := make([]MountPair, 0, n)
	for id := 0; id < n; id++ {
		name := DirName(id)

		serverDir := filepath.Join(serverRoot, name)
		if err := os.Mkdir(serverDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create mount directory %s: %w", serverDir, err)
		}

		clientDir := filepath.Join(clientRoot, name)
		if err := os.Mkdir(clientDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create client directory %s: %w", clientDir, err)
		}

		pairs = append(pairs, MountPair{ID: id, ServerDir: serverDir, ClientDir: clientDir})
	}

	return pairs, nil
}

// ExpectedMap derives the verification lookup table: the device string each
// mount will show up as in the live mount table, mapped to the client
// mountpoint it must appear on. Keys are unique because every pair owns its
// own server directory.
func ExpectedMap(serverAddr string, pairs []MountPair) map[string]string {
	m := make(map[string]string, len(pairs))
	for _, p := range pairs {
		m[system.ServerSpec(serverAddr, p.ServerDir)] = p.ClientDir
	}
	return m
}
