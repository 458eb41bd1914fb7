// Package tempdir provides a scoped temporary directory: created on
// construction, removed recursively on Remove unless the caller asked to
// preserve its contents.
package tempdir

import (
	"fmt"
	"os"
	"sync"
)

// Dir is a uniquely-named temporary directory under the system temp root.
//
// Remove is safe to call more than once; only the first call deletes the
// directory. Preserve disables deletion entirely, which is useful when an
// operator wants to inspect the tree after a failed run.
type Dir struct {
	mu       sync.Mutex
	path     string
	preserve bool
	removed  bool
}

// New creates a temporary directory whose name starts with prefix.
func New(prefix string) (*Dir, error) {
	path, err := os.MkdirTemp("", prefix+".*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary directory: %w", err)
	}
	return &Dir{path: path}, nil
}

// Path returns the absolute path of the directory.
func (d *Dir) Path() string {
	return d.path
}

// Preserve prevents the directory from being deleted by Remove.
func (d *Dir) Preserve() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.preserve = true
}

// Discard re-enables deletion. This is the default behavior.
func (d *Dir) Discard() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.preserve = false
}

// Preserved reports whether the directory is marked to survive Remove.
func (d *Dir) Preserved() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.preserve
}

// Remove deletes the directory tree. It is a no-op when the directory is
// preserved or already removed.
func (d *Dir) Remove() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.preserve || d.removed {
		return nil
	}
	if err := os.RemoveAll(d.path); err != nil {
		return fmt.Errorf("failed to remove temporary directory %s: %w", d.path, err)
	}
	d.removed = true
	return nil
}
