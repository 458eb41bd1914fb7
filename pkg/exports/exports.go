// Package exports builds the NFS export table for a run and materializes it
// into an export configuration file that exportfs consumes.
//
// The table is written between explicit sentinel lines so the harness's
// block can be located and removed without disturbing unrelated content:
//
//	### BEGIN paramount
//	/tmp/paramount.x/mount/d0000	*(rw,no_subtree_check,no_root_squash,fsid=...)
//	### END paramount
package exports

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/marmos91/paramount/pkg/provision"
)

// Entry is one line of the export table: a server directory with its
// export options.
type Entry struct {
	// Dir is the exported server directory.
	Dir string

	// Options is the comma-separated export option string.
	Options string
}

// FSID derives the synthetic filesystem id for a pair identifier. Exports
// that would otherwise be indistinguishable need distinct fsids so the
// export service treats them as separate filesystems.
//
// The derivation is deterministic: the identifier occupies the trailing
// bytes of an otherwise-zero UUID, so two runs with the same N produce
// textually identical tables.
func FSID(id int) uuid.UUID {
	var u uuid.UUID
	binary.BigEndian.PutUint32(u[12:], uint32(id))
	return u
}

// BuildEntries produces one export entry per mount pair. Every entry is
// read-write with subtree checking and root squashing disabled, plus its
// unique fsid.
func BuildEntries(pairs []provision.MountPair) []Entry {
	entries := make([]Entry, 0, len(pairs))
	for _, p := range pairs {
		entries = append(entries, Entry{
			Dir:     p.ServerDir,
			Options: fmt.Sprintf("rw,no_subtree_check,no_root_squash,fsid=%s", FSID(p.ID)),
		})
	}
	return entries
}

// Markers returns the begin/end sentinel lines for a table tag.
func Markers(tag string) (begin, end string) {
	return "### BEGIN " + tag, "### END " + tag
}

// WriteTable writes the complete export table to path, truncating any prior
// content. Activation of the table (exportfs reload) is deliberately the
// caller's job so table construction stays testable in isolation.
func WriteTable(path, tag string, entries []Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to open export file %s: %w", path, err)
	}

	begin, end := Markers(tag)

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, begin)
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t*(%s)\n", e.Dir, e.Options)
	}
	fmt.Fprintln(w, end)

	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write export file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close export file %s: %w", path, err)
	}
	return nil
}

// Remove deletes the export file. A file that is already gone is not an
// error; teardown must stay idempotent.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove export file %s: %w", path, err)
	}
	return nil
}
