// Package mounttable reads the live mount table and verifies it against
// the expected device-to-mountpoint mapping of a run.
package mounttable

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultPath is the live mount table of the current process on Linux.
const DefaultPath = "/proc/self/mounts"

// Record is one line of the live mount table. Read-only; discarded after
// verification.
type Record struct {
	// Device is the mounted device, e.g. "127.0.0.1:/tmp/x/mount/d0000"
	// for an NFS mount.
	Device string

	// Mountpoint is where the device is mounted.
	Mountpoint string

	// FSType is the filesystem type, e.g. "nfs4".
	FSType string

	// Options is the comma-separated mount option string.
	Options string
}

// IsNFS reports whether the record belongs to the NFS family.
func (r Record) IsNFS() bool {
	return r.FSType == "nfs" || r.FSType == "nfs4"
}

// Parse reads mount records, one per line. Fields are whitespace-separated:
// device, mountpoint, fstype, options, plus two fields (dump/pass) that are
// ignored. Lines with fewer than four fields are skipped.
func Parse(r io.Reader) ([]Record, error) {
	var records []Record

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			continue
		}
		records = append(records, Record{
			Device:     fields[0],
			Mountpoint: fields[1],
			FSType:     fields[2],
			Options:    fields[3],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read mount table: %w", err)
	}
	return records, nil
}

// ParseFile reads and parses the mount table at path.
func ParseFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mount table %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// VerificationError reports one live NFS mount that contradicts the
// expected mapping.
type VerificationError struct {
	// Device is the offending device string.
	Device string

	// Mountpoint is where the device is actually mounted.
	Mountpoint string

	// Expected is the mountpoint the device should be on; empty when the
	// device is not tracked at all.
	Expected string
}

// Error implements the error interface.
func (e *VerificationError) Error() string {
	if e.Expected == "" {
		return fmt.Sprintf("mount %q not found in expected map", e.Device)
	}
	return fmt.Sprintf("mount %q expected mountpoint %q found %q",
		e.Device, e.Expected, e.Mountpoint)
}

// Verify checks every NFS-family record against the expected
// device-to-mountpoint map. Records of other filesystem types are ignored
// even when their device string looks related.
//
// All inconsistencies are collected so the diagnostic names every offending
// device; any inconsistency makes the whole verification fail.
func Verify(records []Record, expected map[string]string) error {
	var errs []error

	for _, rec := range records {
		if !rec.IsNFS() {
			continue
		}

		want, ok := expected[rec.Device]
		if !ok {
			errs = append(errs, &VerificationError{
				Device:     rec.Device,
				Mountpoint: rec.Mountpoint,
			})
			continue
		}
		if want != rec.Mountpoint {
			errs = append(errs, &VerificationError{
				Device:     rec.Device,
				Mountpoint: rec.Mountpoint,
				Expected:   want,
			})
		}
	}

	return errors.Join(errs...)
}
