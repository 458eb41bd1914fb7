// Package system wraps the OS-level mount, umount and exportfs utilities
// behind small interfaces so the harness can be exercised with fakes.
//
// The utilities are treated as opaque subprocesses: the only feedback is
// their exit status (and combined output, kept for diagnostics).
package system

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CommandError reports a non-zero exit from an external utility.
type CommandError struct {
	// Cmd is the command line that was executed.
	Cmd string

	// ExitCode is the subprocess exit status.
	ExitCode int

	// Output is the combined stdout/stderr of the subprocess, trimmed.
	Output string
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("%s: exit status %d: %s", e.Cmd, e.ExitCode, e.Output)
	}
	return fmt.Sprintf("%s: exit status %d", e.Cmd, e.ExitCode)
}

// ExitStatus extracts an exit status from an error returned by a
// collaborator. nil maps to 0; a CommandError yields its recorded status;
// anything else (command not found, context cancellation) maps to -1.
func ExitStatus(err error) int {
	if err == nil {
		return 0
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.ExitCode
	}
	return -1
}

// ServerSpec builds the NFS device string for a mount invocation, e.g.
// "127.0.0.1:/tmp/paramount.x/mount/d0003". The same string shows up as the
// device field of the live mount table, so it doubles as the verification
// lookup key.
func ServerSpec(addr, serverDir string) string {
	return addr + ":" + serverDir
}

// Mounter mounts a single exported directory onto a client mountpoint.
type Mounter interface {
	// Mount blocks until the mount utility exits. A non-zero exit is
	// returned as a *CommandError; the caller treats it as data.
	Mount(ctx context.Context, serverDir, clientDir string) error
}

// Unmounter detaches every NFS mount at teardown.
type Unmounter interface {
	// UnmountAllNFS lazily unmounts everything of type nfs so an unmount
	// that cannot complete immediately is detached rather than blocking.
	UnmountAllNFS(ctx context.Context) error
}

// Exporter re-reads and activates the export table.
type Exporter interface {
	// Reload runs the export-control utility with its "reload all"
	// argument. A non-zero exit is returned as a *CommandError.
	Reload(ctx context.Context) error
}

// ExecMounter runs the mount(8) utility.
type ExecMounter struct {
	// ServerAddr is the NFS server address, normally 127.0.0.1 since the
	// harness exports and mounts on the same host.
	ServerAddr string

	// Version is the NFS protocol version passed as nfsvers=.
	Version int

	// Options are extra mount options prepended to nfsvers (e.g. "rw").
	Options string

	// Timeout bounds a single mount invocation. Zero means no bound, which
	// matches the historical behavior: a hung mount hangs the run.
	Timeout time.Duration
}

// NewExecMounter builds a Mounter for the given server address and options.
func NewExecMounter(addr string, version int, options string, timeout time.Duration) *ExecMounter {
	return &ExecMounter{
		ServerAddr: addr,
		Version:    version,
		Options:    options,
		Timeout:    timeout,
	}
}

// args builds the mount command line for one pair.
func (m *ExecMounter) args(serverDir, clientDir string) []string {
	opts := fmt.Sprintf("nfsvers=%d", m.Version)
	if m.Options != "" {
		opts = m.Options + "," + opts
	}
	return []string{"-t", "nfs", "-o", opts, ServerSpec(m.ServerAddr, serverDir), clientDir}
}

// Mount implements Mounter.
func (m *ExecMounter) Mount(ctx context.Context, serverDir, clientDir string) error {
	if m.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.Timeout)
		defer cancel()
	}
	return run(ctx, "mount", m.args(serverDir, clientDir)...)
}

// ExecUnmounter runs umount(8).
type ExecUnmounter struct{}

// NewExecUnmounter builds the teardown Unmounter.
func NewExecUnmounter() *ExecUnmounter {
	return &ExecUnmounter{}
}

// UnmountAllNFS implements Unmounter. The -l flag detaches busy mounts
// instead of blocking teardown.
func (u *ExecUnmounter) UnmountAllNFS(ctx context.Context) error {
	return run(ctx, "umount", "-a", "-t", "nfs", "-l")
}

// ExecExporter runs exportfs(8).
type ExecExporter struct{}

// NewExecExporter builds the export-activation Exporter.
func NewExecExporter() *ExecExporter {
	return &ExecExporter{}
}

// Reload implements Exporter. -ra re-exports every directory listed in the
// export configuration and unexports everything no longer listed.
func (e *ExecExporter) Reload(ctx context.Context) error {
	return run(ctx, "exportfs", "-ra")
}

// run executes a utility and converts a non-zero exit into a *CommandError.
func run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}

	cmdline := strings.Join(append([]string{name}, args...), " ")

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &CommandError{
			Cmd:      cmdline,
			ExitCode: exitErr.ExitCode(),
			Output:   strings.TrimSpace(string(output)),
		}
	}
	return fmt.Errorf("%s: %w", cmdline, err)
}
