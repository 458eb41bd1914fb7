package system

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  CommandError
		want string
	}{
		{
			name: "with output",
			err:  CommandError{Cmd: "mount -t nfs", ExitCode: 32, Output: "access denied"},
			want: "mount -t nfs: exit status 32: access denied",
		},
		{
			name: "without output",
			err:  CommandError{Cmd: "exportfs -ra", ExitCode: 1},
			want: "exportfs -ra: exit status 1",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestExitStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, ExitStatus(nil))
	assert.Equal(t, 32, ExitStatus(&CommandError{Cmd: "mount", ExitCode: 32}))
	assert.Equal(t, 32, ExitStatus(fmt.Errorf("wrapped: %w", &CommandError{ExitCode: 32})))
	assert.Equal(t, -1, ExitStatus(errors.New("executable not found")))
}

func TestServerSpec(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "127.0.0.1:/tmp/x/mount/d0001", ServerSpec("127.0.0.1", "/tmp/x/mount/d0001"))
}

func TestExecMounter_Args(t *testing.T) {
	t.Parallel()

	m := NewExecMounter("127.0.0.1", 3, "rw", 0)
	args := m.args("/srv/mount/d0000", "/srv/client/d0000")

	assert.Equal(t, []string{
		"-t", "nfs",
		"-o", "rw,nfsvers=3",
		"127.0.0.1:/srv/mount/d0000",
		"/srv/client/d0000",
	}, args)
}

func TestExecMounter_Args_NoExtraOptions(t *testing.T) {
	t.Parallel()

	m := NewExecMounter("10.0.0.2", 4, "", 0)
	args := m.args("/a", "/b")

	assert.Equal(t, []string{"-t", "nfs", "-o", "nfsvers=4", "10.0.0.2:/a", "/b"}, args)
}

func TestRun_NonZeroExit(t *testing.T) {
	t.Parallel()

	err := run(context.Background(), "false")
	require.Error(t, err)

	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, 1, cmdErr.ExitCode)
	assert.Equal(t, "false", cmdErr.Cmd)
}

func TestRun_Success(t *testing.T) {
	t.Parallel()

	assert.NoError(t, run(context.Background(), "true"))
}

func TestRun_CommandNotFound(t *testing.T) {
	t.Parallel()

	err := run(context.Background(), "paramount-no-such-utility")
	require.Error(t, err)

	var cmdErr *CommandError
	assert.False(t, errors.As(err, &cmdErr), "lookup failures are not command errors")
	assert.Equal(t, -1, ExitStatus(err))
}
