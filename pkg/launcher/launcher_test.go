package launcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/paramount/pkg/provision"
	"github.com/marmos91/paramount/pkg/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMounter records every invocation and fails the configured pair IDs.
type fakeMounter struct {
	mu      sync.Mutex
	calls   []string
	failIDs map[string]int // serverDir -> exit code
}

func (f *fakeMounter) Mount(_ context.Context, serverDir, _ string) error {
	f.mu.Lock()
	f.calls = append(f.calls, serverDir)
	code, fail := f.failIDs[serverDir]
	f.mu.Unlock()

	if fail {
		return &system.CommandError{Cmd: "mount " + serverDir, ExitCode: code}
	}
	return nil
}

// rendezvousMounter blocks every Mount call until all expected workers are
// in flight at the same time. If the launcher released workers one by one
// instead of simultaneously, the calls would never all be in flight
// together and the test would time out.
type rendezvousMounter struct {
	inFlight sync.WaitGroup
}

func newRendezvousMounter(n int) *rendezvousMounter {
	m := &rendezvousMounter{}
	m.inFlight.Add(n)
	return m
}

func (m *rendezvousMounter) Mount(context.Context, string, string) error {
	m.inFlight.Done()
	m.inFlight.Wait()
	return nil
}

func makePairs(n int) []provision.MountPair {
	pairs := make([]provision.MountPair, n)
	for i := range pairs {
		pairs[i] = provision.MountPair{
			ID:        i,
			ServerDir: "/r/mount/" + provision.DirName(i),
			ClientDir: "/r/client/" + provision.DirName(i),
		}
	}
	return pairs
}

func TestRun_AllSucceed(t *testing.T) {
	t.Parallel()

	mounter := &fakeMounter{}
	outcomes := New(mounter).Run(context.Background(), makePairs(5))

	require.Len(t, outcomes, 5)
	for i, o := range outcomes {
		assert.Equal(t, i, o.ID)
		assert.Equal(t, 0, o.ExitCode)
		assert.True(t, o.OK())
	}
	assert.Equal(t, 0, Failures(outcomes))
	assert.Len(t, mounter.calls, 5)
}

func TestRun_ZeroPairs(t *testing.T) {
	t.Parallel()

	outcomes := New(&fakeMounter{}).Run(context.Background(), nil)
	assert.Empty(t, outcomes)
}

func TestRun_SimultaneousRelease(t *testing.T) {
	t.Parallel()

	const n = 16
	mounter := newRendezvousMounter(n)

	doneCh := make(chan []Outcome, 1)
	go func() {
		doneCh <- New(mounter).Run(context.Background(), makePairs(n))
	}()

	select {
	case outcomes := <-doneCh:
		assert.Equal(t, 0, Failures(outcomes))
	case <-time.After(10 * time.Second):
		t.Fatal("workers were not all in flight simultaneously; barrier release is not atomic")
	}
}

func TestRun_PartialFailure(t *testing.T) {
	t.Parallel()

	pairs := makePairs(4)
	mounter := &fakeMounter{
		failIDs: map[string]int{pairs[2].ServerDir: 32},
	}

	outcomes := New(mounter).Run(context.Background(), pairs)

	require.Len(t, outcomes, 4, "a failing worker must not prevent others from running")
	assert.Equal(t, 1, Failures(outcomes))

	for _, o := range outcomes {
		if o.ID == 2 {
			assert.Equal(t, 32, o.ExitCode)
			assert.False(t, o.OK())
		} else {
			assert.Equal(t, 0, o.ExitCode)
			assert.True(t, o.OK())
		}
	}
}

func TestRun_OutcomesKeyedByIdentifier(t *testing.T) {
	t.Parallel()

	pairs := makePairs(8)
	outcomes := New(&fakeMounter{}).Run(context.Background(), pairs)

	seen := make(map[int]bool)
	for i, o := range outcomes {
		assert.Equal(t, pairs[i].ID, o.ID)
		assert.False(t, seen[o.ID], "identifier %d duplicated", o.ID)
		seen[o.ID] = true
	}
}

func TestFailures(t *testing.T) {
	t.Parallel()

	outcomes := []Outcome{
		{ID: 0},
		{ID: 1, ExitCode: 32, Err: &system.CommandError{ExitCode: 32}},
		{ID: 2},
		{ID: 3, ExitCode: -1, Err: context.DeadlineExceeded},
	}
	assert.Equal(t, 2, Failures(outcomes))
}
