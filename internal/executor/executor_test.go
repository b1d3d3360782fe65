package executor

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"pyenvctl/internal/actions"
	"pyenvctl/internal/pyenv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider returns canned specs and results so no process ever runs.
type fakeProvider struct {
	buildErr error
	parseErr error
	result   actions.Result
}

func (f *fakeProvider) Build(kind pyenv.OpKind, target pyenv.Target) (actions.ExecSpec, error) {
	if f.buildErr != nil {
		return actions.ExecSpec{}, f.buildErr
	}
	return actions.ExecSpec{Argv: []string{"true"}}, nil
}

func (f *fakeProvider) Parse(kind pyenv.OpKind, target pyenv.Target, raw []byte) (actions.Result, error) {
	if f.parseErr != nil {
		return actions.Result{}, f.parseErr
	}
	return f.result, nil
}

// fakeRunner blocks until released (or until the operation context is
// cancelled) and then returns its configured outcome.
type fakeRunner struct {
	release chan struct{}
	err     error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{release: make(chan struct{})}
}

func (r *fakeRunner) Run(ctx context.Context, spec actions.ExecSpec) ([]byte, error) {
	select {
	case <-r.release:
		return nil, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func awaitEvent(t *testing.T, e *Executor) Event {
	t.Helper()
	select {
	case ev := <-e.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for terminal event")
		return Event{}
	}
}

func TestSubmitDeliversSuccessEvent(t *testing.T) {
	env := &pyenv.Environment{Path: "/envs/a", Name: "a", Kind: pyenv.KindVenv}
	provider := &fakeProvider{result: actions.Result{
		Packages: []pyenv.Package{{Name: "requests", Version: "2.31.0"}},
		Env:      env,
	}}
	runner := newFakeRunner()
	e := New(provider, runner)

	target := pyenv.Target{EnvPath: "/envs/a"}
	id, err := e.Submit(pyenv.OpListPackages, target)
	require.NoError(t, err)
	require.NotZero(t, id)
	assert.True(t, e.Pending(pyenv.OpListPackages, target))

	close(runner.release)
	ev := awaitEvent(t, e)
	assert.Equal(t, id, ev.OpID)
	assert.Equal(t, pyenv.OpListPackages, ev.Kind)
	assert.Equal(t, target, ev.Target)
	assert.Equal(t, pyenv.StatusSucceeded, ev.Status)
	assert.False(t, ev.Failed())
	assert.Len(t, ev.Packages, 1)
	assert.Same(t, env, ev.Env)
	assert.False(t, e.Pending(pyenv.OpListPackages, target))
}

func TestSubmitRejectsDuplicateTarget(t *testing.T) {
	runner := newFakeRunner()
	e := New(&fakeProvider{}, runner)
	target := pyenv.Target{EnvPath: "/envs/a"}

	_, err := e.Submit(pyenv.OpListPackages, target)
	require.NoError(t, err)

	_, err = e.Submit(pyenv.OpListPackages, target)
	require.ErrorIs(t, err, ErrConflict)

	// A different kind against the same target is not a conflict.
	_, err = e.Submit(pyenv.OpInstallPackage, pyenv.Target{EnvPath: "/envs/a", Package: "numpy"})
	require.NoError(t, err)

	close(runner.release)
	awaitEvent(t, e)
	awaitEvent(t, e)
}

func TestSubmitBuildFailureIsSynchronous(t *testing.T) {
	provider := &fakeProvider{buildErr: fmt.Errorf("unknown environment")}
	e := New(provider, newFakeRunner())

	id, err := e.Submit(pyenv.OpDeleteEnv, pyenv.Target{EnvPath: "/envs/missing"})
	require.Error(t, err)
	assert.Zero(t, id)

	select {
	case ev := <-e.Events():
		t.Fatalf("build failure must not emit an event, got %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
	assert.False(t, e.HasPendingEnv("/envs/missing"))
}

func TestRunFailureReported(t *testing.T) {
	runner := newFakeRunner()
	runner.err = fmt.Errorf("pip: exited 1")
	e := New(&fakeProvider{}, runner)

	_, err := e.Submit(pyenv.OpInstallPackage, pyenv.Target{EnvPath: "/envs/a", Package: "numpy"})
	require.NoError(t, err)
	close(runner.release)

	ev := awaitEvent(t, e)
	assert.Equal(t, pyenv.StatusFailed, ev.Status)
	assert.Equal(t, "pip: exited 1", ev.Reason)
	assert.True(t, ev.Failed())
}

func TestParseFailureReported(t *testing.T) {
	provider := &fakeProvider{parseErr: fmt.Errorf("parsing pip list output: bad json")}
	runner := newFakeRunner()
	e := New(provider, runner)

	_, err := e.Submit(pyenv.OpListPackages, pyenv.Target{EnvPath: "/envs/a"})
	require.NoError(t, err)
	close(runner.release)

	ev := awaitEvent(t, e)
	assert.Equal(t, pyenv.StatusFailed, ev.Status)
	assert.Contains(t, ev.Reason, "bad json")
}

func TestCancelProducesCancelledEvent(t *testing.T) {
	runner := newFakeRunner()
	e := New(&fakeProvider{}, runner)
	target := pyenv.Target{EnvPath: "/envs/a"}

	id, err := e.Submit(pyenv.OpListPackages, target)
	require.NoError(t, err)

	require.True(t, e.Cancel(id))
	ev := awaitEvent(t, e)
	assert.Equal(t, pyenv.StatusCancelled, ev.Status)
	assert.Equal(t, "cancelled", ev.Reason)

	// The slot is free for a resubmission.
	_, err = e.Submit(pyenv.OpListPackages, target)
	require.NoError(t, err)
}

func TestCancelUnknownID(t *testing.T) {
	e := New(&fakeProvider{}, newFakeRunner())
	assert.False(t, e.Cancel(42))
}

func TestCancelAfterCompletionIsNoOp(t *testing.T) {
	runner := newFakeRunner()
	e := New(&fakeProvider{}, runner)

	id, err := e.Submit(pyenv.OpListPackages, pyenv.Target{EnvPath: "/envs/a"})
	require.NoError(t, err)
	close(runner.release)

	ev := awaitEvent(t, e)
	assert.Equal(t, pyenv.StatusSucceeded, ev.Status)

	assert.False(t, e.Cancel(id))
	select {
	case extra := <-e.Events():
		t.Fatalf("no second event expected, got %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPendingForEnv(t *testing.T) {
	runner := newFakeRunner()
	e := New(&fakeProvider{}, runner)

	idA, err := e.Submit(pyenv.OpListPackages, pyenv.Target{EnvPath: "/envs/a"})
	require.NoError(t, err)
	idB, err := e.Submit(pyenv.OpInstallPackage, pyenv.Target{EnvPath: "/envs/a", Package: "numpy"})
	require.NoError(t, err)
	_, err = e.Submit(pyenv.OpListPackages, pyenv.Target{EnvPath: "/envs/b"})
	require.NoError(t, err)

	ids := e.PendingForEnv("/envs/a")
	assert.ElementsMatch(t, []uint64{idA, idB}, ids)
	assert.True(t, e.HasPendingEnv("/envs/a"))
	assert.True(t, e.HasPendingEnv("/envs/b"))
	assert.False(t, e.HasPendingEnv("/envs/c"))

	close(runner.release)
	for i := 0; i < 3; i++ {
		awaitEvent(t, e)
	}
	assert.False(t, e.HasPendingEnv("/envs/a"))
}

func TestExecRunnerRemovePath(t *testing.T) {
	dir := t.TempDir()
	out, err := ExecRunner{}.Run(context.Background(), actions.ExecSpec{RemovePath: dir})
	require.NoError(t, err)
	assert.Nil(t, out)
	_, statErr := os.Stat(dir)
	assert.Error(t, statErr)
}

func TestExecRunnerRemovePathHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dir := t.TempDir()
	_, err := ExecRunner{}.Run(ctx, actions.ExecSpec{RemovePath: dir})
	require.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(dir)
	assert.NoError(t, statErr, "cancelled delete must not touch the directory")
}

func TestExecRunnerEmptyCommand(t *testing.T) {
	_, err := ExecRunner{}.Run(context.Background(), actions.ExecSpec{})
	require.Error(t, err)
}

func TestLastLines(t *testing.T) {
	assert.Equal(t, "a\nb", lastLines("a\nb", 3))
	assert.Equal(t, "c\nd\ne", lastLines("a\nb\nc\nd\ne", 3))
}
