// Package executor runs logical actions as tracked asynchronous operations.
// Each accepted submission spawns one goroutine; the goroutine reports back
// exclusively through the terminal-event channel, so the control loop that
// owns the registry never blocks on process I/O and needs no locks.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"pyenvctl/internal/actions"
	"pyenvctl/internal/pyenv"
	"pyenvctl/pkg/logging"
)

const subsystem = "Executor"

// ErrConflict is returned by Submit when an operation with the same
// (target, kind) pair is already running. No process is spawned.
var ErrConflict = errors.New("operation already in flight for this target")

// Event is the single terminal event every operation produces, delivered
// exactly once per operation id.
type Event struct {
	OpID   uint64
	Kind   pyenv.OpKind
	Target pyenv.Target
	Status pyenv.OpStatus
	Reason string

	// Parsed output, populated on success for the kinds that produce one.
	Packages []pyenv.Package
	Env      *pyenv.Environment
}

// Failed reports whether the event carries a non-success terminal status.
func (e Event) Failed() bool {
	return e.Status != pyenv.StatusSucceeded
}

// Runner executes one spec to completion, honoring context cancellation.
// The default runner shells out via os/exec; tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, spec actions.ExecSpec) (stdout []byte, err error)
}

type inflightKey struct {
	kind   pyenv.OpKind
	target pyenv.Target
}

type operation struct {
	id        uint64
	kind      pyenv.OpKind
	target    pyenv.Target
	ctx       context.Context
	cancel    context.CancelFunc
	cancelled bool
	done      bool
}

// Executor schedules, tracks and cancels operations.
type Executor struct {
	provider actions.Provider
	runner   Runner
	events   chan Event

	mu       sync.Mutex
	nextID   uint64
	inflight map[inflightKey]*operation
	ops      map[uint64]*operation
}

// New builds an executor. A nil runner selects the os/exec-backed default.
func New(provider actions.Provider, runner Runner) *Executor {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Executor{
		provider: provider,
		runner:   runner,
		events:   make(chan Event, 64),
		inflight: make(map[inflightKey]*operation),
		ops:      make(map[uint64]*operation),
	}
}

// Events returns the terminal-event channel. Single consumer: the control
// loop.
func (e *Executor) Events() <-chan Event {
	return e.events
}

// Submit requests one asynchronous operation and returns immediately with
// its id. A duplicate (target, kind) submission while the first is still
// running is rejected with ErrConflict. A Build failure is reported
// synchronously and spawns nothing.
func (e *Executor) Submit(kind pyenv.OpKind, target pyenv.Target) (uint64, error) {
	key := inflightKey{kind: kind, target: target}

	spec, err := e.provider.Build(kind, target)
	if err != nil {
		return 0, err
	}

	e.mu.Lock()
	if _, exists := e.inflight[key]; exists {
		e.mu.Unlock()
		logging.Debug(subsystem, "Rejecting duplicate %s for %q", kind, target.EnvPath)
		return 0, fmt.Errorf("%s %s: %w", kind, target.EnvPath, ErrConflict)
	}
	e.nextID++
	id := e.nextID
	ctx, cancel := context.WithCancel(context.Background())
	op := &operation{id: id, kind: kind, target: target, ctx: ctx, cancel: cancel}
	e.inflight[key] = op
	e.ops[id] = op
	e.mu.Unlock()

	logging.Info(subsystem, "Starting %s (op %d) for %q", kind, id, target.EnvPath)
	go e.runOperation(op, key, spec)
	return id, nil
}

func (e *Executor) runOperation(op *operation, key inflightKey, spec actions.ExecSpec) {
	out, runErr := e.runner.Run(op.ctx, spec)

	var result actions.Result
	var parseErr error
	if runErr == nil {
		result, parseErr = e.provider.Parse(op.kind, op.target, out)
	}

	e.finish(op, key, func(ev *Event) {
		switch {
		case runErr != nil && op.cancelled:
			ev.Status = pyenv.StatusCancelled
			ev.Reason = "cancelled"
		case runErr != nil:
			ev.Status = pyenv.StatusFailed
			ev.Reason = runErr.Error()
		case parseErr != nil:
			// A parse failure is indistinguishable from a process failure
			// as far as consumers are concerned.
			ev.Status = pyenv.StatusFailed
			ev.Reason = parseErr.Error()
		default:
			ev.Status = pyenv.StatusSucceeded
			ev.Packages = result.Packages
			ev.Env = result.Env
		}
	})
}

// finish marks the operation done and emits its single terminal event.
// Idempotent per operation: a second call is a no-op.
func (e *Executor) finish(op *operation, key inflightKey, fill func(*Event)) {
	e.mu.Lock()
	if op.done {
		e.mu.Unlock()
		return
	}
	op.done = true
	if cur, ok := e.inflight[key]; ok && cur.id == op.id {
		delete(e.inflight, key)
	}
	delete(e.ops, op.id)
	ev := Event{OpID: op.id, Kind: op.kind, Target: op.target}
	fill(&ev)
	e.mu.Unlock()

	logging.Info(subsystem, "%s (op %d) finished: %s", op.kind, op.id, ev.Status)
	e.events <- ev
}

// Cancel requests best-effort termination of a running operation. Returns
// false when the id is unknown or already finished. If the process completes
// before the cancellation lands, its natural outcome is delivered instead;
// consumers must treat either terminal event idempotently.
func (e *Executor) Cancel(opID uint64) bool {
	e.mu.Lock()
	op, ok := e.ops[opID]
	if !ok || op.done {
		e.mu.Unlock()
		return false
	}
	op.cancelled = true
	cancel := op.cancel
	e.mu.Unlock()

	logging.Info(subsystem, "Cancellation requested for op %d", opID)
	cancel()
	return true
}

// Pending reports whether an operation is in flight for the exact
// (target, kind) pair.
func (e *Executor) Pending(kind pyenv.OpKind, target pyenv.Target) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.inflight[inflightKey{kind: kind, target: target}]
	return ok
}

// PendingForEnv returns the ids of in-flight operations touching the given
// environment path, in unspecified order.
func (e *Executor) PendingForEnv(envPath string) []uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	var ids []uint64
	for _, op := range e.ops {
		if op.target.EnvPath == envPath && !op.done {
			ids = append(ids, op.id)
		}
	}
	return ids
}

// HasPendingEnv reports whether any operation is in flight against the
// environment path. ApplyDiscovery uses this to keep not-yet-rescanned
// entries alive.
func (e *Executor) HasPendingEnv(envPath string) bool {
	return len(e.PendingForEnv(envPath)) > 0
}

// ExecRunner is the production Runner over os/exec. A spec with RemovePath
// set performs an in-process recursive delete instead of spawning.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, spec actions.ExecSpec) ([]byte, error) {
	if spec.RemovePath != "" {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := os.RemoveAll(spec.RemovePath); err != nil {
			return nil, fmt.Errorf("removing %s: %w", spec.RemovePath, err)
		}
		return nil, nil
	}
	if len(spec.Argv) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	cmd := exec.CommandContext(ctx, spec.Argv[0], spec.Argv[1:]...)
	cmd.Dir = spec.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return nil, fmt.Errorf("%s: %s", spec.Argv[0], lastLines(detail, 3))
	}
	return stdout.Bytes(), nil
}

// lastLines keeps the error detail short enough for a status banner.
func lastLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}
