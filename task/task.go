package task

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/UNH-DistSyS/UNH-SEM/ids"
	"github.com/UNH-DistSyS/UNH-SEM/log"
	"github.com/UNH-DistSyS/UNH-SEM/shared_counter"
	"github.com/UNH-DistSyS/UNH-SEM/utils"
)

const DEFAULT_LATENCY = time.Second

type State int32

const (
	Created State = iota
	Sleeping
	AcquiringPermits
	HoldingPermits
	Released
	Done
)

var stateNames = [...]string{"Created", "Sleeping", "AcquiringPermits", "HoldingPermits", "Released", "Done"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int32(s))
	}
	return stateNames[s]
}

var ErrCancelled = errors.New("task cancelled")

// Failure is the fatal outcome of a task. It is never retried.
type Failure struct {
	TaskID ids.TaskID
	Worker ids.ID
	State  State // state the task was in when it failed
	Err    error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("task %s on %v failed while %v: %v", f.TaskID.Short(), f.Worker, f.State, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

type Option func(*Task)

// WithLatency sets the simulated I/O time spent before asking for permits
func WithLatency(d time.Duration) Option {
	return func(t *Task) { t.latency = d }
}

// WithOutput sets where the snapshot is printed. Each snapshot is a single write.
func WithOutput(w io.Writer) Option {
	return func(t *Task) { t.out = w }
}

// WithSnapshotObserver is called with the snapshot while the permits are still held
func WithSnapshotObserver(f func(id ids.TaskID, s shared_counter.Snapshot)) Option {
	return func(t *Task) { t.onSnapshot = f }
}

// WithStateObserver is called on every state transition, from the goroutine running the task
func WithStateObserver(f func(t *Task, s State)) Option {
	return func(t *Task) { t.onState = f }
}

// Task sleeps, takes weight permits through the counter, prints a snapshot and gives the permits back.
// A Task runs once.
type Task struct {
	id         ids.TaskID
	weight     int64
	counter    *shared_counter.SharedCounter
	latency    time.Duration
	out        io.Writer
	state      atomic.Int32
	onSnapshot func(id ids.TaskID, s shared_counter.Snapshot)
	onState    func(t *Task, s State)
}

func NewTask(counter *shared_counter.SharedCounter, weight int64, opts ...Option) *Task {
	t := &Task{
		id:      ids.NewTaskID(),
		weight:  weight,
		counter: counter,
		latency: DEFAULT_LATENCY,
		out:     os.Stdout,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *Task) ID() ids.TaskID {
	return t.id
}

func (t *Task) Weight() int64 {
	return t.weight
}

func (t *Task) State() State {
	return State(t.state.Load())
}

func (t *Task) setState(s State) {
	t.state.Store(int32(s))
	if t.onState != nil {
		t.onState(t, s)
	}
}

func (t *Task) fail(worker ids.ID, at State, err error) error {
	t.setState(Done)
	return &Failure{TaskID: t.id, Worker: worker, State: at, Err: err}
}

// Run executes the task on behalf of worker. If the permits were acquired they are released exactly
// once before Run returns, including when printing fails or panics.
func (t *Task) Run(ctx context.Context, worker ids.ID) error {
	log.Debugf("%v running task %s with weight %d", worker, t.id.Short(), t.weight)

	t.setState(Sleeping)
	timer := time.NewTimer(t.latency)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return t.fail(worker, Sleeping, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err()))
	}

	t.setState(AcquiringPermits)
	if err := t.counter.Increment(ctx, t.weight); err != nil {
		if errors.Is(err, utils.ErrAcquireCancelled) {
			err = fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		return t.fail(worker, AcquiringPermits, err)
	}

	t.setState(HoldingPermits)
	defer func() {
		t.counter.Decrement(t.weight)
		t.setState(Released)
		t.setState(Done)
	}()

	snapshot := t.counter.Snapshot(worker)
	if t.onSnapshot != nil {
		t.onSnapshot(t.id, snapshot)
	}
	if _, err := io.WriteString(t.out, snapshot.String()); err != nil {
		return &Failure{TaskID: t.id, Worker: worker, State: HoldingPermits, Err: fmt.Errorf("printing snapshot: %w", err)}
	}
	return nil
}
