package worker_pool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/UNH-DistSyS/UNH-SEM/ids"
	"github.com/UNH-DistSyS/UNH-SEM/log"
	"github.com/UNH-DistSyS/UNH-SEM/utils/data_structures"
	"golang.org/x/sync/errgroup"
)

var (
	ErrPoolShutdown = errors.New("worker pool is shut down")
	ErrTaskPanicked = errors.New("task panicked")
)

// Runnable is a unit of work executed by exactly one worker
type Runnable interface {
	Run(ctx context.Context, worker ids.ID) error
}

// RunnableFunc adapts a plain function to Runnable
type RunnableFunc func(ctx context.Context, worker ids.ID) error

func (f RunnableFunc) Run(ctx context.Context, worker ids.ID) error {
	return f(ctx, worker)
}

// WorkerPool runs queued Runnables on a fixed set of workers, each executing one at a time.
type WorkerPool struct {
	poolId     uint8
	maxThreads int
	taskQueue  chan Runnable
	queueLock  sync.RWMutex // read-held by Submit, write-held while the queue is closed
	closed     bool         // guarded by queueLock
	started    atomic.Bool
	workers    errgroup.Group

	running     atomic.Int32
	peakRunning atomic.Int32
	busyLock    sync.Mutex
	busy        data_structures.Set[ids.ID] // workers executing a task, guarded by busyLock

	failuresLock sync.Mutex
	failures     []error

	shutdownOnce sync.Once
	shutdownErr  error
}

func NewWorkerPool(poolId uint8, chanBufferSize, maxThreads int) *WorkerPool {
	log.Infof("Creating WorkerPool %d with max threads=%d", poolId, maxThreads)
	if maxThreads <= 0 || maxThreads > 255 {
		log.Fatalf("Max threads for worker pool must be in [1, 255], got %d", maxThreads)
	}
	if chanBufferSize < 0 {
		log.Fatalf("Task queue size for worker pool must not be negative, got %d", chanBufferSize)
	}
	return &WorkerPool{
		poolId:     poolId,
		maxThreads: maxThreads,
		taskQueue:  make(chan Runnable, chanBufferSize),
		busy:       data_structures.NewSet[ids.ID](),
	}
}

// Run starts the workers. ctx is handed to every task; cancelling it makes the remaining tasks fail
// fast but the queue is still drained.
func (p *WorkerPool) Run(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		log.Warningf("WorkerPool %d is already running", p.poolId)
		return
	}
	log.Infof("Starting WorkerPool %d", p.poolId)
	for i := 1; i <= p.maxThreads; i++ {
		id := *ids.NewID(p.poolId, uint8(i))
		p.workers.Go(func() error {
			p.worker(ctx, id)
			return nil
		})
	}
}

// Submit enqueues r. It only blocks when the queue is full, until a worker frees a slot or ctx is done.
func (p *WorkerPool) Submit(ctx context.Context, r Runnable) error {
	p.queueLock.RLock()
	defer p.queueLock.RUnlock()
	if p.closed {
		return ErrPoolShutdown
	}
	select {
	case p.taskQueue <- r:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("task submission failed due to context cancellation: %w", ctx.Err())
	}
}

// Shutdown stops accepting tasks, waits until every queued and running task has finished and returns
// the failures of all tasks joined together. Calling it again returns the same result.
func (p *WorkerPool) Shutdown() error {
	p.shutdownOnce.Do(func() {
		log.Infof("Stopping WorkerPool %d", p.poolId)
		if !p.started.Load() {
			// queued tasks still have to run, and blocked submitters need someone to make room
			p.Run(context.Background())
		}

		p.queueLock.Lock()
		p.closed = true
		close(p.taskQueue)
		p.queueLock.Unlock()
		_ = p.workers.Wait()

		p.failuresLock.Lock()
		p.shutdownErr = errors.Join(p.failures...)
		failed := len(p.failures)
		p.failuresLock.Unlock()
		log.Infof("WorkerPool %d stopped, %d task(s) failed", p.poolId, failed)
	})
	return p.shutdownErr
}

func (p *WorkerPool) worker(ctx context.Context, id ids.ID) {
	log.Debugf("%v started", id)
	for r := range p.taskQueue {
		p.execute(ctx, id, r)
	}
	log.Debugf("%v exiting, task queue closed", id)
}

func (p *WorkerPool) execute(ctx context.Context, id ids.ID, r Runnable) {
	p.setBusy(id, true)
	defer p.setBusy(id, false)
	n := p.running.Add(1)
	defer p.running.Add(-1)
	for peak := p.peakRunning.Load(); n > peak; peak = p.peakRunning.Load() {
		if p.peakRunning.CompareAndSwap(peak, n) {
			break
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("%w on %v: %v", ErrTaskPanicked, id, rec)
			log.Errorf("%v", err)
			p.recordFailure(err)
		}
	}()
	if err := r.Run(ctx, id); err != nil {
		log.WithField("worker", id.String()).Errorf("task failed: %v", err)
		p.recordFailure(err)
	}
}

func (p *WorkerPool) setBusy(id ids.ID, busy bool) {
	p.busyLock.Lock()
	defer p.busyLock.Unlock()
	if busy {
		p.busy.Add(id)
	} else {
		p.busy.Remove(id)
	}
}

// BusyWorkers returns the workers executing a task right now, ordered by worker id
func (p *WorkerPool) BusyWorkers() []ids.ID {
	p.busyLock.Lock()
	workers := p.busy.Slice()
	p.busyLock.Unlock()
	sort.Slice(workers, func(i, j int) bool { return workers[i].Int() < workers[j].Int() })
	return workers
}

func (p *WorkerPool) recordFailure(err error) {
	p.failuresLock.Lock()
	defer p.failuresLock.Unlock()
	p.failures = append(p.failures, err)
}

// Failures returns the errors of the tasks that failed so far
func (p *WorkerPool) Failures() []error {
	p.failuresLock.Lock()
	defer p.failuresLock.Unlock()
	return append([]error(nil), p.failures...)
}

// Running returns the number of tasks being executed right now
func (p *WorkerPool) Running() int {
	return int(p.running.Load())
}

// PeakRunning returns the highest number of tasks that were executed at the same time
func (p *WorkerPool) PeakRunning() int {
	return int(p.peakRunning.Load())
}

func (p *WorkerPool) MaxThreads() int {
	return p.maxThreads
}
