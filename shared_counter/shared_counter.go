package shared_counter

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/UNH-DistSyS/UNH-SEM/ids"
	"github.com/UNH-DistSyS/UNH-SEM/utils"
)

// SharedCounter is an integer that is only increased by callers holding permits of its semaphore.
//
// Decrement gives the permits back before it subtracts, so once the permits are released the value
// update races with readers and with the next holder's increment. The value is diagnostic only; the
// field is atomic, the ordering between permits and value is not.
type SharedCounter struct {
	value     atomic.Int64
	semaphore *utils.WeightedSemaphore
}

func NewSharedCounter(initial int64, semaphore *utils.WeightedSemaphore) *SharedCounter {
	c := &SharedCounter{semaphore: semaphore}
	c.value.Store(initial)
	return c
}

// Increment acquires weight permits, then adds weight to the value.
// A cancelled acquire leaves both the permits and the value untouched.
func (c *SharedCounter) Increment(ctx context.Context, weight int64) error {
	if err := c.semaphore.Acquire(ctx, weight); err != nil {
		return err
	}
	c.value.Add(weight)
	return nil
}

// Decrement releases weight permits, then subtracts weight from the value
func (c *SharedCounter) Decrement(weight int64) {
	c.semaphore.Release(weight)
	c.value.Add(-weight)
}

func (c *SharedCounter) Value() int64 {
	return c.value.Load()
}

func (c *SharedCounter) Semaphore() *utils.WeightedSemaphore {
	return c.semaphore
}

// Snapshot reads the four diagnostic fields one after the other; they are not taken atomically together
func (c *SharedCounter) Snapshot(worker ids.ID) Snapshot {
	return Snapshot{
		AvailablePermits: c.semaphore.AvailablePermits(),
		Value:            c.Value(),
		Worker:           worker,
		QueueLength:      c.semaphore.QueueLength(),
	}
}

type Snapshot struct {
	AvailablePermits int64
	Value            int64
	Worker           ids.ID
	QueueLength      int
}

// String renders the snapshot as four lines followed by an empty line
func (s Snapshot) String() string {
	return fmt.Sprintf("Permits : %d\nNow : %d\nThread : %v\nThread Queue Length : %d\n\n",
		s.AvailablePermits, s.Value, s.Worker, s.QueueLength)
}
