package shared_counter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/UNH-DistSyS/UNH-SEM/ids"
	"github.com/UNH-DistSyS/UNH-SEM/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCounter(capacity int64) *SharedCounter {
	return NewSharedCounter(0, utils.NewWeightedSemaphore(capacity))
}

func TestIncrementDecrement(t *testing.T) {
	c := newCounter(10)
	worker := *ids.NewID(1, 1)

	require.NoError(t, c.Increment(context.Background(), 2))
	snap := c.Snapshot(worker)
	assert.Equal(t, int64(8), snap.AvailablePermits)
	assert.Equal(t, int64(2), snap.Value)
	assert.Equal(t, 0, snap.QueueLength)

	c.Decrement(2)
	assert.Equal(t, int64(10), c.Semaphore().AvailablePermits())
	assert.Equal(t, int64(0), c.Value())
}

func TestIncrementCancelledLeavesValue(t *testing.T) {
	c := newCounter(2)
	require.NoError(t, c.Increment(context.Background(), 2))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := c.Increment(ctx, 2)
	assert.ErrorIs(t, err, utils.ErrAcquireCancelled)
	assert.Equal(t, int64(2), c.Value())
	assert.Equal(t, int64(0), c.Semaphore().AvailablePermits())

	c.Decrement(2)
}

func TestValueBoundedByCapacity(t *testing.T) {
	const capacity = 10
	c := newCounter(capacity)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if !assert.NoError(t, c.Increment(context.Background(), 2)) {
					return
				}
				// a decrement releases before it subtracts, so the value may run past the capacity,
				// but never by more than one weight per worker
				assert.LessOrEqual(t, c.Value(), int64(2*10))
				c.Decrement(2)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(0), c.Value())
	assert.Equal(t, int64(capacity), c.Semaphore().AvailablePermits())
}

func TestSnapshotIsStableWithoutMutation(t *testing.T) {
	c := newCounter(10)
	require.NoError(t, c.Increment(context.Background(), 4))
	defer c.Decrement(4)

	first := c.Snapshot(*ids.NewID(1, 1))
	second := c.Snapshot(*ids.NewID(1, 2))
	assert.Equal(t, first.AvailablePermits, second.AvailablePermits)
	assert.Equal(t, first.Value, second.Value)
	assert.Equal(t, first.QueueLength, second.QueueLength)
	assert.NotEqual(t, first.Worker, second.Worker)
}

func TestSnapshotString(t *testing.T) {
	snap := Snapshot{AvailablePermits: 8, Value: 2, Worker: *ids.NewID(1, 3), QueueLength: 0}
	assert.Equal(t, "Permits : 8\nNow : 2\nThread : pool-1-thread-3\nThread Queue Length : 0\n\n", snap.String())
}
