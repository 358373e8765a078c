package utils

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/UNH-DistSyS/UNH-SEM/log"
	"github.com/gammazero/deque"
)

var (
	ErrAcquireCancelled = errors.New("semaphore acquire cancelled")
	ErrInvalidWeight    = errors.New("semaphore weight out of range")
)

type waiter struct {
	n     int64
	ready chan struct{} // closed when the permits are granted
}

// WeightedSemaphore is a fair counting semaphore. Requests are granted strictly in arrival order:
// a waiting request at the head of the queue holds back every request behind it, even one small
// enough to fit into the permits that are free right now.
type WeightedSemaphore struct {
	size    int64
	cur     int64 // permits currently held, guarded by mu
	mu      sync.Mutex
	waiters deque.Deque[*waiter]
}

func NewWeightedSemaphore(capacity int64) *WeightedSemaphore {
	if capacity <= 0 {
		log.Fatalf("Semaphore capacity must be greater than 0")
	}
	return &WeightedSemaphore{size: capacity}
}

// Acquire blocks until n permits are free and every earlier request has been served.
// It fails only when ctx is done before the grant, in which case the request leaves the queue
// and nothing is owed to the semaphore.
func (s *WeightedSemaphore) Acquire(ctx context.Context, n int64) error {
	if n <= 0 || n > s.size {
		return fmt.Errorf("%w: requested %d, capacity %d", ErrInvalidWeight, n, s.size)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrAcquireCancelled, err)
	}

	s.mu.Lock()
	if s.size-s.cur >= n && s.waiters.Len() == 0 {
		s.cur += n
		s.mu.Unlock()
		return nil
	}
	w := &waiter{n: n, ready: make(chan struct{})}
	s.waiters.PushBack(w)
	s.mu.Unlock()

	select {
	case <-w.ready:
		return nil
	case <-ctx.Done():
		s.mu.Lock()
		defer s.mu.Unlock()
		select {
		case <-w.ready:
			// granted while we were being cancelled, the caller holds the permits
			return nil
		default:
		}
		i := s.waiters.Index(func(q *waiter) bool { return q == w })
		if i >= 0 {
			s.waiters.Remove(i)
		}
		// the head left, whoever is next may fit now
		if i == 0 {
			s.notifyWaiters()
		}
		return fmt.Errorf("%w: %w", ErrAcquireCancelled, ctx.Err())
	}
}

// TryAcquire takes n permits only if that is possible without waiting and nobody is queued.
func (s *WeightedSemaphore) TryAcquire(n int64) bool {
	if n <= 0 || n > s.size {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.size-s.cur >= n && s.waiters.Len() == 0 {
		s.cur += n
		return true
	}
	return false
}

// Release returns n permits and wakes waiters from the head of the queue for as long as they fit.
func (s *WeightedSemaphore) Release(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 || n > s.cur {
		log.Panicf("semaphore: released %d permits while holding %d", n, s.cur)
	}
	s.cur -= n
	s.notifyWaiters()
}

// notifyWaiters must be called with mu held
func (s *WeightedSemaphore) notifyWaiters() {
	for s.waiters.Len() > 0 {
		w := s.waiters.Front()
		if s.size-s.cur < w.n {
			// no barging: the head waits for more permits and so does everyone behind it
			break
		}
		s.cur += w.n
		s.waiters.PopFront()
		close(w.ready)
	}
}

// AvailablePermits returns the number of free permits. The value may be stale by the time it is read.
func (s *WeightedSemaphore) AvailablePermits() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size - s.cur
}

// QueueLength returns the number of requests currently blocked in Acquire
func (s *WeightedSemaphore) QueueLength() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waiters.Len()
}

// QueuedWeights returns the weights of the blocked requests, head first
func (s *WeightedSemaphore) QueuedWeights() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	weights := make([]int64, 0, s.waiters.Len())
	for i := 0; i < s.waiters.Len(); i++ {
		weights = append(weights, s.waiters.At(i).n)
	}
	return weights
}

func (s *WeightedSemaphore) GetCapacity() int64 {
	return s.size
}

// GetUtilization returns the number of permits currently held
func (s *WeightedSemaphore) GetUtilization() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

func (s *WeightedSemaphore) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("WeightedSemaphore(%d/%d, waiting=%d)", s.cur, s.size, s.waiters.Len())
}
