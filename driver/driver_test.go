package driver

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/UNH-DistSyS/UNH-SEM/config"
	"github.com/UNH-DistSyS/UNH-SEM/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// gatedWriter parks every write until the gate is opened
type gatedWriter struct {
	gate chan struct{}
	mu   sync.Mutex
	buf  bytes.Buffer
}

func newGatedWriter() *gatedWriter {
	return &gatedWriter{gate: make(chan struct{})}
}

func (g *gatedWriter) Write(p []byte) (int, error) {
	<-g.gate
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.buf.Write(p)
}

func fastConfig() *config.Config {
	cfg := config.MakeDefaultConfig()
	cfg.SimulatedLatencyMs = 20
	return cfg
}

func TestDefaultBatch(t *testing.T) {
	out := &bytes.Buffer{}
	d := NewDriver(fastConfig(), out)
	require.NoError(t, d.Run(context.Background()))

	blocks := strings.Split(strings.TrimSuffix(out.String(), "\n\n"), "\n\n")
	require.Len(t, blocks, 10)
	for _, block := range blocks {
		lines := strings.Split(block, "\n")
		require.Len(t, lines, 4)
		assert.True(t, strings.HasPrefix(lines[0], "Permits : "))
		assert.True(t, strings.HasPrefix(lines[1], "Now : "))
		assert.True(t, strings.HasPrefix(lines[2], "Thread : pool-1-thread-"))
		assert.True(t, strings.HasPrefix(lines[3], "Thread Queue Length : "))
	}

	assert.Equal(t, int64(0), d.Counter().Value())
	assert.Equal(t, int64(10), d.Counter().Semaphore().AvailablePermits())
	assert.LessOrEqual(t, d.Pool().PeakRunning(), 5)

	rows := d.Trace().Rows()
	require.Len(t, rows, 10)
	for _, row := range rows {
		// the reporting task holds 2 of the 10 permits itself
		assert.GreaterOrEqual(t, row.AvailablePermits, int64(0))
		assert.LessOrEqual(t, row.AvailablePermits, int64(8))
		assert.LessOrEqual(t, row.Worker.Worker(), uint8(5))
	}
}

func TestFiveHoldersFillTheSemaphore(t *testing.T) {
	cfg := fastConfig()
	out := newGatedWriter()
	d := NewDriver(cfg, out)

	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background()) }()

	sem := d.Counter().Semaphore()
	// five workers, weight 2 each: the whole capacity is held and the other five tasks wait in the pool
	require.Eventually(t, func() bool { return sem.AvailablePermits() == 0 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, 5, d.Pool().Running())
	assert.Len(t, d.Pool().BusyWorkers(), 5)
	assert.Equal(t, 0, sem.QueueLength())
	assert.Equal(t, int64(10), d.Counter().Value())

	close(out.gate)
	require.NoError(t, <-done)
	assert.Len(t, d.Trace().Rows(), 10)
}

func TestExtraWorkersQueueOnTheSemaphore(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxThread = 10
	out := newGatedWriter()
	d := NewDriver(cfg, out)

	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background()) }()

	sem := d.Counter().Semaphore()
	require.Eventually(t, func() bool { return sem.QueueLength() == 5 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, int64(0), sem.AvailablePermits())
	assert.Equal(t, []int64{2, 2, 2, 2, 2}, sem.QueuedWeights())

	close(out.gate)
	require.NoError(t, <-done)
	assert.Equal(t, int64(10), sem.AvailablePermits())
	assert.Equal(t, 10, d.Trace().Len())
}

func TestCancelledBatchSurfacesFailures(t *testing.T) {
	cfg := config.MakeDefaultConfig()
	cfg.SimulatedLatencyMs = 60 * 60 * 1000
	d := NewDriver(cfg, &bytes.Buffer{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	err := d.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, task.ErrCancelled)
	// every task ran and failed on its own, none was dropped
	assert.Len(t, d.Pool().Failures(), 10)
	assert.Equal(t, int64(10), d.Counter().Semaphore().AvailablePermits())
	assert.Zero(t, d.Trace().Len())
}

func TestTraceAndChart(t *testing.T) {
	dir := t.TempDir()
	cfg := fastConfig()
	cfg.TraceFile = filepath.Join(dir, "trace.csv")
	cfg.ChartFile = filepath.Join(dir, "permits.png")

	d := NewDriver(cfg, &bytes.Buffer{})
	require.NoError(t, d.Run(context.Background()))

	trace, err := os.ReadFile(cfg.TraceFile)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(trace)), "\n"), 11)

	info, err := os.Stat(cfg.ChartFile)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestTraceWriteFailureIsReported(t *testing.T) {
	cfg := fastConfig()
	cfg.TaskCount = 1
	cfg.TraceFile = filepath.Join(t.TempDir(), "missing", "trace.csv")

	d := NewDriver(cfg, &bytes.Buffer{})
	err := d.Run(context.Background())
	assert.ErrorContains(t, err, "writing trace")
	assert.Equal(t, 1, d.Trace().Len())
}

func TestEmptyBatch(t *testing.T) {
	cfg := fastConfig()
	cfg.TaskCount = 0
	cfg.ChartFile = filepath.Join(t.TempDir(), "permits.png")
	out := &bytes.Buffer{}

	require.NoError(t, NewDriver(cfg, out).Run(context.Background()))
	assert.Zero(t, out.Len())
	_, err := os.Stat(cfg.ChartFile)
	assert.True(t, os.IsNotExist(err))
}
