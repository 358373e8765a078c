package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/UNH-DistSyS/UNH-SEM/config"
	"github.com/UNH-DistSyS/UNH-SEM/data_processing"
	"github.com/UNH-DistSyS/UNH-SEM/log"
	"github.com/UNH-DistSyS/UNH-SEM/measurement"
	"github.com/UNH-DistSyS/UNH-SEM/shared_counter"
	"github.com/UNH-DistSyS/UNH-SEM/task"
	"github.com/UNH-DistSyS/UNH-SEM/utils"
	"github.com/UNH-DistSyS/UNH-SEM/worker_pool"
)

// Driver submits one fixed batch of tasks against a shared counter and waits for the pool to drain.
type Driver struct {
	cfg     *config.Config
	out     io.Writer
	counter *shared_counter.SharedCounter
	pool    *worker_pool.WorkerPool
	trace   *measurement.Measurement
}

// NewDriver wires semaphore, counter and pool from cfg. Snapshots are printed to out.
func NewDriver(cfg *config.Config, out io.Writer) *Driver {
	semaphore := utils.NewWeightedSemaphore(cfg.TotalPermits)
	return &Driver{
		cfg:     cfg,
		out:     utils.NewLockedWriter(out),
		counter: shared_counter.NewSharedCounter(0, semaphore),
		pool:    worker_pool.NewWorkerPool(cfg.PoolId, cfg.ChanBufferSize, cfg.MaxThread),
		trace:   measurement.NewMeasurement(cfg.TaskCount),
	}
}

// Run blocks until every submitted task has finished. The returned error joins the task failures,
// a failed submission and a failure to write the trace or chart.
func (d *Driver) Run(ctx context.Context) error {
	log.Infof("Submitting %d tasks of weight %d to %d workers sharing %d permits",
		d.cfg.TaskCount, d.cfg.TaskWeight, d.cfg.MaxThread, d.cfg.TotalPermits)
	d.pool.Run(ctx)

	var submitErr error
	latency := time.Duration(d.cfg.SimulatedLatencyMs) * time.Millisecond
	for i := 0; i < d.cfg.TaskCount; i++ {
		t := task.NewTask(d.counter, d.cfg.TaskWeight,
			task.WithLatency(latency),
			task.WithOutput(d.out),
			task.WithSnapshotObserver(d.trace.AddSnapshot),
		)
		if err := d.pool.Submit(ctx, t); err != nil {
			submitErr = fmt.Errorf("submitting task %d of %d: %w", i+1, d.cfg.TaskCount, err)
			log.Errorf("%v", submitErr)
			break
		}
	}

	runErr := d.pool.Shutdown()
	log.Infof("Batch finished in %v, counter=%d, available permits=%d",
		d.trace.Elapsed(), d.counter.Value(), d.counter.Semaphore().AvailablePermits())
	return errors.Join(submitErr, runErr, d.writeDiagnostics())
}

func (d *Driver) writeDiagnostics() error {
	var errs []error
	if d.cfg.TraceFile != "" {
		if err := d.trace.WriteCSV(d.cfg.TraceFile); err != nil {
			errs = append(errs, fmt.Errorf("writing trace %s: %w", d.cfg.TraceFile, err))
		} else {
			log.Infof("Trace with %d rows written to %s", d.trace.Len(), d.cfg.TraceFile)
		}
	}
	if d.cfg.ChartFile != "" {
		rows := d.trace.Rows()
		if len(rows) == 0 {
			log.Warningf("No task completed, skipping chart %s", d.cfg.ChartFile)
		} else if err := data_processing.PlotPermits(rows, d.cfg.TotalPermits, d.cfg.ChartFile, "Available permits per completed task"); err != nil {
			errs = append(errs, fmt.Errorf("plotting %s: %w", d.cfg.ChartFile, err))
		} else {
			log.Infof("Chart written to %s", d.cfg.ChartFile)
		}
	}
	return errors.Join(errs...)
}

func (d *Driver) Counter() *shared_counter.SharedCounter {
	return d.counter
}

func (d *Driver) Pool() *worker_pool.WorkerPool {
	return d.pool
}

func (d *Driver) Trace() *measurement.Measurement {
	return d.trace
}
