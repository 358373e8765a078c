package measurement

// Each driver keeps one Measurement and every task reports into it
// while it holds its permits.

import (
	"encoding/csv"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/UNH-DistSyS/UNH-SEM/ids"
	"github.com/UNH-DistSyS/UNH-SEM/shared_counter"
	"github.com/UNH-DistSyS/UNH-SEM/utils"
)

var header = []string{"time_ms", "task", "worker", "available_permits", "value", "queue_length"}

type Row struct {
	TimeMs           int64 // since the measurement was created
	TaskID           ids.TaskID
	Worker           ids.ID
	AvailablePermits int64
	Value            int64
	QueueLength      int
}

type Measurement struct {
	startMs int64

	mu   sync.Mutex
	data []Row
}

func NewMeasurement(listSize int) *Measurement {
	return &Measurement{
		startMs: utils.CurrentTimeInMS(),
		data:    make([]Row, 0, listSize),
	}
}

func (m *Measurement) AddSnapshot(taskId ids.TaskID, s shared_counter.Snapshot) {
	row := Row{
		TimeMs:           utils.CurrentTimeInMS() - m.startMs,
		TaskID:           taskId,
		Worker:           s.Worker,
		AvailablePermits: s.AvailablePermits,
		Value:            s.Value,
		QueueLength:      s.QueueLength,
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append(m.data, row)
}

// Rows returns a copy of the recorded rows in the order they were added
func (m *Measurement) Rows() []Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Row(nil), m.data...)
}

func (m *Measurement) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func (m *Measurement) Elapsed() time.Duration {
	return time.Duration(utils.CurrentTimeInMS()-m.startMs) * time.Millisecond
}

// WriteCSV writes all rows, with a header, to fileName
func (m *Measurement) WriteCSV(fileName string) error {
	file, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, item := range m.Rows() {
		err := w.Write([]string{
			strconv.FormatInt(item.TimeMs, 10),
			item.TaskID.String(),
			item.Worker.String(),
			strconv.FormatInt(item.AvailablePermits, 10),
			strconv.FormatInt(item.Value, 10),
			strconv.Itoa(item.QueueLength),
		})
		if err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
