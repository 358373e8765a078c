package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/UNH-DistSyS/UNH-SEM/log"
)

// default values
const (
	MAX_AVAILABLE        = 10 // total permits of the semaphore
	MAX_THREAD           = 5  // workers in the pool
	WEIGHT_THREAD        = 2  // permits each task needs
	TASK_COUNT           = 10 // tasks submitted by the driver
	SIMULATED_LATENCY_MS = 1000
	CHAN_BUFFER_SIZE     = 1024 * 1
	POOL_ID              = 1
	DEFAULT_LOG_LEVEL    = "info"
)

/**
 * Represents the configuration of a single run.
 */

type Config struct {
	TotalPermits       int64  `json:"total_permits"`        // capacity of the weighted semaphore
	MaxThread          int    `json:"max_thread"`           // number of workers in the pool
	TaskCount          int    `json:"task_count"`           // number of tasks in the batch
	TaskWeight         int64  `json:"task_weight"`          // permits each task acquires
	SimulatedLatencyMs int    `json:"simulated_latency_ms"` // sleep before a task asks for permits
	ChanBufferSize     int    `json:"chan_buffer_size"`     // size of the pool's pending task queue
	PoolId             uint8  `json:"pool_id"`              // used when naming workers
	LogLevel           string `json:"log_level"`

	// Diagnostic output, disabled when empty
	TraceFile string `json:"trace_file"` // csv with one row per completed task
	ChartFile string `json:"chart_file"` // png with available permits per completed task
}

func MakeDefaultConfig() *Config {
	config := new(Config)
	config.TotalPermits = MAX_AVAILABLE
	config.MaxThread = MAX_THREAD
	config.TaskCount = TASK_COUNT
	config.TaskWeight = WEIGHT_THREAD
	config.SimulatedLatencyMs = SIMULATED_LATENCY_MS
	config.ChanBufferSize = CHAN_BUFFER_SIZE
	config.PoolId = POOL_ID
	config.LogLevel = DEFAULT_LOG_LEVEL
	return config
}

func LoadConfigFromFile(configFile string) *Config {
	// start from default, make sure nothing is missed
	cfg := MakeDefaultConfig()
	err := cfg.load(configFile)
	if err != nil {
		log.Fatal(err)
		return nil
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
		return nil
	}
	return cfg
}

// Validate rejects values the pool or the semaphore cannot work with
func (c *Config) Validate() error {
	if c.TotalPermits <= 0 {
		return fmt.Errorf("total_permits must be positive, got %d", c.TotalPermits)
	}
	if c.MaxThread <= 0 {
		return fmt.Errorf("max_thread must be positive, got %d", c.MaxThread)
	}
	if c.TaskCount < 0 {
		return fmt.Errorf("task_count must not be negative, got %d", c.TaskCount)
	}
	if c.TaskWeight <= 0 || c.TaskWeight > c.TotalPermits {
		return fmt.Errorf("task_weight must be in [1, %d], got %d", c.TotalPermits, c.TaskWeight)
	}
	if c.SimulatedLatencyMs < 0 {
		return fmt.Errorf("simulated_latency_ms must not be negative, got %d", c.SimulatedLatencyMs)
	}
	if c.ChanBufferSize < 0 {
		return fmt.Errorf("chan_buffer_size must not be negative, got %d", c.ChanBufferSize)
	}
	return nil
}

// String is implemented to print the config
func (c *Config) String() string {
	config, err := json.Marshal(c)
	if err != nil {
		log.Errorln(err)
	}
	return string(config)
}

// load configurations from config file in JSON format
func (c *Config) load(configFile string) error {
	file, err := os.Open(configFile)
	if err != nil {
		return err
	}
	defer file.Close()
	decoder := json.NewDecoder(file)
	return decoder.Decode(c)
}

// Save save configurations to file in JSON format
func (c *Config) Save(configFile string) error {
	file, err := os.Create(configFile)
	if err != nil {
		return err
	}
	defer file.Close()
	encoder := json.NewEncoder(file)
	return encoder.Encode(c)
}
