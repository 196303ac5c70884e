package engine

import "time"

// Supported I/O engine types.
const (
	EngineSync  = "sync"
	EngineUring = "uring"
)

// Params defines one benchmark run. It is immutable once Run starts
// and shared read-only by all workers.
type Params struct {
	Path       string  // device or file to test on
	BlockSize  int     // bytes per I/O
	BlockCount int64   // addressable blocks in the target
	Threads    [NumClasses]int
	OpLimit    uint64        // per-worker operation limit, 0 = unlimited
	Duration   time.Duration // wall-clock limit, 0 = run until cancelled
	Direct     bool          // O_DIRECT
	Sync       bool          // O_SYNC
	EngineType string        // EngineSync (default) or EngineUring
	Rate       float64       // per-worker ops/sec pacing, 0 = unpaced

	// Progress, when set, receives a snapshot on every reporting-loop
	// wakeup. It is called from the goroutine that invoked Run.
	Progress func(Result)
}

// Workers returns the total worker count across all classes.
func (p *Params) Workers() int {
	n := 0
	for _, t := range p.Threads {
		n += t
	}
	return n
}

// ClassResult aggregates all workers of one operation class.
type ClassResult struct {
	Workers int           `json:"workers"`
	Ops     uint64        `json:"ops"`
	Bytes   uint64        `json:"bytes"`
	Rate    float64       `json:"rate"` // bytes per second
	P50     time.Duration `json:"p50"`
	P99     time.Duration `json:"p99"`
}

// Result is a snapshot of run progress, or the final report once all
// workers have exited. Per-class rates are computed from each worker's
// own start time, not the run's start, so workers that began slightly
// later do not skew early readings. Latency quantiles are only filled
// in on the final result.
type Result struct {
	Classes  [NumClasses]ClassResult `json:"classes"`
	TotalOps uint64                  `json:"total_ops"`
	Duration time.Duration           `json:"duration"`
}
