package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Engine executes one benchmark configuration: a fixed set of workers,
// one goroutine each, created up front and run to completion. The
// calling goroutine becomes the reporting loop for the duration of
// Run. Engines hold no global state, so multiple instances can run in
// a single process.
type Engine struct {
	params  Params
	workers []*worker
	tracker *tracker
}

func New(params Params) *Engine {
	return &Engine{params: params}
}

func (e *Engine) validate() error {
	p := &e.params
	if p.BlockSize <= 0 {
		return fmt.Errorf("invalid block size: %d", p.BlockSize)
	}
	if p.BlockCount <= 0 {
		return fmt.Errorf("invalid block count: %d", p.BlockCount)
	}
	if p.Workers() <= 0 {
		return fmt.Errorf("no worker threads configured")
	}
	switch p.EngineType {
	case "", EngineSync, EngineUring:
	default:
		return fmt.Errorf("unknown engine type %q", p.EngineType)
	}
	return nil
}

// Run starts all workers, reports progress until every worker has
// exited, and returns the final per-class result. The context is the
// external stop trigger; a configured Duration adds a deadline on top
// of it. A failure to open the target aborts the run and is returned
// as the error.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}
	p := &e.params

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if p.Duration > 0 {
		var tcancel context.CancelFunc
		ctx, tcancel = context.WithTimeout(ctx, p.Duration)
		defer tcancel()
	}

	id := 0
	for c := Class(0); c < NumClasses; c++ {
		for i := 0; i < p.Threads[c]; i++ {
			e.workers = append(e.workers, newWorker(id, c, p))
			id++
		}
	}
	e.tracker = newTracker(len(e.workers))

	start := time.Now()
	for _, w := range e.workers {
		go w.run(ctx, p, e.tracker)
	}

	// Reporting loop: wait on the condition variable for progress
	// batches and worker exits; terminal once no workers remain.
	t := e.tracker
	t.mu.Lock()
	for t.running > 0 {
		t.cond.Wait()
		fatal := t.fatal
		t.mu.Unlock()

		if fatal != nil {
			// Wind the remaining workers down; the loop still waits
			// for each of them to exit.
			cancel()
		} else if p.Progress != nil {
			snap := e.snapshot(false)
			snap.Duration = time.Since(start)
			p.Progress(*snap)
		}

		t.mu.Lock()
	}
	fatal := t.fatal
	t.mu.Unlock()

	if fatal != nil {
		return nil, fatal
	}

	res := e.snapshot(true)
	res.Duration = time.Since(start)
	return res, nil
}

// snapshot sums every worker's own counter; the shared tracker total
// is only used for wakeup batching, never for reporting. Latency
// histograms are worker-owned while the run is live, so they are
// merged only on the final snapshot.
func (e *Engine) snapshot(final bool) *Result {
	now := time.Now()
	res := &Result{}
	bs := uint64(e.params.BlockSize)

	var hists [NumClasses]*hdrhistogram.Histogram
	for _, w := range e.workers {
		c := w.class
		ops := w.ops.Load()
		res.Classes[c].Workers++
		res.Classes[c].Ops += ops
		res.Classes[c].Bytes += ops * bs
		res.TotalOps += ops

		if s := w.start.Load(); s > 0 {
			elapsed := now.Sub(time.Unix(0, s)).Seconds()
			if elapsed > 0 {
				res.Classes[c].Rate += float64(ops) / elapsed * float64(bs)
			}
		}
		if final {
			if hists[c] == nil {
				hists[c] = hdrhistogram.New(1, 3600000000, 3)
			}
			hists[c].Merge(w.hist)
		}
	}

	if final {
		for c := range hists {
			if hists[c] == nil || hists[c].TotalCount() == 0 {
				continue
			}
			res.Classes[c].P50 = time.Duration(hists[c].ValueAtQuantile(50)) * time.Microsecond
			res.Classes[c].P99 = time.Duration(hists[c].ValueAtQuantile(99)) * time.Microsecond
		}
	}
	return res
}
