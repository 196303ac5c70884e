package engine

import "sync"

// progressBatch bounds how often worker progress wakes the reporting
// loop: one wakeup per progressBatch completed operations across all
// workers. The batching only limits reporting frequency and lock
// traffic; it has no effect on the counts themselves.
const progressBatch = 1000

// tracker is the shared coordination state for one run: the global
// completed-operation count and the number of workers still active,
// both guarded by a single mutex, with a condition variable to wake
// the reporting loop. A run is complete when running reaches zero;
// running only ever decreases.
type tracker struct {
	mu      sync.Mutex
	cond    *sync.Cond
	total   uint64
	running int
	fatal   error // first fatal startup error, if any
}

func newTracker(workers int) *tracker {
	t := &tracker{running: workers}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// record counts one completed operation, waking the reporting loop
// whenever the total crosses a progressBatch boundary.
func (t *tracker) record() {
	t.mu.Lock()
	t.total++
	wake := t.total%progressBatch == 0
	t.mu.Unlock()
	if wake {
		t.cond.Signal()
	}
}

// exit marks one worker as finished. The reporting loop is always
// woken so it observes completion promptly.
func (t *tracker) exit() {
	t.mu.Lock()
	t.running--
	t.mu.Unlock()
	t.cond.Broadcast()
}

// fail records a fatal startup error and marks the worker finished,
// keeping the running count consistent so the reporting loop cannot
// hang waiting for a worker that never ran.
func (t *tracker) fail(err error) {
	t.mu.Lock()
	if t.fatal == nil {
		t.fatal = err
	}
	t.running--
	t.mu.Unlock()
	t.cond.Broadcast()
}
