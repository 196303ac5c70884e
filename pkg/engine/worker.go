package engine

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/ncw/directio"
	"golang.org/x/time/rate"

	"github.com/blockbench/iotest/pkg/target"
)

// worker owns one open handle, one buffer, and one position stream.
// The operation counter is atomic only so the reporting loop can
// snapshot it while the run is live; the worker is its sole writer.
type worker struct {
	id    int
	class Class

	pos     positioner
	be      backend
	buf     []byte
	limiter *rate.Limiter

	ops   atomic.Uint64
	start atomic.Int64 // unix nanos; zero until the worker enters its loop
	hist  *hdrhistogram.Histogram
}

func newWorker(id int, class Class, p *Params) *worker {
	w := &worker{
		id:    id,
		class: class,
		pos:   newPositioner(class, p.BlockCount, id),
		// microsecond latencies, up to an hour per op
		hist: hdrhistogram.New(1, 3600000000, 3),
	}
	if p.Direct {
		w.buf = directio.AlignedBlock(p.BlockSize)
	} else {
		w.buf = make([]byte, p.BlockSize)
	}
	if p.Rate > 0 {
		w.limiter = rate.NewLimiter(rate.Limit(p.Rate), 1)
	}
	return w
}

// open moves the worker through its OPENING state: every worker gets
// its own handle so no locking is ever needed on the file itself.
func (w *worker) open(p *Params) error {
	flags := target.Flags(w.class.IsWrite(), p.Direct, p.Sync)
	f, err := os.OpenFile(p.Path, flags, 0666)
	if err != nil {
		return err
	}
	if p.EngineType == EngineUring {
		be, err := newUringBackend(f, w.class.IsWrite())
		if err != nil {
			f.Close()
			return err
		}
		w.be = be
		return nil
	}
	w.be = &syncBackend{f: f, write: w.class.IsWrite()}
	return nil
}

// run is the worker loop. Cancellation is cooperative: the context is
// polled once per iteration, so worst-case shutdown latency is one
// in-flight operation. An I/O failure stops this worker only; a
// failure to open the target is fatal to the whole run and is
// propagated through the tracker.
func (w *worker) run(ctx context.Context, p *Params, t *tracker) {
	if err := w.open(p); err != nil {
		t.fail(err)
		return
	}
	defer func() {
		w.be.close()
		t.exit()
	}()

	w.start.Store(time.Now().UnixNano())
	bs := int64(p.BlockSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if w.limiter != nil {
			if err := w.limiter.Wait(ctx); err != nil {
				return
			}
		}

		blk := w.pos.next()
		ioStart := time.Now()
		if err := w.be.do(w.buf, blk*bs); err != nil {
			fmt.Fprintf(os.Stderr, "\n%s: %v\n", w.class, err)
			return
		}
		us := time.Since(ioStart).Microseconds()
		if us < 1 {
			us = 1 // histogram floor; cached reads can complete sub-microsecond
		}
		_ = w.hist.RecordValue(us)

		n := w.ops.Add(1)
		t.record()
		if p.OpLimit > 0 && n >= p.OpLimit {
			return
		}
	}
}
