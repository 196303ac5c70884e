// Package sweep runs the engine once per block size with an otherwise
// fixed configuration, to show how throughput scales with transfer
// size.
package sweep

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rodaine/table"

	"github.com/blockbench/iotest/pkg/engine"
)

// Point is the outcome of one sweep step.
type Point struct {
	BlockSize int            `json:"block_size"`
	Result    *engine.Result `json:"result"`
}

// Run executes one engine run per block size. The blocks callback
// resolves the block count for each size, since a count derived from
// the target's size changes with the block size. Cancelling the
// context stops the sweep after the in-flight run winds down.
func Run(ctx context.Context, base engine.Params, sizes []int, blocks func(bs int) (int64, error)) ([]Point, error) {
	var points []Point
	for i, bs := range sizes {
		p := base
		p.BlockSize = bs
		bc, err := blocks(bs)
		if err != nil {
			return points, err
		}
		p.BlockCount = bc

		res, err := engine.New(p).Run(ctx)
		if err != nil {
			return points, err
		}
		points = append(points, Point{BlockSize: bs, Result: res})
		fmt.Printf("[%d/%d] bs=%d done in %v\n", i+1, len(sizes), bs, res.Duration.Round(time.Millisecond))

		if ctx.Err() != nil {
			break
		}
	}
	return points, nil
}

// Write renders the sweep results as a per-class table.
func Write(w io.Writer, points []Point) {
	tbl := table.New("bs", "class", "ops", "throughput", "p50", "p99")
	tbl.WithWriter(w)
	for _, pt := range points {
		for c := engine.Class(0); c < engine.NumClasses; c++ {
			r := pt.Result.Classes[c]
			if r.Ops == 0 {
				continue
			}
			tbl.AddRow(
				humanize.IBytes(uint64(pt.BlockSize)),
				c.String(),
				r.Ops,
				humanize.IBytes(uint64(r.Rate))+"/s",
				r.P50,
				r.P99,
			)
		}
	}
	tbl.Print()
}
