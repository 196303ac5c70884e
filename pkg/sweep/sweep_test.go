package sweep

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockbench/iotest/pkg/engine"
)

func TestSweepRunsEverySize(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "sweep")
	require.NoError(t, err)
	require.NoError(t, f.Truncate(1024*1024))
	require.NoError(t, f.Close())

	base := engine.Params{
		Path:    f.Name(),
		OpLimit: 32,
	}
	base.Threads[engine.LinRd] = 1

	sizes := []int{4096, 8192}
	points, err := Run(context.Background(), base, sizes, func(bs int) (int64, error) {
		return int64(1024 * 1024 / bs), nil
	})
	require.NoError(t, err)
	require.Len(t, points, 2)

	for i, pt := range points {
		assert.Equal(t, sizes[i], pt.BlockSize)
		assert.Equal(t, uint64(32), pt.Result.Classes[engine.LinRd].Ops)
	}

	var buf bytes.Buffer
	Write(&buf, points)
	out := buf.String()
	assert.Contains(t, out, "LinRd")
	assert.Contains(t, out, "4.0 KiB")
	assert.Contains(t, out, "8.0 KiB")
}

func TestSweepPropagatesBlocksError(t *testing.T) {
	base := engine.Params{Path: "/nonexistent", OpLimit: 1}
	base.Threads[engine.LinRd] = 1

	_, err := Run(context.Background(), base, []int{4096}, func(int) (int64, error) {
		return 0, os.ErrNotExist
	})
	assert.Error(t, err)
}
