package engine

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testTarget creates a sparse temp file of the given size.
func testTarget(t *testing.T, size int64) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "iotest")
	require.NoError(t, err)
	require.NoError(t, f.Truncate(size))
	require.NoError(t, f.Close())
	return f.Name()
}

func TestLinearReadWithOpLimit(t *testing.T) {
	// 1 MiB file, 8192-byte blocks -> 128 blocks; one linear reader
	// limited to 128 operations reads the whole file exactly once.
	path := testTarget(t, 1024*1024)
	params := Params{
		Path:       path,
		BlockSize:  8192,
		BlockCount: 128,
		OpLimit:    128,
	}
	params.Threads[LinRd] = 1

	res, err := New(params).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(128), res.Classes[LinRd].Ops)
	assert.Equal(t, uint64(128*8192), res.Classes[LinRd].Bytes)
	for _, c := range []Class{RndRd, LinWr, RndWr} {
		assert.Equal(t, uint64(0), res.Classes[c].Ops)
	}
	assert.Equal(t, uint64(128), res.TotalOps)
}

func TestRandomReadWritePair(t *testing.T) {
	path := testTarget(t, 1024*1024)
	params := Params{
		Path:       path,
		BlockSize:  8192,
		BlockCount: 128,
		OpLimit:    50,
	}
	params.Threads[RndRd] = 1
	params.Threads[RndWr] = 1

	res, err := New(params).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(50), res.Classes[RndRd].Ops)
	assert.Equal(t, uint64(50), res.Classes[RndWr].Ops)
	assert.Equal(t, uint64(0), res.Classes[LinRd].Ops)
	assert.Equal(t, uint64(0), res.Classes[LinWr].Ops)
	assert.Equal(t, uint64(100), res.TotalOps)
}

func TestTotalEqualsSumOfClasses(t *testing.T) {
	path := testTarget(t, 1024*1024)
	params := Params{
		Path:       path,
		BlockSize:  4096,
		BlockCount: 256,
		OpLimit:    25,
	}
	params.Threads[LinRd] = 2
	params.Threads[RndRd] = 3

	res, err := New(params).Run(context.Background())
	require.NoError(t, err)

	var sum uint64
	for c := range res.Classes {
		sum += res.Classes[c].Ops
	}
	assert.Equal(t, sum, res.TotalOps)
	assert.Equal(t, uint64(2*25), res.Classes[LinRd].Ops)
	assert.Equal(t, uint64(3*25), res.Classes[RndRd].Ops)
}

func TestTimeLimitStopsWorkers(t *testing.T) {
	path := testTarget(t, 1024*1024)
	params := Params{
		Path:       path,
		BlockSize:  8192,
		BlockCount: 128,
		Duration:   200 * time.Millisecond,
	}
	params.Threads[LinRd] = 2

	start := time.Now()
	res, err := New(params).Run(context.Background())
	elapsed := time.Since(start)
	require.NoError(t, err)

	assert.Greater(t, res.TotalOps, uint64(0))
	assert.GreaterOrEqual(t, elapsed, 200*time.Millisecond)
	// Buffered reads on a temp file finish in microseconds, so the
	// one-in-flight-operation shutdown bound leaves plenty of margin.
	assert.Less(t, elapsed, 5*time.Second)
}

func TestExternalCancelStopsWorkers(t *testing.T) {
	path := testTarget(t, 1024*1024)
	params := Params{
		Path:       path,
		BlockSize:  8192,
		BlockCount: 128,
	}
	params.Threads[RndRd] = 2

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	res, err := New(params).Run(ctx)
	require.NoError(t, err)
	assert.Greater(t, res.TotalOps, uint64(0))
}

func TestProgressCallbackFires(t *testing.T) {
	path := testTarget(t, 1024*1024)
	calls := 0
	params := Params{
		Path:       path,
		BlockSize:  4096,
		BlockCount: 256,
		Duration:   300 * time.Millisecond,
		Progress:   func(Result) { calls++ },
	}
	params.Threads[LinRd] = 1

	res, err := New(params).Run(context.Background())
	require.NoError(t, err)
	assert.Greater(t, res.TotalOps, uint64(0))
	// Cached reads cross many progress batch boundaries in 300ms.
	assert.GreaterOrEqual(t, calls, 1)
}

func TestOpenFailureAbortsRun(t *testing.T) {
	params := Params{
		Path:       "/nonexistent/iotest-target",
		BlockSize:  8192,
		BlockCount: 128,
	}
	params.Threads[LinRd] = 1
	params.Threads[RndWr] = 1

	_, err := New(params).Run(context.Background())
	require.Error(t, err)
}

func TestWriteWorkerWritesBlocks(t *testing.T) {
	path := testTarget(t, 64*1024)
	params := Params{
		Path:       path,
		BlockSize:  8192,
		BlockCount: 8,
		OpLimit:    8,
	}
	params.Threads[LinWr] = 1

	res, err := New(params).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(8), res.Classes[LinWr].Ops)

	// The file keeps its size: linear writes stay inside the range.
	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(64*1024), st.Size())
}

func TestValidateRejectsBadParams(t *testing.T) {
	assert := assert.New(t)

	bad := Params{BlockSize: 0, BlockCount: 1}
	bad.Threads[LinRd] = 1
	_, err := New(bad).Run(context.Background())
	assert.Error(err)

	bad = Params{BlockSize: 8192, BlockCount: 0}
	bad.Threads[LinRd] = 1
	_, err = New(bad).Run(context.Background())
	assert.Error(err)

	bad = Params{BlockSize: 8192, BlockCount: 1}
	_, err = New(bad).Run(context.Background())
	assert.Error(err)

	bad = Params{BlockSize: 8192, BlockCount: 1, EngineType: "aio"}
	bad.Threads[LinRd] = 1
	_, err = New(bad).Run(context.Background())
	assert.Error(err)
}

func TestFinalResultHasLatencies(t *testing.T) {
	path := testTarget(t, 1024*1024)
	params := Params{
		Path:       path,
		BlockSize:  8192,
		BlockCount: 128,
		OpLimit:    100,
	}
	params.Threads[LinRd] = 1

	res, err := New(params).Run(context.Background())
	require.NoError(t, err)
	assert.Greater(t, res.Classes[LinRd].P99, time.Duration(0))
	assert.GreaterOrEqual(t, res.Classes[LinRd].P99, res.Classes[LinRd].P50)
}
