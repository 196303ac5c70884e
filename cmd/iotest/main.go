// iotest drives concurrent linear/random read/write workers against a
// block device or file and reports aggregate throughput per operation
// class.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pborman/getopt/v2"

	"github.com/blockbench/iotest/pkg/config"
	"github.com/blockbench/iotest/pkg/engine"
	"github.com/blockbench/iotest/pkg/sweep"
	"github.com/blockbench/iotest/pkg/target"
)

func main() {
	os.Exit(run())
}

// threadCount is the value of the four class flags, which take an
// optional count: a bare flag means one thread. getopt's built-in
// values cannot parse the empty string a bare optional flag supplies,
// so this implements getopt.Value directly.
type threadCount int

func (t *threadCount) Set(value string, opt getopt.Option) error {
	if value == "" {
		*t = 1
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid thread count %q", value)
	}
	*t = threadCount(n)
	return nil
}

func (t *threadCount) String() string {
	return strconv.Itoa(int(*t))
}

type flags struct {
	linRd, rndRd, linWr, rndWr threadCount
	optLinRd, optRndRd         getopt.Option
	optLinWr, optRndWr         getopt.Option

	blockSize  string
	blockCount int64
	opLimit    uint64
	seconds    int
	direct     bool
	syncIO     bool
	help       bool

	engineType  string
	rateLimit   float64
	sweepSizes  string
	configFile  string
	writeConfig string
	reportFile  string
}

func setupFlags(opts *getopt.Set) *flags {
	f := &flags{blockSize: "8192", engineType: "sync"}

	// The four class flags take an optional thread count, getopt
	// style: -r means one thread, -r4 means four.
	f.optLinRd = opts.FlagLong(&f.linRd, "linear-read", 'r', "linear read test (n readers)", "n").SetOptional()
	f.optRndRd = opts.FlagLong(&f.rndRd, "random-read", 'R', "random read test (n readers)", "n").SetOptional()
	f.optLinWr = opts.FlagLong(&f.linWr, "linear-write", 'w', "linear write test (n writers, data will be lost!)", "n").SetOptional()
	f.optRndWr = opts.FlagLong(&f.rndWr, "random-write", 'W', "random write test (n writers, data will be lost!)", "n").SetOptional()

	opts.FlagLong(&f.direct, "direct", 'd', "use direct I/O (O_DIRECT)")
	opts.FlagLong(&f.syncIO, "sync", 's', "use synchronous I/O (O_SYNC)")
	opts.FlagLong(&f.blockSize, "block-size", 'b', "block size in bytes, suffixes ok (default 8192)", "size")
	opts.FlagLong(&f.blockCount, "block-count", 'n', "block count (default is whole device/file)", "count")
	opts.FlagLong(&f.opLimit, "iterations", 'i', "number of I/O operations to perform per thread", "count")
	opts.FlagLong(&f.seconds, "time", 't', "time to spend on all I/O", "seconds")
	opts.FlagLong(&f.help, "help", 'h', "display this help and exit")

	opts.FlagLong(&f.engineType, "engine", 0, "I/O engine: sync or uring", "name")
	opts.FlagLong(&f.rateLimit, "rate", 0, "per-thread operation rate limit in ops/sec", "hz")
	opts.FlagLong(&f.sweepSizes, "sweep-bs", 0, "comma-separated block sizes to sweep instead of a single run", "list")
	opts.FlagLong(&f.configFile, "config", 0, "load the run configuration from a YAML file", "file")
	opts.FlagLong(&f.writeConfig, "write-config", 0, "save the assembled configuration to a YAML file", "file")
	opts.FlagLong(&f.reportFile, "report", 0, "write the final result to a JSON file", "file")
	return f
}

// loadConfig builds the run configuration from a config file or from
// the parsed flags, mirroring how the flags map onto Config fields.
func (f *flags) loadConfig(args []string) (*config.Config, error) {
	if f.configFile != "" {
		cfg, err := config.Load(f.configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		// A positional argument still picks the target.
		if len(args) == 1 {
			cfg.Target = args[0]
		} else if len(args) > 1 {
			return nil, fmt.Errorf("exactly one device/file argument expected")
		}
		return cfg, nil
	}

	if len(args) != 1 {
		return nil, fmt.Errorf("exactly one device/file argument expected")
	}

	bs, err := parseSize(f.blockSize)
	if err != nil {
		return nil, err
	}

	cfg := &config.Config{
		Target:     args[0],
		BlockSize:  bs,
		BlockCount: f.blockCount,
		OpLimit:    f.opLimit,
		Seconds:    f.seconds,
		Direct:     f.direct,
		Sync:       f.syncIO,
		EngineType: f.engineType,
		Rate:       f.rateLimit,
	}
	if f.optLinRd.Seen() {
		cfg.LinearRead = int(f.linRd)
	}
	if f.optRndRd.Seen() {
		cfg.RandomRead = int(f.rndRd)
	}
	if f.optLinWr.Seen() {
		cfg.LinearWrite = int(f.linWr)
	}
	if f.optRndWr.Seen() {
		cfg.RandomWrite = int(f.rndWr)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

func run() int {
	opts := getopt.New()
	opts.SetProgram("iotest")
	opts.SetParameters("device-or-file")
	f := setupFlags(opts)

	if err := opts.Getopt(os.Args, nil); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, "try `iotest -h' for help")
		return 1
	}
	if f.help {
		opts.PrintUsage(os.Stdout)
		fmt.Println("\nIt's ok to specify all, one or some of -r, -R, -w and -W.")
		return 0
	}

	cfg, err := f.loadConfig(opts.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if f.writeConfig != "" {
		if err := cfg.Save(f.writeConfig); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write config file: %v\n", err)
			return 1
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if f.sweepSizes != "" {
		return runSweep(ctx, cfg, f.sweepSizes, f.reportFile)
	}
	return runSingle(ctx, cfg, f.reportFile)
}

func runSingle(ctx context.Context, cfg *config.Config, reportFile string) int {
	params, err := buildParams(cfg, cfg.BlockSize)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	params.Progress = func(r engine.Result) {
		fmt.Fprintf(os.Stderr, "\r%s", formatClasses(&r))
	}

	res, err := engine.New(*params).Run(ctx)
	fmt.Fprint(os.Stderr, "\r")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	fmt.Println(formatClasses(res))

	if reportFile != "" {
		if err := writeReport(reportFile, res); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}
	return 0
}

func runSweep(ctx context.Context, cfg *config.Config, list, reportFile string) int {
	var sizes []int
	for _, s := range strings.Split(list, ",") {
		bs, err := parseSize(strings.TrimSpace(s))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		sizes = append(sizes, bs)
	}

	base, err := buildParams(cfg, sizes[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	points, err := sweep.Run(ctx, *base, sizes, func(bs int) (int64, error) {
		if cfg.BlockCount > 0 {
			return cfg.BlockCount, nil
		}
		return target.Blocks(cfg.Target, bs)
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	sweep.Write(os.Stdout, points)

	if reportFile != "" {
		if err := writeReport(reportFile, points); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}
	return 0
}

// buildParams maps the validated configuration onto engine parameters,
// deriving the block count from the target's size when it was not
// given explicitly.
func buildParams(cfg *config.Config, blockSize int) (*engine.Params, error) {
	bc := cfg.BlockCount
	if bc == 0 {
		var err error
		bc, err = target.Blocks(cfg.Target, blockSize)
		if err != nil {
			return nil, err
		}
	}
	p := &engine.Params{
		Path:       cfg.Target,
		BlockSize:  blockSize,
		BlockCount: bc,
		OpLimit:    cfg.OpLimit,
		Duration:   time.Duration(cfg.Seconds) * time.Second,
		Direct:     cfg.Direct,
		Sync:       cfg.Sync,
		EngineType: cfg.EngineType,
		Rate:       cfg.Rate,
	}
	p.Threads[engine.LinRd] = cfg.LinearRead
	p.Threads[engine.RndRd] = cfg.RandomRead
	p.Threads[engine.LinWr] = cfg.LinearWrite
	p.Threads[engine.RndWr] = cfg.RandomWrite
	return p, nil
}

// formatClasses renders one per-class segment for every class that has
// completed operations, e.g. "LinRd 12800 105 MiB/s".
func formatClasses(r *engine.Result) string {
	var sb strings.Builder
	for c := engine.Class(0); c < engine.NumClasses; c++ {
		cr := r.Classes[c]
		if cr.Workers == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("  ")
		}
		fmt.Fprintf(&sb, "%s %d %s/s", c, cr.Ops, humanize.IBytes(uint64(cr.Rate)))
	}
	return sb.String()
}

func writeReport(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// parseSize accepts plain byte counts and humanize-style suffixes
// (8k = 8000, 8ki = 8192).
func parseSize(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return int(n), nil
}
