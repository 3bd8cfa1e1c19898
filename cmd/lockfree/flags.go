package main

import (
	"strconv"

	"github.com/aradilov/lockfree/internal/mandelbrot"
	"github.com/spf13/pflag"
)

// boundsValue is a pflag.Value for "<width>x<height>".
type boundsValue struct {
	b *mandelbrot.Bounds
}

func (v boundsValue) String() string {
	if v.b == nil {
		return ""
	}
	return v.b.String()
}

func (v boundsValue) Set(s string) error {
	b, err := mandelbrot.ParseBounds(s)
	if err != nil {
		return err
	}
	*v.b = b
	return nil
}

func (boundsValue) Type() string { return "size" }

// pointValue is a pflag.Value for "<re>,<im>".
type pointValue struct {
	c *complex128
}

func (v pointValue) String() string {
	if v.c == nil {
		return ""
	}
	return strconv.FormatFloat(real(*v.c), 'g', -1, 64) + "," + strconv.FormatFloat(imag(*v.c), 'g', -1, 64)
}

func (v pointValue) Set(s string) error {
	c, err := mandelbrot.ParseComplex(s)
	if err != nil {
		return err
	}
	*v.c = c
	return nil
}

func (pointValue) Type() string { return "point" }

func installRenderFlags(opts *renderOptions, flags *pflag.FlagSet) {
	flags.StringVarP(&opts.output, "output", "o", opts.output, "PNG file to write")
	flags.Var(boundsValue{&opts.bounds}, "size", "Image size in pixels")
	flags.Var(pointValue{&opts.upperLeft}, "upper-left", "Complex point at the upper left corner")
	flags.Var(pointValue{&opts.lowerRight}, "lower-right", "Complex point at the lower right corner")
	flags.IntVarP(&opts.workers, "workers", "w", opts.workers, "Number of concurrent workers (0 = GOMAXPROCS)")
	flags.IntVar(&opts.rowsPerChunk, "rows-per-chunk", opts.rowsPerChunk, "Image rows claimed by a worker at once")
	flags.IntVar(&opts.maxIter, "max-iter", opts.maxIter, "Iteration limit (0 = mode default)")
	flags.BoolVar(&opts.color, "color", opts.color, "Render a smooth RGB gradient instead of grayscale")
	flags.StringVar(&opts.metricsFile, "metrics-file", opts.metricsFile, "Write run metrics to this file in Prometheus text format")
}

func installStressFlags(opts *stressOptions, flags *pflag.FlagSet) {
	flags.IntVarP(&opts.workers, "workers", "w", opts.workers, "Number of concurrent workers")
	flags.IntVarP(&opts.rounds, "rounds", "r", opts.rounds, "Number of rounds to run")
	flags.Uint64Var(&opts.count, "count", opts.count, "Values handed out by the countdown per round")
	flags.IntVar(&opts.length, "length", opts.length, "Buffer length partitioned per round")
	flags.IntVar(&opts.stride, "stride", opts.stride, "Chunk stride (0 = random per round)")
	flags.BoolVar(&opts.jitter, "jitter", opts.jitter, "Randomly yield between claims to vary interleavings")
	flags.StringVar(&opts.metricsFile, "metrics-file", opts.metricsFile, "Write run metrics to this file in Prometheus text format")
}
