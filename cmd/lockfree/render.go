package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aradilov/lockfree"
	"github.com/aradilov/lockfree/internal/mandelbrot"
	"github.com/cespare/xxhash/v2"
	"github.com/containerd/log"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

type renderOptions struct {
	output       string
	bounds       mandelbrot.Bounds
	upperLeft    complex128
	lowerRight   complex128
	workers      int
	rowsPerChunk int
	maxIter      int
	color        bool
	metricsFile  string
}

func defaultRenderOptions() renderOptions {
	return renderOptions{
		output:       "mandelbrot.png",
		bounds:       mandelbrot.Bounds{Width: 1200, Height: 800},
		upperLeft:    complex(-2.2, 1.2),
		lowerRight:   complex(1.0, -1.2),
		rowsPerChunk: mandelbrot.DefaultRowsPerChunk,
	}
}

func newRenderCommand() *cobra.Command {
	opts := defaultRenderOptions()

	cmd := &cobra.Command{
		Use:   "render [OPTIONS]",
		Short: "Render the Mandelbrot set with workers claiming bands of rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
	installRenderFlags(&opts, cmd.Flags())

	return cmd
}

func runRender(ctx context.Context, opts renderOptions, out io.Writer) (err error) {
	mode := mandelbrot.Gray
	if opts.color {
		mode = mandelbrot.RGB
	}

	logger := log.G(ctx).WithFields(log.Fields{
		"size":           opts.bounds.String(),
		"mode":           mode.String(),
		"workers":        opts.workers,
		"rows-per-chunk": opts.rowsPerChunk,
	})
	logger.Debug("starting render")

	m := newRunMetrics()
	defer func() {
		err = multierr.Append(err, m.writeTextfile(opts.metricsFile))
	}()

	pixels := make([]byte, opts.bounds.Width*opts.bounds.Height*mode.BytesPerPixel())

	start := time.Now()
	perWorker, err := mandelbrot.RenderParallel(ctx, pixels, opts.bounds, opts.upperLeft, opts.lowerRight, mandelbrot.Options{
		Mode:         mode,
		MaxIter:      opts.maxIter,
		Workers:      opts.workers,
		RowsPerChunk: opts.rowsPerChunk,
		OnChunk: func(worker int, c lockfree.Chunk[byte]) {
			m.claimed("chunks", worker, 1, uint64(len(c.Data)))
		},
	})
	elapsed := time.Since(start)
	m.finished("render", elapsed)
	if err != nil {
		return err
	}

	for w, n := range perWorker {
		logger.WithFields(log.Fields{"worker": w, "bands": n}).Debug("worker done")
	}

	if err := mandelbrot.WritePNG(opts.output, pixels, opts.bounds, mode); err != nil {
		return err
	}

	digest := xxhash.Sum64(pixels)
	logger.WithFields(log.Fields{
		"output":  opts.output,
		"elapsed": elapsed,
		"digest":  fmt.Sprintf("%016x", digest),
	}).Info("render finished")

	fmt.Fprintf(out, "%s generated\nelapsed: %.3f s\ndigest: %016x\n", opts.output, elapsed.Seconds(), digest)
	return nil
}
