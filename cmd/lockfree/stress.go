package main

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"slices"
	"time"

	"github.com/aradilov/lockfree"
	"github.com/containerd/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/valyala/fastrand"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// errViolation is returned when a value or chunk was handed out twice or never.
var errViolation = errors.New("exactly-once violation")

const maxRandomStride = 1 << 10

type stressOptions struct {
	workers     int
	rounds      int
	count       uint64
	length      int
	stride      int
	jitter      bool
	metricsFile string
}

func defaultStressOptions() stressOptions {
	return stressOptions{
		workers: 10,
		rounds:  10,
		count:   10_000,
		length:  10_000,
		stride:  3,
		jitter:  true,
	}
}

func (o stressOptions) validate() error {
	if o.workers <= 0 {
		return errors.Errorf("workers must be greater than 0, got %d", o.workers)
	}
	if o.rounds <= 0 {
		return errors.Errorf("rounds must be greater than 0, got %d", o.rounds)
	}
	if o.length < 0 {
		return errors.Errorf("length must not be negative, got %d", o.length)
	}
	if o.stride < 0 {
		return errors.Errorf("stride must not be negative, got %d", o.stride)
	}
	return nil
}

func newStressCommand() *cobra.Command {
	opts := defaultStressOptions()

	cmd := &cobra.Command{
		Use:   "stress [OPTIONS]",
		Short: "Drain countdowns and partitioners from concurrent workers and verify exactly-once delivery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
	installStressFlags(&opts, cmd.Flags())

	return cmd
}

// workerClaims counts successful claims per worker. Each worker only touches
// its own slot.
type workerClaims []atomic.Uint64

func (c workerClaims) total() uint64 {
	var n uint64
	for i := range c {
		n += c[i].Load()
	}
	return n
}

func (c workerClaims) spread() (lo, hi uint64) {
	loads := make([]uint64, len(c))
	for i := range c {
		loads[i] = c[i].Load()
	}
	return slices.Min(loads), slices.Max(loads)
}

func runStress(ctx context.Context, opts stressOptions, out io.Writer) (err error) {
	if err := opts.validate(); err != nil {
		return err
	}

	m := newRunMetrics()
	defer func() {
		err = multierr.Append(err, m.writeTextfile(opts.metricsFile))
	}()

	countdownClaims := make(workerClaims, opts.workers)
	chunkClaims := make(workerClaims, opts.workers)

	start := time.Now()
	for round := 0; round < opts.rounds; round++ {
		logger := log.G(ctx).WithField("round", round)

		if err := stressCountdown(ctx, opts, countdownClaims); err != nil {
			return errors.Wrapf(err, "round %d: countdown", round)
		}

		stride := opts.stride
		if stride == 0 {
			stride = int(fastrand.Uint32n(maxRandomStride)) + 1
		}
		if err := stressChunks(ctx, opts, stride, chunkClaims); err != nil {
			return errors.Wrapf(err, "round %d: chunks stride %d", round, stride)
		}

		logger.WithField("stride", stride).Debug("round passed")
	}
	elapsed := time.Since(start)
	m.finished("stress", elapsed)

	for w := 0; w < opts.workers; w++ {
		m.claimed("countdown", w, countdownClaims[w].Load(), countdownClaims[w].Load())
		m.claimed("chunks", w, chunkClaims[w].Load(), 0)
	}
	m.elements.WithLabelValues("chunks").Add(float64(opts.length * opts.rounds))

	cdLo, cdHi := countdownClaims.spread()
	chLo, chHi := chunkClaims.spread()
	log.G(ctx).WithFields(log.Fields{
		"rounds":  opts.rounds,
		"workers": opts.workers,
		"elapsed": elapsed,
	}).Info("stress finished")

	fmt.Fprintf(out, "rounds: %d workers: %d elapsed: %.3f s\n", opts.rounds, opts.workers, elapsed.Seconds())
	fmt.Fprintf(out, "countdown: %d claims, per worker %d..%d\n", countdownClaims.total(), cdLo, cdHi)
	fmt.Fprintf(out, "chunks:    %d claims, per worker %d..%d\n", chunkClaims.total(), chLo, chHi)
	fmt.Fprintln(out, "ok")
	return nil
}

func maybeYield(jitter bool) {
	if jitter && fastrand.Uint32n(8) == 0 {
		runtime.Gosched()
	}
}

// stressCountdown drains one Countdown from all workers and checks that
// every value in [0, count) was issued exactly once.
func stressCountdown(ctx context.Context, opts stressOptions, claims workerClaims) error {
	c := lockfree.NewCountdown(opts.count)
	seen := make([]atomic.Uint32, opts.count)

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < opts.workers; w++ {
		g.Go(func() error {
			for v := range c.All() {
				if err := ctx.Err(); err != nil {
					return err
				}
				if v >= opts.count {
					return errors.Wrapf(errViolation, "value %d out of range", v)
				}
				if n := seen[v].Inc(); n != 1 {
					return errors.Wrapf(errViolation, "value %d issued %d times", v, n)
				}
				claims[w].Inc()
				maybeYield(opts.jitter)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for v := range seen {
		if n := seen[v].Load(); n != 1 {
			return errors.Wrapf(errViolation, "value %d issued %d times", v, n)
		}
	}
	if c.Remaining() != 0 {
		return errors.Wrapf(errViolation, "%d values left after drain", c.Remaining())
	}
	return nil
}

// stressChunks drains one partitioner from all workers. Each worker stamps its
// marker into the chunks it owns; afterwards every element must carry the
// marker of the single worker that owned its chunk.
func stressChunks(ctx context.Context, opts stressOptions, stride int, claims workerClaims) error {
	buf := make([]int32, opts.length)
	p, err := lockfree.NewChunks(buf, stride)
	if err != nil {
		return err
	}

	owned := make([][]int, opts.workers)

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < opts.workers; w++ {
		g.Go(func() error {
			marker := int32(w + 1)
			for {
				if err := ctx.Err(); err != nil {
					return err
				}
				c, ok := p.Claim()
				if !ok {
					return nil
				}
				for i := range c.Data {
					c.Data[i] = marker
				}
				owned[w] = append(owned[w], c.Index)
				claims[w].Inc()
				maybeYield(opts.jitter)
			}
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	owner := make([]int32, p.Len())
	for w, indices := range owned {
		for _, idx := range indices {
			if owner[idx] != 0 {
				return errors.Wrapf(errViolation, "chunk %d claimed by workers %d and %d", idx, owner[idx]-1, w)
			}
			owner[idx] = int32(w + 1)
		}
	}
	for i, v := range buf {
		if want := owner[i/stride]; v != want || want == 0 {
			return errors.Wrapf(errViolation, "element %d holds marker %d, chunk %d owned by %d", i, v, i/stride, want)
		}
	}
	return nil
}
