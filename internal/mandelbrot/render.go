package mandelbrot

import (
	"context"
	"runtime"

	"github.com/aradilov/lockfree"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultRowsPerChunk is the default number of image rows a worker claims at once.
	DefaultRowsPerChunk = 8

	// DefaultGrayIter is the default iteration limit for Gray images.
	// Escape counts above 255 cannot be told apart in one byte.
	DefaultGrayIter = 255

	// DefaultRGBIter is the default iteration limit for RGB images.
	DefaultRGBIter = 200
)

var (
	// ErrBufferSize is returned when the pixel buffer does not match the bounds.
	ErrBufferSize = errors.New("pixel buffer size does not match bounds")

	// ErrInvalidOptions is returned when render options are out of range.
	ErrInvalidOptions = errors.New("invalid render options")
)

// Options configures a render.
type Options struct {
	Mode         Mode
	MaxIter      int // 0 picks DefaultGrayIter or DefaultRGBIter
	Workers      int // 0 picks runtime.GOMAXPROCS(0)
	RowsPerChunk int // 0 picks DefaultRowsPerChunk

	// OnChunk, if set, is called by the worker that rendered a band of rows.
	// It is called concurrently from all workers.
	OnChunk func(worker int, c lockfree.Chunk[byte])
}

// withDefaults fills zero fields and validates the result.
func (o Options) withDefaults() (Options, error) {
	if o.MaxIter == 0 {
		o.MaxIter = DefaultGrayIter
		if o.Mode == RGB {
			o.MaxIter = DefaultRGBIter
		}
	}
	if o.Workers == 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.RowsPerChunk == 0 {
		o.RowsPerChunk = DefaultRowsPerChunk
	}

	if o.Mode != Gray && o.Mode != RGB {
		return o, errors.Wrapf(ErrInvalidOptions, "unknown mode %v", o.Mode)
	}
	if o.MaxIter < 0 {
		return o, errors.Wrapf(ErrInvalidOptions, "max iterations %d", o.MaxIter)
	}
	if o.Workers < 0 {
		return o, errors.Wrapf(ErrInvalidOptions, "workers %d", o.Workers)
	}
	if o.RowsPerChunk < 0 {
		return o, errors.Wrapf(ErrInvalidOptions, "rows per chunk %d", o.RowsPerChunk)
	}
	return o, nil
}

func checkBuffer(pixels []byte, bounds Bounds, mode Mode) error {
	want := bounds.Width * bounds.Height * mode.BytesPerPixel()
	if len(pixels) != want {
		return errors.Wrapf(ErrBufferSize, "%d bytes for %v %v (expected %d)", len(pixels), bounds, mode, want)
	}
	return nil
}

// Render draws the rectangle from upperLeft to lowerRight into pixels on the
// calling goroutine. Workers, RowsPerChunk and OnChunk are ignored.
func Render(pixels []byte, bounds Bounds, upperLeft, lowerRight complex128, opts Options) error {
	opts, err := opts.withDefaults()
	if err != nil {
		return err
	}
	if err := checkBuffer(pixels, bounds, opts.Mode); err != nil {
		return err
	}

	renderRows(pixels, bounds, 0, upperLeft, lowerRight, opts)
	return nil
}

// RenderParallel draws the same image as Render, splitting pixels into bands
// of opts.RowsPerChunk rows that opts.Workers goroutines claim one at a time.
// It returns how many bands each worker rendered.
//
// Workers stop claiming bands once ctx is done; the returned error is then
// ctx.Err() and pixels is only partially rendered.
func RenderParallel(ctx context.Context, pixels []byte, bounds Bounds, upperLeft, lowerRight complex128, opts Options) ([]int, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	if err := checkBuffer(pixels, bounds, opts.Mode); err != nil {
		return nil, err
	}

	perWorker := make([]int, opts.Workers)
	if len(pixels) == 0 {
		return perWorker, nil
	}

	// A band never spans more than the whole image, which also keeps the
	// stride below len(pixels) and a whole number of rows.
	rows := min(opts.RowsPerChunk, bounds.Height)
	rowBytes := bounds.Width * opts.Mode.BytesPerPixel()
	bands, err := lockfree.NewChunks(pixels, rows*rowBytes)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidOptions, "%v", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < opts.Workers; w++ {
		g.Go(func() error {
			for {
				if err := ctx.Err(); err != nil {
					return err
				}

				band, ok := bands.Claim()
				if !ok {
					return nil
				}

				renderRows(band.Data, bounds, band.Offset/rowBytes, upperLeft, lowerRight, opts)
				perWorker[w]++

				if opts.OnChunk != nil {
					opts.OnChunk(w, band)
				}
			}
		})
	}

	if err := g.Wait(); err != nil {
		return perWorker, err
	}
	return perWorker, nil
}

// renderRows fills dst, which holds whole rows starting at firstRow.
func renderRows(dst []byte, bounds Bounds, firstRow int, upperLeft, lowerRight complex128, opts Options) {
	if len(dst) == 0 {
		return
	}

	bpp := opts.Mode.BytesPerPixel()
	rows := len(dst) / (bounds.Width * bpp)

	i := 0
	for row := firstRow; row < firstRow+rows; row++ {
		for column := 0; column < bounds.Width; column++ {
			point := PixelToPoint(bounds, column, row, upperLeft, lowerRight)
			iter, escaped := EscapeTime(point, opts.MaxIter)

			switch opts.Mode {
			case Gray:
				dst[i] = grayLevel(iter, escaped)
			case RGB:
				rgb := ColorMap(iter, opts.MaxIter)
				copy(dst[i:i+3], rgb[:])
			}
			i += bpp
		}
	}
}
