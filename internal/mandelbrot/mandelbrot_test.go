package mandelbrot

import (
	"bytes"
	"context"
	"image/png"
	"math"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/aradilov/lockfree"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestParseBounds(t *testing.T) {
	b, err := ParseBounds("1200x800")
	assert.NilError(t, err)
	assert.Equal(t, b, Bounds{Width: 1200, Height: 800})
	assert.Equal(t, b.String(), "1200x800")

	for _, s := range []string{"", "10x", "x10", "10,20", "10x20xy", "0x10", "-1x10"} {
		_, err := ParseBounds(s)
		assert.Check(t, err != nil, "expected error for %q", s)
	}
}

func TestParseComplex(t *testing.T) {
	c, err := ParseComplex("1.25,-0.0625")
	assert.NilError(t, err)
	assert.Equal(t, c, complex(1.25, -0.0625))

	_, err = ParseComplex(",-0.0625")
	assert.ErrorIs(t, err, ErrMalformedPair)

	_, err = ParseComplex("0.5x1.5")
	assert.ErrorIs(t, err, ErrMalformedPair)
}

func TestPixelToPoint(t *testing.T) {
	got := PixelToPoint(Bounds{Width: 100, Height: 200}, 25, 175, complex(-1, 1), complex(1, -1))
	assert.Equal(t, got, complex(-0.5, -0.75))
}

func TestEscapeTime(t *testing.T) {
	n, escaped := EscapeTime(0, 255)
	assert.Check(t, !escaped)
	assert.Equal(t, n, 255)

	n, escaped = EscapeTime(complex(2, 2), 255)
	assert.Check(t, escaped)
	assert.Equal(t, n, 1)
}

func TestColorMap(t *testing.T) {
	assert.Equal(t, ColorMap(200, 200), [3]uint8{})
	assert.Equal(t, ColorMap(0, 200), [3]uint8{})

	c := ColorMap(100, 200)
	// t = 0.5: r = 9/16*255, g = 15/16*255, b = 8.5/16*255
	assert.Equal(t, c, [3]uint8{143, 239, 135})
}

func TestRenderParallelMatchesRender(t *testing.T) {
	bounds := Bounds{Width: 97, Height: 61}
	ul, lr := complex(-2.2, 1.2), complex(1.0, -1.2)

	for _, mode := range []Mode{Gray, RGB} {
		for _, tc := range []struct{ workers, rows int }{{1, 1}, {4, 3}, {16, 8}, {3, 1000}, {4, 1844674407370955163}, {2, math.MaxInt}} {
			want := make([]byte, bounds.Width*bounds.Height*mode.BytesPerPixel())
			assert.NilError(t, Render(want, bounds, ul, lr, Options{Mode: mode}))

			got := make([]byte, len(want))
			var bands atomic.Int32
			perWorker, err := RenderParallel(context.Background(), got, bounds, ul, lr, Options{
				Mode:         mode,
				Workers:      tc.workers,
				RowsPerChunk: tc.rows,
				OnChunk: func(_ int, c lockfree.Chunk[byte]) {
					bands.Add(1)
				},
			})
			assert.NilError(t, err)
			assert.Check(t, bytes.Equal(want, got), "mode %v workers %d rows %d: images differ", mode, tc.workers, tc.rows)

			total := 0
			for _, n := range perWorker {
				total += n
			}
			rows := min(tc.rows, bounds.Height)
			wantBands := (bounds.Height + rows - 1) / rows
			assert.Check(t, is.Len(perWorker, tc.workers))
			assert.Equal(t, total, wantBands)
			assert.Equal(t, int(bands.Load()), wantBands)
		}
	}
}

// Bands taller than the image must not wrap the stride into a partial row.
func TestRenderParallelHugeRowsPerChunk(t *testing.T) {
	bounds := Bounds{Width: 10, Height: 20}
	ul, lr := complex(-2.2, 1.2), complex(1.0, -1.2)

	want := make([]byte, bounds.Width*bounds.Height)
	assert.NilError(t, Render(want, bounds, ul, lr, Options{}))

	// 10 * 1844674407370955163 overflows int64 and wraps to 14.
	got := make([]byte, len(want))
	perWorker, err := RenderParallel(context.Background(), got, bounds, ul, lr, Options{
		Workers:      3,
		RowsPerChunk: 1844674407370955163,
	})
	assert.NilError(t, err)
	assert.Check(t, bytes.Equal(want, got), "images differ")

	total := 0
	for _, n := range perWorker {
		total += n
	}
	assert.Equal(t, total, 1)
}

func TestRenderParallelCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bounds := Bounds{Width: 10, Height: 10}
	_, err := RenderParallel(ctx, make([]byte, 100), bounds, complex(-2, 1), complex(1, -1), Options{Workers: 2})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRenderBufferSize(t *testing.T) {
	err := Render(make([]byte, 10), Bounds{Width: 4, Height: 4}, 0, 0, Options{})
	assert.ErrorIs(t, err, ErrBufferSize)

	_, err = RenderParallel(context.Background(), make([]byte, 16), Bounds{Width: 4, Height: 4}, 0, 0, Options{Mode: RGB})
	assert.ErrorIs(t, err, ErrBufferSize)
}

func TestRenderInvalidOptions(t *testing.T) {
	for _, opts := range []Options{
		{Mode: Mode(7)},
		{MaxIter: -1},
		{Workers: -2},
		{RowsPerChunk: -1},
	} {
		err := Render(make([]byte, 4), Bounds{Width: 2, Height: 2}, 0, 0, opts)
		assert.Check(t, is.ErrorIs(err, ErrInvalidOptions), "options %+v", opts)
	}
}

func TestRenderEmpty(t *testing.T) {
	perWorker, err := RenderParallel(context.Background(), nil, Bounds{}, 0, 0, Options{Workers: 3})
	assert.NilError(t, err)
	assert.DeepEqual(t, perWorker, []int{0, 0, 0})
}

func TestWritePNG(t *testing.T) {
	bounds := Bounds{Width: 30, Height: 20}
	dir := t.TempDir()

	for _, mode := range []Mode{Gray, RGB} {
		pixels := make([]byte, bounds.Width*bounds.Height*mode.BytesPerPixel())
		assert.NilError(t, Render(pixels, bounds, complex(-2.2, 1.2), complex(1.0, -1.2), Options{Mode: mode}))

		path := filepath.Join(dir, mode.String()+".png")
		assert.NilError(t, WritePNG(path, pixels, bounds, mode))

		var buf bytes.Buffer
		assert.NilError(t, EncodePNG(&buf, pixels, bounds, mode))
		img, err := png.Decode(&buf)
		assert.NilError(t, err)
		assert.Equal(t, img.Bounds().Dx(), bounds.Width)
		assert.Equal(t, img.Bounds().Dy(), bounds.Height)
	}

	err := WritePNG(filepath.Join(dir, "missing", "x.png"), make([]byte, 600), bounds, Gray)
	assert.Check(t, err != nil)
}
