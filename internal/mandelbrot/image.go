package mandelbrot

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// rgbImage adapts a packed 3-bytes-per-pixel buffer to image.Image.
type rgbImage struct {
	pix    []byte
	bounds Bounds
}

func (m *rgbImage) ColorModel() color.Model { return color.RGBAModel }

func (m *rgbImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.bounds.Width, m.bounds.Height)
}

func (m *rgbImage) At(x, y int) color.Color {
	i := (y*m.bounds.Width + x) * 3
	return color.RGBA{R: m.pix[i], G: m.pix[i+1], B: m.pix[i+2], A: 0xff}
}

// Image wraps pixels as an image.Image without copying.
func Image(pixels []byte, bounds Bounds, mode Mode) (image.Image, error) {
	if err := checkBuffer(pixels, bounds, mode); err != nil {
		return nil, err
	}

	if mode == RGB {
		return &rgbImage{pix: pixels, bounds: bounds}, nil
	}
	return &image.Gray{
		Pix:    pixels,
		Stride: bounds.Width,
		Rect:   image.Rect(0, 0, bounds.Width, bounds.Height),
	}, nil
}

// EncodePNG writes pixels to w as a PNG image.
func EncodePNG(w io.Writer, pixels []byte, bounds Bounds, mode Mode) error {
	img, err := Image(pixels, bounds, mode)
	if err != nil {
		return err
	}
	return errors.Wrap(png.Encode(w, img), "encoding png")
}

// WritePNG writes pixels to the file at path as a PNG image.
func WritePNG(path string, pixels []byte, bounds Bounds, mode Mode) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer func() {
		err = multierr.Append(err, errors.Wrapf(f.Close(), "closing %s", path))
	}()

	return EncodePNG(f, pixels, bounds, mode)
}
