package mandelbrot

import "fmt"

// Bounds is the size of an image in pixels.
type Bounds struct {
	Width  int
	Height int
}

func (b Bounds) String() string {
	return fmt.Sprintf("%dx%d", b.Width, b.Height)
}

// Mode selects the pixel format.
type Mode int

const (
	Gray Mode = iota
	RGB
)

func (m Mode) String() string {
	switch m {
	case Gray:
		return "gray"
	case RGB:
		return "rgb"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// BytesPerPixel returns how many bytes one pixel takes in this mode.
func (m Mode) BytesPerPixel() int {
	if m == RGB {
		return 3
	}
	return 1
}

// EscapeTime iterates z = z*z + c from zero for at most limit rounds.
// It returns the number of rounds it took z to leave the radius-2 circle
// and true, or (limit, false) if c looks like a member of the set.
func EscapeTime(c complex128, limit int) (int, bool) {
	var z complex128
	for i := 0; i < limit; i++ {
		if real(z)*real(z)+imag(z)*imag(z) > 4.0 {
			return i, true
		}
		z = z*z + c
	}
	return limit, false
}

// PixelToPoint maps the pixel (column, row) of an image covering the
// rectangle from upperLeft to lowerRight onto the complex plane.
func PixelToPoint(bounds Bounds, column, row int, upperLeft, lowerRight complex128) complex128 {
	width := real(lowerRight) - real(upperLeft)
	height := imag(upperLeft) - imag(lowerRight)

	// Rows grow downwards while the imaginary axis grows upwards.
	return complex(
		real(upperLeft)+float64(column)*width/float64(bounds.Width),
		imag(upperLeft)-float64(row)*height/float64(bounds.Height),
	)
}

// ColorMap converts an escape count into an RGB color.
// Members of the set (iter >= maxIter) are black.
func ColorMap(iter, maxIter int) [3]uint8 {
	if iter >= maxIter {
		return [3]uint8{}
	}

	t := float64(iter) / float64(maxIter)
	u := 1 - t

	return [3]uint8{
		uint8(9 * u * t * t * t * 255),
		uint8(15 * u * u * t * t * 255),
		uint8(8.5 * u * u * u * t * 255),
	}
}

func grayLevel(iter int, escaped bool) uint8 {
	if !escaped {
		return 0
	}
	return 255 - uint8(min(iter, 255))
}
