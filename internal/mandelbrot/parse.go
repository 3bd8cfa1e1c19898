package mandelbrot

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrMalformedPair is returned when a string is not of the form <left><sep><right>.
var ErrMalformedPair = errors.New("malformed pair")

// parsePair splits s around the first sep and parses both halves with parse.
func parsePair[T any](s string, sep byte, parse func(string) (T, error)) (T, T, error) {
	var zero T

	i := strings.IndexByte(s, sep)
	if i < 0 {
		return zero, zero, errors.Wrapf(ErrMalformedPair, "%q has no %q separator", s, sep)
	}

	l, err := parse(s[:i])
	if err != nil {
		return zero, zero, errors.Wrapf(ErrMalformedPair, "%q: left side: %v", s, err)
	}
	r, err := parse(s[i+1:])
	if err != nil {
		return zero, zero, errors.Wrapf(ErrMalformedPair, "%q: right side: %v", s, err)
	}
	return l, r, nil
}

// ParseBounds parses image dimensions such as "1200x800".
func ParseBounds(s string) (Bounds, error) {
	w, h, err := parsePair(s, 'x', strconv.Atoi)
	if err != nil {
		return Bounds{}, err
	}
	if w <= 0 || h <= 0 {
		return Bounds{}, errors.Errorf("image dimensions must be positive, got %dx%d", w, h)
	}
	return Bounds{Width: w, Height: h}, nil
}

// ParseComplex parses a point such as "-1.20,0.35" as re,im.
func ParseComplex(s string) (complex128, error) {
	re, im, err := parsePair(s, ',', func(v string) (float64, error) {
		return strconv.ParseFloat(v, 64)
	})
	if err != nil {
		return 0, err
	}
	return complex(re, im), nil
}
