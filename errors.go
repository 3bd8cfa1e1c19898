package lockfree

import "errors"

// ErrInvalidStride is returned by NewChunks when the stride is not positive.
var ErrInvalidStride = errors.New("stride must be greater than 0")
