package syntax

import (
	"errors"
	"fmt"

	"github.com/deepteams/vp8/internal/bitio"
)

// Failure kinds of frame decoding. Every error returned by this package
// wraps exactly one of them.
var (
	ErrTruncatedStream    = errors.New("vp8: truncated stream")
	ErrInvalidStartCode   = errors.New("vp8: invalid start code")
	ErrUnsupportedVersion = errors.New("vp8: unsupported version")
	ErrDimensionMismatch  = errors.New("vp8: dimension mismatch")
	ErrInvalidDimensions  = errors.New("vp8: invalid dimensions")
)

// checkDecoder converts a latched range decoder failure into a
// truncated-stream error naming the syntax element being read.
func checkDecoder(d *bitio.RangeDecoder, what string) error {
	if err := d.Err(); err != nil {
		if errors.Is(err, bitio.ErrTruncated) {
			return fmt.Errorf("%w: %s", ErrTruncatedStream, what)
		}
		return fmt.Errorf("vp8: %s: %w", what, err)
	}
	return nil
}
