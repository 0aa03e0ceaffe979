package image

import (
	"errors"
	"fmt"
)

var ErrMissingInput = errors.New("both screenshots are required")

// ErrTooLarge is wrapped by DecodeError and ComputationError when an image or
// the canvas exceeds Options.MaxPixels.
var ErrTooLarge = errors.New("image too large")

func checkPixels(width int, height int, maxPixels int64) error {
	if maxPixels > 0 && int64(width)*int64(height) > maxPixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooLarge, width, height, maxPixels)
	}
	return nil
}

type DecodeError struct {
	Input string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s: %v", e.Input, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type ComputationError struct {
	Err error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("failed to compute diff: %v", e.Err)
}

func (e *ComputationError) Unwrap() error {
	return e.Err
}
