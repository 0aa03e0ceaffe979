package image

import (
	"fmt"
)

type Comparator struct {
	options Options
	differ  Differ
}

func NewComparator(options Options) *Comparator {
	return &Comparator{
		options: options,
		differ:  NewPixelDiff(options),
	}
}

func (c *Comparator) Options() Options {
	return c.options
}

// Compare diffs two encoded screenshots. Either input being empty is
// ErrMissingInput; nothing is decoded in that case.
func (c *Comparator) Compare(baseline []byte, target []byte) (*Result, error) {
	if len(baseline) == 0 || len(target) == 0 {
		return nil, ErrMissingInput
	}

	a, err := DecodeLimit(baseline, c.options.MaxPixels)
	if err != nil {
		return nil, &DecodeError{Input: "baseline", Err: err}
	}
	b, err := DecodeLimit(target, c.options.MaxPixels)
	if err != nil {
		return nil, &DecodeError{Input: "target", Err: err}
	}

	return c.CompareImages(a, b)
}

func (c *Comparator) CompareBase64(baseline string, target string) (*Result, error) {
	if baseline == "" || target == "" {
		return nil, ErrMissingInput
	}

	a, err := DecodeBase64String(baseline)
	if err != nil {
		return nil, &DecodeError{Input: "baseline", Err: err}
	}
	b, err := DecodeBase64String(target)
	if err != nil {
		return nil, &DecodeError{Input: "target", Err: err}
	}

	return c.Compare(a, b)
}

func (c *Comparator) CompareImages(a *RasterImage, b *RasterImage) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &ComputationError{Err: fmt.Errorf("%v", r)}
		}
	}()

	width, height := CanvasSize(a, b)
	if err := checkPixels(width, height, c.options.MaxPixels); err != nil {
		return nil, &ComputationError{Err: err}
	}
	d := c.differ.Calculate(Normalize(a, width, height), Normalize(b, width, height))

	encoded, err := EncodePNG(d.Image)
	if err != nil {
		return nil, &ComputationError{Err: err}
	}

	totalPixels := int64(width) * int64(height)
	return &Result{
		Diff:             encoded,
		DiffImage:        d.Image,
		PixelCount:       d.PixelCount,
		TotalPixels:      totalPixels,
		DiffPercent:      DiffPercent(d.PixelCount, totalPixels),
		Width:            width,
		Height:           height,
		DimensionsDiffer: a.Width != b.Width || a.Height != b.Height,
		Regions:          FindRegions(d.Mask, width, height),
	}, nil
}
