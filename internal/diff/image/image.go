package image

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// RasterImage is a decoded screenshot: Width*Height pixels, 4 bytes each
// (R, G, B, A with straight alpha), row-major without padding.
type RasterImage struct {
	Width  int
	Height int
	Pix    []byte
}

func NewRasterImage(width int, height int) *RasterImage {
	return &RasterImage{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*4),
	}
}

func (r *RasterImage) PixOffset(x int, y int) int {
	return (y*r.Width + x) * 4
}

func (r *RasterImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, r.Width, r.Height)
}

// NRGBA shares the pixel buffer with r.
func (r *RasterImage) NRGBA() *image.NRGBA {
	return &image.NRGBA{
		Pix:    r.Pix,
		Stride: r.Width * 4,
		Rect:   r.Bounds(),
	}
}

type Metric string

const (
	MetricYIQ       Metric = "yiq"
	MetricCIEDE2000 Metric = "ciede2000"
)

type Options struct {
	// Threshold is the normalized color distance in [0, 1] above which a
	// pixel counts as different.
	Threshold float64
	DiffColor color.NRGBA
	// Alpha fades unchanged pixels toward white.
	Alpha              float64
	Metric             Metric
	DetectAntialiasing bool
	AAColor            color.NRGBA
	// MaxPixels caps both decoded images and the canvas they are padded to.
	// Zero means no limit.
	MaxPixels int64
}

const (
	DefaultThreshold = 0.1
	DefaultAlpha     = 0.1
	// DefaultMaxPixels fits a 1920 pixel wide page about 20000 pixels tall.
	DefaultMaxPixels = 40_000_000
)

func DefaultOptions() Options {
	return Options{
		Threshold: DefaultThreshold,
		DiffColor: color.NRGBA{R: 255, A: 255},
		Alpha:     DefaultAlpha,
		Metric:    MetricYIQ,
		AAColor:   color.NRGBA{R: 255, G: 255, A: 255},
		MaxPixels: DefaultMaxPixels,
	}
}

func (o Options) Validate() error {
	if o.Threshold < 0 || o.Threshold > 1 || math.IsNaN(o.Threshold) {
		return fmt.Errorf("threshold must be between 0 and 1, got %g", o.Threshold)
	}
	if !o.Metric.Valid() {
		return fmt.Errorf("unknown metric %q", o.Metric)
	}
	if o.MaxPixels < 0 {
		return fmt.Errorf("max pixels must not be negative, got %d", o.MaxPixels)
	}
	return nil
}

type DiffResult struct {
	Image      *RasterImage
	PixelCount int64
	// Mask marks counted pixels, indexed y*Width+x.
	Mask []bool
}

type Differ interface {
	Calculate(a *RasterImage, b *RasterImage) *DiffResult
}

type Result struct {
	Diff             []byte
	DiffImage        *RasterImage
	PixelCount       int64
	TotalPixels      int64
	DiffPercent      float64
	Width            int
	Height           int
	DimensionsDiffer bool
	Regions          []Rectangle
}
