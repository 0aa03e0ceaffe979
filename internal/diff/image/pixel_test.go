package image

import (
	"fmt"
	"image/color"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPixelDiff_Calculate(t *testing.T) {
	pd := NewPixelDiff(DefaultOptions())

	t.Run("NoDifference", func(t *testing.T) {
		result := pd.Calculate(createTestImage(100, 100, white), createTestImage(100, 100, white))

		if result.PixelCount != 0 {
			t.Errorf("Expected PixelCount to be 0, got %d", result.PixelCount)
		}
	})

	t.Run("CompleteDifference", func(t *testing.T) {
		result := pd.Calculate(createTestImage(100, 100, white), createTestImage(100, 100, black))

		if result.PixelCount != 10000 {
			t.Errorf("Expected PixelCount to be 10000, got %d", result.PixelCount)
		}
	})

	t.Run("PartialDifference", func(t *testing.T) {
		img1 := createTestImage(100, 100, white)
		img2 := createTestImage(100, 100, white)
		fillRect(img2, 0, 0, 100, 50, black)

		result := pd.Calculate(img1, img2)

		if result.PixelCount != 5000 {
			t.Errorf("Expected PixelCount to be 5000, got %d", result.PixelCount)
		}
	})

	t.Run("SingleRow", func(t *testing.T) {
		img1 := createTestImage(7, 1, white)
		img2 := createTestImage(7, 1, white)
		setPixel(img2, 3, 0, black)

		result := pd.Calculate(img1, img2)

		if result.PixelCount != 1 {
			t.Errorf("Expected PixelCount to be 1, got %d", result.PixelCount)
		}
	})

	t.Run("DiffColors", func(t *testing.T) {
		img1 := createTestImage(2, 1, white)
		img2 := createTestImage(2, 1, white)
		setPixel(img2, 1, 0, black)

		result := pd.Calculate(img1, img2)

		if diff := cmp.Diff([]byte{255, 255, 255, 255, 255, 0, 0, 255}, result.Image.Pix); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]bool{false, true}, result.Mask); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("UnchangedPixelsAreFaded", func(t *testing.T) {
		result := pd.Calculate(createTestImage(1, 1, black), createTestImage(1, 1, black))

		// black luma 0 blended 10% toward white
		if diff := cmp.Diff([]byte{229, 229, 229, 255}, result.Image.Pix); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("DoesNotModifyInputs", func(t *testing.T) {
		img1 := createTestImage(10, 10, white)
		img2 := createTestImage(10, 10, gray)
		before1 := append([]byte(nil), img1.Pix...)
		before2 := append([]byte(nil), img2.Pix...)

		pd.Calculate(img1, img2)

		if diff := cmp.Diff(before1, img1.Pix); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(before2, img2.Pix); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})
}

func TestPixelDiff_Threshold(t *testing.T) {
	type in struct {
		first  Options
		second color.NRGBA
	}

	type want struct {
		first int64
	}

	withThreshold := func(threshold float64) Options {
		o := DefaultOptions()
		o.Threshold = threshold
		return o
	}
	withMetric := func(metric Metric) Options {
		o := DefaultOptions()
		o.Metric = metric
		return o
	}
	nearBlack := color.NRGBA{R: 10, G: 10, B: 10, A: 255}

	tests := []struct {
		name string
		in   in
		want want
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				DefaultOptions(),
				nearBlack,
			},
			want{
				0,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				withThreshold(0.01),
				nearBlack,
			},
			want{
				4,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				withThreshold(0),
				black,
			},
			want{
				0,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				withThreshold(1),
				white,
			},
			want{
				0,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				withMetric(MetricCIEDE2000),
				white,
			},
			want{
				4,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				withMetric(MetricCIEDE2000),
				black,
			},
			want{
				0,
			},
		},
	}
	for _, tt := range tests {
		name := tt.name
		in := tt.in
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := NewPixelDiff(in.first).Calculate(createTestImage(2, 2, black), createTestImage(2, 2, in.second))
			if diff := cmp.Diff(want.first, got.PixelCount); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestPixelDiff_Symmetric(t *testing.T) {
	t.Parallel()

	img1 := createTestImage(31, 17, white)
	img2 := createTestImage(23, 29, white)
	for y := 0; y < 17; y++ {
		for x := 0; x < 31; x++ {
			if (x*7+y*3)%5 == 0 {
				setPixel(img1, x, y, color.NRGBA{R: uint8(x * 8), G: uint8(y * 15), B: 90, A: uint8(255 - x)})
			}
		}
	}
	fillRect(img2, 4, 4, 12, 20, gray)

	for _, options := range []Options{DefaultOptions(), {Threshold: 0.05, Metric: MetricCIEDE2000}, {Threshold: 0.1, DetectAntialiasing: true}} {
		pd := NewPixelDiff(options)
		ab := pd.Calculate(img1, img2)
		ba := pd.Calculate(img2, img1)
		if ab.PixelCount != ba.PixelCount {
			t.Errorf("Expected symmetric counts with %+v, got %d and %d", options, ab.PixelCount, ba.PixelCount)
		}
	}
}

func TestPixelDiff_TransparentPadding(t *testing.T) {
	t.Parallel()

	pd := NewPixelDiff(DefaultOptions())

	// Padding composites to white, so it only differs from non-white pixels.
	if got := pd.Calculate(createTestImage(1, 1, white), createTestImage(2, 2, white)).PixelCount; got != 0 {
		t.Errorf("Expected white padding to match white, got %d", got)
	}
	if got := pd.Calculate(createTestImage(1, 1, black), createTestImage(2, 2, black)).PixelCount; got != 3 {
		t.Errorf("Expected 3 padded pixels to differ, got %d", got)
	}
}

func TestPixelDiff_Antialiasing(t *testing.T) {
	t.Parallel()

	// A hard black/white edge versus the same edge softened by a gray column.
	img1 := createTestImage(10, 10, white)
	fillRect(img1, 0, 0, 5, 10, black)
	img2 := createTestImage(10, 10, white)
	fillRect(img2, 0, 0, 5, 10, black)
	fillRect(img2, 5, 0, 6, 10, gray)

	if got := NewPixelDiff(DefaultOptions()).Calculate(img1, img2).PixelCount; got != 10 {
		t.Errorf("Expected 10 without detection, got %d", got)
	}

	options := DefaultOptions()
	options.DetectAntialiasing = true
	result := NewPixelDiff(options).Calculate(img1, img2)
	if result.PixelCount != 0 {
		t.Errorf("Expected 0 with detection, got %d", result.PixelCount)
	}
	if diff := cmp.Diff([]byte{255, 255, 0, 255}, result.Image.Pix[result.Image.PixOffset(5, 5):result.Image.PixOffset(6, 5)]); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	// Solid blocks are not edges.
	img3 := createTestImage(100, 100, white)
	fillRect(img3, 45, 45, 55, 55, black)
	if got := NewPixelDiff(options).Calculate(createTestImage(100, 100, white), img3).PixelCount; got != 100 {
		t.Errorf("Expected 100 with detection, got %d", got)
	}
}

func BenchmarkPixelDiff_Calculate_Small(b *testing.B) {
	pd := NewPixelDiff(DefaultOptions())
	img1 := createTestImage(1920, 1080, white)
	img2 := createTestImage(1920, 1080, white)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pd.Calculate(img1, img2)
	}
}

func BenchmarkPixelDiff_Calculate_Large(b *testing.B) {
	pd := NewPixelDiff(DefaultOptions())
	img1 := createTestImage(3840, 2160, white)
	img2 := createTestImage(3840, 2160, black)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pd.Calculate(img1, img2)
	}
}
