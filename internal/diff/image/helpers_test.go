package image

import (
	"image/color"
	"testing"
)

func createTestImage(width int, height int, c color.NRGBA) *RasterImage {
	img := NewRasterImage(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			setPixel(img, x, y, c)
		}
	}
	return img
}

func setPixel(img *RasterImage, x int, y int, c color.NRGBA) {
	i := img.PixOffset(x, y)
	img.Pix[i] = c.R
	img.Pix[i+1] = c.G
	img.Pix[i+2] = c.B
	img.Pix[i+3] = c.A
}

func fillRect(img *RasterImage, x0 int, y0 int, x1 int, y1 int, c color.NRGBA) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			setPixel(img, x, y, c)
		}
	}
}

func encodeTestImage(t testing.TB, img *RasterImage) []byte {
	t.Helper()
	data, err := EncodePNG(img)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

var (
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.NRGBA{A: 255}
	gray  = color.NRGBA{R: 128, G: 128, B: 128, A: 255}
)
