package image

func CanvasSize(a *RasterImage, b *RasterImage) (int, int) {
	return max(a.Width, b.Width), max(a.Height, b.Height)
}

// Normalize returns img itself when it already has the requested size.
// Otherwise it returns a new image with img copied to the top-left corner
// and the remainder left fully transparent black. img is never modified.
func Normalize(img *RasterImage, width int, height int) *RasterImage {
	if img.Width == width && img.Height == height {
		return img
	}

	canvas := NewRasterImage(width, height)
	rowWidth := min(img.Width, width) * 4
	for y := 0; y < min(img.Height, height); y++ {
		src := img.PixOffset(0, y)
		dst := canvas.PixOffset(0, y)
		copy(canvas.Pix[dst:dst+rowWidth], img.Pix[src:src+rowWidth])
	}
	return canvas
}
