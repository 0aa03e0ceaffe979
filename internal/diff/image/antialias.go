package image

// antialiased reports whether the pixel at (x, y) of img looks like an
// antialiased edge: it sits between a darker and a brighter neighbour, and
// one of those neighbours belongs to a flat area in both images.
func antialiased(img *RasterImage, other *RasterImage, x int, y int) bool {
	x0, y0 := max(x-1, 0), max(y-1, 0)
	x2, y2 := min(x+1, img.Width-1), min(y+1, img.Height-1)
	center := pixelAt(img, x, y)

	zeroes := 0
	if x == x0 || x == x2 || y == y0 || y == y2 {
		zeroes = 1
	}

	var darkest, brightest float64
	var minX, minY, maxX, maxY int
	for nx := x0; nx <= x2; nx++ {
		for ny := y0; ny <= y2; ny++ {
			if nx == x && ny == y {
				continue
			}
			delta := brightnessDelta(center, pixelAt(img, nx, ny))
			switch {
			case delta == 0:
				zeroes++
				if zeroes > 2 {
					return false
				}
			case delta < darkest:
				darkest, minX, minY = delta, nx, ny
			case delta > brightest:
				brightest, maxX, maxY = delta, nx, ny
			}
		}
	}

	if darkest == 0 || brightest == 0 {
		return false
	}

	return (hasManySiblings(img, minX, minY) && hasManySiblings(other, minX, minY)) ||
		(hasManySiblings(img, maxX, maxY) && hasManySiblings(other, maxX, maxY))
}

// hasManySiblings reports whether at least three neighbours of (x, y) have
// exactly the same color, counting the image border as one.
func hasManySiblings(img *RasterImage, x int, y int) bool {
	x0, y0 := max(x-1, 0), max(y-1, 0)
	x2, y2 := min(x+1, img.Width-1), min(y+1, img.Height-1)
	center := pixelAt(img, x, y)

	zeroes := 0
	if x == x0 || x == x2 || y == y0 || y == y2 {
		zeroes = 1
	}

	for nx := x0; nx <= x2; nx++ {
		for ny := y0; ny <= y2; ny++ {
			if nx == x && ny == y {
				continue
			}
			if samePixel(center, pixelAt(img, nx, ny)) {
				zeroes++
			}
			if zeroes > 2 {
				return true
			}
		}
	}
	return false
}

func pixelAt(img *RasterImage, x int, y int) []byte {
	i := img.PixOffset(x, y)
	return img.Pix[i : i+4]
}
