package image

import (
	"runtime"
	"sync"
	"sync/atomic"
)

type PixelDiff struct {
	options Options
	differs func(p []byte, q []byte) bool
}

func NewPixelDiff(options Options) *PixelDiff {
	return &PixelDiff{
		options: options,
		differs: options.Metric.differs(options.Threshold),
	}
}

// Calculate compares a and b pixel by pixel on the canvas that fits both.
// Neither input is modified; the diff image is always freshly allocated.
func (p *PixelDiff) Calculate(a *RasterImage, b *RasterImage) *DiffResult {
	width, height := CanvasSize(a, b)
	a = Normalize(a, width, height)
	b = Normalize(b, width, height)

	diff := NewRasterImage(width, height)
	mask := make([]bool, width*height)
	var pixelCount int64

	// Use GOMAXPROCS instead of runtime.NumCPU() to consider cgroup.
	numWorkers := runtime.GOMAXPROCS(0)
	rowsPerWorker := height / numWorkers

	var panicked atomic.Value
	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		startY := i * rowsPerWorker
		endY := startY + rowsPerWorker
		if i == numWorkers-1 {
			endY = height
		}

		go func(startY int, endY int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					panicked.CompareAndSwap(nil, workerPanic{r})
				}
			}()
			p.processRows(a, b, diff, mask, startY, endY, &pixelCount)
		}(startY, endY)
	}
	wg.Wait()

	// Re-raise on the calling goroutine so callers can recover.
	if v := panicked.Load(); v != nil {
		panic(v.(workerPanic).value)
	}

	return &DiffResult{
		Image:      diff,
		PixelCount: pixelCount,
		Mask:       mask,
	}
}

type workerPanic struct {
	value any
}

func (p *PixelDiff) processRows(a *RasterImage, b *RasterImage, diff *RasterImage, mask []bool, startY int, endY int, pixelCount *int64) {
	var local int64

	for y := startY; y < endY; y++ {
		for x := 0; x < a.Width; x++ {
			offset := a.PixOffset(x, y)
			pa := a.Pix[offset : offset+4]
			pb := b.Pix[offset : offset+4]
			out := diff.Pix[offset : offset+4]

			if !p.differs(pa, pb) {
				p.drawFaded(out, pa)
				continue
			}

			if p.options.DetectAntialiasing && (antialiased(a, b, x, y) || antialiased(b, a, x, y)) {
				drawColor(out, p.options.AAColor.R, p.options.AAColor.G, p.options.AAColor.B)
				continue
			}

			drawColor(out, p.options.DiffColor.R, p.options.DiffColor.G, p.options.DiffColor.B)
			mask[y*a.Width+x] = true
			local++
		}
	}

	atomic.AddInt64(pixelCount, local)
}

// drawFaded paints the luma of src, blended toward white by the configured
// alpha scaled with the source alpha.
func (p *PixelDiff) drawFaded(out []byte, src []byte) {
	luma := rgb2y(float64(src[0]), float64(src[1]), float64(src[2]))
	v := blend(luma, p.options.Alpha*float64(src[3])/255)
	c := uint8(min(max(v, 0), 255))
	drawColor(out, c, c, c)
}

func drawColor(out []byte, r uint8, g uint8, b uint8) {
	out[0] = r
	out[1] = g
	out[2] = b
	out[3] = 255
}
