package image

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// maxYIQDelta is the largest squared YIQ distance between two opaque colors.
const maxYIQDelta = 35215.0

func blend(c float64, a float64) float64 {
	return 255 + (c-255)*a
}

func rgb2y(r float64, g float64, b float64) float64 {
	return r*0.29889531 + g*0.58662247 + b*0.11448223
}

func rgb2i(r float64, g float64, b float64) float64 {
	return r*0.59597799 - g*0.27417610 - b*0.32180189
}

func rgb2q(r float64, g float64, b float64) float64 {
	return r*0.21147017 - g*0.52261711 + b*0.31114694
}

// blendWhite composites a straight-alpha pixel over white.
func blendWhite(p []byte) (float64, float64, float64) {
	r, g, b, a := float64(p[0]), float64(p[1]), float64(p[2]), float64(p[3])
	if a < 255 {
		a /= 255
		r, g, b = blend(r, a), blend(g, a), blend(b, a)
	}
	return r, g, b
}

func samePixel(p []byte, q []byte) bool {
	return p[0] == q[0] && p[1] == q[1] && p[2] == q[2] && p[3] == q[3]
}

// yiqDelta returns the squared YIQ distance, negative when p is brighter than q.
func yiqDelta(p []byte, q []byte) float64 {
	if samePixel(p, q) {
		return 0
	}
	r1, g1, b1 := blendWhite(p)
	r2, g2, b2 := blendWhite(q)

	y1, y2 := rgb2y(r1, g1, b1), rgb2y(r2, g2, b2)
	y := y1 - y2
	i := rgb2i(r1, g1, b1) - rgb2i(r2, g2, b2)
	q2 := rgb2q(r1, g1, b1) - rgb2q(r2, g2, b2)

	delta := 0.5053*y*y + 0.299*i*i + 0.1957*q2*q2
	if y1 > y2 {
		return -delta
	}
	return delta
}

func brightnessDelta(p []byte, q []byte) float64 {
	if samePixel(p, q) {
		return 0
	}
	r1, g1, b1 := blendWhite(p)
	r2, g2, b2 := blendWhite(q)
	return rgb2y(r1, g1, b1) - rgb2y(r2, g2, b2)
}

func ciede2000Distance(p []byte, q []byte) float64 {
	if samePixel(p, q) {
		return 0
	}
	r1, g1, b1 := blendWhite(p)
	r2, g2, b2 := blendWhite(q)
	c1 := colorful.Color{R: r1 / 255, G: g1 / 255, B: b1 / 255}
	c2 := colorful.Color{R: r2 / 255, G: g2 / 255, B: b2 / 255}
	return min(c1.DistanceCIEDE2000(c2), 1)
}

// differs reports whether two pixels are further apart than threshold, a
// distance normalized to [0, 1]. Thresholds outside that range are clamped.
func (m Metric) differs(threshold float64) func(p []byte, q []byte) bool {
	threshold = min(max(threshold, 0), 1)
	if m == MetricCIEDE2000 {
		return func(p []byte, q []byte) bool {
			return ciede2000Distance(p, q) > threshold
		}
	}
	limit := maxYIQDelta * threshold * threshold
	return func(p []byte, q []byte) bool {
		return math.Abs(yiqDelta(p, q)) > limit
	}
}

func (m Metric) Valid() bool {
	switch m {
	case "", MetricYIQ, MetricCIEDE2000:
		return true
	}
	return false
}
