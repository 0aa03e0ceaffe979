package image

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"math"
)

func EncodePNG(img *RasterImage) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img.NRGBA()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func DiffPercent(pixelCount int64, totalPixels int64) float64 {
	if totalPixels <= 0 {
		return 0
	}
	return Round2(float64(pixelCount) / float64(totalPixels) * 100)
}
