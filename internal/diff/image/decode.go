package image

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var errEmptyImage = errors.New("image has no pixels")

func Decode(data []byte) (*RasterImage, error) {
	return DecodeLimit(data, 0)
}

// DecodeLimit reads the header first and refuses images of more than
// maxPixels pixels before allocating them. Zero means no limit.
func DecodeLimit(data []byte, maxPixels int64) (*RasterImage, error) {
	if maxPixels > 0 {
		config, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		if err := checkPixels(config.Width, config.Height, maxPixels); err != nil {
			return nil, err
		}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return FromImage(img)
}

// DecodeBase64 also accepts data URLs such as "data:image/png;base64,...".
func DecodeBase64(s string) (*RasterImage, error) {
	data, err := DecodeBase64String(s)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

func DecodeBase64String(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		i := strings.Index(s, ",")
		if i < 0 {
			return nil, errors.New("malformed data URL")
		}
		s = s[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}
	return data, nil
}

func FromImage(img image.Image) (*RasterImage, error) {
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, errEmptyImage
	}

	raster := NewRasterImage(bounds.Dx(), bounds.Dy())
	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Rect.Min == (image.Point{}) && nrgba.Stride == raster.Width*4 {
		copy(raster.Pix, nrgba.Pix)
		return raster, nil
	}

	draw.Draw(raster.NRGBA(), raster.Bounds(), img, bounds.Min, draw.Src)
	return raster, nil
}
