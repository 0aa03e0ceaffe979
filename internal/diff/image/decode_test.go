package image

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	t.Run("PNG", func(t *testing.T) {
		src := createTestImage(3, 2, white)
		setPixel(src, 1, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 40})

		got, err := Decode(encodeTestImage(t, src))
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(src, got); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("JPEG", func(t *testing.T) {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 4)), nil); err != nil {
			t.Fatal(err)
		}

		got, err := Decode(buf.Bytes())
		if err != nil {
			t.Fatal(err)
		}
		if got.Width != 8 || got.Height != 4 || len(got.Pix) != 128 {
			t.Errorf("Expected 8x4, got %dx%d", got.Width, got.Height)
		}
	})

	t.Run("GIF", func(t *testing.T) {
		palette := color.Palette{color.Black, color.White}
		var buf bytes.Buffer
		if err := gif.Encode(&buf, image.NewPaletted(image.Rect(0, 0, 2, 2), palette), nil); err != nil {
			t.Fatal(err)
		}

		got, err := Decode(buf.Bytes())
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]byte{0, 0, 0, 255}, got.Pix[:4]); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("Garbage", func(t *testing.T) {
		if _, err := Decode([]byte("garbage")); err == nil {
			t.Error("Expected an error")
		}
	})

	t.Run("Empty", func(t *testing.T) {
		if _, err := FromImage(image.NewNRGBA(image.Rect(0, 0, 0, 5))); err == nil {
			t.Error("Expected an error")
		}
	})
}

func TestDecodeBase64String(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"aGVsbG8=", "data:image/png;base64,aGVsbG8=", " aGVsbG8=\n"} {
		got, err := DecodeBase64String(in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if string(got) != "hello" {
			t.Errorf("%q: got %q", in, got)
		}
	}

	if _, err := DecodeBase64String("data:image/png;base64"); err == nil {
		t.Error("Expected an error for a data URL without payload")
	}
}

func TestRound2(t *testing.T) {
	t.Parallel()

	for in, want := range map[float64]float64{0: 0, 5: 5, 1.234: 1.23, 1.235001: 1.24, 99.999: 100, 33.3333: 33.33} {
		if got := Round2(in); got != want {
			t.Errorf("Round2(%v) = %v, want %v", in, got, want)
		}
	}
	if got := DiffPercent(1, 3); got != 33.33 {
		t.Errorf("Expected 33.33, got %v", got)
	}
	if got := DiffPercent(0, 0); got != 0 {
		t.Errorf("Expected 0, got %v", got)
	}
}
