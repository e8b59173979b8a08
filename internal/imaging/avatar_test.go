package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}

	return buf.Bytes()
}

func TestNormalizeAvatarResizesToSquarePNG(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"small png", encodePNG(t, 10, 10)},
		{"wide png", encodePNG(t, 400, 100)},
		{"jpeg", encodeJPEG(t, 120, 80)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := NormalizeAvatar(tc.data, 250)
			if err != nil {
				t.Fatalf("normalize: %v", err)
			}

			img, err := png.Decode(bytes.NewReader(out))
			if err != nil {
				t.Fatalf("output is not a png: %v", err)
			}

			bounds := img.Bounds()
			if bounds.Dx() != 250 || bounds.Dy() != 250 {
				t.Fatalf("got %dx%d, want 250x250", bounds.Dx(), bounds.Dy())
			}
		})
	}
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encoding jpeg: %v", err)
	}

	return buf.Bytes()
}

func TestNormalizeAvatarRejectsGarbage(t *testing.T) {
	_, err := NormalizeAvatar([]byte("not an image"), 250)

	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("got %v, want ErrUnsupportedFormat", err)
	}
}

func TestAllowedFilename(t *testing.T) {
	cases := map[string]bool{
		"me.png":      true,
		"me.jpg":      true,
		"me.JPEG":     true,
		"photo.JPG":   true,
		"me.gif":      false,
		"me.png.exe":  false,
		"no-ext":      false,
		"archive.tar": false,
	}

	for name, want := range cases {
		if got := AllowedFilename(name); got != want {
			t.Errorf("AllowedFilename(%q) = %v, want %v", name, got, want)
		}
	}
}
