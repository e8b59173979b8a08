package imaging

import (
	"bytes"
	"errors"
	"image"
	_ "image/jpeg"
	"image/png"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

var ErrUnsupportedFormat = errors.New("please upload a jpg, jpeg or png image")

// allowed upload extensions, lower-case
var allowedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
}

func AllowedFilename(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	_, ok := allowedExtensions[ext]
	return ok
}

// NormalizeAvatar decodes an uploaded image and re-renders it as a
// size x size PNG, so every stored avatar has one dimension and one format
// no matter what was uploaded.
func NormalizeAvatar(data []byte, size int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))

	if err != nil {
		return nil, ErrUnsupportedFormat
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	var buf bytes.Buffer

	err = png.Encode(&buf, dst)

	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
