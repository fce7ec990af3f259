// Package imaging normalizes uploaded product photos and checks agreement documents.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"path"
	"strings"

	"golang.org/x/image/draw"
)

// MaxDimension is the maximum width or height of a stored product photo.
const MaxDimension = 1600

// JPEGQuality is the compression quality for JPEG output.
const JPEGQuality = 85

// ErrUnsupported is returned for uploads whose bytes are not an accepted format.
var ErrUnsupported = errors.New("unsupported file format")

// photoMIME lists the accepted product photo formats.
var photoMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// documentExt maps accepted agreement formats to their file extension.
var documentExt = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"application/pdf": ".pdf",
}

// Result is a file ready to be stored.
type Result struct {
	Data []byte
	MIME string
	Name string
}

// Photo reads a product photo, validates it by sniffing its bytes,
// downscales it to MaxDimension and re-encodes it as JPEG.
// The returned name keeps the base of name with a .jpg extension.
func Photo(name string, r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}

	detected := http.DetectContentType(data)
	if !photoMIME[detected] {
		return nil, fmt.Errorf("%w: %s is %s, only JPEG and PNG photos are accepted", ErrUnsupported, name, detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image %s: %w", name, err)
	}

	img = downscale(img, MaxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}

	return &Result{
		Data: buf.Bytes(),
		MIME: "image/jpeg",
		Name: withExt(name, ".jpg"),
	}, nil
}

// Document reads an agreement document and checks that it is a JPEG, PNG or
// PDF. The bytes are kept as uploaded.
func Document(name string, r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}

	detected := http.DetectContentType(data)
	ext, ok := documentExt[detected]
	if !ok {
		return nil, fmt.Errorf("%w: %s is %s, agreements must be JPEG, PNG or PDF", ErrUnsupported, name, detected)
	}

	return &Result{Data: data, MIME: detected, Name: withExt(name, ext)}, nil
}

func withExt(name, ext string) string {
	base := strings.TrimSuffix(name, path.Ext(name))
	if base == "" {
		base = "file"
	}
	return base + ext
}

// downscale resizes the image so neither dimension exceeds maxDim,
// using Catmull-Rom interpolation. Smaller images are returned as is.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := w, h
	if w > h {
		newW = maxDim
		newH = int(float64(h) * float64(maxDim) / float64(w))
	} else {
		newH = maxDim
		newW = int(float64(w) * float64(maxDim) / float64(h))
	}

	newW = max(newW, 1)
	newH = max(newH, 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func init() {
	image.RegisterFormat("jpeg", "\xff\xd8", jpeg.Decode, jpeg.DecodeConfig)
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
}
