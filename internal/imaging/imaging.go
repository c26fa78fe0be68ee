package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"strings"

	"golang.org/x/image/draw"
)

// MaxDimension is the maximum width or height of an uploaded image.
const MaxDimension = 1024

// JPEGQuality is the compression quality for re-encoded JPEGs.
const JPEGQuality = 85

// Upload errors, reported before any request is sent.
var (
	ErrNoFile   = errors.New("no file selected")
	ErrNotImage = errors.New("file is not an image")
)

// Upload is a file picked in an image form.
type Upload struct {
	Name string
	MIME string
	Data []byte
}

// Check rejects a missing upload or one whose declared type is not image/*.
func Check(u *Upload) error {
	if u == nil || len(u.Data) == 0 {
		return ErrNoFile
	}
	if !strings.HasPrefix(u.MIME, "image/") {
		return ErrNotImage
	}
	return nil
}

// Prepare checks the upload and downscales JPEG and PNG images larger than
// MaxDimension, keeping their format. Other image types pass through
// unchanged and are left to the backend to judge.
func Prepare(u *Upload) (*Upload, error) {
	if err := Check(u); err != nil {
		return nil, err
	}

	// Sniff actual MIME type from bytes (not trusting client headers).
	detected := http.DetectContentType(u.Data)
	if detected != "image/jpeg" && detected != "image/png" {
		return u, nil
	}

	img, _, err := image.Decode(bytes.NewReader(u.Data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() <= MaxDimension && bounds.Dy() <= MaxDimension {
		return u, nil
	}
	img = downscale(img, MaxDimension)

	var buf bytes.Buffer
	switch detected {
	case "image/png":
		err = png.Encode(&buf, img)
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality})
	}
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", detected, err)
	}

	return &Upload{Name: u.Name, MIME: detected, Data: buf.Bytes()}, nil
}

// downscale resizes the image so neither dimension exceeds maxDim.
// Uses high-quality Catmull-Rom interpolation.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	// Calculate new dimensions preserving aspect ratio.
	newW, newH := w, h
	if w > h {
		newW = maxDim
		newH = int(float64(h) * float64(maxDim) / float64(w))
	} else {
		newH = maxDim
		newW = int(float64(w) * float64(maxDim) / float64(h))
	}

	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
