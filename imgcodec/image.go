// Package imgcodec wraps decoded pixel buffers with the observable
// attributes the cache needs: byte cost for memory accounting and
// re-encoding to a lossy byte stream. Pixel-level transforms (resize, crop,
// blur, tint, rounding) are out of scope; consumers apply those to the
// decoded value this package hands back.
package imgcodec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	// Registered for format sniffing/decoding only; PNG sources are
	// decoded transparently by image.Decode and re-encoded to JPEG on
	// write per the disk cache's fixed on-disk format.
	_ "image/png"
)

// ErrInvalidImageData is returned when bytes cannot be decoded as an image,
// including the zero-length case.
var ErrInvalidImageData = errors.New("imgcodec: invalid image data")

// DefaultQuality is the JPEG encoding quality used when none is specified.
const DefaultQuality = 0.8

// Image is an opaque decoded pixel buffer with the observable attributes the
// cache needs: a byte cost used for memory accounting, and the ability to
// re-encode itself to a lossy byte stream at a given quality.
//
// Alpha channels are lost on re-encode because the disk format is
// JPEG-only; callers needing lossless storage must keep their own copy
// outside the cache.
type Image struct {
	img image.Image
}

// Decode decodes bytes into an Image. It returns ErrInvalidImageData if the
// bytes are empty or not a decodable image.
func Decode(data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, ErrInvalidImageData
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImageData, err)
	}
	return &Image{img: img}, nil
}

// FromImage wraps a standard library image.Image directly, skipping decode.
func FromImage(img image.Image) *Image {
	return &Image{img: img}
}

// Raw returns the underlying image.Image for display or further transforms.
// The zero value is never returned for a validly constructed Image.
func (i *Image) Raw() image.Image {
	return i.img
}

// ByteCost estimates the in-memory footprint of the decoded pixel buffer:
// 4 bytes (RGBA) per pixel. Used by MemoryCache for LRU cost accounting.
func (i *Image) ByteCost() int64 {
	b := i.img.Bounds()
	return int64(b.Dx()) * int64(b.Dy()) * 4
}

// Encode re-encodes the image to a lossy JPEG byte stream at the given
// quality in (0, 1]; a quality outside that range is replaced by
// DefaultQuality. Quality is scaled to the stdlib's 1-100 range.
func (i *Image) Encode(quality float64) ([]byte, error) {
	if quality <= 0 || quality > 1 {
		quality = DefaultQuality
	}
	var buf bytes.Buffer
	opts := &jpeg.Options{Quality: int(quality * 100)}
	if err := jpeg.Encode(&buf, i.img, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
