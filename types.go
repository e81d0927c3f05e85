package imagecache

import (
	"github.com/corymoss/imagecache/fingerprint"
	"github.com/corymoss/imagecache/imgcodec"
)

// Image is a decoded pixel buffer with a byte cost for memory accounting
// and the ability to re-encode itself to a lossy byte stream.
type Image = imgcodec.Image

// Fingerprint is the stable, content-addressed key derived from a URL.
type Fingerprint = fingerprint.Fingerprint
