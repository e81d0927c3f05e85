package imagecache

import (
	"github.com/corymoss/imagecache/diskcache"
	"github.com/corymoss/imagecache/download"
	"github.com/corymoss/imagecache/imgcodec"
)

// Sentinel errors re-exported from the subpackages that produce them, so
// callers can errors.Is against a single stable set without importing the
// implementation packages directly.
var (
	// ErrInvalidImageData is returned when bytes cannot be decoded as an
	// image, including the zero-length case.
	ErrInvalidImageData = imgcodec.ErrInvalidImageData

	// ErrInvalidResponse is returned when the HTTP response is a non-2xx
	// status. Use errors.As with *HTTPStatusError for the status code.
	ErrInvalidResponse = download.ErrInvalidResponse

	// ErrNetworkFailure wraps a transport-level error.
	ErrNetworkFailure = download.ErrNetworkFailure

	// ErrCancelled is returned when a caller's context is cancelled or a
	// prefetch job is cancelled.
	ErrCancelled = download.ErrCancelled

	// ErrUnknown is a catch-all for errors that don't fit another kind.
	ErrUnknown = download.ErrUnknown

	// ErrDecodingFailure marks JSON-metadata parsing failures outside the
	// image path itself: it wraps the error logged when a disk cache
	// metadata sidecar is corrupt. The sidecar is then treated as empty and
	// no error is returned to the caller.
	ErrDecodingFailure = diskcache.ErrDecodingFailure
)

// HTTPStatusError describes a non-2xx HTTP response.
type HTTPStatusError = download.HTTPStatusError

// UserMessage returns a stable, human-readable description of err suitable
// for display, without requiring the caller to branch on status subcodes.
func UserMessage(err error) string {
	return download.UserMessage(err)
}
