package imagecache

import "github.com/corymoss/imagecache/download"

// ProgressFunc receives a monotonically non-decreasing fraction in [0, 1]
// as a download proceeds. It may be called from any goroutine and must not
// block; it is never called after Load returns.
type ProgressFunc = download.ProgressFunc
