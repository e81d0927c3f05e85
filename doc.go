// Package imagecache implements a two-tier image caching and retrieval
// engine: a volatile in-memory LRU cache backed by a persistent on-disk
// LRU+TTL cache, fronting a concurrent HTTP downloader that deduplicates
// identical in-flight requests, bounds concurrency, retries transient
// failures with exponential backoff, and streams progress to callers.
//
// # Quick start
//
//	eng, err := imagecache.New(imagecache.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	img, err := eng.Load(ctx, "https://example.com/a.jpg", imagecache.DefaultLoadOptions())
//
// # Caching
//
// Load checks the memory cache, then the disk cache (promoting a disk hit
// back into memory), then falls through to the network. A successful
// network fetch is written through to both caches.
//
// # Prefetching
//
// Prefetch starts detached background jobs that populate the cache ahead
// of a foreground Load. Cancelling a prefetch job never aborts a
// concurrent foreground Load for the same URL: both attach to the same
// deduplicated in-flight fetch, and only the last departing caller
// cancels the underlying work.
package imagecache
