// Package manager orchestrates the memory cache, disk cache, and
// downloader into the single-request pipeline the public API exposes:
// memory, then disk with promotion, then network with write-through.
package manager

import (
	"context"
	"log/slog"

	"github.com/corymoss/imagecache/diskcache"
	"github.com/corymoss/imagecache/download"
	"github.com/corymoss/imagecache/fingerprint"
	"github.com/corymoss/imagecache/imgcodec"
	"github.com/corymoss/imagecache/memcache"
)

// Downloader is the subset of *download.Downloader the manager depends on,
// letting tests substitute a fake.
type Downloader interface {
	Fetch(ctx context.Context, url string, onProgress download.ProgressFunc) ([]byte, error)
	CancelFetch(url string)
	CancelAllFetches()
}

// Manager is the public face of the caching engine: it wires the memory
// cache, disk cache, and downloader into get/put/load/prefetch operations.
type Manager struct {
	memory     *memcache.Cache
	disk       *diskcache.Cache
	downloader Downloader
	prefetch   *download.PrefetchRegistry
	logger     *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for background prefetch diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// New creates a Manager over the given memory cache, disk cache, and
// downloader. disk may be nil to run memory-only.
func New(memory *memcache.Cache, disk *diskcache.Cache, downloader Downloader, opts ...Option) *Manager {
	m := &Manager{
		memory:     memory,
		disk:       disk,
		downloader: downloader,
		prefetch:   download.NewPrefetchRegistry(),
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) log() *slog.Logger {
	if m.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return m.logger
}

// Get returns the cached image for url, checking memory first, then disk
// with promotion back into memory on a disk hit. It never touches the
// network.
func (m *Manager) Get(url string) (*imgcodec.Image, bool) {
	fp := fingerprint.Of(url)
	if img, ok := m.memory.Get(fp); ok {
		return img, true
	}
	if m.disk == nil {
		return nil, false
	}
	img, ok := m.disk.Get(fp)
	if !ok {
		return nil, false
	}
	m.memory.Put(fp, img)
	return img, true
}

// Put writes img into memory and, best-effort, into disk. A disk write
// failure is logged and swallowed: caching is an optimization, and the
// caller's in-memory result remains valid.
func (m *Manager) Put(url string, img *imgcodec.Image) {
	fp := fingerprint.Of(url)
	m.memory.Put(fp, img)
	if m.disk == nil {
		return
	}
	if err := m.disk.Put(fp, img); err != nil {
		m.log().Warn("manager: disk write failed, continuing with memory-only result", "url", url, "error", err)
	}
}

// Remove deletes url's entry from both caches.
func (m *Manager) Remove(url string) {
	fp := fingerprint.Of(url)
	m.memory.Remove(fp)
	if m.disk != nil {
		m.disk.Remove(fp)
	}
}

// Clear empties both caches.
func (m *Manager) Clear() error {
	m.memory.Clear()
	if m.disk == nil {
		return nil
	}
	return m.disk.Clear()
}

// ByteSize reports the disk cache's byte footprint. Memory is volatile and
// excluded.
func (m *Manager) ByteSize() (int64, error) {
	if m.disk == nil {
		return 0, nil
	}
	return m.disk.ByteSize()
}

// Load is the primary entry point: a cache hit (memory or promoted disk)
// returns immediately; a miss fetches over the network, decodes, and
// write-throughs the result into both caches before returning it.
func (m *Manager) Load(ctx context.Context, url string, onProgress download.ProgressFunc) (*imgcodec.Image, error) {
	if img, ok := m.Get(url); ok {
		return img, nil
	}

	data, err := m.downloader.Fetch(ctx, url, onProgress)
	if err != nil {
		return nil, err
	}
	img, err := imgcodec.Decode(data)
	if err != nil {
		return nil, err
	}

	m.Put(url, img)
	return img, nil
}

// Prefetch starts a detached, background job per URL that runs the full
// Load pipeline and caches the result. Errors are silently dropped;
// cancelling a prefetch job (via CancelPrefetch) never aborts a concurrent
// foreground Load on the same fingerprint, since both attach to the same
// underlying deduplicated fetch and the prefetch only drops its own
// reference.
func (m *Manager) Prefetch(urls []string) {
	for _, url := range urls {
		m.prefetchOne(url)
	}
}

func (m *Manager) prefetchOne(url string) {
	fp := fingerprint.Of(url)
	ctx, done := m.prefetch.Start(context.Background(), fp)
	go func() {
		defer done()
		if _, err := m.Load(ctx, url, nil); err != nil {
			m.log().Debug("manager: prefetch failed", "url", url, "error", err)
		}
	}()
}

// CancelPrefetch cancels the tracked background job for each URL, if still
// running. It does not force-cancel the underlying deduplicated fetch; a
// foreground Load sharing the same fingerprint keeps running to completion.
func (m *Manager) CancelPrefetch(urls []string) {
	for _, url := range urls {
		m.prefetch.Cancel(fingerprint.Of(url))
	}
}
