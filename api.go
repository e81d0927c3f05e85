package imagecache

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/corymoss/imagecache/config"
	"github.com/corymoss/imagecache/diskcache"
	"github.com/corymoss/imagecache/download"
	"github.com/corymoss/imagecache/fingerprint"
	"github.com/corymoss/imagecache/imgcodec"
	"github.com/corymoss/imagecache/manager"
	"github.com/corymoss/imagecache/memcache"
	"github.com/corymoss/imagecache/notify"
	"github.com/corymoss/imagecache/stats"
)

// DefaultConfig returns the built-in default configuration.
func DefaultConfig() *config.Config {
	return config.Default()
}

// LoadOptions configures a single Load call.
type LoadOptions struct {
	// CacheEnabled controls whether Load consults and populates the caches.
	// When false, the request bypasses both caches: it always hits the
	// network and never stores the result. DefaultLoadOptions sets it to
	// true; the zero value (false) disables caching.
	CacheEnabled bool

	// OnProgress, if non-nil, is invoked with progress updates during a
	// network fetch. It is never called on a cache hit.
	OnProgress ProgressFunc

	// CacheOverride, if non-nil, is used instead of the Engine's own
	// manager for this single call.
	CacheOverride *manager.Manager
}

// DefaultLoadOptions returns the default LoadOptions: caching enabled, no
// progress reporting, no override.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{CacheEnabled: true}
}

// Engine is the public entry point for the caching and retrieval pipeline.
// It owns a memory cache, a disk cache, a downloader (with its
// own deduplicator, concurrency limiter, and prefetch registry), a stats
// recorder, and a memory-pressure notifier.
type Engine struct {
	manager    *manager.Manager
	downloader *download.Downloader
	stats      *stats.Recorder
	pressure   *notify.MemoryPressureNotifier
	memory     *memcache.Cache
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	logger      *slog.Logger
	statsMirror stats.Mirror
	cacheRoot   string
}

// WithLogger sets the logger used across the engine's subsystems.
func WithLogger(l *slog.Logger) Option {
	return func(o *engineOptions) { o.logger = l }
}

// WithStatsMirror attaches a stats.Mirror (e.g. a Prometheus mirror) that
// observes every cache hit and miss.
func WithStatsMirror(m stats.Mirror) Option {
	return func(o *engineOptions) { o.statsMirror = m }
}

// WithCacheRoot sets the parent directory under which the disk cache's
// configured subdirectory is created. Defaults to the current directory.
func WithCacheRoot(root string) Option {
	return func(o *engineOptions) { o.cacheRoot = root }
}

// New constructs an Engine from cfg. A nil cfg uses DefaultConfig().
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	var eo engineOptions
	for _, opt := range opts {
		opt(&eo)
	}
	logger := eo.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	statsOpts := []stats.Option{}
	if eo.statsMirror != nil {
		statsOpts = append(statsOpts, stats.WithMirror(eo.statsMirror))
	}
	recorder := stats.New(statsOpts...)

	mem := memcache.New(
		memcache.WithMaxCost(cfg.Memory.MaxCost),
		memcache.WithMaxCount(cfg.Memory.MaxCount),
		memcache.WithStats(recorder),
	)

	dir := cfg.Disk.Directory
	if eo.cacheRoot != "" {
		dir = filepath.Join(eo.cacheRoot, cfg.Disk.Directory)
	}
	disk, err := diskcache.New(dir,
		diskcache.WithMaxBytes(cfg.Disk.MaxBytes),
		diskcache.WithMaxAge(cfg.Disk.MaxAge),
		diskcache.WithQuality(cfg.Disk.Quality),
		diskcache.WithStats(recorder),
		diskcache.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("imagecache: constructing disk cache: %w", err)
	}

	downloadOpts := []download.Option{
		download.WithRetryDelay(cfg.Download.RetryDelay),
		download.WithMaxRetries(cfg.Download.MaxRetries),
		download.WithTimeout(cfg.Download.Timeout),
		download.WithConcurrency(cfg.Limiter.MaxConcurrent),
		download.WithLogger(logger),
	}
	for k, v := range cfg.Download.Headers {
		downloadOpts = append(downloadOpts, download.WithHeader(k, v))
	}
	downloader := download.New(downloadOpts...)

	mgr := manager.New(mem, disk, downloader, manager.WithLogger(logger))

	pressure := &notify.MemoryPressureNotifier{}
	pressure.Subscribe(func() { mem.Clear() })

	return &Engine{
		manager:    mgr,
		downloader: downloader,
		stats:      recorder,
		pressure:   pressure,
		memory:     mem,
	}, nil
}

// Load returns the cached image for url if present, otherwise downloads,
// decodes, and caches it before returning it.
func (e *Engine) Load(ctx context.Context, url string, opts LoadOptions) (*Image, error) {
	mgr := e.manager
	if opts.CacheOverride != nil {
		mgr = opts.CacheOverride
	}

	if !opts.CacheEnabled {
		data, err := e.downloader.Fetch(ctx, url, opts.OnProgress)
		if err != nil {
			return nil, err
		}
		return imgcodec.Decode(data)
	}

	return mgr.Load(ctx, url, opts.OnProgress)
}

// Prefetch starts a detached background fetch for each URL, caching
// successful results. Errors are silently dropped.
func (e *Engine) Prefetch(urls []string) {
	e.manager.Prefetch(urls)
}

// CancelPrefetch cancels the tracked background job for each URL. A
// foreground Load sharing the same fingerprint is unaffected.
func (e *Engine) CancelPrefetch(urls []string) {
	e.manager.CancelPrefetch(urls)
}

// Clear empties both the memory and disk caches.
func (e *Engine) Clear() error {
	return e.manager.Clear()
}

// Remove deletes url's entry from both caches.
func (e *Engine) Remove(url string) {
	e.manager.Remove(url)
}

// ByteSize reports the disk cache's current byte footprint.
func (e *Engine) ByteSize() (int64, error) {
	return e.manager.ByteSize()
}

// Stats returns a snapshot of the engine's hit/miss counters.
func (e *Engine) Stats() stats.Snapshot {
	return e.stats.Snapshot()
}

// NotifyMemoryPressure clears the in-memory cache, mirroring the behavior a
// host platform's low-memory signal should trigger. Wire the host's signal
// into this method; the engine does not listen for OS notifications
// itself.
func (e *Engine) NotifyMemoryPressure() {
	e.pressure.Notify()
}

// Fingerprint returns the content-addressed key the engine would use for
// url, useful for callers that want to inspect cache state directly.
func (e *Engine) Fingerprint(url string) Fingerprint {
	return fingerprint.Of(url)
}
