// Package diskcache implements a persistent, content-addressed byte store
// with LRU-by-access-time eviction, TTL expiry, and atomic metadata
// sidecars, surviving process restarts.
package diskcache

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/corymoss/imagecache/fingerprint"
	"github.com/corymoss/imagecache/imgcodec"
	"github.com/corymoss/imagecache/stats"
)

const (
	// DefaultDirName is the default cache subdirectory name.
	DefaultDirName = "ImageCache"
	// DefaultMaxBytes is the default disk budget: 100 MiB.
	DefaultMaxBytes int64 = 100 << 20
	// DefaultMaxAge is the default TTL: 7 days.
	DefaultMaxAge = 7 * 24 * time.Hour
	// DefaultQuality is the default JPEG re-encode quality.
	DefaultQuality = imgcodec.DefaultQuality

	imgExt              = ".img"
	accessTimesFileName = "access_times.json"
	createTimesFileName = "creation_times.json"
	dirPerm             = 0o700
	filePerm            = 0o600
)

// Cache is a disk-backed, content-addressed store for encoded image bytes.
// All public operations are serialized behind a single mutex: the metadata
// maps are the logical owner of cache state, and callers must observe
// sequentially consistent ordering across them.
type Cache struct {
	mu  sync.Mutex
	dir string

	maxBytes int64
	maxAge   time.Duration // 0 disables TTL
	quality  float64

	accessTimes map[fingerprint.Fingerprint]time.Time
	createTimes map[fingerprint.Fingerprint]time.Time

	stats  *stats.Recorder
	logger *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxBytes sets the disk budget in bytes (0 disables the limit).
func WithMaxBytes(n int64) Option {
	return func(c *Cache) { c.maxBytes = n }
}

// WithMaxAge sets the TTL after which an entry is considered expired.
// A zero duration disables TTL expiry.
func WithMaxAge(d time.Duration) Option {
	return func(c *Cache) { c.maxAge = d }
}

// WithQuality sets the JPEG re-encode quality in (0, 1].
func WithQuality(q float64) Option {
	return func(c *Cache) { c.quality = q }
}

// WithStats attaches a stats.Recorder that Get calls report hits/misses to.
func WithStats(r *stats.Recorder) Option {
	return func(c *Cache) { c.stats = r }
}

// WithLogger sets the logger used for housekeeping/error events. Defaults
// to a discard logger, matching the rest of the engine's ambient logging.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// New constructs a Cache rooted at dir. It ensures the directory exists,
// loads (or tolerantly resets) both metadata sidecars, and schedules
// expired-entry housekeeping to run asynchronously; New may return before
// that housekeeping completes.
func New(dir string, opts ...Option) (*Cache, error) {
	if dir == "" {
		return nil, errors.New("diskcache: dir is empty")
	}
	c := &Cache{
		dir:         dir,
		maxBytes:    DefaultMaxBytes,
		maxAge:      DefaultMaxAge,
		quality:     DefaultQuality,
		accessTimes: make(map[fingerprint.Fingerprint]time.Time),
		createTimes: make(map[fingerprint.Fingerprint]time.Time),
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, err
	}

	c.accessTimes = c.loadMetadata(accessTimesFileName)
	c.createTimes = c.loadMetadata(createTimesFileName)

	go c.RemoveExpired()

	return c, nil
}

func (c *Cache) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

// Get reads and decodes the cached image for fp. It returns (nil, false)
// on TTL expiry, missing file, or decode failure; I/O and decode errors on
// read are local cache misses, never propagated. A decode failure also
// deletes the corrupt file.
func (c *Cache) Get(fp fingerprint.Fingerprint) (*imgcodec.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxAge > 0 {
		created, ok := c.createTimes[fp]
		if ok && time.Since(created) > c.maxAge {
			c.removeLocked(fp)
			c.persistLocked()
			c.recordMiss()
			return nil, false
		}
	}

	data, err := os.ReadFile(c.path(fp)) //nolint:gosec // path derived from fingerprint, not user input
	if err != nil {
		c.recordMiss()
		return nil, false
	}

	img, err := imgcodec.Decode(data)
	if err != nil {
		c.log().Warn("diskcache: corrupt entry removed", "fingerprint", fp, "error", err)
		c.removeLocked(fp)
		c.persistLocked()
		c.recordMiss()
		return nil, false
	}

	c.accessTimes[fp] = time.Now()
	c.persistLocked()
	c.recordHit()
	return img, true
}

// Put encodes img and writes it to disk atomically (temp file + rename),
// refreshes both creation and access time to now, so a re-Put restarts an
// entry's TTL clock, and evicts if over budget.
//
// Write failures are returned to the caller as a recoverable error; caching
// is an optimization, and the in-memory result the caller already has
// remains valid.
func (c *Cache) Put(fp fingerprint.Fingerprint, img *imgcodec.Image) error {
	data, err := img.Encode(c.quality)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := writeFileAtomic(c.path(fp), data); err != nil {
		return err
	}

	now := time.Now()
	c.createTimes[fp] = now
	c.accessTimes[fp] = now
	c.persistLocked()

	c.evictIfNeededLocked()
	return nil
}

// Remove deletes the file and metadata entries for fp, if present.
func (c *Cache) Remove(fp fingerprint.Fingerprint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(fp)
	c.persistLocked()
}

// Clear removes the entire cache subtree and recreates it empty.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.RemoveAll(c.dir); err != nil {
		return err
	}
	if err := os.MkdirAll(c.dir, dirPerm); err != nil {
		return err
	}
	c.accessTimes = make(map[fingerprint.Fingerprint]time.Time)
	c.createTimes = make(map[fingerprint.Fingerprint]time.Time)
	c.persistLocked()
	return nil
}

// RemoveExpired deletes every entry whose creation time exceeds the TTL. A
// no-op when TTL is disabled.
func (c *Cache) RemoveExpired() {
	if c.maxAge <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	expired := make([]fingerprint.Fingerprint, 0)
	for fp, created := range c.createTimes {
		if now.Sub(created) > c.maxAge {
			expired = append(expired, fp)
		}
	}
	for _, fp := range expired {
		c.removeLocked(fp)
	}
	if len(expired) > 0 {
		c.persistLocked()
	}
}

// ByteSize sums the size of .img files only, excluding metadata sidecars.
func (c *Cache) ByteSize() (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.measureBytesLocked()
}

func (c *Cache) measureBytesLocked() (int64, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	var total int64
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != imgExt {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}

// evictIfNeededLocked measures current disk usage and, if over budget,
// deletes oldest-by-access-time entries (tie-break ascending fingerprint)
// until at or under budget.
func (c *Cache) evictIfNeededLocked() {
	if c.maxBytes <= 0 {
		return
	}
	total, err := c.measureBytesLocked()
	if err != nil {
		c.log().Warn("diskcache: measure failed during eviction", "error", err)
		return
	}
	if total <= c.maxBytes {
		return
	}

	type keyed struct {
		fp fingerprint.Fingerprint
		at time.Time
	}
	keys := make([]keyed, 0, len(c.accessTimes))
	for fp, at := range c.accessTimes {
		keys = append(keys, keyed{fp: fp, at: at})
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].at.Equal(keys[j].at) {
			return keys[i].fp < keys[j].fp
		}
		return keys[i].at.Before(keys[j].at)
	})

	for _, k := range keys {
		if total <= c.maxBytes {
			break
		}
		info, statErr := os.Stat(c.path(k.fp))
		c.removeLocked(k.fp)
		if statErr == nil {
			total -= info.Size()
		}
	}
	c.persistLocked()
}

func (c *Cache) removeLocked(fp fingerprint.Fingerprint) {
	_ = os.Remove(c.path(fp)) //nolint:errcheck // missing file is not an error here
	delete(c.accessTimes, fp)
	delete(c.createTimes, fp)
}

func (c *Cache) recordHit() {
	if c.stats != nil {
		c.stats.RecordHit()
	}
}

func (c *Cache) recordMiss() {
	if c.stats != nil {
		c.stats.RecordMiss()
	}
}

func (c *Cache) path(fp fingerprint.Fingerprint) string {
	return filepath.Join(c.dir, fp.String()+imgExt)
}
