package diskcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/corymoss/imagecache/fingerprint"
)

// ErrDecodingFailure wraps the error logged when a metadata sidecar exists
// but its JSON contents are malformed. It is not returned to callers: a
// corrupt sidecar is logged and treated as empty rather than failing cache
// construction. It never concerns the image path itself (see
// imgcodec.ErrInvalidImageData for that).
var ErrDecodingFailure = errors.New("diskcache: metadata decoding failure")

// loadMetadata reads a sidecar file mapping fingerprint to Unix-epoch
// seconds. A missing or corrupt file is treated as empty (and logged)
// rather than failing cache construction.
func (c *Cache) loadMetadata(name string) map[fingerprint.Fingerprint]time.Time {
	path := filepath.Join(c.dir, name)
	data, err := os.ReadFile(path) //nolint:gosec // fixed sidecar filename under our own cache dir
	if err != nil {
		return make(map[fingerprint.Fingerprint]time.Time)
	}

	raw := make(map[string]float64)
	if err := json.Unmarshal(data, &raw); err != nil {
		c.log().Warn("diskcache: corrupt metadata treated as empty", "file", name,
			"error", fmt.Errorf("%w: %w", ErrDecodingFailure, err))
		return make(map[fingerprint.Fingerprint]time.Time)
	}

	out := make(map[fingerprint.Fingerprint]time.Time, len(raw))
	for k, secs := range raw {
		fp := fingerprint.Fingerprint(k)
		if !fp.Valid() {
			continue
		}
		out[fp] = secondsToTime(secs)
	}
	return out
}

// persistLocked rewrites both metadata sidecars atomically. Callers must
// hold c.mu.
func (c *Cache) persistLocked() {
	if err := c.writeMetadataLocked(accessTimesFileName, c.accessTimes); err != nil {
		c.log().Warn("diskcache: failed to persist access times", "error", err)
	}
	if err := c.writeMetadataLocked(createTimesFileName, c.createTimes); err != nil {
		c.log().Warn("diskcache: failed to persist creation times", "error", err)
	}
}

func (c *Cache) writeMetadataLocked(name string, m map[fingerprint.Fingerprint]time.Time) error {
	raw := make(map[string]float64, len(m))
	for fp, t := range m {
		raw[fp.String()] = timeToSeconds(t)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(c.dir, name), data)
}

// writeFileAtomic writes data to path via a temp file in the same directory
// followed by an atomic rename, so readers never observe a partial write.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, filePerm); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

func timeToSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func secondsToTime(secs float64) time.Time {
	return time.Unix(0, int64(secs*float64(time.Second)))
}
