package imagecache

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/corymoss/imagecache/config"
)

func testJPEGBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 20), G: uint8(y * 20), B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("jpeg.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func newTestEngine(t *testing.T, root string) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Disk.Directory = "cache"
	cfg.Download.RetryDelay = time.Millisecond
	eng, err := New(cfg, WithCacheRoot(root))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return eng
}

func TestEngineLoadFetchesAndCaches(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	body := testJPEGBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	eng := newTestEngine(t, t.TempDir())
	img, err := eng.Load(context.Background(), srv.URL, DefaultLoadOptions())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if img == nil {
		t.Fatal("Load() returned nil image")
	}
	if hits.Load() != 1 {
		t.Fatalf("server hit %d times, want 1", hits.Load())
	}

	if _, err := eng.Load(context.Background(), srv.URL, DefaultLoadOptions()); err != nil {
		t.Fatalf("second Load() error = %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("server hit %d times after cache hit, want 1", hits.Load())
	}

	snap := eng.Stats()
	if snap.Hits == 0 {
		t.Fatalf("Stats() = %+v, want at least one hit", snap)
	}
}

func TestEngineLoadWithCacheDisabledAlwaysHitsNetwork(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	body := testJPEGBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	eng := newTestEngine(t, t.TempDir())
	opts := LoadOptions{CacheEnabled: false}

	if _, err := eng.Load(context.Background(), srv.URL, opts); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := eng.Load(context.Background(), srv.URL, opts); err != nil {
		t.Fatalf("second Load() error = %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("server hit %d times, want 2 (cache bypassed)", hits.Load())
	}

	if _, ok := eng.manager.Get(srv.URL); ok {
		t.Fatal("Get() = hit, want miss since CacheEnabled was false")
	}
}

func TestEngineRemoveAndClear(t *testing.T) {
	t.Parallel()

	body := testJPEGBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	eng := newTestEngine(t, t.TempDir())
	if _, err := eng.Load(context.Background(), srv.URL, DefaultLoadOptions()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	eng.Remove(srv.URL)
	if _, ok := eng.manager.Get(srv.URL); ok {
		t.Fatal("Get() after Remove() = hit, want miss")
	}

	if _, err := eng.Load(context.Background(), srv.URL, DefaultLoadOptions()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := eng.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, ok := eng.manager.Get(srv.URL); ok {
		t.Fatal("Get() after Clear() = hit, want miss")
	}
}

func TestEngineByteSizeReflectsDiskUsage(t *testing.T) {
	t.Parallel()

	body := testJPEGBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	eng := newTestEngine(t, t.TempDir())
	if _, err := eng.Load(context.Background(), srv.URL, DefaultLoadOptions()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	size, err := eng.ByteSize()
	if err != nil {
		t.Fatalf("ByteSize() error = %v", err)
	}
	if size <= 0 {
		t.Fatalf("ByteSize() = %d, want > 0", size)
	}
}

func TestEngineNotifyMemoryPressureClearsMemoryOnly(t *testing.T) {
	t.Parallel()

	body := testJPEGBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	eng := newTestEngine(t, t.TempDir())
	if _, err := eng.Load(context.Background(), srv.URL, DefaultLoadOptions()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	eng.NotifyMemoryPressure()
	if !eng.memory.Exists(eng.Fingerprint(srv.URL)) {
		// memory was cleared, which is expected; disk should still serve it.
	} else {
		t.Fatal("memory cache still has the entry after NotifyMemoryPressure")
	}

	if _, ok := eng.manager.Get(srv.URL); !ok {
		t.Fatal("Get() after memory-pressure clear = miss, want disk-backed hit")
	}
}

func TestEngineUsesDefaultConfigWhenNil(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	eng, err := New(nil, WithCacheRoot(root))
	if err != nil {
		t.Fatalf("New(nil) error = %v", err)
	}
	if eng == nil {
		t.Fatal("New(nil) returned nil engine")
	}
}

func TestDefaultConfigMatchesConfigPackage(t *testing.T) {
	t.Parallel()

	if DefaultConfig().Disk.Directory != config.Default().Disk.Directory {
		t.Fatal("DefaultConfig() diverges from config.Default()")
	}
}
