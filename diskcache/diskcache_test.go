package diskcache

import (
	"bytes"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/corymoss/imagecache/fingerprint"
	"github.com/corymoss/imagecache/imgcodec"
)

func testImage(w, h int) *imgcodec.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: 200, B: 30, A: 255})
		}
	}
	return imgcodec.FromImage(img)
}

func TestPutGetRoundTrip(t *testing.T) {
	t.Parallel()

	c, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	fp := fingerprint.Of("https://x/a.jpg")

	if err := c.Put(fp, testImage(8, 8)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, ok := c.Get(fp)
	if !ok {
		t.Fatal("Get() after Put() missed")
	}
	b := got.Raw().Bounds()
	if b.Dx() != 8 || b.Dy() != 8 {
		t.Fatalf("decoded bounds = %v, want 8x8", b)
	}
}

func TestGetMissing(t *testing.T) {
	t.Parallel()

	c, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, ok := c.Get(fingerprint.Of("nope")); ok {
		t.Fatal("Get() on empty cache returned a hit")
	}
}

func TestRemoveAndClear(t *testing.T) {
	t.Parallel()

	c, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	fp := fingerprint.Of("https://x/a.jpg")
	_ = c.Put(fp, testImage(4, 4))

	c.Remove(fp)
	if _, ok := c.Get(fp); ok {
		t.Fatal("Get() after Remove() should miss")
	}

	_ = c.Put(fingerprint.Of("b"), testImage(4, 4))
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, ok := c.Get(fingerprint.Of("b")); ok {
		t.Fatal("Get() after Clear() should miss")
	}
}

func TestTTLExpiry(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c, err := New(dir, WithMaxAge(50*time.Millisecond))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	fp := fingerprint.Of("https://x/a.jpg")
	_ = c.Put(fp, testImage(4, 4))

	if _, ok := c.Get(fp); !ok {
		t.Fatal("Get() immediately after Put() should hit")
	}

	time.Sleep(80 * time.Millisecond)

	if _, ok := c.Get(fp); ok {
		t.Fatal("Get() after TTL expiry should miss")
	}
	if _, err := os.Stat(filepath.Join(dir, fp.String()+imgExt)); !os.IsNotExist(err) {
		t.Fatalf("expected expired file to be removed, stat err = %v", err)
	}
}

func TestLRUDiskEviction(t *testing.T) {
	t.Parallel()

	// Each 200x100 solid-color JPEG at quality 0.5 encodes to just under
	// 1 KiB (958 bytes), so a 5 KiB budget fits five entries but not six.
	c, err := New(t.TempDir(), WithMaxBytes(5*1024), WithQuality(0.5))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	fps := make([]fingerprint.Fingerprint, 6)
	for i := range fps {
		fps[i] = fingerprint.Of(string(rune('A' + i)))
		if err := c.Put(fps[i], testImage(200, 100)); err != nil {
			t.Fatalf("Put(%d) error = %v", i, err)
		}
		time.Sleep(2 * time.Millisecond) // ensure distinct access/creation ordering
	}

	if _, ok := c.Get(fps[0]); ok {
		t.Fatal("oldest entry should have been evicted")
	}
	if _, ok := c.Get(fps[len(fps)-1]); !ok {
		t.Fatal("most recently written entry should still be cached")
	}

	size, err := c.ByteSize()
	if err != nil {
		t.Fatalf("ByteSize() error = %v", err)
	}
	if size > 5*1024 {
		t.Fatalf("ByteSize() = %d, want <= 5120", size)
	}
}

func TestConstructedOnPrepopulatedDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c1, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	fp := fingerprint.Of("https://x/a.jpg")
	if err := c1.Put(fp, testImage(4, 4)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	c2, err := New(dir)
	if err != nil {
		t.Fatalf("second New() error = %v", err)
	}
	if _, ok := c2.Get(fp); !ok {
		t.Fatal("prior entry should be accessible from a fresh Cache over the same dir")
	}
}

func TestConstructedWithCorruptMetadata(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, accessTimesFileName), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("seed corrupt metadata: %v", err)
	}

	c, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, ok := c.Get(fingerprint.Of("anything")); ok {
		t.Fatal("cache constructed over corrupt metadata should behave as empty")
	}
}

func TestCorruptMetadataLogsDecodingFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, accessTimesFileName), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("seed corrupt metadata: %v", err)
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	if _, err := New(dir, WithLogger(logger)); err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if !strings.Contains(buf.String(), ErrDecodingFailure.Error()) {
		t.Fatalf("log output = %q, want it to mention %q", buf.String(), ErrDecodingFailure.Error())
	}
}

func TestDecodeFailureRemovesCorruptFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	fp := fingerprint.Of("https://x/a.jpg")

	if err := os.WriteFile(filepath.Join(dir, fp.String()+imgExt), []byte("not an image"), 0o600); err != nil {
		t.Fatalf("seed corrupt image: %v", err)
	}
	c.createTimes[fp] = time.Now()
	c.accessTimes[fp] = time.Now()

	if _, ok := c.Get(fp); ok {
		t.Fatal("Get() on corrupt bytes should miss")
	}
	if _, err := os.Stat(filepath.Join(dir, fp.String()+imgExt)); !os.IsNotExist(err) {
		t.Fatalf("expected corrupt file removed, stat err = %v", err)
	}
}
