package mediabrowser

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type pngOpener struct {
	width, height int
	opens         atomic.Int32
}

func (o *pngOpener) OpenPreview(context.Context, Asset) (io.ReadCloser, error) {
	o.opens.Add(1)
	img := image.NewRGBA(image.Rect(0, 0, o.width, o.height))
	for y := 0; y < o.height; y++ {
		for x := 0; x < o.width; x++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return io.NopCloser(&buf), nil
}

func waitPreview(t *testing.T, m *previewCache, a Asset) image.Image {
	t.Helper()
	done := make(chan image.Image, 1)
	m.load(a, func(img image.Image) { done <- img })
	select {
	case img := <-done:
		return img
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for preview")
	}
	return nil
}

func TestPreviewCache_DiskKey(t *testing.T) {
	a := Asset{ID: "img-1", Size: 1024, UpdatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}

	if diskKey(a) != diskKey(a) {
		t.Fatal("Keys should be identical for the same asset")
	}

	// same instant in another zone
	b := a
	b.UpdatedAt = a.UpdatedAt.In(time.FixedZone("CEST", 2*60*60))
	if diskKey(b) != diskKey(a) {
		t.Error("Key should not depend on the time zone")
	}

	b = a
	b.UpdatedAt = a.UpdatedAt.Add(time.Second)
	if diskKey(b) == diskKey(a) {
		t.Error("Key should change when the asset is updated")
	}

	b = a
	b.Size = 2048
	if diskKey(b) == diskKey(a) {
		t.Error("Key should change when the size changes")
	}
}

func TestPreviewCache_CleanupCache(t *testing.T) {
	tmpDir := t.TempDir()
	m := &previewCache{cacheDir: tmpDir, log: zerolog.Nop()}

	oldSize := MaxPreviewCacheSize
	oldFiles := MaxPreviewCacheFiles
	MaxPreviewCacheSize = 100
	MaxPreviewCacheFiles = 5
	defer func() {
		MaxPreviewCacheSize = oldSize
		MaxPreviewCacheFiles = oldFiles
	}()

	for i := 0; i < 10; i++ {
		path := filepath.Join(tmpDir, string(rune('a'+i))+".jpg")
		_ = os.WriteFile(path, []byte("fake image data"), 0o644)
		mtime := time.Now().Add(time.Duration(i-100) * time.Minute)
		_ = os.Chtimes(path, mtime, mtime)
	}
	// not ours, never removed
	_ = os.WriteFile(filepath.Join(tmpDir, "notes.txt"), []byte("keep"), 0o644)

	m.cleanupCache()

	files, _ := os.ReadDir(tmpDir)
	jpgs := 0
	for _, f := range files {
		if filepath.Ext(f.Name()) != ".jpg" {
			continue
		}
		jpgs++
		if f.Name() < "g.jpg" {
			t.Errorf("Cleanup kept an old file: %s", f.Name())
		}
	}
	if jpgs > 4 {
		t.Errorf("Cleanup failed to evict enough files. Got %d, expected <= 4", jpgs)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "notes.txt")); err != nil {
		t.Error("Cleanup removed a file it does not own")
	}
}

func TestPreviewCache_Letterbox(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 320, 180))
	for y := 0; y < 180; y++ {
		for x := 0; x < 320; x++ {
			src.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}

	dst := letterbox(src, thumbnailSize)
	if b := dst.Bounds(); b.Dx() != thumbnailSize || b.Dy() != thumbnailSize {
		t.Fatalf("Expected %dx%d preview, got %dx%d", thumbnailSize, thumbnailSize, b.Dx(), b.Dy())
	}

	// 16:9 fits as 128x72, leaving 28px bars above and below
	r, g, b, _ := dst.At(64, 5).RGBA()
	if r > 1000 || g > 1000 || b > 1000 {
		t.Errorf("Expected black top bar, got R:%d G:%d B:%d", r, g, b)
	}
	r, g, b, _ = dst.At(64, 64).RGBA()
	if r < 50000 || g > 10000 || b > 10000 {
		t.Errorf("Expected red center, got R:%d G:%d B:%d", r, g, b)
	}

	if letterbox(image.NewRGBA(image.Rect(0, 0, 0, 10)), thumbnailSize) != nil {
		t.Error("Expected no preview for an empty image")
	}
}

func TestPreviewCache_CanPreview(t *testing.T) {
	tests := []struct {
		asset Asset
		want  bool
	}{
		{Asset{ID: "1", Filename: "photo.JPG"}, true},
		{Asset{ID: "2", MimeType: "image/png"}, true},
		{Asset{ID: "3", MimeType: "image/svg+xml", Filename: "logo.svg"}, false},
		{Asset{ID: "4", Filename: "clip.mp4"}, false},
		{Asset{ID: "5", Filename: "clip.mp4", PreviewURL: "https://cdn.example.com/clip.jpg"}, true},
		{Asset{Filename: "orphan.png"}, false},
		{Asset{ID: "6", Extension: "webp"}, true},
	}
	for _, tt := range tests {
		if got := canPreview(tt.asset); got != tt.want {
			t.Errorf("canPreview(%+v) = %v, want %v", tt.asset, got, tt.want)
		}
	}
}

func TestPreviewCache_RendersAndCaches(t *testing.T) {
	opener := &pngOpener{width: 320, height: 180}
	dir := t.TempDir()
	m := newPreviewCache(opener, dir, zerolog.Nop())
	defer m.close()

	a := Asset{ID: "img", Filename: "img.png", UpdatedAt: time.Now()}
	img := waitPreview(t, m, a)
	if img == nil || img.Bounds().Dx() != thumbnailSize {
		t.Fatal("Expected a square preview")
	}
	if m.cached(a) == nil {
		t.Fatal("Expected the preview kept in memory")
	}

	// written to disk for the next session
	path := filepath.Join(dir, diskKey(a)+".jpg")
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := os.Stat(path); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Expected the preview written to the disk cache")
		}
		time.Sleep(10 * time.Millisecond)
	}

	fresh := newPreviewCache(opener, dir, zerolog.Nop())
	defer fresh.close()
	if waitPreview(t, fresh, a) == nil {
		t.Fatal("Expected the preview from disk")
	}
	if opener.opens.Load() != 1 {
		t.Errorf("Expected one source read, got %d", opener.opens.Load())
	}
}

func TestPreviewCache_ClosedDropsRequests(t *testing.T) {
	m := newPreviewCache(&pngOpener{width: 4, height: 4}, "", zerolog.Nop())
	m.close()

	called := false
	m.load(Asset{ID: "x", Filename: "x.png"}, func(image.Image) { called = true })
	time.Sleep(20 * time.Millisecond)
	if called {
		t.Error("Expected no preview after close")
	}

	var nilCache *previewCache
	nilCache.load(Asset{ID: "x", Filename: "x.png"}, func(image.Image) { called = true })
	if called || nilCache.cached(Asset{ID: "x"}) != nil {
		t.Error("Expected a nil cache to do nothing")
	}
}
