package mediabrowser

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

type previewRequest struct {
	asset    Asset
	callback func(image.Image)
}

// previewCache produces letterboxed thumbnails for cards. Requests are
// served newest first so scrolling quickly favours the cards on screen.
type previewCache struct {
	opener   PreviewOpener
	cache    sync.Map // map[string]image.Image
	requests []previewRequest
	reqLock  sync.Mutex
	reqCond  *sync.Cond
	closed   bool
	cacheDir string

	ctx    context.Context
	cancel context.CancelFunc
	log    zerolog.Logger
}

var (
	MaxPreviewCacheSize  int64 = 500 * 1024 * 1024 // 500MB
	MaxPreviewCacheFiles int   = 10000
)

const (
	previewWorkers    = 4
	previewQueueLimit = 100
)

func defaultPreviewCacheDir() string {
	userCache, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(userCache, "xmediabrowser", "previews")
}

func newPreviewCache(opener PreviewOpener, cacheDir string, log zerolog.Logger) *previewCache {
	ctx, cancel := context.WithCancel(context.Background())
	m := &previewCache{
		opener:   opener,
		requests: make([]previewRequest, 0, previewQueueLimit),
		cacheDir: cacheDir,
		ctx:      ctx,
		cancel:   cancel,
		log:      log,
	}
	m.reqCond = sync.NewCond(&m.reqLock)

	if m.cacheDir != "" {
		if err := os.MkdirAll(m.cacheDir, 0o755); err != nil {
			m.log.Warn().Err(err).Str("dir", m.cacheDir).Msg("preview disk cache disabled")
			m.cacheDir = ""
		} else {
			go m.cleanupCache()
		}
	}

	if opener != nil {
		for range previewWorkers {
			go m.worker()
		}
	}
	return m
}

func (m *previewCache) close() {
	if m == nil {
		return
	}
	m.cancel()
	m.reqLock.Lock()
	m.closed = true
	m.requests = nil
	m.reqCond.Broadcast()
	m.reqLock.Unlock()
}

func memoryKey(a Asset) string {
	return a.ID + "@" + a.UpdatedAt.UTC().Format(time.RFC3339Nano)
}

func canPreview(a Asset) bool {
	if a.ID == "" {
		return false
	}
	if a.PreviewURL != "" {
		return true
	}
	if strings.HasPrefix(a.MimeType, "image/") && a.MimeType != "image/svg+xml" {
		return true
	}
	ext := strings.ToLower(a.Extension)
	if ext == "" {
		ext = strings.TrimPrefix(strings.ToLower(filepath.Ext(a.Filename)), ".")
	}
	switch ext {
	case "jpg", "jpeg", "png", "gif", "webp", "bmp", "tif", "tiff":
		return true
	}
	return false
}

// cached returns a thumbnail from memory only.
func (m *previewCache) cached(a Asset) image.Image {
	if m == nil {
		return nil
	}
	if img, ok := m.cache.Load(memoryKey(a)); ok {
		return img.(image.Image)
	}
	return nil
}

func (m *previewCache) load(a Asset, callback func(image.Image)) {
	if m == nil || m.opener == nil || !canPreview(a) {
		return
	}

	key := memoryKey(a)
	if img, ok := m.cache.Load(key); ok {
		callback(img.(image.Image))
		return
	}

	if m.cacheDir != "" {
		cachePath := filepath.Join(m.cacheDir, diskKey(a)+".jpg")
		if img, err := loadImage(cachePath); err == nil {
			m.cache.Store(key, img)
			callback(img)
			return
		}
	}

	m.reqLock.Lock()
	if m.closed {
		m.reqLock.Unlock()
		return
	}
	if len(m.requests) >= previewQueueLimit {
		m.requests = m.requests[1:]
	}
	m.requests = append(m.requests, previewRequest{asset: a, callback: callback})
	m.reqCond.Signal()
	m.reqLock.Unlock()
}

func (m *previewCache) worker() {
	for {
		m.reqLock.Lock()
		for len(m.requests) == 0 && !m.closed {
			m.reqCond.Wait()
		}
		if m.closed {
			m.reqLock.Unlock()
			return
		}
		last := len(m.requests) - 1
		req := m.requests[last]
		m.requests = m.requests[:last]
		m.reqLock.Unlock()

		if img := m.cached(req.asset); img != nil {
			req.callback(img)
			continue
		}

		img, err := m.render(req.asset)
		if err != nil {
			m.log.Debug().Err(err).Str("asset", req.asset.ID).Msg("preview failed")
			continue
		}
		req.callback(img)
	}
}

func (m *previewCache) render(a Asset) (image.Image, error) {
	rc, err := m.opener.OpenPreview(m.ctx, a)
	if err != nil {
		return nil, err
	}
	src, _, err := image.Decode(rc)
	rc.Close()
	if err != nil {
		return nil, fmt.Errorf("decode preview: %w", err)
	}

	dst := letterbox(src, thumbnailSize)
	if dst == nil {
		return nil, fmt.Errorf("empty preview for %s", a.ID)
	}
	m.cache.Store(memoryKey(a), dst)

	if m.cacheDir != "" {
		cachePath := filepath.Join(m.cacheDir, diskKey(a)+".jpg")
		if f, err := os.Create(cachePath); err == nil {
			_ = jpeg.Encode(f, dst, &jpeg.Options{Quality: 85})
			f.Close()
		}
	}
	return dst, nil
}

// letterbox scales src to fit a size x size square, centred on black.
func letterbox(src image.Image, size int) *image.RGBA {
	srcBounds := src.Bounds()
	srcW, srcH := srcBounds.Dx(), srcBounds.Dy()
	if srcW == 0 || srcH == 0 {
		return nil
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{image.Black}, image.Point{}, draw.Src)

	var scaledW, scaledH int
	ratio := float64(srcW) / float64(srcH)
	if ratio > 1 {
		scaledW = size
		scaledH = max(1, int(float64(size)/ratio))
	} else {
		scaledH = size
		scaledW = max(1, int(float64(size)*ratio))
	}

	xBase := (size - scaledW) / 2
	yBase := (size - scaledH) / 2
	target := image.Rect(xBase, yBase, xBase+scaledW, yBase+scaledH)
	draw.ApproxBiLinear.Scale(dst, target, src, srcBounds, draw.Over, nil)
	return dst
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, err
}

// diskKey changes whenever the asset is replaced upstream.
func diskKey(a Asset) string {
	h := sha256.New()
	h.Write([]byte(a.ID))
	h.Write([]byte(a.UpdatedAt.UTC().Format(time.RFC3339Nano)))
	h.Write([]byte(fmt.Sprintf("%d", a.Size)))
	h.Write([]byte(a.PreviewURL))
	return hex.EncodeToString(h.Sum(nil))
}

func (m *previewCache) cleanupCache() {
	if m.cacheDir == "" {
		return
	}

	entries, err := os.ReadDir(m.cacheDir)
	if err != nil {
		return
	}

	type cachedFile struct {
		name string
		size int64
		time time.Time
	}

	var files []cachedFile
	var totalSize int64
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".jpg" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, cachedFile{name: e.Name(), size: info.Size(), time: info.ModTime()})
		totalSize += info.Size()
	}

	if totalSize <= MaxPreviewCacheSize && len(files) <= MaxPreviewCacheFiles {
		return
	}

	// oldest first
	sort.Slice(files, func(i, j int) bool {
		return files[i].time.Before(files[j].time)
	})

	sizeTarget := int64(float64(MaxPreviewCacheSize) * 0.8)
	countTarget := int(float64(MaxPreviewCacheFiles) * 0.8)
	for len(files) > 0 {
		if totalSize <= sizeTarget && len(files) <= countTarget {
			break
		}
		_ = os.Remove(filepath.Join(m.cacheDir, files[0].name))
		totalSize -= files[0].size
		files = files[1:]
	}
	m.log.Debug().Int("kept", len(files)).Msg("preview cache trimmed")
}
