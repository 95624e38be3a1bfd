package assets

import (
	"context"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alexballas/xmediabrowser/mediabrowser"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newLibrary lays out a small library, older files first.
func newLibrary(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	files := []string{"holiday.jpg", "clip.mp4", "sub/cat.gif", "sunset-beach.png", "notes.txt", ".hidden/secret.png"}
	for i, name := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

		if filepath.Ext(name) == ".png" {
			f, err := os.Create(path)
			require.NoError(t, err)
			require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 40, 20))))
			require.NoError(t, f.Close())
		} else {
			data := make([]byte, (i+1)*100)
			require.NoError(t, os.WriteFile(path, data, 0o644))
		}

		mtime := time.Now().Add(time.Duration(i-100) * time.Minute)
		require.NoError(t, os.Chtimes(path, mtime, mtime))
	}
	return root
}

func fetchAll(t *testing.T, s *LocalSource, q mediabrowser.Query) ([]string, int) {
	t.Helper()
	page, err := s.Fetch(context.Background(), q)
	require.NoError(t, err)
	names := make([]string, len(page.Assets))
	for i, a := range page.Assets {
		names[i] = a.Filename
	}
	return names, page.Total
}

func TestNewLocalSource_NotDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.png")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := NewLocalSource(file, nil, zerolog.Nop())
	assert.ErrorIs(t, err, ErrNotDirectory)

	_, err = NewLocalSource(filepath.Join(t.TempDir(), "missing"), nil, zerolog.Nop())
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = NewLocalSource(t.TempDir(), []mediabrowser.Filter{{Title: "Bad", Value: "*.{png"}}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestCompileFilter(t *testing.T) {
	tests := []struct {
		pattern string
		valid   bool
		match   string
	}{
		{"*.{jpg,png}", true, "cat.png"},
		{"*.[jp]pg", true, "cat.jpg"},
		{"*[{]*", true, "a{b.png"},
		{`*\{x`, true, "a{x"},
		{"*.{png", false, ""},
		{"*.[ab", false, ""},
		{"*.png}", false, ""},
		{"*.{png]", false, ""},
	}
	for _, tt := range tests {
		g, err := compileFilter(tt.pattern)
		if !tt.valid {
			assert.ErrorIs(t, err, ErrInvalidFilter, tt.pattern)
			continue
		}
		require.NoError(t, err, tt.pattern)
		assert.True(t, g.Match(tt.match), tt.pattern)
	}

	s, err := NewLocalSource(newLibrary(t), nil, zerolog.Nop())
	require.NoError(t, err)
	_, err = s.Fetch(context.Background(), mediabrowser.Query{Filter: &mediabrowser.Filter{Title: "Bad", Value: "*.[png"}})
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestLocalSource_IndexesMediaOnly(t *testing.T) {
	s, err := NewLocalSource(newLibrary(t), nil, zerolog.Nop())
	require.NoError(t, err)

	names, total := fetchAll(t, s, mediabrowser.Query{})
	assert.Equal(t, 4, total)
	// default order is newest first
	assert.Equal(t, []string{"sunset-beach.png", "cat.gif", "clip.mp4", "holiday.jpg"}, names)

	filters, err := s.Filters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultFilters, filters)
}

func TestLocalSource_StableIDsAndMetadata(t *testing.T) {
	root := newLibrary(t)
	s, err := NewLocalSource(root, nil, zerolog.Nop())
	require.NoError(t, err)

	page, err := s.Fetch(context.Background(), mediabrowser.Query{Search: "cat"})
	require.NoError(t, err)
	require.Len(t, page.Assets, 1)
	cat := page.Assets[0]
	assert.Equal(t, AssetID("sub/cat.gif"), cat.ID)
	assert.Equal(t, "gif", cat.Extension)
	assert.Equal(t, "image/gif", cat.MimeType)

	again, err := NewLocalSource(root, nil, zerolog.Nop())
	require.NoError(t, err)
	page, err = again.Fetch(context.Background(), mediabrowser.Query{Search: "cat"})
	require.NoError(t, err)
	assert.Equal(t, cat.ID, page.Assets[0].ID, "ids survive a rescan")

	page, err = s.Fetch(context.Background(), mediabrowser.Query{Search: "sunset"})
	require.NoError(t, err)
	require.Len(t, page.Assets, 1)
	assert.Equal(t, 40, page.Assets[0].Width)
	assert.Equal(t, 20, page.Assets[0].Height)
}

func TestLocalSource_GlobFilter(t *testing.T) {
	s, err := NewLocalSource(newLibrary(t), nil, zerolog.Nop())
	require.NoError(t, err)

	images := DefaultFilters[1]
	names, total := fetchAll(t, s, mediabrowser.Query{Filter: &images, Order: mediabrowser.Order{Value: "originalFilename asc"}})
	assert.Equal(t, 3, total)
	assert.Equal(t, []string{"cat.gif", "holiday.jpg", "sunset-beach.png"}, names)

	videos := DefaultFilters[2]
	names, _ = fetchAll(t, s, mediabrowser.Query{Filter: &videos})
	assert.Equal(t, []string{"clip.mp4"}, names)

	// filters not in the configured list are compiled on demand
	adhoc := mediabrowser.Filter{Title: "PNG", Value: "*.PNG"}
	names, _ = fetchAll(t, s, mediabrowser.Query{Filter: &adhoc})
	assert.Equal(t, []string{"sunset-beach.png"}, names)
}

func TestLocalSource_SearchTolerance(t *testing.T) {
	s, err := NewLocalSource(newLibrary(t), nil, zerolog.Nop())
	require.NoError(t, err)

	tests := []struct {
		search string
		want   []string
	}{
		{"BEACH", []string{"sunset-beach.png"}},
		{"sunst", []string{"sunset-beach.png"}},
		{"holliday", []string{"holiday.jpg"}},
		{"sunset beach", []string{"sunset-beach.png"}},
		{"cta", nil},
		{"zebra", nil},
	}
	for _, tt := range tests {
		names, total := fetchAll(t, s, mediabrowser.Query{Search: tt.search})
		if tt.want == nil {
			assert.Zero(t, total, tt.search)
			continue
		}
		assert.Equal(t, tt.want, names, tt.search)
	}
}

func TestLocalSource_OrdersAndPages(t *testing.T) {
	s, err := NewLocalSource(newLibrary(t), nil, zerolog.Nop())
	require.NoError(t, err)

	names, _ := fetchAll(t, s, mediabrowser.Query{Order: mediabrowser.Order{Value: "_updatedAt asc"}})
	assert.Equal(t, []string{"holiday.jpg", "clip.mp4", "cat.gif", "sunset-beach.png"}, names)

	names, _ = fetchAll(t, s, mediabrowser.Query{Order: mediabrowser.Order{Value: "originalFilename desc"}})
	assert.Equal(t, []string{"sunset-beach.png", "holiday.jpg", "clip.mp4", "cat.gif"}, names)

	names, _ = fetchAll(t, s, mediabrowser.Query{Order: mediabrowser.Order{Value: "size desc"}, Filter: &mediabrowser.Filter{Value: "*.{jpg,gif,mp4}"}})
	assert.Equal(t, []string{"cat.gif", "clip.mp4", "holiday.jpg"}, names)

	order := mediabrowser.Order{Value: "originalFilename asc"}
	names, total := fetchAll(t, s, mediabrowser.Query{Order: order, PageIndex: 1, PageSize: 3})
	assert.Equal(t, 4, total)
	assert.Equal(t, []string{"sunset-beach.png"}, names)

	names, total = fetchAll(t, s, mediabrowser.Query{Order: order, PageIndex: 5, PageSize: 3})
	assert.Equal(t, 4, total)
	assert.Empty(t, names)
}

func TestLocalSource_ImportAndPreview(t *testing.T) {
	root := newLibrary(t)
	s, err := NewLocalSource(root, nil, zerolog.Nop())
	require.NoError(t, err)
	_, total := fetchAll(t, s, mediabrowser.Query{})
	require.Equal(t, 4, total)

	src := filepath.Join(t.TempDir(), "holiday.jpg")
	require.NoError(t, os.WriteFile(src, []byte("jpeg bytes"), 0o644))

	imported, err := s.Import(context.Background(), []string{src})
	require.NoError(t, err)
	require.Len(t, imported, 1)
	assert.Equal(t, "holiday-1.jpg", imported[0].Filename)
	assert.Equal(t, AssetID("holiday-1.jpg"), imported[0].ID)

	_, total = fetchAll(t, s, mediabrowser.Query{})
	assert.Equal(t, 5, total, "import invalidates the index")

	rc, err := s.OpenPreview(context.Background(), imported[0])
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(data))

	_, err = s.OpenPreview(context.Background(), mediabrowser.Asset{ID: "unknown"})
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(t.TempDir(), "archive.zip")
	require.NoError(t, os.WriteFile(bad, nil, 0o644))
	_, err = s.Import(context.Background(), []string{bad})
	assert.Error(t, err)
}

func TestLocalSource_CancelledScan(t *testing.T) {
	s, err := NewLocalSource(newLibrary(t), nil, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Fetch(ctx, mediabrowser.Query{})
	assert.ErrorIs(t, err, context.Canceled)

	// the next fetch still scans
	_, total := fetchAll(t, s, mediabrowser.Query{})
	assert.Equal(t, 4, total)
}
