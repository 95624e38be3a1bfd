// Package assets provides the asset sources behind the media browser: a
// local library directory and an HTTP asset service.
package assets

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/agnivade/levenshtein"
	"github.com/alexballas/xmediabrowser/mediabrowser"
	"github.com/gobwas/glob"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrNotDirectory is returned when the library root is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// ErrInvalidFilter is returned for filter patterns with unbalanced braces
// or brackets.
var ErrInvalidFilter = errors.New("invalid filter pattern")

// DefaultFilters is offered when the configuration names none.
var DefaultFilters = []mediabrowser.Filter{
	{Title: "All media", Value: ""},
	{Title: "Images", Value: "*.{jpg,jpeg,png,gif,webp,bmp,tif,tiff,svg}"},
	{Title: "Videos", Value: "*.{mp4,mov,webm,mkv}"},
	{Title: "Documents", Value: "*.pdf"},
}

var mimeTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"bmp":  "image/bmp",
	"tif":  "image/tiff",
	"tiff": "image/tiff",
	"svg":  "image/svg+xml",
	"mp4":  "video/mp4",
	"mov":  "video/quicktime",
	"webm": "video/webm",
	"mkv":  "video/x-matroska",
	"pdf":  "application/pdf",
}

// Search terms this long or longer also match filename tokens within
// maxSearchDistance edits.
const (
	minFuzzyLength    = 4
	maxSearchDistance = 2
)

// LocalSource serves the media files under a directory. The index is built
// on first use and rebuilt after Invalidate.
type LocalSource struct {
	root    string
	filters []mediabrowser.Filter
	globs   map[string]glob.Glob
	log     zerolog.Logger

	mu    sync.Mutex
	index []mediabrowser.Asset
	byID  map[string]int
	stale bool
}

var (
	_ mediabrowser.AssetSource   = (*LocalSource)(nil)
	_ mediabrowser.PreviewOpener = (*LocalSource)(nil)
	_ mediabrowser.Importer      = (*LocalSource)(nil)
)

// NewLocalSource opens root as a media library. A nil filter list selects
// DefaultFilters.
func NewLocalSource(root string, filters []mediabrowser.Filter, log zerolog.Logger) (*LocalSource, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve library %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("open library: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("library %s: %w", abs, ErrNotDirectory)
	}

	if len(filters) == 0 {
		filters = DefaultFilters
	}
	globs := make(map[string]glob.Glob, len(filters))
	for _, f := range filters {
		if f.Value == "" {
			continue
		}
		g, err := compileFilter(f.Value)
		if err != nil {
			return nil, fmt.Errorf("filter %q: %w", f.Title, err)
		}
		globs[f.Value] = g
	}

	return &LocalSource{
		root:    abs,
		filters: append([]mediabrowser.Filter(nil), filters...),
		globs:   globs,
		log:     log.With().Str("library", abs).Logger(),
		stale:   true,
	}, nil
}

// compileFilter compiles a lower-cased filter glob. glob.Compile accepts
// an unclosed group as a literal, so nesting is checked first.
func compileFilter(pattern string) (glob.Glob, error) {
	var open []rune
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case len(open) > 0 && open[len(open)-1] == '[' && r != ']':
			// literal inside a character class
		case r == '{' || r == '[':
			open = append(open, r)
		case r == '}' || r == ']':
			want := '{'
			if r == ']' {
				want = '['
			}
			if len(open) == 0 || open[len(open)-1] != want {
				return nil, fmt.Errorf("%w: unexpected %q in %q", ErrInvalidFilter, r, pattern)
			}
			open = open[:len(open)-1]
		}
	}
	if len(open) > 0 {
		return nil, fmt.Errorf("%w: unclosed %q in %q", ErrInvalidFilter, open[len(open)-1], pattern)
	}
	return glob.Compile(strings.ToLower(pattern))
}

// RootPath is the library directory.
func (s *LocalSource) RootPath() string {
	return s.root
}

// Invalidate drops the index so the next fetch rescans the directory.
func (s *LocalSource) Invalidate() {
	s.mu.Lock()
	s.stale = true
	s.mu.Unlock()
}

func (s *LocalSource) Filters(context.Context) ([]mediabrowser.Filter, error) {
	return append([]mediabrowser.Filter(nil), s.filters...), nil
}

func (s *LocalSource) Fetch(ctx context.Context, q mediabrowser.Query) (mediabrowser.Page, error) {
	all, err := s.assets(ctx)
	if err != nil {
		return mediabrowser.Page{}, err
	}

	var g glob.Glob
	if q.Filter != nil && q.Filter.Value != "" {
		var ok bool
		if g, ok = s.globs[q.Filter.Value]; !ok {
			if g, err = compileFilter(q.Filter.Value); err != nil {
				return mediabrowser.Page{}, fmt.Errorf("filter %q: %w", q.Filter.Title, err)
			}
		}
	}

	terms := strings.Fields(strings.ToLower(q.Search))
	matched := make([]mediabrowser.Asset, 0, len(all))
	for _, a := range all {
		name := strings.ToLower(a.Filename)
		if g != nil && !g.Match(name) {
			continue
		}
		if !matchesSearch(name, terms) {
			continue
		}
		matched = append(matched, a)
	}
	sortAssets(matched, q.Order.Value)

	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = len(matched)
	}
	start := min(max(q.PageIndex, 0)*pageSize, len(matched))
	end := min(start+pageSize, len(matched))

	s.log.Debug().
		Str("search", q.Search).
		Int("matched", len(matched)).
		Int("page", q.PageIndex).
		Msg("local fetch")
	return mediabrowser.Page{Assets: matched[start:end], Total: len(matched)}, nil
}

// OpenPreview streams the original file, images are their own preview.
func (s *LocalSource) OpenPreview(ctx context.Context, a mediabrowser.Asset) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.pathOf(ctx, a)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Import copies files into the library root. Names already taken get a
// numeric suffix.
func (s *LocalSource) Import(ctx context.Context, paths []string) ([]mediabrowser.Asset, error) {
	imported := make([]mediabrowser.Asset, 0, len(paths))
	defer func() {
		if len(imported) > 0 {
			s.Invalidate()
		}
	}()

	for _, src := range paths {
		if err := ctx.Err(); err != nil {
			return imported, err
		}
		dst, err := s.copyIn(src)
		if err != nil {
			return imported, fmt.Errorf("import %s: %w", filepath.Base(src), err)
		}
		info, err := os.Stat(dst)
		if err != nil {
			return imported, err
		}
		a, _ := s.assetFor(dst, info)
		imported = append(imported, a)
		s.log.Info().Str("file", dst).Msg("imported media")
	}
	return imported, nil
}

func (s *LocalSource) copyIn(src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	ext := filepath.Ext(src)
	if _, ok := mimeTypes[strings.ToLower(strings.TrimPrefix(ext, "."))]; !ok {
		return "", fmt.Errorf("unsupported file type %q", ext)
	}
	base := strings.TrimSuffix(filepath.Base(src), ext)

	for n := 0; ; n++ {
		name := base + ext
		if n > 0 {
			name = fmt.Sprintf("%s-%d%s", base, n, ext)
		}
		dst := filepath.Join(s.root, name)
		out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := io.Copy(out, in); err != nil {
			out.Close()
			os.Remove(dst)
			return "", err
		}
		return dst, out.Close()
	}
}

func (s *LocalSource) pathOf(ctx context.Context, a mediabrowser.Asset) (string, error) {
	if _, err := s.assets(ctx); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.byID[a.ID]
	if !ok {
		return "", fmt.Errorf("asset %s: %w", a.ID, fs.ErrNotExist)
	}
	return s.index[i].Path, nil
}

// assets returns the index, rescanning when stale.
func (s *LocalSource) assets(ctx context.Context) ([]mediabrowser.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stale {
		return s.index, nil
	}

	started := time.Now()
	var index []mediabrowser.Asset
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.log.Debug().Err(err).Str("path", path).Msg("skipping unreadable entry")
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if strings.HasPrefix(d.Name(), ".") && path != s.root {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if a, ok := s.assetFor(path, info); ok {
			index = append(index, a)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan library: %w", err)
	}

	byID := make(map[string]int, len(index))
	for i, a := range index {
		byID[a.ID] = i
	}
	s.index, s.byID, s.stale = index, byID, false
	s.log.Debug().Int("assets", len(index)).Dur("took", time.Since(started)).Msg("library indexed")
	return index, nil
}

func (s *LocalSource) assetFor(path string, info fs.FileInfo) (mediabrowser.Asset, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	mime, ok := mimeTypes[ext]
	if !ok {
		return mediabrowser.Asset{}, false
	}

	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		rel = path
	}
	a := mediabrowser.Asset{
		ID:        AssetID(filepath.ToSlash(rel)),
		Filename:  info.Name(),
		Extension: ext,
		MimeType:  mime,
		Size:      info.Size(),
		Path:      path,
		CreatedAt: info.ModTime(),
		UpdatedAt: info.ModTime(),
	}
	if strings.HasPrefix(mime, "image/") && mime != "image/svg+xml" {
		a.Width, a.Height = imageSize(path)
	}
	return a, true
}

// AssetID is the stable id of the file at rel, a slash separated path
// relative to the library root.
func AssetID(rel string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+rel)).String()
}

func imageSize(path string) (int, int) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

// matchesSearch reports whether every term is a substring of name or is
// within maxSearchDistance edits of one of its tokens.
func matchesSearch(name string, terms []string) bool {
	if len(terms) == 0 {
		return true
	}
	tokens := strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	for _, term := range terms {
		if strings.Contains(name, term) {
			continue
		}
		if len(term) < minFuzzyLength {
			return false
		}
		found := false
		for _, tok := range tokens {
			if len(tok) < minFuzzyLength {
				continue
			}
			if levenshtein.ComputeDistance(term, tok) <= maxSearchDistance {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// sortAssets orders by a "<field> <asc|desc>" value. Unknown fields sort
// by last update, newest first.
func sortAssets(assets []mediabrowser.Asset, order string) {
	field, dir, _ := strings.Cut(strings.TrimSpace(order), " ")
	desc := strings.EqualFold(strings.TrimSpace(dir), "desc")

	var compare func(a, b mediabrowser.Asset) int
	switch field {
	case "_createdAt":
		compare = func(a, b mediabrowser.Asset) int { return a.CreatedAt.Compare(b.CreatedAt) }
	case "originalFilename":
		compare = func(a, b mediabrowser.Asset) int {
			return strings.Compare(strings.ToLower(a.Filename), strings.ToLower(b.Filename))
		}
	case "size":
		compare = func(a, b mediabrowser.Asset) int {
			switch {
			case a.Size < b.Size:
				return -1
			case a.Size > b.Size:
				return 1
			}
			return 0
		}
	case "_updatedAt":
		compare = func(a, b mediabrowser.Asset) int { return a.UpdatedAt.Compare(b.UpdatedAt) }
	default:
		compare = func(a, b mediabrowser.Asset) int { return a.UpdatedAt.Compare(b.UpdatedAt) }
		desc = true
	}

	sort.SliceStable(assets, func(i, j int) bool {
		c := compare(assets[i], assets[j])
		if c == 0 {
			// ties keep a stable, path based order across pages
			return assets[i].Path < assets[j].Path
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}
