package mediabrowser

import (
	"context"
	"image"
	"io"
	"time"

	"fyne.io/fyne/v2"
)

// ViewMode can be passed to AssetsSetView() to switch the layout
// of the browser
type ViewMode int

const (
	defaultView ViewMode = iota
	// GridView lays assets out as cards in a virtualized grid
	GridView
	// TableView lists assets in rows
	TableView
)

func (v ViewMode) String() string {
	switch v {
	case TableView:
		return "table"
	default:
		return "grid"
	}
}

// ParseViewMode maps "grid" or "table" to a ViewMode.
func ParseViewMode(s string) (ViewMode, bool) {
	switch s {
	case "grid":
		return GridView, true
	case "table":
		return TableView, true
	}
	return defaultView, false
}

const (
	tableIconSize      = 24
	tableRowHeight     = 36
	thumbnailSize      = 128
	previewSettleDelay = 200 * time.Millisecond
	searchSettleDelay  = 300 * time.Millisecond
	defaultPageSize    = 50
)

// Asset is a media object held by the asset service. ID is the only
// attribute the browser depends on; everything else is display metadata.
type Asset struct {
	ID         string    `json:"_id" yaml:"id"`
	Filename   string    `json:"originalFilename" yaml:"filename"`
	Extension  string    `json:"extension" yaml:"extension"`
	MimeType   string    `json:"mimeType" yaml:"mime_type"`
	Size       int64     `json:"size" yaml:"size"`
	Width      int       `json:"width,omitempty" yaml:"width"`
	Height     int       `json:"height,omitempty" yaml:"height"`
	Path       string    `json:"path,omitempty" yaml:"path"`
	URL        string    `json:"url,omitempty" yaml:"url"`
	PreviewURL string    `json:"preview_url,omitempty" yaml:"preview_url"`
	CreatedAt  time.Time `json:"_createdAt" yaml:"created_at"`
	UpdatedAt  time.Time `json:"_updatedAt" yaml:"updated_at"`
}

// Item wraps an asset for display in the grid or table.
type Item struct {
	Asset    Asset
	Updating bool
}

// Filter is a named asset filter offered by the asset source.
type Filter struct {
	Title string `json:"title" yaml:"title"`
	Value string `json:"value" yaml:"value"`
}

// Order is a named sort specification, Value is "<field> <asc|desc>".
type Order struct {
	Title string `json:"title" yaml:"title"`
	Value string `json:"value" yaml:"value"`
}

// DefaultOrders is the static list of sort orders offered in the header.
var DefaultOrders = []Order{
	{Title: "Last updated: Newest first", Value: "_updatedAt desc"},
	{Title: "Last updated: Oldest first", Value: "_updatedAt asc"},
	{Title: "Last created: Newest first", Value: "_createdAt desc"},
	{Title: "Last created: Oldest first", Value: "_createdAt asc"},
	{Title: "Name: A to Z", Value: "originalFilename asc"},
	{Title: "Name: Z to A", Value: "originalFilename desc"},
	{Title: "File size: Largest first", Value: "size desc"},
	{Title: "File size: Smallest first", Value: "size asc"},
}

// Document is the document an asset would be inserted into.
type Document struct {
	ID   string
	Type string
}

// Query describes one page request against an AssetSource.
type Query struct {
	Search    string
	Filter    *Filter
	Order     Order
	PageIndex int
	PageSize  int
}

// Page is one page of results plus the total number of matches.
type Page struct {
	Assets []Asset
	Total  int
}

// AssetSource is the asset search service backing the browser.
type AssetSource interface {
	Fetch(ctx context.Context, q Query) (Page, error)
	Filters(ctx context.Context) ([]Filter, error)
}

// PreviewOpener is implemented by sources that can stream preview bytes.
type PreviewOpener interface {
	OpenPreview(ctx context.Context, a Asset) (io.ReadCloser, error)
}

// Importer is implemented by sources that accept new files.
type Importer interface {
	Import(ctx context.Context, paths []string) ([]Asset, error)
}

// cardHost is what a card needs from the browser it lives in
type cardHost interface {
	PickItem(index int, mods fyne.KeyModifier)
	ActivateItem(index int)
	SyncModifiers(mods fyne.KeyModifier)
	Preview(a Asset, callback func(image.Image))
	CachedPreview(a Asset) image.Image
}
