package mediabrowser

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/dustin/go-humanize"
)

// cardBinding is everything a card renders from. Binding the same value
// twice is a no-op.
type cardBinding struct {
	index       int
	id          string
	stamp       int64
	updating    bool
	selected    bool
	shift       bool
	placeholder bool
}

type assetCard struct {
	widget.BaseWidget
	host cardHost
	view ViewMode

	asset   Asset
	binding cardBinding
	bound   bool
	binds   int // number of bindings that changed what is drawn

	bg        *canvas.Rectangle
	icon      *widget.Icon
	thumbnail *canvas.Image
	name      *widget.Label
	meta      *widget.Label
	spinner   *widget.Activity

	// table columns
	kind    *widget.Label
	dims    *widget.Label
	size    *widget.Label
	updated *widget.Label

	lastClick time.Time
	loadTimer *time.Timer
}

func newAssetCard(host cardHost, view ViewMode) *assetCard {
	c := &assetCard{
		host:      host,
		view:      view,
		bg:        canvas.NewRectangle(theme.Color(theme.ColorNameSelection)),
		icon:      widget.NewIcon(theme.FileIcon()),
		thumbnail: canvas.NewImageFromImage(nil),
		name:      widget.NewLabel(""),
		meta:      widget.NewLabel(""),
		spinner:   widget.NewActivity(),
		kind:      widget.NewLabel(""),
		dims:      widget.NewLabel(""),
		size:      widget.NewLabel(""),
		updated:   widget.NewLabel(""),
	}
	c.thumbnail.FillMode = canvas.ImageFillContain
	c.thumbnail.Hide()
	c.spinner.Hide()
	c.bg.Hide()

	c.name.Truncation = fyne.TextTruncateEllipsis
	c.meta.Truncation = fyne.TextTruncateEllipsis
	c.meta.Importance = widget.LowImportance
	c.meta.SizeName = theme.SizeNameCaptionText
	if view == GridView {
		c.name.Alignment = fyne.TextAlignCenter
		c.meta.Alignment = fyne.TextAlignCenter
	}
	for _, l := range []*widget.Label{c.kind, c.dims, c.size, c.updated} {
		l.Truncation = fyne.TextTruncateEllipsis
		l.Importance = widget.LowImportance
	}

	c.ExtendBaseWidget(c)
	return c
}

func (c *assetCard) CreateRenderer() fyne.WidgetRenderer {
	return &assetCardRenderer{card: c}
}

// bind points the card at item. A nil item renders the loading placeholder.
// It reports whether anything had to be redrawn.
func (c *assetCard) bind(index int, item *Item, selected, shift bool) bool {
	b := cardBinding{index: index, selected: selected, shift: shift, placeholder: item == nil}
	if item != nil {
		b.id = item.Asset.ID
		b.stamp = item.Asset.UpdatedAt.UnixNano()
		b.updating = item.Updating
	}
	if c.bound && c.binding == b {
		return false
	}

	prev, wasBound := c.binding, c.bound
	c.binding = b
	c.bound = true
	c.binds++

	sameAsset := wasBound && !prev.placeholder && prev.id == b.id &&
		prev.stamp == b.stamp && prev.updating == b.updating
	if b.placeholder {
		c.asset = Asset{}
		c.showPlaceholder()
	} else if !sameAsset {
		c.asset = item.Asset
		c.showAsset(item)
	}

	if b.selected {
		c.bg.Show()
	} else {
		c.bg.Hide()
	}
	c.Refresh()
	return true
}

func (c *assetCard) showPlaceholder() {
	c.stopLoad()
	c.name.SetText("")
	c.meta.SetText("")
	c.kind.SetText("")
	c.dims.SetText("")
	c.size.SetText("")
	c.updated.SetText("")
	c.icon.Hide()
	c.thumbnail.Hide()
	c.thumbnail.Image = nil
	c.spinner.Show()
	c.spinner.Start()
}

func (c *assetCard) showAsset(item *Item) {
	a := item.Asset
	c.spinner.Stop()
	c.spinner.Hide()

	c.name.SetText(displayName(a))
	c.kind.SetText(strings.ToUpper(assetExtension(a)))
	c.dims.SetText(dimensions(a))
	c.size.SetText(humanize.Bytes(uint64(max(a.Size, 0))))
	if a.UpdatedAt.IsZero() {
		c.updated.SetText("")
	} else {
		c.updated.SetText(humanize.Time(a.UpdatedAt))
	}
	c.meta.SetText(metadataLine(a))
	if item.Updating {
		c.meta.SetText("Updating…")
	}

	c.icon.SetResource(assetIcon(a))
	c.icon.Show()
	c.thumbnail.Hide()
	c.thumbnail.Image = nil

	c.stopLoad()
	if c.view != GridView || c.host == nil || !canPreview(a) {
		return
	}

	if img := c.host.CachedPreview(a); img != nil {
		c.setPreview(img)
		return
	}

	id := a.ID
	c.loadTimer = time.AfterFunc(previewSettleDelay, func() {
		c.host.Preview(a, func(img image.Image) {
			fyne.Do(func() {
				if c.asset.ID != id || img == nil {
					return
				}
				c.setPreview(img)
				c.thumbnail.Refresh()
			})
		})
	})
}

func (c *assetCard) setPreview(img image.Image) {
	c.thumbnail.Image = img
	c.icon.Hide()
	c.thumbnail.Show()
}

func (c *assetCard) stopLoad() {
	if c.loadTimer != nil {
		c.loadTimer.Stop()
		c.loadTimer = nil
	}
}

// release is called when the card leaves the rendered window.
func (c *assetCard) release() {
	c.stopLoad()
	c.spinner.Stop()
}

func (c *assetCard) Tapped(_ *fyne.PointEvent) {
	if c.binding.placeholder || c.host == nil {
		return
	}
	if fyne.CurrentDevice().IsMobile() {
		c.host.PickItem(c.binding.index, 0)
		return
	}

	now := time.Now()
	if now.Sub(c.lastClick) < fyne.CurrentApp().Driver().DoubleTapDelay() {
		c.host.ActivateItem(c.binding.index)
	}
	c.lastClick = now
}

var _ desktop.Mouseable = (*assetCard)(nil)

func (c *assetCard) MouseDown(e *desktop.MouseEvent) {
	if c.host != nil {
		c.host.SyncModifiers(e.Modifier)
	}
}

func (c *assetCard) MouseUp(e *desktop.MouseEvent) {
	if c.host == nil || e.Button != desktop.MouseButtonPrimary || c.binding.placeholder {
		return
	}
	c.host.SyncModifiers(e.Modifier)
	mods := e.Modifier
	if c.binding.shift {
		mods |= fyne.KeyModifierShift
	}
	c.host.PickItem(c.binding.index, mods)
}

func displayName(a Asset) string {
	if a.Filename != "" {
		return a.Filename
	}
	if a.Path != "" {
		return filepath.Base(a.Path)
	}
	return a.ID
}

func assetExtension(a Asset) string {
	if a.Extension != "" {
		return strings.TrimPrefix(a.Extension, ".")
	}
	return strings.TrimPrefix(filepath.Ext(a.Filename), ".")
}

func dimensions(a Asset) string {
	if a.Width <= 0 || a.Height <= 0 {
		return ""
	}
	return fmt.Sprintf("%d×%d", a.Width, a.Height)
}

func metadataLine(a Asset) string {
	parts := make([]string, 0, 3)
	if ext := assetExtension(a); ext != "" {
		parts = append(parts, strings.ToUpper(ext))
	}
	if d := dimensions(a); d != "" {
		parts = append(parts, d)
	}
	if a.Size > 0 {
		parts = append(parts, humanize.Bytes(uint64(a.Size)))
	}
	return strings.Join(parts, " · ")
}

func assetIcon(a Asset) fyne.Resource {
	mime := a.MimeType
	switch {
	case strings.HasPrefix(mime, "image/"):
		return theme.FileImageIcon()
	case strings.HasPrefix(mime, "video/"):
		return theme.FileVideoIcon()
	case strings.HasPrefix(mime, "audio/"):
		return theme.FileAudioIcon()
	case strings.HasPrefix(mime, "text/"):
		return theme.FileTextIcon()
	case mime != "":
		return theme.FileApplicationIcon()
	}

	switch strings.ToLower(assetExtension(a)) {
	case "jpg", "jpeg", "png", "gif", "webp", "bmp", "tif", "tiff", "svg":
		return theme.FileImageIcon()
	case "mp4", "mov", "webm", "mkv":
		return theme.FileVideoIcon()
	case "pdf":
		return theme.FileApplicationIcon()
	}
	return theme.FileIcon()
}

type assetCardRenderer struct {
	card *assetCard
}

func (r *assetCardRenderer) Layout(size fyne.Size) {
	c := r.card
	c.bg.Resize(size)
	c.bg.Move(fyne.NewPos(0, 0))
	pad := theme.Padding()

	if c.view == GridView {
		lineHeight := c.name.MinSize().Height
		metaHeight := c.meta.MinSize().Height
		textTop := size.Height - lineHeight - metaHeight
		if textTop < 0 {
			textTop = 0
		}

		thumbSide := fyne.Min(size.Width-2*pad, textTop-pad)
		if thumbSide < 0 {
			thumbSide = 0
		}
		thumbPos := fyne.NewPos((size.Width-thumbSide)/2, pad)
		c.thumbnail.Resize(fyne.NewSquareSize(thumbSide))
		c.thumbnail.Move(thumbPos)

		iconSide := fyne.Min(thumbSide, thumbnailSize/2)
		c.icon.Resize(fyne.NewSquareSize(iconSide))
		c.icon.Move(fyne.NewPos((size.Width-iconSide)/2, pad+(thumbSide-iconSide)/2))

		spin := c.spinner.MinSize()
		c.spinner.Resize(spin)
		c.spinner.Move(fyne.NewPos((size.Width-spin.Width)/2, (size.Height-spin.Height)/2))

		c.name.Resize(fyne.NewSize(size.Width, lineHeight))
		c.name.Move(fyne.NewPos(0, textTop))
		c.meta.Resize(fyne.NewSize(size.Width, metaHeight))
		c.meta.Move(fyne.NewPos(0, textTop+lineHeight))
		return
	}

	iconSize := fyne.NewSquareSize(tableIconSize)
	iconPos := fyne.NewPos(pad, (size.Height-iconSize.Height)/2)
	c.icon.Resize(iconSize)
	c.icon.Move(iconPos)
	c.thumbnail.Resize(iconSize)
	c.thumbnail.Move(iconPos)
	c.spinner.Resize(iconSize)
	c.spinner.Move(iconPos)

	x := iconSize.Width + pad*2
	avail := size.Width - x
	if avail < 0 {
		avail = 0
	}
	// name takes 40%, the four metadata columns share the rest
	cols := []struct {
		label *widget.Label
		share float32
	}{
		{c.name, 0.4}, {c.kind, 0.1}, {c.dims, 0.15}, {c.size, 0.15}, {c.updated, 0.2},
	}
	for _, col := range cols {
		w := avail * col.share
		col.label.Resize(fyne.NewSize(w, size.Height))
		col.label.Move(fyne.NewPos(x, 0))
		x += w
	}
}

func (r *assetCardRenderer) MinSize() fyne.Size {
	if r.card.view == GridView {
		return fyne.NewSize(CardWidth-2*CellInset, CardHeight-2*CellInset)
	}
	return fyne.NewSize(0, tableRowHeight)
}

func (r *assetCardRenderer) Refresh() {
	c := r.card
	c.bg.FillColor = theme.Color(theme.ColorNameSelection)
	c.bg.Refresh()
	c.icon.Refresh()
	c.thumbnail.Refresh()
	c.spinner.Refresh()
	c.name.Refresh()
	c.meta.Refresh()
	if c.view == TableView {
		c.kind.Refresh()
		c.dims.Refresh()
		c.size.Refresh()
		c.updated.Refresh()
	}
}

func (r *assetCardRenderer) Objects() []fyne.CanvasObject {
	c := r.card
	if c.view == GridView {
		return []fyne.CanvasObject{c.bg, c.icon, c.thumbnail, c.spinner, c.name, c.meta}
	}
	return []fyne.CanvasObject{c.bg, c.icon, c.thumbnail, c.spinner, c.name, c.kind, c.dims, c.size, c.updated}
}

func (r *assetCardRenderer) Destroy() {
	r.card.release()
}
