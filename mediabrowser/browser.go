package mediabrowser

import (
	"fmt"
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/lang"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"
)

// Options configure a Browser.
type Options struct {
	// Source provides the assets. It may also implement PreviewOpener and
	// Importer to enable thumbnails and uploads.
	Source AssetSource
	// Document puts the browser in insert mode.
	Document *Document
	// Orders replaces DefaultOrders when not empty.
	Orders   []Order
	PageSize int
	View     ViewMode

	OnClose  func()
	OnSelect func([]Asset)

	Logger *zerolog.Logger
	// PreviewCacheDir overrides the on-disk thumbnail cache location.
	PreviewCacheDir string
	// DisableDiskCache keeps thumbnails in memory only.
	DisableDiskCache bool
}

// Browser is the media browser panel: a header over a grid or table of
// assets with a selection footer.
type Browser struct {
	opts   Options
	log    zerolog.Logger
	store  *Store
	window fyne.Window
	canvas fyne.Canvas

	header   *Header
	grid     *CardView
	table    *TableList
	empty    *emptyState
	count    *widget.Label
	clearBtn *widget.Button
	insert   *widget.Button

	shift    *shiftTracker
	fetcher  *fetcher
	previews *previewCache

	unsubscribe func()
	mounted     bool
	modal       bool
	popup       *widget.PopUp

	originalOnTypedKey func(*fyne.KeyEvent)

	// runOnMain replaces fyne.Do for fetch results when set
	runOnMain func(func())
}

func New(opts Options) *Browser {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("component", "mediabrowser").Logger()
	}
	if len(opts.Orders) == 0 {
		opts.Orders = DefaultOrders
	}
	return &Browser{
		opts:  opts,
		log:   log,
		store: NewStore(State{}),
	}
}

// Store exposes the browser state, hosts may dispatch intents to it.
func (b *Browser) Store() *Store {
	return b.store
}

// SetDocument switches between insert and browse mode.
func (b *Browser) SetDocument(doc *Document) {
	b.opts.Document = doc
	b.store.Dispatch(DocumentSet(doc))
}

// Mount resets the state and builds the panel for c. Selection and view
// mode never survive a remount.
func (b *Browser) Mount(c fyne.Canvas) fyne.CanvasObject {
	if b.mounted {
		b.Unmount()
	}
	b.mounted = true
	b.canvas = c

	b.store.Dispatch(assetsReset{
		doc:      b.opts.Document,
		orders:   b.opts.Orders,
		pageSize: b.opts.PageSize,
		view:     b.opts.View,
	})

	var opener PreviewOpener
	if o, ok := b.opts.Source.(PreviewOpener); ok {
		opener = o
	}
	cacheDir := b.opts.PreviewCacheDir
	if cacheDir == "" && !b.opts.DisableDiskCache {
		cacheDir = defaultPreviewCacheDir()
	}
	if b.opts.DisableDiskCache {
		cacheDir = ""
	}
	b.previews = newPreviewCache(opener, cacheDir, b.log)

	var onClose, onImport func()
	if b.opts.OnClose != nil || b.modal {
		onClose = b.close
	}
	if _, ok := b.opts.Source.(Importer); ok && b.window != nil {
		onImport = b.startImport
	}
	b.header = NewHeader(b.store, onClose, onImport)

	b.fetcher = newFetcher(b.store, b.opts.Source, b.log)
	if b.runOnMain != nil {
		b.fetcher.runOnMain = b.runOnMain
	}

	b.grid = NewCardView(b)
	b.grid.OnItemsRendered = func(r RenderedRange) {
		b.fetcher.rendered(r.LastIndex(b.grid.grid.ColumnCount))
	}
	b.grid.OnMarquee = b.pickIndexes

	b.table = NewTableList(b)
	b.table.OnNearEnd = func() {
		b.fetcher.rendered(len(b.store.State().Assets.Items) - 1)
	}

	b.empty = newEmptyState(b.opts.Source)

	b.shift = newShiftTracker(func(pressed bool) {
		b.grid.SetShiftPressed(pressed)
		b.table.SetShiftPressed(pressed)
	})
	b.shift.acquire(c)

	root := container.NewBorder(b.header, b.makeFooter(), nil, nil,
		container.NewStack(b.grid, b.table, b.empty.content))

	b.unsubscribe = b.store.Subscribe(b.render)
	b.render(State{}, b.store.State())
	b.fetcher.start()

	b.log.Debug().Bool("insert", b.opts.Document != nil).Msg("browser mounted")
	return root
}

// Unmount releases the key listener, in flight fetches and preview workers.
func (b *Browser) Unmount() {
	if !b.mounted {
		return
	}
	b.mounted = false

	b.shift.release()
	b.fetcher.stop()
	b.previews.close()
	b.header.Detach()
	b.grid.stopAutoScroll()
	if b.unsubscribe != nil {
		b.unsubscribe()
		b.unsubscribe = nil
	}
	b.log.Debug().Msg("browser unmounted")
}

// Show mounts the browser in a modal popup over parent.
func (b *Browser) Show(parent fyne.Window) {
	if b.popup != nil {
		b.Hide()
	}
	b.window = parent
	b.modal = true
	content := b.Mount(parent.Canvas())

	b.popup = widget.NewModalPopUp(content, parent.Canvas())
	b.popup.Resize(fyne.NewSize(1000, 700))
	b.popup.Show()

	b.originalOnTypedKey = parent.Canvas().OnTypedKey()
	parent.Canvas().SetOnTypedKey(b.typedKeyHook)
}

// Hide closes a browser opened with Show.
func (b *Browser) Hide() {
	if b.window != nil && b.popup != nil {
		b.window.Canvas().SetOnTypedKey(b.originalOnTypedKey)
		b.originalOnTypedKey = nil
	}
	b.Unmount()
	if b.popup != nil {
		b.popup.Hide()
		b.popup = nil
	}
	b.modal = false
}

// SetWindow enables dialogs (import, errors) for a browser mounted
// directly into a window rather than through Show.
func (b *Browser) SetWindow(w fyne.Window) {
	b.window = w
}

func (b *Browser) typedKeyHook(ev *fyne.KeyEvent) {
	if ev.Name == fyne.KeyEscape {
		b.close()
		return
	}
	if b.originalOnTypedKey != nil {
		b.originalOnTypedKey(ev)
	}
}

func (b *Browser) close() {
	if b.popup != nil {
		b.Hide()
	}
	if b.opts.OnClose != nil {
		b.opts.OnClose()
	}
}

func (b *Browser) makeFooter() fyne.CanvasObject {
	b.count = widget.NewLabel("")
	b.clearBtn = widget.NewButton(lang.L("Clear"), func() {
		b.store.Dispatch(AssetsPickClear())
	})
	b.insert = widget.NewButton(lang.L("Insert"), func() {
		b.insertAssets(b.store.State().Assets.Selected.Assets())
	})
	b.insert.Importance = widget.HighImportance

	return container.NewBorder(nil, nil, nil, container.NewHBox(b.clearBtn, b.insert), b.count)
}

func (b *Browser) render(prev, next State) {
	if !b.mounted {
		return
	}
	a := next.Assets

	if a.View == TableView {
		b.grid.Hide()
		b.table.Show()
	} else {
		b.table.Hide()
		b.grid.Show()
	}

	if prev.Assets.queryKey() != a.queryKey() {
		b.grid.ScrollToTop()
		b.table.ScrollToTop()
	}

	selected := a.Selected.Assets()
	count := renderCount(a)
	if a.View == TableView {
		b.table.SetData(a.Items, count, selected)
	} else {
		b.grid.SetData(a.Items, count, selected)
	}

	if len(a.Items) == 0 && !a.Fetching && b.fetcher != nil && b.fetcher.ready {
		b.empty.update(a)
	} else {
		b.empty.content.Hide()
	}

	n := a.Selected.Len()
	switch n {
	case 0:
		b.count.SetText(lang.L("No media selected"))
	case 1:
		b.count.SetText(lang.L("1 item selected"))
	default:
		b.count.SetText(fmt.Sprintf(lang.L("%d items selected"), n))
	}
	if n == 0 {
		b.clearBtn.Disable()
		b.insert.Disable()
	} else {
		b.clearBtn.Enable()
		b.insert.Enable()
	}
	if next.Document != nil {
		b.insert.Show()
	} else {
		b.insert.Hide()
	}
}

// renderCount covers the loaded items plus one page of placeholders while
// the source holds more.
func renderCount(a AssetsState) int {
	n := len(a.Items)
	if a.HasMore() {
		pageSize := a.PageSize
		if pageSize <= 0 {
			pageSize = defaultPageSize
		}
		n = min(a.Total, n+pageSize)
	}
	return n
}

func (b *Browser) insertAssets(assets []Asset) {
	if len(assets) == 0 || b.store.State().Document == nil {
		return
	}
	b.log.Info().Int("assets", len(assets)).Msg("inserting media")
	if b.opts.OnSelect != nil {
		b.opts.OnSelect(assets)
	}
	b.close()
}

func (b *Browser) pickIndexes(indexes []int) {
	items := b.store.State().Assets.Items
	assets := make([]Asset, 0, len(indexes))
	for _, i := range indexes {
		if i >= 0 && i < len(items) {
			assets = append(assets, items[i].Asset)
		}
	}
	b.store.Dispatch(AssetsPickSet(assets))
}

// cardHost

func (b *Browser) PickItem(index int, mods fyne.KeyModifier) {
	a := b.store.State().Assets
	if a.View == GridView && b.grid.recentlyDragged() {
		return
	}
	if index < 0 || index >= len(a.Items) {
		return
	}

	asset := a.Items[index].Asset
	if mods&fyne.KeyModifierShift != 0 {
		b.store.Dispatch(AssetsPickRange(asset))
		return
	}
	b.store.Dispatch(AssetsPick(asset, !a.Selected.Contains(asset.ID)))
}

func (b *Browser) ActivateItem(index int) {
	a := b.store.State().Assets
	if index < 0 || index >= len(a.Items) {
		return
	}
	b.insertAssets([]Asset{a.Items[index].Asset})
}

func (b *Browser) SyncModifiers(mods fyne.KeyModifier) {
	b.shift.sync(mods)
}

func (b *Browser) Preview(a Asset, callback func(image.Image)) {
	b.previews.load(a, callback)
}

func (b *Browser) CachedPreview(a Asset) image.Image {
	return b.previews.cached(a)
}
