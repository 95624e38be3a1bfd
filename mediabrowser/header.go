package mediabrowser

import (
	"slices"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/lang"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// Header is the toolbar above the asset views. It renders from the store
// and only ever talks back to it through intents.
type Header struct {
	widget.BaseWidget
	store    *Store
	onClose  func()
	onImport func()

	title        *widget.Label
	breadcrumb   *breadcrumb
	closeBtn     *widget.Button
	searchInput  *widget.Entry
	gridBtn      *widget.Button
	tableBtn     *widget.Button
	filterSelect *widget.Select
	orderSelect  *widget.Select
	importBtn    *widget.Button
	status       *widget.Label

	progressSlot   *fyne.Container
	progress       *widget.ProgressBarInfinite
	progressMounts int
	lastPageIndex  int

	// option lists exactly as last handed to the selects
	renderedFilters []Filter
	renderedOrders  []Order

	syncing     bool
	searchTimer *time.Timer

	unsubscribe func()
	content     fyne.CanvasObject
}

// NewHeader builds a header bound to store. The close button is only shown
// when onClose is set and the import button only when onImport is.
func NewHeader(store *Store, onClose, onImport func()) *Header {
	h := &Header{
		store:         store,
		onClose:       onClose,
		onImport:      onImport,
		lastPageIndex: -1,
	}

	h.title = widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	h.breadcrumb = newBreadcrumb()

	if onClose != nil {
		h.closeBtn = widget.NewButtonWithIcon("", theme.CancelIcon(), func() {
			h.onClose()
		})
		h.closeBtn.Importance = widget.LowImportance
	}

	h.searchInput = widget.NewEntry()
	h.searchInput.SetPlaceHolder(lang.L("Search"))
	h.searchInput.OnChanged = h.searchChanged
	h.searchInput.OnSubmitted = func(s string) {
		h.flushSearch(s)
	}

	h.gridBtn = widget.NewButtonWithIcon("", theme.GridIcon(), func() {
		h.store.Dispatch(AssetsSetView(GridView))
	})
	h.tableBtn = widget.NewButtonWithIcon("", theme.ListIcon(), func() {
		h.store.Dispatch(AssetsSetView(TableView))
	})

	h.filterSelect = widget.NewSelect(nil, func(string) {
		if h.syncing {
			return
		}
		h.selectFilter(h.filterSelect.SelectedIndex())
	})
	h.filterSelect.PlaceHolder = lang.L("Filter")

	h.orderSelect = widget.NewSelect(nil, func(string) {
		if h.syncing {
			return
		}
		h.selectOrder(h.orderSelect.SelectedIndex())
	})
	h.orderSelect.PlaceHolder = lang.L("Sort By")

	if onImport != nil {
		h.importBtn = widget.NewButtonWithIcon(lang.L("Upload"), theme.UploadIcon(), func() {
			h.onImport()
		})
	}

	h.status = widget.NewLabel("")
	h.status.Importance = widget.DangerImportance
	h.status.Truncation = fyne.TextTruncateEllipsis
	h.status.Hide()

	h.progressSlot = container.NewStack()

	h.content = h.makeUI()
	h.ExtendBaseWidget(h)

	h.sync(store.State())
	h.unsubscribe = store.Subscribe(func(_, next State) {
		h.sync(next)
	})
	return h
}

func (h *Header) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(h.content)
}

func (h *Header) makeUI() fyne.CanvasObject {
	titleRow := container.NewHBox(h.title, h.breadcrumb.content)
	var right fyne.CanvasObject
	if h.closeBtn != nil {
		right = h.closeBtn
	}
	top := container.NewBorder(nil, nil, titleRow, right, nil)

	searchWrapper := container.NewGridWrap(fyne.NewSize(220, 36), h.searchInput)
	controls := []fyne.CanvasObject{searchWrapper, h.gridBtn, h.tableBtn, h.filterSelect, h.orderSelect}
	if h.importBtn != nil {
		controls = append(controls, h.importBtn)
	}
	controlsScroll := container.NewHScroll(container.NewHBox(controls...))
	controlsScroll.Direction = container.ScrollHorizontalOnly

	return container.NewVBox(top, controlsScroll, h.status, h.progressSlot, widget.NewSeparator())
}

// Detach stops listening to the store.
func (h *Header) Detach() {
	if h.searchTimer != nil {
		h.searchTimer.Stop()
		h.searchTimer = nil
	}
	if h.progress != nil {
		h.progress.Stop()
	}
	if h.unsubscribe != nil {
		h.unsubscribe()
		h.unsubscribe = nil
	}
}

// selectFilter dispatches the filter rendered at index i. Indexes outside
// the rendered list are ignored.
func (h *Header) selectFilter(i int) {
	if i < 0 || i >= len(h.renderedFilters) {
		return
	}
	h.store.Dispatch(AssetsSetFilter(h.renderedFilters[i]))
}

func (h *Header) selectOrder(i int) {
	if i < 0 || i >= len(h.renderedOrders) {
		return
	}
	h.store.Dispatch(AssetsSetOrder(h.renderedOrders[i]))
}

func (h *Header) searchChanged(s string) {
	if h.syncing {
		return
	}
	if h.searchTimer != nil {
		h.searchTimer.Stop()
	}
	h.searchTimer = time.AfterFunc(searchSettleDelay, func() {
		fyne.Do(func() {
			h.flushSearch(s)
		})
	})
}

func (h *Header) flushSearch(s string) {
	if h.searchTimer != nil {
		h.searchTimer.Stop()
		h.searchTimer = nil
	}
	if h.unsubscribe == nil {
		return
	}
	h.store.Dispatch(AssetsSetSearch(s))
}

func (h *Header) sync(s State) {
	h.syncing = true
	defer func() { h.syncing = false }()

	if s.Document != nil {
		h.title.SetText(lang.L("Insert Media"))
	} else {
		h.title.SetText(lang.L("Browse Media"))
	}
	h.breadcrumb.update(s.Document)

	h.syncView(s.Assets.View)
	h.syncFilters(s.Assets.Filters, s.Assets.Filter)
	h.syncOrders(s.Assets.Orders, s.Assets.Order)

	if h.searchTimer == nil && h.searchInput.Text != s.Assets.Search {
		h.searchInput.SetText(s.Assets.Search)
	}

	if s.Assets.Err != nil {
		h.status.SetText(s.Assets.Err.Error())
		h.status.Show()
	} else {
		h.status.SetText("")
		h.status.Hide()
	}

	if s.Assets.PageIndex != h.lastPageIndex {
		h.lastPageIndex = s.Assets.PageIndex
		h.remountProgress()
	}
	h.setProgressVisible(s.Assets.Fetching)
}

func (h *Header) syncView(view ViewMode) {
	grid, table := widget.LowImportance, widget.LowImportance
	if view == TableView {
		table = widget.MediumImportance
	} else {
		grid = widget.MediumImportance
	}
	if h.gridBtn.Importance != grid {
		h.gridBtn.Importance = grid
		h.gridBtn.Refresh()
	}
	if h.tableBtn.Importance != table {
		h.tableBtn.Importance = table
		h.tableBtn.Refresh()
	}
}

func (h *Header) syncFilters(filters []Filter, active *Filter) {
	if !slices.Equal(h.renderedFilters, filters) {
		h.renderedFilters = append([]Filter(nil), filters...)
		titles := make([]string, len(filters))
		for i, f := range filters {
			titles[i] = f.Title
		}
		h.filterSelect.SetOptions(titles)
	}

	idx := -1
	if active != nil {
		for i, f := range h.renderedFilters {
			if f == *active {
				idx = i
				break
			}
		}
	}
	setSelectIndex(h.filterSelect, idx)
}

func (h *Header) syncOrders(orders []Order, active Order) {
	if !slices.Equal(h.renderedOrders, orders) {
		h.renderedOrders = append([]Order(nil), orders...)
		titles := make([]string, len(orders))
		for i, o := range orders {
			titles[i] = o.Title
		}
		h.orderSelect.SetOptions(titles)
	}

	idx := -1
	for i, o := range h.renderedOrders {
		if o == active {
			idx = i
			break
		}
	}
	setSelectIndex(h.orderSelect, idx)
}

func setSelectIndex(s *widget.Select, idx int) {
	if s.SelectedIndex() == idx {
		return
	}
	if idx < 0 {
		s.ClearSelected()
		return
	}
	s.SetSelectedIndex(idx)
}

// remountProgress swaps in a fresh indicator so the animation restarts
// with every page.
func (h *Header) remountProgress() {
	if h.progress != nil {
		h.progress.Stop()
	}
	h.progress = widget.NewProgressBarInfinite()
	h.progress.Hide()
	h.progress.Stop()
	h.progressMounts++
	h.progressSlot.Objects = []fyne.CanvasObject{h.progress}
	h.progressSlot.Refresh()
}

func (h *Header) setProgressVisible(visible bool) {
	if h.progress == nil {
		return
	}
	if visible {
		h.progress.Show()
		h.progress.Start()
		return
	}
	h.progress.Stop()
	h.progress.Hide()
}
