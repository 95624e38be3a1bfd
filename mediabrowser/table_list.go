package mediabrowser

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/widget"
)

// TableList lists assets one per row. Like the grid it shows placeholder
// rows for the next page and asks for more once they are bound.
type TableList struct {
	widget.BaseWidget
	host cardHost
	list *widget.List

	items     []Item
	itemCount int
	selected  idSet
	shift     bool

	requested bool
	// the list has no scroller until it is rendered
	hasRenderer bool

	// OnNearEnd is called once per data set when a row at or past the
	// last loaded item is bound.
	OnNearEnd func()
}

func NewTableList(host cardHost) *TableList {
	t := &TableList{host: host, selected: idSet{}}
	t.list = widget.NewList(
		func() int { return t.itemCount },
		func() fyne.CanvasObject { return newAssetCard(t.host, TableView) },
		func(id widget.ListItemID, o fyne.CanvasObject) {
			t.bindRow(id, o.(*assetCard))
		},
	)
	t.ExtendBaseWidget(t)
	return t
}

func (t *TableList) CreateRenderer() fyne.WidgetRenderer {
	t.hasRenderer = true
	return widget.NewSimpleRenderer(t.list)
}

func (t *TableList) SetData(items []Item, itemCount int, selected []Asset) {
	if itemCount < len(items) {
		itemCount = len(items)
	}
	if len(items) != len(t.items) || itemCount != t.itemCount {
		t.requested = false
	}
	t.items = items
	t.itemCount = itemCount
	t.selected = newIDSet(selected)
	t.list.Refresh()
}

func (t *TableList) SetShiftPressed(pressed bool) {
	if t.shift == pressed {
		return
	}
	t.shift = pressed
	t.list.Refresh()
}

func (t *TableList) ScrollToTop() {
	if !t.hasRenderer {
		return
	}
	t.list.ScrollToTop()
}

func (t *TableList) bindRow(id widget.ListItemID, card *assetCard) {
	var item *Item
	selected := false
	if id < len(t.items) {
		item = &t.items[id]
		selected = t.selected.has(item.Asset.ID)
	}
	card.bind(id, item, selected, t.shift)

	if id >= len(t.items)-1 && !t.requested && t.OnNearEnd != nil {
		t.requested = true
		fyne.Do(t.OnNearEnd)
	}
}
