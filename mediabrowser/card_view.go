package mediabrowser

import (
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// CardView is the virtualized grid of asset cards. Only the rows inside
// the viewport plus OverscanRows on each side hold a card; cards leaving
// the window are pooled and reused.
type CardView struct {
	widget.BaseWidget
	host cardHost

	scroll  *container.Scroll
	content *fyne.Container
	marquee *marquee

	items     []Item
	itemCount int
	selected  idSet
	shift     bool

	grid        GridLayout
	rendered    RenderedRange
	hasRendered bool

	active map[int]*assetCard
	pool   []*assetCard

	rendering bool
	dirty     bool

	// OnItemsRendered is called whenever the rendered window changes.
	OnItemsRendered func(RenderedRange)
	// OnMarquee receives the loaded item indexes under the rubber band.
	OnMarquee func(indexes []int)

	dragSelecting  bool
	lastDragTime   time.Time
	lastMarquee    []int
	dragStartY     float32 // content coordinates
	dragStartX     float32
	dragCur        fyne.Position // viewport coordinates
	autoScrollStop chan struct{}
	autoScrollDir  int
	autoScrollStep float32
}

func NewCardView(host cardHost) *CardView {
	v := &CardView{
		host:     host,
		active:   make(map[int]*assetCard),
		selected: idSet{},
	}
	v.content = container.New(&windowLayout{view: v})
	v.scroll = container.NewVScroll(v.content)
	v.scroll.OnScrolled = func(fyne.Position) {
		v.updateWindow()
	}
	v.marquee = newMarquee(v.scroll, v.onMarqueeDrag, v.onMarqueeEnd)
	v.ExtendBaseWidget(v)
	return v
}

func (v *CardView) CreateRenderer() fyne.WidgetRenderer {
	return &cardViewRenderer{view: v}
}

// SetData replaces the items shown. itemCount may exceed len(items), the
// extra cells render as loading placeholders.
func (v *CardView) SetData(items []Item, itemCount int, selected []Asset) {
	if itemCount < len(items) {
		itemCount = len(items)
	}
	v.items = items
	v.itemCount = itemCount
	v.selected = newIDSet(selected)

	v.content.Refresh()
	v.scroll.Refresh()
	v.updateWindow()
}

// SetShiftPressed forwards the tracked shift state to every card.
func (v *CardView) SetShiftPressed(pressed bool) {
	if v.shift == pressed {
		return
	}
	v.shift = pressed
	v.updateWindow()
}

// Rendered returns the last rendered window, false while nothing is drawn.
func (v *CardView) Rendered() (RenderedRange, bool) {
	return v.rendered, v.hasRendered
}

// ScrollToTop resets the scroll position, used when the query changes.
func (v *CardView) ScrollToTop() {
	v.scroll.ScrollToTop()
	v.updateWindow()
}

func (v *CardView) updateWindow() {
	if v.rendering {
		v.dirty = true
		return
	}
	v.rendering = true
	defer func() { v.rendering = false }()

	for {
		v.dirty = false
		rng, changed := v.renderWindow()
		if changed && v.OnItemsRendered != nil && v.hasRendered {
			v.OnItemsRendered(rng)
		}
		if !v.dirty {
			return
		}
	}
}

func (v *CardView) renderWindow() (RenderedRange, bool) {
	viewport := v.scroll.Size()
	v.grid = ComputeGridLayout(viewport.Width, v.itemCount)

	rng, ok := v.grid.VisibleRange(v.scroll.Offset.Y, viewport.Height, OverscanRows)
	if !ok {
		v.releaseAll()
		changed := v.hasRendered
		v.hasRendered = false
		v.rendered = RenderedRange{}
		return RenderedRange{}, changed
	}

	first := v.grid.CellIndex(rng.OverscanRowStart, rng.ColumnStart)
	last := min(v.grid.CellIndex(rng.OverscanRowStop, rng.ColumnStop), v.itemCount-1)

	// cards that left the window go back to the pool before any is taken
	for i, card := range v.active {
		if i < first || i > last {
			v.recycle(card)
			delete(v.active, i)
		}
	}

	keep := make(map[int]*assetCard, last-first+1)
	for row := rng.OverscanRowStart; row <= rng.OverscanRowStop; row++ {
		for col := rng.ColumnStart; col <= rng.ColumnStop; col++ {
			i := v.grid.CellIndex(row, col)
			if i < 0 || i >= v.itemCount {
				continue
			}

			card, ok := v.active[i]
			if !ok {
				card = v.acquire()
			}
			delete(v.active, i)
			keep[i] = card

			var item *Item
			selected := false
			if i < len(v.items) {
				item = &v.items[i]
				selected = v.selected.has(item.Asset.ID)
			}
			card.bind(i, item, selected, v.shift)

			pos, size := InsetCell(v.grid.CellBounds(row, col))
			card.Move(pos)
			card.Resize(size)
			card.Show()
		}
	}

	for _, card := range v.active {
		v.recycle(card)
	}
	v.active = keep

	objects := make([]fyne.CanvasObject, 0, len(keep))
	for _, card := range keep {
		objects = append(objects, card)
	}
	v.content.Objects = objects
	v.content.Refresh()

	changed := !v.hasRendered || rng != v.rendered
	v.rendered = rng
	v.hasRendered = true
	return rng, changed
}

func (v *CardView) acquire() *assetCard {
	if n := len(v.pool); n > 0 {
		card := v.pool[n-1]
		v.pool = v.pool[:n-1]
		return card
	}
	return newAssetCard(v.host, GridView)
}

func (v *CardView) recycle(card *assetCard) {
	card.release()
	card.Hide()
	v.pool = append(v.pool, card)
}

func (v *CardView) releaseAll() {
	for i, card := range v.active {
		v.recycle(card)
		delete(v.active, i)
	}
	v.content.Objects = nil
}

// cardAt returns the active card showing index, for tests and focus.
func (v *CardView) cardAt(index int) *assetCard {
	return v.active[index]
}

// recentlyDragged guards card clicks fired at the end of a marquee drag.
func (v *CardView) recentlyDragged() bool {
	return v.dragSelecting || time.Since(v.lastDragTime) < 200*time.Millisecond
}

func (v *CardView) onMarqueeDrag(start, cur fyne.Position) {
	first := !v.dragSelecting
	v.dragSelecting = true
	if v.itemCount == 0 {
		return
	}

	v.dragCur = cur
	if first {
		v.dragStartX = start.X
		v.dragStartY = start.Y + v.scroll.Offset.Y
	}

	v.updateAutoScroll()
	v.updateMarqueeSelection()
}

func (v *CardView) updateMarqueeSelection() {
	if !v.dragSelecting {
		return
	}

	offset := v.scroll.Offset.Y
	v.marquee.setStart(fyne.NewPos(v.dragStartX, v.dragStartY-offset))

	start := fyne.NewPos(v.dragStartX, v.dragStartY)
	cur := fyne.NewPos(v.dragCur.X, v.dragCur.Y+offset)
	tl, br := normalizeRect(start, cur)

	ids := v.grid.IndexesIn(tl, br, len(v.items))
	if sameIndexes(v.lastMarquee, ids) {
		return
	}
	v.lastMarquee = ids
	if v.OnMarquee != nil {
		v.OnMarquee(ids)
	}
}

func (v *CardView) onMarqueeEnd() {
	v.stopAutoScroll()
	v.lastMarquee = nil
	v.dragSelecting = false
	v.lastDragTime = time.Now()
}

func (v *CardView) maxScrollOffset() float32 {
	total := v.grid.ContentSize().Height
	limit := total - v.scroll.Size().Height
	if limit < 0 {
		return 0
	}
	return limit
}

func (v *CardView) updateAutoScroll() {
	height := v.marquee.Size().Height
	if !v.dragSelecting || height <= 0 {
		v.stopAutoScroll()
		return
	}

	zone := fyne.Max(theme.Padding()*4, 24)
	zone = fyne.Min(zone, height/2)

	var dir int
	var intensity float32
	if v.dragCur.Y < zone {
		dir = -1
		intensity = (zone - v.dragCur.Y) / zone
	} else if v.dragCur.Y > height-zone {
		dir = 1
		intensity = (v.dragCur.Y - (height - zone)) / zone
	}
	intensity = fyne.Min(intensity, 1)

	if dir == 0 || intensity <= 0 {
		v.stopAutoScroll()
		return
	}

	v.autoScrollDir = dir
	v.autoScrollStep = intensity * (CardHeight / 4)
	v.startAutoScroll()
}

func (v *CardView) startAutoScroll() {
	if v.autoScrollStop != nil {
		return
	}
	stop := make(chan struct{})
	v.autoScrollStop = stop

	ticker := time.NewTicker(30 * time.Millisecond)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fyne.Do(v.autoScrollTick)
			case <-stop:
				return
			}
		}
	}()
}

func (v *CardView) stopAutoScroll() {
	if v.autoScrollStop == nil {
		return
	}
	close(v.autoScrollStop)
	v.autoScrollStop = nil
	v.autoScrollDir = 0
	v.autoScrollStep = 0
}

func (v *CardView) autoScrollTick() {
	if !v.dragSelecting || v.autoScrollDir == 0 {
		v.stopAutoScroll()
		return
	}

	offset := v.scroll.Offset.Y
	next := offset + float32(v.autoScrollDir)*v.autoScrollStep
	next = fyne.Max(0, fyne.Min(next, v.maxScrollOffset()))
	if next == offset {
		v.stopAutoScroll()
		return
	}

	v.scroll.ScrollToOffset(fyne.NewPos(0, next))
	v.updateWindow()
	v.updateMarqueeSelection()
}

func sameIndexes(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// windowLayout sizes the scroll content to the full grid height. Cells are
// positioned by the view itself.
type windowLayout struct {
	view *CardView
}

func (l *windowLayout) Layout([]fyne.CanvasObject, fyne.Size) {}

func (l *windowLayout) MinSize([]fyne.CanvasObject) fyne.Size {
	width := l.view.scroll.Size().Width
	g := ComputeGridLayout(width, l.view.itemCount)
	return fyne.NewSize(0, g.ContentSize().Height)
}

type cardViewRenderer struct {
	view *CardView
}

func (r *cardViewRenderer) Layout(size fyne.Size) {
	r.view.marquee.Resize(size)
	r.view.marquee.Move(fyne.NewPos(0, 0))
	r.view.content.Refresh()
	r.view.scroll.Refresh()
	r.view.updateWindow()
}

func (r *cardViewRenderer) MinSize() fyne.Size {
	return fyne.NewSize(CardWidth, CardHeight)
}

func (r *cardViewRenderer) Refresh() {
	r.view.marquee.Refresh()
	r.view.updateWindow()
}

func (r *cardViewRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.view.marquee}
}

func (r *cardViewRenderer) Destroy() {
	r.view.stopAutoScroll()
	for _, card := range r.view.active {
		card.release()
	}
}
