package mediabrowser

import (
	"math"

	"fyne.io/fyne/v2"
)

// Card geometry of the grid view.
const (
	CardWidth    float32 = 260
	CardHeight   float32 = 220
	CellInset    float32 = 10
	OverscanRows         = 1
)

// GridLayout maps a flat item list onto rows and columns of fixed size cells.
// The zero value is an empty grid.
type GridLayout struct {
	ColumnCount int
	RowCount    int
	// OffsetX centres the columns inside the available width
	OffsetX float32
}

// ComputeGridLayout derives the grid for width pixels and itemCount items.
// A width narrower than one card, or non positive input, yields an empty
// grid rather than a division by zero.
func ComputeGridLayout(width float32, itemCount int) GridLayout {
	if width <= 0 || itemCount <= 0 || math.IsNaN(float64(width)) || math.IsInf(float64(width), 0) {
		return GridLayout{}
	}

	cols := int(math.Floor(float64(width / CardWidth)))
	if cols < 1 {
		return GridLayout{}
	}

	return GridLayout{
		ColumnCount: cols,
		RowCount:    (itemCount + cols - 1) / cols,
		OffsetX:     (width - float32(cols)*CardWidth) / 2,
	}
}

// Empty reports whether nothing can be rendered.
func (g GridLayout) Empty() bool {
	return g.ColumnCount <= 0 || g.RowCount <= 0
}

// CellIndex returns the item index of a cell, or -1 outside the grid.
func (g GridLayout) CellIndex(row, col int) int {
	if g.Empty() || row < 0 || col < 0 || row >= g.RowCount || col >= g.ColumnCount {
		return -1
	}
	return g.ColumnCount*row + col
}

// ContentSize is the size of the whole scrollable grid.
func (g GridLayout) ContentSize() fyne.Size {
	if g.Empty() {
		return fyne.NewSize(0, 0)
	}
	return fyne.NewSize(float32(g.ColumnCount)*CardWidth, float32(g.RowCount)*CardHeight)
}

// CellBounds returns the raw box of a cell as the windowing math sees it.
func (g GridLayout) CellBounds(row, col int) (fyne.Position, fyne.Size) {
	pos := fyne.NewPos(g.OffsetX+float32(col)*CardWidth, float32(row)*CardHeight)
	return pos, fyne.NewSize(CardWidth, CardHeight)
}

// InsetCell carves the gutter out of a raw cell box.
func InsetCell(pos fyne.Position, size fyne.Size) (fyne.Position, fyne.Size) {
	w := size.Width - 2*CellInset
	h := size.Height - 2*CellInset
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return fyne.NewPos(pos.X+CellInset, pos.Y+CellInset), fyne.NewSize(w, h)
}

// RenderedRange describes the cells currently rendered. Stop indexes are
// inclusive.
type RenderedRange struct {
	OverscanRowStart int
	OverscanRowStop  int
	VisibleRowStart  int
	VisibleRowStop   int
	ColumnStart      int
	ColumnStop       int
}

// LastIndex is the highest item index covered by the range.
func (r RenderedRange) LastIndex(columns int) int {
	return r.OverscanRowStop*columns + r.ColumnStop
}

// VisibleRange returns the rows intersecting the viewport scrolled to
// offsetY, extended by overscan rows on both sides.
func (g GridLayout) VisibleRange(offsetY, viewportHeight float32, overscan int) (RenderedRange, bool) {
	if g.Empty() || viewportHeight <= 0 {
		return RenderedRange{}, false
	}
	if offsetY < 0 {
		offsetY = 0
	}
	if overscan < 0 {
		overscan = 0
	}

	lastRow := g.RowCount - 1
	start := int(offsetY / CardHeight)
	if start > lastRow {
		start = lastRow
	}
	stop := int(math.Ceil(float64((offsetY+viewportHeight)/CardHeight))) - 1
	if stop < start {
		stop = start
	}
	if stop > lastRow {
		stop = lastRow
	}

	return RenderedRange{
		OverscanRowStart: max(0, start-overscan),
		OverscanRowStop:  min(lastRow, stop+overscan),
		VisibleRowStart:  start,
		VisibleRowStop:   stop,
		ColumnStart:      0,
		ColumnStop:       g.ColumnCount - 1,
	}, true
}

// IndexAt maps a point in content coordinates to an item index, or -1.
func (g GridLayout) IndexAt(p fyne.Position) int {
	if g.Empty() || p.X < g.OffsetX || p.Y < 0 {
		return -1
	}
	col := int((p.X - g.OffsetX) / CardWidth)
	row := int(p.Y / CardHeight)
	return g.CellIndex(row, col)
}

// IndexesIn returns the item indexes of every cell whose inset card box
// intersects the rectangle tl-br, in row major order.
func (g GridLayout) IndexesIn(tl, br fyne.Position, itemCount int) []int {
	if g.Empty() {
		return nil
	}

	startRow := max(0, int(tl.Y/CardHeight))
	endRow := min(g.RowCount-1, int(br.Y/CardHeight))
	startCol := max(0, int((tl.X-g.OffsetX)/CardWidth))
	endCol := min(g.ColumnCount-1, int((br.X-g.OffsetX)/CardWidth))

	var ids []int
	for row := startRow; row <= endRow; row++ {
		for col := startCol; col <= endCol; col++ {
			i := g.CellIndex(row, col)
			if i < 0 || i >= itemCount {
				continue
			}
			pos, size := InsetCell(g.CellBounds(row, col))
			x1, y1 := pos.X, pos.Y
			x2, y2 := x1+size.Width, y1+size.Height
			if x1 < br.X && x2 > tl.X && y1 < br.Y && y2 > tl.Y {
				ids = append(ids, i)
			}
		}
	}
	return ids
}
