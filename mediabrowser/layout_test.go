package mediabrowser

import (
	"math"
	"testing"

	"fyne.io/fyne/v2"
)

func TestComputeGridLayout_Columns(t *testing.T) {
	tests := []struct {
		width float32
		cols  int
	}{
		{259, 0},
		{260, 1},
		{519, 1},
		{520, 2},
		{1040, 4},
		{1100, 4},
	}
	for _, tt := range tests {
		g := ComputeGridLayout(tt.width, 10)
		if g.ColumnCount != tt.cols {
			t.Errorf("width %v: expected %d columns, got %d", tt.width, tt.cols, g.ColumnCount)
		}
	}
}

func TestComputeGridLayout_RowsRoundUp(t *testing.T) {
	g := ComputeGridLayout(4*CardWidth, 101)
	if g.ColumnCount != 4 || g.RowCount != 26 {
		t.Fatalf("expected 4x26 grid for 101 items, got %dx%d", g.ColumnCount, g.RowCount)
	}

	g = ComputeGridLayout(4*CardWidth, 100)
	if g.RowCount != 25 {
		t.Fatalf("expected 25 rows for 100 items, got %d", g.RowCount)
	}
}

func TestComputeGridLayout_ZeroColumnsRendersNothing(t *testing.T) {
	inputs := []struct {
		width float32
		items int
	}{
		{CardWidth - 1, 10},
		{0, 10},
		{-100, 10},
		{float32(math.NaN()), 10},
		{float32(math.Inf(1)), 10},
		{1000, 0},
		{1000, -3},
	}
	for _, in := range inputs {
		g := ComputeGridLayout(in.width, in.items)
		if !g.Empty() {
			t.Errorf("width %v items %d: expected empty grid, got %+v", in.width, in.items, g)
		}
		if _, ok := g.VisibleRange(0, 600, OverscanRows); ok {
			t.Errorf("width %v items %d: expected no visible range", in.width, in.items)
		}
		if g.CellIndex(0, 0) != -1 {
			t.Errorf("width %v items %d: expected no cell", in.width, in.items)
		}
	}
}

func TestGridLayout_CellIndex(t *testing.T) {
	g := ComputeGridLayout(4*CardWidth, 40)
	if got := g.CellIndex(2, 1); got != 9 {
		t.Fatalf("expected row 2 col 1 to be index 9, got %d", got)
	}
	if got := g.CellIndex(0, 4); got != -1 {
		t.Fatalf("expected column past the grid to be -1, got %d", got)
	}
	if got := g.CellIndex(10, 0); got != -1 {
		t.Fatalf("expected row past the grid to be -1, got %d", got)
	}
}

func TestGridLayout_CentredOffset(t *testing.T) {
	g := ComputeGridLayout(1100, 10)
	if g.OffsetX != 30 {
		t.Fatalf("expected 30px centring offset, got %v", g.OffsetX)
	}
	pos, size := g.CellBounds(1, 2)
	if pos != fyne.NewPos(30+2*CardWidth, CardHeight) || size != fyne.NewSize(CardWidth, CardHeight) {
		t.Fatalf("unexpected cell bounds %v %v", pos, size)
	}
}

func TestInsetCell(t *testing.T) {
	pos, size := InsetCell(fyne.NewPos(0, 220), fyne.NewSize(CardWidth, CardHeight))
	if pos != fyne.NewPos(10, 230) {
		t.Fatalf("expected inset position 10,230, got %v", pos)
	}
	if size != fyne.NewSize(240, 200) {
		t.Fatalf("expected inset size 240x200, got %v", size)
	}

	_, size = InsetCell(fyne.NewPos(0, 0), fyne.NewSize(5, 5))
	if size.Width != 0 || size.Height != 0 {
		t.Fatalf("expected tiny cell to collapse, got %v", size)
	}
}

func TestGridLayout_VisibleRangeWithOverscan(t *testing.T) {
	g := ComputeGridLayout(3*CardWidth, 300) // 100 rows

	r, ok := g.VisibleRange(0, 2*CardHeight, OverscanRows)
	if !ok {
		t.Fatal("expected a visible range")
	}
	if r.VisibleRowStart != 0 || r.VisibleRowStop != 1 {
		t.Fatalf("expected visible rows 0-1, got %d-%d", r.VisibleRowStart, r.VisibleRowStop)
	}
	if r.OverscanRowStart != 0 || r.OverscanRowStop != 2 {
		t.Fatalf("expected overscan rows 0-2, got %d-%d", r.OverscanRowStart, r.OverscanRowStop)
	}
	if r.ColumnStart != 0 || r.ColumnStop != 2 {
		t.Fatalf("expected columns 0-2, got %d-%d", r.ColumnStart, r.ColumnStop)
	}
	if got := r.LastIndex(3); got != 8 {
		t.Fatalf("expected last rendered index 8, got %d", got)
	}

	r, _ = g.VisibleRange(10*CardHeight+5, 2*CardHeight, OverscanRows)
	if r.VisibleRowStart != 10 || r.VisibleRowStop != 12 {
		t.Fatalf("expected visible rows 10-12, got %d-%d", r.VisibleRowStart, r.VisibleRowStop)
	}
	if r.OverscanRowStart != 9 || r.OverscanRowStop != 13 {
		t.Fatalf("expected overscan rows 9-13, got %d-%d", r.OverscanRowStart, r.OverscanRowStop)
	}

	r, _ = g.VisibleRange(1e6, 2*CardHeight, OverscanRows)
	if r.OverscanRowStop != 99 || r.VisibleRowStart != 99 {
		t.Fatalf("expected range clamped to the last row, got %+v", r)
	}
}

func TestGridLayout_IndexesIn(t *testing.T) {
	g := ComputeGridLayout(3*CardWidth, 7)

	// covers the first two cards of row 0 only
	ids := g.IndexesIn(fyne.NewPos(15, 15), fyne.NewPos(CardWidth+20, 100), 7)
	if len(ids) != 2 || ids[0] != 0 || ids[1] != 1 {
		t.Fatalf("expected [0 1], got %v", ids)
	}

	// the gutter between cards selects nothing
	ids = g.IndexesIn(fyne.NewPos(CardWidth-8, 5), fyne.NewPos(CardWidth+8, 8), 7)
	if len(ids) != 0 {
		t.Fatalf("expected empty selection in the gutter, got %v", ids)
	}

	// cells past the loaded items are skipped
	ids = g.IndexesIn(fyne.NewPos(0, 0), fyne.NewPos(3*CardWidth, 3*CardHeight), 5)
	if len(ids) != 5 {
		t.Fatalf("expected 5 loaded items, got %v", ids)
	}

	if got := g.IndexAt(fyne.NewPos(CardWidth+1, CardHeight+1)); got != 4 {
		t.Fatalf("expected index 4 under the pointer, got %d", got)
	}
}
