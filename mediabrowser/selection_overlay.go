package mediabrowser

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// marquee draws the rubber band rectangle over the grid and reports the
// dragged box in its own coordinates.
type marquee struct {
	widget.BaseWidget
	content fyne.CanvasObject

	rect *canvas.Rectangle

	startPos fyne.Position
	curPos   fyne.Position
	dragging bool

	onChanged func(start, cur fyne.Position)
	onEnd     func()
}

var _ fyne.Draggable = (*marquee)(nil)

func newMarquee(content fyne.CanvasObject, onChanged func(start, cur fyne.Position), onEnd func()) *marquee {
	m := &marquee{
		content:   content,
		rect:      canvas.NewRectangle(color.Transparent),
		onChanged: onChanged,
		onEnd:     onEnd,
	}
	m.rect.StrokeWidth = 2
	m.applyTheme()
	m.rect.Hide()
	m.ExtendBaseWidget(m)
	return m
}

func (m *marquee) applyTheme() {
	m.rect.StrokeColor = theme.Color(theme.ColorNamePrimary)
	r, g, b, _ := theme.Color(theme.ColorNameFocus).RGBA()
	m.rect.FillColor = color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 64}
}

func (m *marquee) CreateRenderer() fyne.WidgetRenderer {
	return &marqueeRenderer{m: m}
}

func (m *marquee) Dragged(e *fyne.DragEvent) {
	if !m.dragging {
		m.dragging = true
		m.startPos = e.Position.Subtract(e.Dragged)
		m.rect.Show()
	}

	m.curPos = e.Position
	m.setStart(m.startPos)

	if m.onChanged != nil {
		m.onChanged(m.startPos, m.curPos)
	}
}

func (m *marquee) DragEnd() {
	if !m.dragging {
		return
	}
	m.dragging = false
	m.rect.Hide()
	m.rect.Refresh()

	if m.onEnd != nil {
		m.onEnd()
	}
}

// setStart re-anchors the band, used while the grid auto scrolls.
func (m *marquee) setStart(p fyne.Position) {
	m.startPos = p
	tl, br := normalizeRect(m.startPos, m.curPos)
	m.rect.Move(tl)
	m.rect.Resize(fyne.NewSize(br.X-tl.X, br.Y-tl.Y))
	m.rect.Refresh()
}

func normalizeRect(a, b fyne.Position) (fyne.Position, fyne.Position) {
	return fyne.NewPos(fyne.Min(a.X, b.X), fyne.Min(a.Y, b.Y)),
		fyne.NewPos(fyne.Max(a.X, b.X), fyne.Max(a.Y, b.Y))
}

type marqueeRenderer struct {
	m *marquee
}

func (r *marqueeRenderer) Layout(size fyne.Size) {
	r.m.content.Resize(size)
	r.m.content.Move(fyne.NewPos(0, 0))
}

func (r *marqueeRenderer) MinSize() fyne.Size {
	return r.m.content.MinSize()
}

func (r *marqueeRenderer) Refresh() {
	r.m.applyTheme()
	r.m.content.Refresh()
	r.m.rect.Refresh()
}

func (r *marqueeRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.m.content, r.m.rect}
}

func (r *marqueeRenderer) Destroy() {}
