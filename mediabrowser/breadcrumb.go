package mediabrowser

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// breadcrumb shows "› <Type>" next to the title while a document is set.
type breadcrumb struct {
	content *fyne.Container
	icon    *widget.Icon
	label   *widget.Label
	caser   cases.Caser
}

func newBreadcrumb() *breadcrumb {
	b := &breadcrumb{
		icon:  widget.NewIcon(theme.NavigateNextIcon()),
		label: widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		caser: cases.Title(language.Und, cases.NoLower),
	}
	b.content = container.NewHBox(b.icon, b.label)
	b.content.Hide()
	return b
}

func (b *breadcrumb) update(doc *Document) {
	if b == nil || b.content == nil {
		return
	}
	if doc == nil {
		b.label.SetText("")
		b.content.Hide()
		return
	}

	b.label.SetText(b.caser.String(doc.Type))
	b.content.Show()
	b.content.Refresh()
}
