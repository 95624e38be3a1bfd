package mediabrowser

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/lang"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/FyshOS/fancyfs"
)

// folderBacked is implemented by sources reading from a local directory.
type folderBacked interface {
	RootPath() string
}

// emptyState is shown instead of the views when a query matched nothing.
type emptyState struct {
	content *fyne.Container
	artwork *canvas.Image
	icon    *widget.Icon
	message *widget.Label
}

func newEmptyState(source AssetSource) *emptyState {
	e := &emptyState{
		artwork: canvas.NewImageFromResource(nil),
		icon:    widget.NewIcon(theme.MediaPhotoIcon()),
		message: widget.NewLabelWithStyle(lang.L("No media"), fyne.TextAlignCenter, fyne.TextStyle{}),
	}
	e.artwork.FillMode = canvas.ImageFillContain
	e.artwork.SetMinSize(fyne.NewSquareSize(thumbnailSize))
	e.artwork.Hide()

	if fb, ok := source.(folderBacked); ok && fb.RootPath() != "" {
		e.applyFolderArtwork(fb.RootPath())
	}

	art := container.NewStack(container.NewGridWrap(fyne.NewSquareSize(thumbnailSize), e.icon), e.artwork)
	e.content = container.NewCenter(container.NewVBox(container.NewCenter(art), e.message))
	e.content.Hide()
	return e
}

func (e *emptyState) applyFolderArtwork(root string) {
	details, err := fancyfs.DetailsForFolder(storage.NewFileURI(root))
	if err != nil || details == nil {
		return
	}
	if details.BackgroundURI != nil {
		e.artwork.File = details.BackgroundURI.Path()
		e.artwork.FillMode = details.BackgroundFill
	} else if details.BackgroundResource != nil {
		e.artwork.Resource = details.BackgroundResource
	} else {
		return
	}
	e.icon.Hide()
	e.artwork.Show()
	e.artwork.Refresh()
}

func (e *emptyState) update(a AssetsState) {
	switch {
	case len(a.Items) > 0 || a.Fetching:
		e.content.Hide()
		return
	case a.Err != nil:
		e.message.SetText(lang.L("Could not load media"))
	case a.Search != "":
		e.message.SetText(lang.L("No media matches your search"))
	default:
		e.message.SetText(lang.L("No media"))
	}
	e.content.Show()
}
