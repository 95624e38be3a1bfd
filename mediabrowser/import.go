package mediabrowser

import (
	"context"

	"fyne.io/fyne/v2"
	fynedialog "fyne.io/fyne/v2/dialog"
)

// importExtensions are offered by the file chooser when importing.
var importExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tif", ".tiff", ".svg",
	".mp4", ".mov", ".webm", ".mkv", ".pdf",
}

// startImport lets the user pick files, hands them to the importer and
// reloads the listing once they are stored.
func (b *Browser) startImport() {
	importer, ok := b.opts.Source.(Importer)
	if !ok || b.window == nil {
		return
	}

	chooseImportFiles(b.window, func(paths []string, err error) {
		if err != nil {
			fynedialog.ShowError(err, b.window)
			return
		}
		if len(paths) == 0 {
			return
		}

		log := b.log.With().Int("files", len(paths)).Logger()
		go func() {
			imported, err := importer.Import(context.Background(), paths)
			fyne.Do(func() {
				if err != nil {
					log.Warn().Err(err).Msg("import failed")
					if b.window != nil {
						fynedialog.ShowError(err, b.window)
					}
				}
				if len(imported) == 0 || !b.mounted {
					return
				}
				log.Info().Int("imported", len(imported)).Msg("assets imported")
				b.store.Dispatch(AssetsRefresh())
			})
		}()
	})
}
