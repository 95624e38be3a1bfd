//go:build !flatpak || windows || android || ios || wasm || js

package mediabrowser

import (
	"fyne.io/fyne/v2"
	fynedialog "fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
)

func chooseImportFiles(parent fyne.Window, done func(paths []string, err error)) {
	d := fynedialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			fyne.Do(func() { done(nil, err) })
			return
		}
		path := reader.URI().Path()
		_ = reader.Close()
		fyne.Do(func() { done([]string{path}, nil) })
	}, parent)
	d.SetFilter(storage.NewExtensionFileFilter(importExtensions))
	d.Show()
}
