//go:build flatpak && !windows && !android && !ios && !wasm && !js

package mediabrowser

import (
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver"
	"fyne.io/fyne/v2/lang"
	"fyne.io/fyne/v2/storage"

	"github.com/rymdport/portal"
	"github.com/rymdport/portal/filechooser"
)

// chooseImportFiles asks the xdg desktop portal for files to import, the
// sandbox has no direct view of the host file system.
func chooseImportFiles(parent fyne.Window, done func(paths []string, err error)) {
	filter := mediaFilterForPortal()
	options := &filechooser.OpenFileOptions{
		AcceptLabel:   lang.L("Import"),
		Multiple:      true,
		Filters:       []*filechooser.Filter{filter},
		CurrentFilter: filter,
	}
	windowHandle := windowHandleForPortal(parent)

	go func() {
		uris, err := filechooser.OpenFile(windowHandle, lang.L("Import Media"), options)
		if err != nil {
			fyne.Do(func() { done(nil, err) })
			return
		}

		paths := make([]string, 0, len(uris))
		for _, raw := range uris {
			uri, parseErr := storage.ParseURI(raw)
			if parseErr != nil {
				err = parseErr
				break
			}
			paths = append(paths, uri.Path())
		}
		if err != nil {
			paths = nil
		}
		fyne.Do(func() { done(paths, err) })
	}()
}

func windowHandleForPortal(window fyne.Window) string {
	native, ok := window.(driver.NativeWindow)
	if !ok {
		return ""
	}

	windowHandle := ""
	native.RunNative(func(context any) {
		if x11, ok := context.(driver.X11WindowContext); ok {
			windowHandle = portal.FormatX11WindowHandle(x11.WindowHandle)
		}
	})
	return windowHandle
}

func mediaFilterForPortal() *filechooser.Filter {
	rules := make([]filechooser.Rule, 0, 2*len(importExtensions))
	for _, ext := range importExtensions {
		rules = append(rules,
			filechooser.Rule{Type: filechooser.GlobPattern, Pattern: "*" + strings.ToLower(ext)},
			filechooser.Rule{Type: filechooser.GlobPattern, Pattern: "*" + strings.ToUpper(ext)},
		)
	}
	return &filechooser.Filter{Name: formatFilterName(importExtensions, 3), Rules: rules}
}

func formatFilterName(patterns []string, count int) string {
	if len(patterns) < count {
		count = len(patterns)
	}

	name := strings.Join(patterns[:count], ", ")
	if len(patterns) > count {
		name += "…"
	}
	return name
}
