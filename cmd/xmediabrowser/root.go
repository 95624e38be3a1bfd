package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/alexballas/xmediabrowser/internal/assets"
	"github.com/alexballas/xmediabrowser/internal/config"
	"github.com/alexballas/xmediabrowser/internal/logging"
	"github.com/alexballas/xmediabrowser/mediabrowser"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "v0.1.0-dev"

type rootFlags struct {
	configPath   string
	library      string
	remote       string
	token        string
	documentType string
	view         string
	debug        bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "xmediabrowser",
		Short: "Browse and pick media from a library folder or an asset service",
		Long: `xmediabrowser opens a media browser window over a local library
directory or a remote asset service.

With --document-type the browser runs in insert mode and prints the picked
assets to stdout as JSON, one object per line.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, *flags)
			if err != nil {
				return err
			}
			log := logging.New(cfg.Log.Level, os.Stderr)
			return run(cfg, log, cmd.OutOrStdout())
		},
	}

	bindFlags(rootCmd, flags)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "xmediabrowser", Version)
		},
	})
	return rootCmd
}

func bindFlags(cmd *cobra.Command, flags *rootFlags) {
	f := cmd.Flags()
	f.StringVar(&flags.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/xmediabrowser/config.yaml)")
	f.StringVar(&flags.library, "library", "", "local media library directory")
	f.StringVar(&flags.remote, "remote", "", "asset service base URL")
	f.StringVar(&flags.token, "token", "", "asset service bearer token")
	f.StringVar(&flags.documentType, "document-type", "", "insert media into a document of this type")
	f.StringVar(&flags.view, "view", "", "initial view: grid or table")
	f.BoolVar(&flags.debug, "debug", false, "enable debug logging")
}

// resolveConfig loads the config file and applies the flags that were set.
func resolveConfig(cmd *cobra.Command, flags rootFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.configPath != "" {
		cfg, err = config.LoadFile(flags.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("library") {
		cfg.Library = flags.library
		cfg.Remote.URL = ""
	}
	if changed("remote") {
		cfg.Remote.URL = flags.remote
	}
	if changed("token") {
		cfg.Remote.Token = flags.token
	}
	if changed("document-type") {
		cfg.Browser.DocumentType = flags.documentType
	}
	if changed("view") {
		cfg.Browser.View = flags.view
	}
	if flags.debug {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Library == "" && cfg.Remote.URL == "" {
		return nil, errors.New("no media source: set --library or --remote")
	}
	return cfg, nil
}

// openSource builds the configured source. The returned stop func releases
// the library watcher.
func openSource(cfg *config.Config, log zerolog.Logger, onChange func()) (mediabrowser.AssetSource, func(), error) {
	if cfg.Remote.URL != "" {
		src, err := assets.NewRemoteSource(assets.RemoteOptions{
			BaseURL: cfg.Remote.URL,
			Token:   cfg.Remote.Token,
			Logger:  log,
		})
		if err != nil {
			return nil, nil, err
		}
		return src, func() {}, nil
	}

	src, err := assets.NewLocalSource(cfg.Library, cfg.Browser.Filters, log)
	if err != nil {
		return nil, nil, err
	}
	watcher, err := assets.NewWatcher(src.RootPath(), func() {
		src.Invalidate()
		onChange()
	}, log)
	if err != nil {
		log.Warn().Err(err).Msg("library changes will not be picked up")
		return src, func() {}, nil
	}
	if err := watcher.Start(); err != nil {
		return nil, nil, err
	}
	return src, watcher.Stop, nil
}

func run(cfg *config.Config, log zerolog.Logger, out io.Writer) error {
	a := app.NewWithID("io.github.alexballas.xmediabrowser")
	w := a.NewWindow("Media")

	view, _ := mediabrowser.ParseViewMode(cfg.Browser.View)
	opts := mediabrowser.Options{
		Orders:           cfg.Browser.Orders,
		PageSize:         cfg.Browser.PageSize,
		View:             view,
		Logger:           &log,
		PreviewCacheDir:  cfg.Browser.PreviewCache,
		DisableDiskCache: cfg.Browser.NoDiskCache,
		OnClose:          w.Close,
		OnSelect: func(picked []mediabrowser.Asset) {
			enc := json.NewEncoder(out)
			for _, asset := range picked {
				if err := enc.Encode(asset); err != nil {
					log.Error().Err(err).Msg("could not write selection")
				}
			}
		},
	}
	if cfg.Browser.DocumentType != "" {
		opts.Document = &mediabrowser.Document{Type: cfg.Browser.DocumentType}
	}

	var browser *mediabrowser.Browser
	source, stop, err := openSource(cfg, log, func() {
		fyne.Do(func() {
			if browser != nil {
				browser.Store().Dispatch(mediabrowser.AssetsRefresh())
			}
		})
	})
	if err != nil {
		return err
	}
	defer stop()
	opts.Source = source

	browser = mediabrowser.New(opts)
	browser.SetWindow(w)
	w.SetContent(browser.Mount(w.Canvas()))
	w.SetOnClosed(browser.Unmount)

	w.Resize(fyne.NewSize(1000, 700))
	w.ShowAndRun()
	return nil
}
