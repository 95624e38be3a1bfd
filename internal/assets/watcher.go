package assets

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce groups bursts of file events, a copy of a large video
// produces many writes.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reports changes below a library root. Events are debounced into
// a single onChange call.
type Watcher struct {
	root     string
	debounce time.Duration
	onChange func()
	log      zerolog.Logger

	fsWatcher *fsnotify.Watcher
	stopChan  chan struct{}
	done      chan struct{}

	mutex   sync.Mutex
	timer   *time.Timer
	running bool
}

// NewWatcher watches root and its subdirectories.
func NewWatcher(root string, onChange func(), log zerolog.Logger) (*Watcher, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("error accessing directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch %s: %w", root, ErrNotDirectory)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		root:      root,
		debounce:  DefaultDebounce,
		onChange:  onChange,
		log:       log.With().Str("watch", root).Logger(),
		fsWatcher: fsWatcher,
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	if err := w.addTree(root); err != nil {
		fsWatcher.Close()
		return nil, err
	}
	return w, nil
}

// SetDebounce changes the quiet period, it must be called before Start.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return fs.SkipDir
		}
		if err := w.fsWatcher.Add(path); err != nil {
			return fmt.Errorf("failed to add directory %s to watcher: %w", path, err)
		}
		return nil
	})
}

// Start runs the event loop until Stop.
func (w *Watcher) Start() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.running {
		return fmt.Errorf("watcher already running")
	}
	w.running = true

	go w.loop()
	w.log.Debug().Msg("watcher started")
	return nil
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) &&
				!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			if strings.HasPrefix(filepath.Base(event.Name), ".") {
				continue
			}
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						w.log.Warn().Err(err).Msg("could not watch new directory")
					}
				}
			}
			w.schedule()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.log.Error().Err(err).Msg("fsnotify watcher error")

		case <-w.stopChan:
			return
		}
	}
}

func (w *Watcher) schedule() {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if !w.running {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	w.mutex.Lock()
	running := w.running
	w.timer = nil
	w.mutex.Unlock()
	if running && w.onChange != nil {
		w.onChange()
	}
}

// Stop closes the watcher. Pending changes are discarded.
func (w *Watcher) Stop() {
	w.mutex.Lock()
	if !w.running {
		w.mutex.Unlock()
		w.fsWatcher.Close()
		return
	}
	w.running = false
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	close(w.stopChan)
	w.mutex.Unlock()

	<-w.done
	if err := w.fsWatcher.Close(); err != nil {
		w.log.Error().Err(err).Msg("error closing fsnotify watcher")
	}
	w.log.Debug().Msg("watcher stopped")
}
