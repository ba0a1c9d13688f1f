// Package watcher keeps the recordings index in sync with the recordings
// directory on disk.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watcher monitors the recordings directory and calls onChange whenever a
// recording is added, removed or renamed. Bursts of events (a copy in
// progress, a directory sync) collapse into one callback via debounce.
type Watcher struct {
	dir      string
	onChange func()
	watcher  *fsnotify.Watcher
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex
	running  bool
	debounce time.Duration
}

// New creates a Watcher over the recordings directory.
func New(dir string, onChange func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		dir:      dir,
		onChange: onChange,
		watcher:  fsw,
		ctx:      ctx,
		cancel:   cancel,
		debounce: 200 * time.Millisecond,
	}, nil
}

// Start begins watching for recording changes.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.addWatch(); err != nil {
		log.Warn().Err(err).Str("dir", w.dir).Msg("Failed to add initial watch")
		// Continue anyway - the directory may appear later
	}

	go w.watchLoop()
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	w.running = false
	w.cancel()
	return w.watcher.Close()
}

// addWatch adds the recordings directory to the watch list.
func (w *Watcher) addWatch() error {
	if _, err := os.Stat(w.dir); os.IsNotExist(err) {
		return err
	}
	return w.watcher.Add(w.dir)
}

// isRecording reports whether the event path looks like a recording file.
func isRecording(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}

// watchLoop is the main event loop.
func (w *Watcher) watchLoop() {
	var debounceTimer *time.Timer

	for {
		select {
		case <-w.ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			// The directory itself disappearing needs a re-watch once it
			// comes back; the index refresh handles the empty state.
			if filepath.Clean(event.Name) == filepath.Clean(w.dir) {
				if event.Op&fsnotify.Remove != 0 {
					log.Info().Str("dir", w.dir).Msg("Recordings directory removed")
					go w.rewatch()
				}
				continue
			}

			if !isRecording(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) == 0 {
				continue
			}

			log.Debug().
				Str("file", filepath.Base(event.Name)).
				Str("op", event.Op.String()).
				Msg("Recording changed")

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, w.fireChange)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Watcher error")
		}
	}
}

// fireChange invokes the change callback.
func (w *Watcher) fireChange() {
	if w.onChange != nil {
		w.onChange()
	}
}

// rewatch retries the directory watch until it exists again, then
// refreshes the index once.
func (w *Watcher) rewatch() {
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-time.After(500 * time.Millisecond):
		}
		if err := w.addWatch(); err == nil {
			log.Info().Str("dir", w.dir).Msg("Re-established recordings watch")
			w.fireChange()
			return
		}
	}
}
