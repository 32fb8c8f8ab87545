package ui

import (
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// watchFile watches the document file and posts a reload request when it
// changes on disk. Editors often replace files instead of writing in
// place, so the parent directory is watched and events are filtered by
// name. Watch failures are logged, not fatal.
func watchFile(path string, post func(tea.Msg)) tea.Cmd {
	return func() tea.Msg {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			log.Debug("file watch unavailable", "error", err)
			return nil
		}
		if err := watcher.Add(filepath.Dir(path)); err != nil {
			_ = watcher.Close()
			log.Debug("file watch failed", "path", path, "error", err)
			return nil
		}

		go func() {
			// Debounce bursts of events from a single save.
			var last time.Time
			for {
				select {
				case ev, ok := <-watcher.Events:
					if !ok {
						return
					}
					if filepath.Base(ev.Name) != filepath.Base(path) {
						continue
					}
					if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
						continue
					}
					if time.Since(last) < 200*time.Millisecond {
						continue
					}
					last = time.Now()
					post(reloadRequestMsg{})
				case _, ok := <-watcher.Errors:
					if !ok {
						return
					}
				}
			}
		}()
		return nil
	}
}
