// Package watch re-runs analysis when PHP sources change and notifies
// connected clients over WebSocket.
package watch

import (
	"context"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow coalesces editor save bursts into a single reload.
const debounceWindow = 300 * time.Millisecond

// Watcher observes a source tree and invokes a callback after changes to
// PHP files settle.
type Watcher struct {
	dir      string
	onChange func()
	fsw      *fsnotify.Watcher
}

// NewWatcher prepares a watcher over dir. onChange runs after each settled
// burst of changes.
func NewWatcher(dir string, onChange func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{dir: dir, onChange: onChange, fsw: fsw}
	if err := w.addRecursive(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run blocks processing filesystem events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fsw.Close()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			// New directories must be watched as they appear.
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.addRecursive(event.Name)
				}
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				fire = timer.C
			} else {
				timer.Reset(debounceWindow)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("watch error: %v", err)
		case <-fire:
			timer = nil
			fire = nil
			w.onChange()
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	name := event.Name
	if strings.HasSuffix(name, ".php") {
		return true
	}
	// Directory events matter for adding new watches.
	return event.Op.Has(fsnotify.Create) && filepath.Ext(name) == ""
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		base := d.Name()
		if base == "vendor" || base == "node_modules" || (strings.HasPrefix(base, ".") && path != root) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}
