package config

import (
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher hot-reloads the tuning file, coalescing bursts of filesystem
// events (editors often write several) behind a debounce window and emitting
// the freshly parsed Tuning on Updates.
type Watcher struct {
	path     string
	debounce time.Duration

	fw      *fsnotify.Watcher
	updates chan Tuning
	done    chan struct{}
}

// WatchTuning watches path for changes. debounce <= 0 defaults to 200ms.
// Close the watcher to release the underlying filesystem watch.
func WatchTuning(path string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory, not the file: editors that replace-on-save break
	// direct file watches.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		path:     path,
		debounce: debounce,
		fw:       fw,
		updates:  make(chan Tuning, 1),
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Updates delivers re-parsed tuning after each (debounced) change. Parse
// failures are logged and skipped, leaving the previous tuning in effect.
func (w *Watcher) Updates() <-chan Tuning { return w.updates }

// Close stops watching. Idempotent per the fsnotify contract.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fw.Close()
}

func (w *Watcher) loop() {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-w.done:
			return

		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			log.Printf("warning: tuning watcher: %v", err)

		case <-fire:
			fire = nil
			t, err := Load(w.path)
			if err != nil {
				log.Printf("warning: reloading tuning: %v", err)
				continue
			}
			select {
			case w.updates <- t:
			default:
				// Drop when the consumer is behind; the next change will
				// carry the latest state anyway.
			}
		}
	}
}
