// Package watcher turns raw filesystem notifications into settled per-path
// events. Bursts of events on one path collapse into a single event after
// the debounce window; consumers re-read the file state at transfer time,
// so no event carries content.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rjeczalik/notify"

	"github.com/foldsync/foldsync/internal/wire"
)

const (
	DefaultDebounce = 2 * time.Second
	eventBufferSize = 128
)

// Event is a settled notification for one relative path. The path may or
// may not still exist; the consumer decides between upload and delete by
// checking the filesystem.
type Event struct {
	Path string
}

type Watcher struct {
	root     string
	debounce time.Duration

	rawEvents chan notify.EventInfo
	events    chan Event

	timersMu sync.Mutex
	timers   map[string]*time.Timer

	done chan struct{}
	wg   sync.WaitGroup
}

func New(root string, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		root:     root,
		debounce: debounce,
		timers:   make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}
}

func (w *Watcher) Start(ctx context.Context) error {
	slog.Info("watcher start", "dir", w.root, "debounce", w.debounce)

	w.rawEvents = make(chan notify.EventInfo, eventBufferSize)
	w.events = make(chan Event, eventBufferSize)

	recursivePath := filepath.Join(w.root, "...")
	if err := notify.Watch(recursivePath, w.rawEvents,
		notify.Create|notify.Write|notify.Remove|notify.Rename); err != nil {
		return err
	}

	w.wg.Add(1)
	go w.filterEvents(ctx)

	return nil
}

func (w *Watcher) Stop() {
	slog.Info("watcher stopping")
	close(w.done)
	notify.Stop(w.rawEvents)

	w.timersMu.Lock()
	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
	}
	w.timersMu.Unlock()

	w.wg.Wait()
	slog.Info("watcher stopped")
}

func (w *Watcher) Events() <-chan Event {
	return w.events
}

// filterEvents drops hidden paths and debounces the rest. Never blocks on
// the consumer: a full channel drops the event, and the periodic reconcile
// repairs whatever was missed.
func (w *Watcher) filterEvents(ctx context.Context) {
	// w.events is deliberately never closed: a late debounce timer may
	// still fire after shutdown, and consumers exit via their context.
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.rawEvents:
			if !ok {
				return
			}

			relPath, ok := w.relPath(event.Path())
			if !ok {
				continue
			}
			w.debounceEvent(relPath)
		}
	}
}

func (w *Watcher) relPath(absPath string) (string, bool) {
	relPath, err := filepath.Rel(w.root, absPath)
	if err != nil || strings.HasPrefix(relPath, "..") {
		return "", false
	}
	relPath = filepath.ToSlash(relPath)
	if relPath == "." || wire.IsHiddenPath(relPath) {
		return "", false
	}
	return relPath, true
}

// debounceEvent resets the per-path timer; the event settles when the path
// stays quiet for the full debounce window.
func (w *Watcher) debounceEvent(relPath string) {
	w.timersMu.Lock()
	defer w.timersMu.Unlock()

	if timer, exists := w.timers[relPath]; exists {
		timer.Reset(w.debounce)
		return
	}

	w.timers[relPath] = time.AfterFunc(w.debounce, func() {
		w.flushEvent(relPath)
	})
}

func (w *Watcher) flushEvent(relPath string) {
	w.timersMu.Lock()
	delete(w.timers, relPath)
	w.timersMu.Unlock()

	select {
	case <-w.done:
		return
	default:
	}

	select {
	case w.events <- Event{Path: relPath}:
		slog.Debug("watcher settled", "path", relPath)
	default:
		slog.Warn("watcher dropped event", "reason", "channel full", "path", relPath)
	}
}
