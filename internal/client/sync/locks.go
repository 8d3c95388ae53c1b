package sync

import "sync"

// pathLocks serialises transfers per path. Acquisition is try-style: when
// a transfer is already running for a path, the new request is dropped and
// the next reconcile picks the path up again.
type pathLocks struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

func newPathLocks() *pathLocks {
	return &pathLocks{
		busy: make(map[string]struct{}),
	}
}

func (l *pathLocks) TryAcquire(path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.busy[path]; exists {
		return false
	}
	l.busy[path] = struct{}{}
	return true
}

func (l *pathLocks) Release(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.busy, path)
}
