package memory

import (
	"context"
	"sync"

	"github.com/IgorGrieder/encurtador-live/internal/processing/links"
)

// watcher counts pending notifications so bursts between two Next calls are
// delivered one by one instead of being coalesced.
type watcher struct {
	kv  *KV
	key string

	mu      sync.Mutex
	pending int
	closed  bool

	signal chan struct{}
	done   chan struct{}
	once   sync.Once
}

func (w *watcher) notify() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.pending++
	w.mu.Unlock()

	select {
	case w.signal <- struct{}{}:
	default:
	}
}

func (w *watcher) Next(ctx context.Context) error {
	for {
		w.mu.Lock()
		if w.closed {
			w.mu.Unlock()
			return links.ErrWatchClosed
		}
		if w.pending > 0 {
			w.pending--
			w.mu.Unlock()
			return nil
		}
		w.mu.Unlock()

		select {
		case <-w.signal:
		case <-w.done:
			return links.ErrWatchClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *watcher) Cancel() {
	w.once.Do(func() {
		w.mu.Lock()
		w.closed = true
		w.pending = 0
		w.mu.Unlock()

		close(w.done)
		w.kv.unwatch(w)
	})
}
