package links

import (
	"context"
	"errors"
	"sync"
)

type FeedState int

const (
	FeedIdle FeedState = iota
	FeedWaiting
	FeedEmitting
	FeedClosed
)

func (s FeedState) String() string {
	switch s {
	case FeedIdle:
		return "idle"
	case FeedWaiting:
		return "waiting"
	case FeedEmitting:
		return "emitting"
	case FeedClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// FeedReader is the read side of Store used to build feed updates.
type FeedReader interface {
	Get(ctx context.Context, shortCode string) (*ShortLink, error)
	GetClickEvent(ctx context.Context, shortCode string, ordinal int64) (*ClickEvent, error)
}

// Feed turns the watch handle of one link into FeedUpdates for a single
// consumer. It is not shared between connections.
type Feed struct {
	shortCode string
	reader    FeedReader
	handle    WatchHandle

	mu        sync.Mutex
	state     FeedState
	closeOnce sync.Once
}

func NewFeed(shortCode string, reader FeedReader, handle WatchHandle) *Feed {
	return &Feed{
		shortCode: shortCode,
		reader:    reader,
		handle:    handle,
		state:     FeedIdle,
	}
}

func (f *Feed) State() FeedState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Run calls emit once per change notification until ctx is done, Close is
// called or emit fails. Cancellation is a normal exit and returns nil.
func (f *Feed) Run(ctx context.Context, emit func(FeedUpdate) error) error {
	stop := context.AfterFunc(ctx, f.Close)
	defer stop()
	defer f.Close()

	for {
		if !f.transition(FeedWaiting) {
			return nil
		}

		if err := f.handle.Next(ctx); err != nil {
			if errors.Is(err, ErrWatchClosed) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		if !f.transition(FeedEmitting) {
			return nil
		}

		update, err := f.snapshot(ctx)
		if err != nil {
			if ctx.Err() != nil || f.State() == FeedClosed {
				return nil
			}
			return err
		}

		f.mu.Lock()
		if f.state == FeedClosed {
			f.mu.Unlock()
			return nil
		}
		err = emit(update)
		f.mu.Unlock()
		if err != nil {
			return err
		}
	}
}

// Close cancels the watch handle and moves the feed to FeedClosed. Once
// Close returns no further update is emitted.
func (f *Feed) Close() {
	f.closeOnce.Do(func() {
		f.handle.Cancel()

		f.mu.Lock()
		f.state = FeedClosed
		f.mu.Unlock()
	})
}

func (f *Feed) transition(to FeedState) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == FeedClosed {
		return false
	}
	f.state = to
	return true
}

func (f *Feed) snapshot(ctx context.Context) (FeedUpdate, error) {
	link, err := f.reader.Get(ctx, f.shortCode)
	if err != nil {
		return FeedUpdate{}, err
	}

	update := FeedUpdate{ClickCount: link.ClickCount}
	if link.ClickCount > 0 {
		event, err := f.reader.GetClickEvent(ctx, f.shortCode, link.ClickCount)
		switch {
		case err == nil:
			update.ClickAnalytics = event
		case errors.Is(err, ErrNotFound):
		default:
			return FeedUpdate{}, err
		}
	}

	return update, nil
}
