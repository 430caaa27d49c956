package links

import (
	"context"
	"errors"
	"fmt"

	"github.com/IgorGrieder/encurtador-live/internal/events"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotFound            = errors.New("link not found")
	ErrConflict            = errors.New("short code taken")
	ErrUniquenessExhausted = errors.New("could not generate a unique short code")
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrWatchClosed         = errors.New("watch closed")
)

// Unavailable wraps a backend failure so callers can match it with
// errors.Is(err, ErrStoreUnavailable).
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// Store persists short links and their click events.
//
// Create must be a conditional write that fails with ErrConflict when the
// short code already exists. IncrementClick must bump the counter and append
// the click event at the new ordinal in a single atomic commit.
type Store interface {
	Create(ctx context.Context, link *ShortLink) error
	Get(ctx context.Context, shortCode string) (*ShortLink, error)
	ListByOwner(ctx context.Context, owner string) ([]ShortLink, error)
	IncrementClick(ctx context.Context, shortCode string, meta ClickMetadata) (int64, error)
	GetClickEvent(ctx context.Context, shortCode string, ordinal int64) (*ClickEvent, error)
	Watch(ctx context.Context, shortCode string) (WatchHandle, error)
}

// WatchHandle yields one notification per change of a single link record.
type WatchHandle interface {
	// Next blocks until the record changes, ctx is done or the handle is
	// cancelled. After Cancel it returns ErrWatchClosed.
	Next(ctx context.Context) error
	// Cancel releases the subscription and unblocks a pending Next. Safe to
	// call more than once and from any goroutine.
	Cancel()
}

type Generator interface {
	Generate(longURL string) (string, error)
}

type ClickPublisher interface {
	PublishClick(ctx context.Context, event events.ClickRecorded) error
}
