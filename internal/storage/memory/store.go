package memory

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/IgorGrieder/encurtador-live/internal/processing/links"
)

// Store keeps links and click events in a KV. Values are stored by value so
// callers never share memory with the store.
type Store struct {
	kv  *KV
	now func() time.Time
}

func NewStore() *Store {
	return NewStoreWithKV(NewKV())
}

func NewStoreWithKV(kv *KV) *Store {
	return &Store{kv: kv, now: time.Now}
}

func linkKey(code string) string {
	return "link/" + code
}

func clickKey(code string, ordinal int64) string {
	return fmt.Sprintf("click/%s/%d", code, ordinal)
}

func ownerPrefix(owner string) string {
	return "owner/" + url.PathEscape(owner) + "/"
}

func (s *Store) Create(_ context.Context, link *links.ShortLink) error {
	key := linkKey(link.ShortCode)
	ok := s.kv.Commit(
		[]Check{{Key: key, Version: 0}},
		[]Mutation{
			{Key: key, Value: *link},
			{Key: ownerPrefix(link.Owner) + link.ShortCode, Value: link.ShortCode},
		},
	)
	if !ok {
		return links.ErrConflict
	}
	return nil
}

func (s *Store) Get(_ context.Context, shortCode string) (*links.ShortLink, error) {
	v, _, ok := s.kv.Get(linkKey(shortCode))
	if !ok {
		return nil, links.ErrNotFound
	}
	link := v.(links.ShortLink)
	return &link, nil
}

func (s *Store) ListByOwner(ctx context.Context, owner string) ([]links.ShortLink, error) {
	prefix := ownerPrefix(owner)
	keys := s.kv.Keys(prefix)

	out := make([]links.ShortLink, 0, len(keys))
	for _, key := range keys {
		link, err := s.Get(ctx, strings.TrimPrefix(key, prefix))
		if err != nil {
			continue
		}
		out = append(out, *link)
	}
	return out, nil
}

// IncrementClick retries the optimistic commit until it wins or ctx is done.
func (s *Store) IncrementClick(ctx context.Context, shortCode string, meta links.ClickMetadata) (int64, error) {
	key := linkKey(shortCode)
	for {
		v, version, ok := s.kv.Get(key)
		if !ok {
			return 0, links.ErrNotFound
		}

		link := v.(links.ShortLink)
		link.ClickCount++
		event := links.NewClickEvent(shortCode, link.ClickCount, meta, s.now())

		if s.kv.Commit(
			[]Check{{Key: key, Version: version}},
			[]Mutation{
				{Key: clickKey(shortCode, link.ClickCount), Value: event},
				{Key: key, Value: link},
			},
		) {
			return link.ClickCount, nil
		}

		if err := ctx.Err(); err != nil {
			return 0, err
		}
	}
}

func (s *Store) GetClickEvent(_ context.Context, shortCode string, ordinal int64) (*links.ClickEvent, error) {
	v, _, ok := s.kv.Get(clickKey(shortCode, ordinal))
	if !ok {
		return nil, links.ErrNotFound
	}
	event := v.(links.ClickEvent)
	return &event, nil
}

func (s *Store) Watch(_ context.Context, shortCode string) (links.WatchHandle, error) {
	return s.kv.Watch(linkKey(shortCode)), nil
}
