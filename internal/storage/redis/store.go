package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/IgorGrieder/encurtador-live/internal/processing/links"
	goredis "github.com/redis/go-redis/v9"
)

// Store keeps each link as a JSON string under link:{code} and each click
// event under click:{code}:{ordinal}. Conditional writes use WATCH/MULTI and
// every committed change of a link is published on watch:link:{code}.
type Store struct {
	rdb *goredis.Client
	now func() time.Time
}

func NewStore(rdb *goredis.Client) *Store {
	return &Store{rdb: rdb, now: time.Now}
}

func (s *Store) Create(ctx context.Context, link *links.ShortLink) error {
	data, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("marshal link: %w", err)
	}

	key := linkKey(link.ShortCode)
	err = s.rdb.Watch(ctx, func(tx *goredis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return links.ErrConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.SAdd(ctx, ownerKey(link.Owner), link.ShortCode)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, links.ErrConflict), errors.Is(err, goredis.TxFailedErr):
		return links.ErrConflict
	default:
		return links.Unavailable(err)
	}
}

func (s *Store) Get(ctx context.Context, shortCode string) (*links.ShortLink, error) {
	raw, err := s.rdb.Get(ctx, linkKey(shortCode)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, links.ErrNotFound
		}
		return nil, links.Unavailable(err)
	}
	return decodeLink(raw)
}

func (s *Store) ListByOwner(ctx context.Context, owner string) ([]links.ShortLink, error) {
	codes, err := s.rdb.SMembers(ctx, ownerKey(owner)).Result()
	if err != nil {
		return nil, links.Unavailable(err)
	}
	if len(codes) == 0 {
		return []links.ShortLink{}, nil
	}

	keys := make([]string, len(codes))
	for i, code := range codes {
		keys[i] = linkKey(code)
	}

	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, links.Unavailable(err)
	}

	out := make([]links.ShortLink, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		link, err := decodeLink([]byte(str))
		if err != nil {
			return nil, err
		}
		out = append(out, *link)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ShortCode < out[j].ShortCode
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// IncrementClick retries on concurrent modification until the transaction
// commits or ctx is done.
func (s *Store) IncrementClick(ctx context.Context, shortCode string, meta links.ClickMetadata) (int64, error) {
	key := linkKey(shortCode)

	for {
		var ordinal int64
		err := s.rdb.Watch(ctx, func(tx *goredis.Tx) error {
			raw, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, goredis.Nil) {
					return links.ErrNotFound
				}
				return err
			}

			link, err := decodeLink(raw)
			if err != nil {
				return err
			}
			link.ClickCount++
			ordinal = link.ClickCount

			linkData, err := json.Marshal(link)
			if err != nil {
				return err
			}
			eventData, err := json.Marshal(links.NewClickEvent(shortCode, ordinal, meta, s.now()))
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
				pipe.Set(ctx, clickKey(shortCode, ordinal), eventData, 0)
				pipe.Set(ctx, key, linkData, 0)
				pipe.Publish(ctx, watchChannel(shortCode), ordinal)
				return nil
			})
			return err
		}, key)

		switch {
		case err == nil:
			return ordinal, nil
		case errors.Is(err, links.ErrNotFound):
			return 0, err
		case errors.Is(err, goredis.TxFailedErr):
			if ctxErr := ctx.Err(); ctxErr != nil {
				return 0, ctxErr
			}
		default:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return 0, ctxErr
			}
			return 0, links.Unavailable(err)
		}
	}
}

func (s *Store) GetClickEvent(ctx context.Context, shortCode string, ordinal int64) (*links.ClickEvent, error) {
	raw, err := s.rdb.Get(ctx, clickKey(shortCode, ordinal)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, links.ErrNotFound
		}
		return nil, links.Unavailable(err)
	}

	var event links.ClickEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, fmt.Errorf("decode click event: %w", err)
	}
	return &event, nil
}

// Watch subscribes to the link's change channel. The subscription is
// confirmed before returning so no later commit is missed.
func (s *Store) Watch(ctx context.Context, shortCode string) (links.WatchHandle, error) {
	ps := s.rdb.Subscribe(ctx, watchChannel(shortCode))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, links.Unavailable(err)
	}

	return &watchHandle{
		ps:       ps,
		messages: ps.Channel(goredis.WithChannelSize(1024)),
		closed:   make(chan struct{}),
	}, nil
}

type watchHandle struct {
	ps       *goredis.PubSub
	messages <-chan *goredis.Message
	closed   chan struct{}
	once     sync.Once
}

func (h *watchHandle) Next(ctx context.Context) error {
	select {
	case <-h.closed:
		return links.ErrWatchClosed
	default:
	}

	select {
	case <-h.closed:
		return links.ErrWatchClosed
	case _, ok := <-h.messages:
		if !ok {
			return links.ErrWatchClosed
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *watchHandle) Cancel() {
	h.once.Do(func() {
		close(h.closed)
		_ = h.ps.Close()
	})
}

func decodeLink(raw []byte) (*links.ShortLink, error) {
	var link links.ShortLink
	if err := json.Unmarshal(raw, &link); err != nil {
		return nil, fmt.Errorf("decode link: %w", err)
	}
	return &link, nil
}
