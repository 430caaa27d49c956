package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IgorGrieder/encurtador-live/internal/auth"
	goredis "github.com/redis/go-redis/v9"
)

// IdentityStore keeps sessions under session:{id} and lets Redis expire them.
type IdentityStore struct {
	rdb goredis.Cmdable
}

func NewIdentityStore(rdb goredis.Cmdable) *IdentityStore {
	return &IdentityStore{rdb: rdb}
}

func (s *IdentityStore) SaveIdentity(ctx context.Context, sessionID string, identity auth.Identity, ttl time.Duration) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}
	return s.rdb.Set(ctx, sessionKey(sessionID), data, ttl).Err()
}

func (s *IdentityStore) GetIdentity(ctx context.Context, sessionID string) (*auth.Identity, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, auth.ErrSessionNotFound
		}
		return nil, err
	}

	var identity auth.Identity
	if err := json.Unmarshal(raw, &identity); err != nil {
		return nil, fmt.Errorf("decode identity: %w", err)
	}
	return &identity, nil
}
