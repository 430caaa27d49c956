package memory

import (
	"context"
	"sync"
	"time"

	"github.com/IgorGrieder/encurtador-live/internal/auth"
)

type session struct {
	identity  auth.Identity
	expiresAt time.Time
}

// IdentityStore keeps sessions in process memory. Expired sessions are
// dropped lazily on read.
type IdentityStore struct {
	mu       sync.Mutex
	sessions map[string]session
	now      func() time.Time
}

func NewIdentityStore() *IdentityStore {
	return &IdentityStore{
		sessions: make(map[string]session),
		now:      time.Now,
	}
}

func (s *IdentityStore) SaveIdentity(_ context.Context, sessionID string, identity auth.Identity, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = session{identity: identity, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *IdentityStore) GetIdentity(_ context.Context, sessionID string) (*auth.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, auth.ErrSessionNotFound
	}
	if !s.now().Before(sess.expiresAt) {
		delete(s.sessions, sessionID)
		return nil, auth.ErrSessionNotFound
	}
	identity := sess.identity
	return &identity, nil
}
