package auth

import (
	"errors"
	"fmt"
	"net/http"
)

// Resolver materializes the caller's identity from the session cookie.
type Resolver struct {
	sessions *SessionManager
	store    IdentityStore
}

func NewResolver(sessions *SessionManager, store IdentityStore) *Resolver {
	return &Resolver{sessions: sessions, store: store}
}

// Resolve returns nil without error for anonymous callers. Errors are
// reserved for store failures.
func (r *Resolver) Resolve(req *http.Request) (*Identity, error) {
	sessionID, err := r.sessions.SessionID(req)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return nil, nil
		}
		return nil, err
	}

	identity, err := r.store.GetIdentity(req.Context(), sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve identity: %w", err)
	}

	return identity, nil
}
