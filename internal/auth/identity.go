package auth

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNoSession       = errors.New("no session")
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidState    = errors.New("invalid oauth state")
)

// Identity is the signed-in user as reported by GitHub.
type Identity struct {
	Login      string `json:"login"`
	ProfileURL string `json:"profileUrl"`
	AvatarURL  string `json:"avatarUrl"`
}

// IdentityStore keeps identities keyed by session id.
type IdentityStore interface {
	SaveIdentity(ctx context.Context, sessionID string, identity Identity, ttl time.Duration) error
	// GetIdentity returns ErrSessionNotFound for unknown or expired sessions.
	GetIdentity(ctx context.Context, sessionID string) (*Identity, error)
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying identity. A nil identity marks
// the request as anonymous.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// FromContext returns the identity attached by the router, if any.
func FromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(*Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}

// Require returns the request identity or ErrUnauthorized.
func Require(ctx context.Context) (*Identity, error) {
	identity, ok := FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	return identity, nil
}
