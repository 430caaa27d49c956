package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/IgorGrieder/encurtador-live/internal/auth"
	"github.com/IgorGrieder/encurtador-live/internal/infrastructure/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SessionsRepository implements auth.IdentityStore. A TTL index removes
// expired sessions; reads also filter on expiresAt since TTL cleanup is lazy.
type SessionsRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

type sessionDoc struct {
	ID         string    `bson:"_id"`
	Login      string    `bson:"login"`
	ProfileURL string    `bson:"profileUrl"`
	AvatarURL  string    `bson:"avatarUrl"`
	ExpiresAt  time.Time `bson:"expiresAt"`
}

func NewSessionsRepository(m *db.Mongo) (*SessionsRepository, error) {
	repo := &SessionsRepository{coll: m.Collection("sessions"), now: time.Now}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := repo.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_expiresAt"),
	})
	if err != nil {
		return nil, err
	}

	return repo, nil
}

func (r *SessionsRepository) SaveIdentity(ctx context.Context, sessionID string, identity auth.Identity, ttl time.Duration) error {
	doc := sessionDoc{
		ID:         sessionID,
		Login:      identity.Login,
		ProfileURL: identity.ProfileURL,
		AvatarURL:  identity.AvatarURL,
		ExpiresAt:  r.now().Add(ttl).UTC(),
	}

	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": sessionID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (r *SessionsRepository) GetIdentity(ctx context.Context, sessionID string) (*auth.Identity, error) {
	var doc sessionDoc
	err := r.coll.FindOne(ctx, bson.M{
		"_id":       sessionID,
		"expiresAt": bson.M{"$gt": r.now().UTC()},
	}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, auth.ErrSessionNotFound
		}
		return nil, err
	}

	return &auth.Identity{
		Login:      doc.Login,
		ProfileURL: doc.ProfileURL,
		AvatarURL:  doc.AvatarURL,
	}, nil
}
