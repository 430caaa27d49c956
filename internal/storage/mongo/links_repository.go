package mongo

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IgorGrieder/encurtador-live/internal/infrastructure/db"
	"github.com/IgorGrieder/encurtador-live/internal/processing/links"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// LinksRepository stores links keyed by short code and their click events in
// a second collection. IncrementClick and Watch need a replica set.
type LinksRepository struct {
	client *mongo.Client
	coll   *mongo.Collection
	clicks *mongo.Collection
	now    func() time.Time
}

type linkDoc struct {
	ShortCode  string    `bson:"_id"`
	LongURL    string    `bson:"longUrl"`
	Owner      string    `bson:"userId"`
	ClickCount int64     `bson:"clickCount"`
	CreatedAt  time.Time `bson:"createdAt"`
}

type clickEventDoc struct {
	ShortCode string    `bson:"shortCode"`
	Ordinal   int64     `bson:"ordinal"`
	IPAddress string    `bson:"ipAddress"`
	UserAgent string    `bson:"userAgent"`
	Country   string    `bson:"country"`
	CreatedAt time.Time `bson:"createdAt"`
}

func NewLinksRepository(m *db.Mongo) (*LinksRepository, error) {
	repo := &LinksRepository{
		client: m.Client,
		coll:   m.Collection("links"),
		clicks: m.Collection("click_events"),
		now:    time.Now,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := repo.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: 1}},
			Options: options.Index().SetName("userId_createdAt"),
		},
	})
	if err != nil {
		return nil, err
	}

	_, err = repo.clicks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "shortCode", Value: 1}, {Key: "ordinal", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_shortCode_ordinal"),
	})
	if err != nil {
		return nil, err
	}

	return repo, nil
}

func (r *LinksRepository) Create(ctx context.Context, link *links.ShortLink) error {
	doc := linkDoc{
		ShortCode:  link.ShortCode,
		LongURL:    link.LongURL,
		Owner:      link.Owner,
		ClickCount: link.ClickCount,
		CreatedAt:  link.CreatedAt.UTC(),
	}

	_, err := r.coll.InsertOne(ctx, doc)
	if err == nil {
		return nil
	}

	if mongo.IsDuplicateKeyError(err) {
		return links.ErrConflict
	}

	return links.Unavailable(err)
}

func (r *LinksRepository) Get(ctx context.Context, shortCode string) (*links.ShortLink, error) {
	var doc linkDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": shortCode}).Decode(&doc)
	if err == nil {
		return mapLinkDoc(doc), nil
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, links.ErrNotFound
	}

	return nil, links.Unavailable(err)
}

func (r *LinksRepository) ListByOwner(ctx context.Context, owner string) ([]links.ShortLink, error) {
	cur, err := r.coll.Find(ctx,
		bson.M{"userId": owner},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, links.Unavailable(err)
	}
	defer cur.Close(ctx)

	out := make([]links.ShortLink, 0)
	for cur.Next(ctx) {
		var doc linkDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, *mapLinkDoc(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, links.Unavailable(err)
	}

	return out, nil
}

// IncrementClick bumps clickCount and inserts the click event in one
// transaction. The driver retries transient write conflicts until ctx is done.
func (r *LinksRepository) IncrementClick(ctx context.Context, shortCode string, meta links.ClickMetadata) (int64, error) {
	sess, err := r.client.StartSession()
	if err != nil {
		return 0, links.Unavailable(err)
	}
	defer sess.EndSession(ctx)

	result, err := sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		var doc linkDoc
		err := r.coll.FindOneAndUpdate(sc,
			bson.M{"_id": shortCode},
			bson.M{"$inc": bson.M{"clickCount": 1}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&doc)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, links.ErrNotFound
			}
			return nil, err
		}

		event := links.NewClickEvent(shortCode, doc.ClickCount, meta, r.now())
		if _, err := r.clicks.InsertOne(sc, clickEventDoc{
			ShortCode: event.ShortCode,
			Ordinal:   event.Ordinal,
			IPAddress: event.IPAddress,
			UserAgent: event.UserAgent,
			Country:   event.Country,
			CreatedAt: event.CreatedAt,
		}); err != nil {
			return nil, err
		}

		return doc.ClickCount, nil
	})
	if err != nil {
		if errors.Is(err, links.ErrNotFound) {
			return 0, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, links.Unavailable(err)
	}

	return result.(int64), nil
}

func (r *LinksRepository) GetClickEvent(ctx context.Context, shortCode string, ordinal int64) (*links.ClickEvent, error) {
	var doc clickEventDoc
	err := r.clicks.FindOne(ctx, bson.M{"shortCode": shortCode, "ordinal": ordinal}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, links.ErrNotFound
		}
		return nil, links.Unavailable(err)
	}

	return &links.ClickEvent{
		ShortCode: doc.ShortCode,
		Ordinal:   doc.Ordinal,
		IPAddress: doc.IPAddress,
		UserAgent: doc.UserAgent,
		Country:   doc.Country,
		CreatedAt: doc.CreatedAt,
	}, nil
}

// Watch opens a change stream on the link document. The stream is open when
// Watch returns, so later commits are observed.
func (r *LinksRepository) Watch(ctx context.Context, shortCode string) (links.WatchHandle, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "documentKey._id", Value: shortCode},
			{Key: "operationType", Value: bson.M{"$in": bson.A{"update", "replace"}}},
		}}},
	}

	cs, err := r.coll.Watch(ctx, pipeline)
	if err != nil {
		return nil, links.Unavailable(err)
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	return &changeStreamHandle{cs: cs, ctx: streamCtx, cancel: cancel}, nil
}

// changeStreamHandle serializes access to the stream: Cancel interrupts a
// pending Next through ctx and closes the stream once Next has returned.
type changeStreamHandle struct {
	cs     *mongo.ChangeStream
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed atomic.Bool
	once   sync.Once
}

func (h *changeStreamHandle) Next(ctx context.Context) error {
	if h.closed.Load() {
		return links.ErrWatchClosed
	}

	nextCtx, cancel := context.WithCancel(h.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed.Load() {
		return links.ErrWatchClosed
	}
	if h.cs.Next(nextCtx) {
		return nil
	}

	switch {
	case h.closed.Load():
		return links.ErrWatchClosed
	case ctx.Err() != nil:
		return ctx.Err()
	case h.cs.Err() != nil:
		return links.Unavailable(h.cs.Err())
	}
	return links.ErrWatchClosed
}

func (h *changeStreamHandle) Cancel() {
	h.once.Do(func() {
		h.closed.Store(true)
		h.cancel()

		h.mu.Lock()
		defer h.mu.Unlock()
		_ = h.cs.Close(context.Background())
	})
}

func mapLinkDoc(doc linkDoc) *links.ShortLink {
	return &links.ShortLink{
		ShortCode:  doc.ShortCode,
		LongURL:    doc.LongURL,
		Owner:      doc.Owner,
		ClickCount: doc.ClickCount,
		CreatedAt:  doc.CreatedAt,
	}
}
