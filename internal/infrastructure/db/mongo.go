package db

import (
	"context"
	"net/url"
	"time"

	"github.com/IgorGrieder/encurtador-live/internal/infrastructure/logger"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
	"go.uber.org/zap"
)

const defaultConnectTimeout = 10 * time.Second

// Mongo wraps the MongoDB client and database
type Mongo struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// MongoOptions configures ConnectMongo. Change streams need a replica set, so
// URI should point at one.
type MongoOptions struct {
	URI            string
	Database       string
	AppName        string
	ConnectTimeout time.Duration
}

// ConnectMongo establishes a connection to MongoDB with OpenTelemetry instrumentation
func ConnectMongo(ctx context.Context, opts MongoOptions) (*Mongo, error) {
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(opts.URI).
		SetMonitor(otelmongo.NewMonitor())
	if opts.AppName != "" {
		clientOptions.SetAppName(opts.AppName)
	}

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger.Info("MongoDB connected", zap.String("uri", redactURI(opts.URI)), zap.String("database", opts.Database))
	return &Mongo{
		Client:   client,
		Database: client.Database(opts.Database),
	}, nil
}

// redactURI hides the password of a connection string.
func redactURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "invalid-uri"
	}
	return u.Redacted()
}

// Disconnect closes the MongoDB connection
func (m *Mongo) Disconnect() error {
	if m.Client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultConnectTimeout)
	defer cancel()
	return m.Client.Disconnect(ctx)
}

// Collection returns the specified collection
func (m *Mongo) Collection(name string) *mongo.Collection {
	return m.Database.Collection(name)
}

// DropDatabase removes the whole database. Used by tests that run against a
// throwaway database.
func (m *Mongo) DropDatabase(ctx context.Context) error {
	return m.Database.Drop(ctx)
}
