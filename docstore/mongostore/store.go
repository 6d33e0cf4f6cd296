package mongostore

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-call-history/docstore"
	goerrors "github.com/goliatone/go-errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Config holds the connection settings.
type Config struct {
	URI                    string
	Database               string
	ServerSelectionTimeout time.Duration
}

// DefaultConfig targets a local mongod and the "logs" database.
func DefaultConfig() Config {
	return Config{
		URI:                    "mongodb://localhost:27017",
		Database:               "logs",
		ServerSelectionTimeout: 5 * time.Second,
	}
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	if err := goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&c,
			validation.Field(&c.URI, validation.Required),
			validation.Field(&c.Database, validation.Required),
		)
	}, "invalid mongo config"); err != nil {
		return err
	}
	return nil
}

// Store is a connected MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to MongoDB and checks the server is reachable.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.ServerSelectionTimeout > 0 {
		opts.SetServerSelectionTimeout(cfg.ServerSelectionTimeout)
	}
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "connect to mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "ping mongo")
	}

	return &Store{client: client, db: client.Database(cfg.Database)}, nil
}

// Collection returns a handle on the named collection.
func (s *Store) Collection(name string) *Collection {
	return &Collection{coll: s.db.Collection(name)}
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

var _ docstore.Collection = (*Collection)(nil)

// Collection passes filters and updates through to MongoDB unchanged.
type Collection struct {
	coll *mongo.Collection
}

// NewCollection wraps a driver collection.
func NewCollection(coll *mongo.Collection) *Collection {
	return &Collection{coll: coll}
}

// Find returns every matching document. A nil filter matches everything.
func (c *Collection) Find(ctx context.Context, filter docstore.Filter) ([]docstore.Document, error) {
	if filter == nil {
		filter = docstore.Filter{}
	}
	cursor, err := c.coll.Find(ctx, filter)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "mongo find")
	}

	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "mongo cursor")
	}

	docs := make([]docstore.Document, len(raw))
	for i, m := range raw {
		docs[i] = normalize(m).(docstore.Document)
	}
	return docs, nil
}

// InsertOne inserts doc and returns its _id, a bson.ObjectID when the
// driver generated it.
func (c *Collection) InsertOne(ctx context.Context, doc docstore.Document) (any, error) {
	if doc == nil {
		doc = docstore.Document{}
	}
	res, err := c.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, docstore.ErrDuplicateID
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "mongo insert")
	}
	return res.InsertedID, nil
}

// UpdateMany runs update_many with the given filter and update document.
func (c *Collection) UpdateMany(ctx context.Context, filter docstore.Filter, update docstore.Update) (docstore.UpdateResult, error) {
	if filter == nil {
		filter = docstore.Filter{}
	}
	res, err := c.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return docstore.UpdateResult{}, goerrors.Wrap(err, goerrors.CategoryExternal, "mongo update")
	}
	return docstore.UpdateResult{Matched: res.MatchedCount, Modified: res.ModifiedCount}, nil
}

// normalize converts driver containers into docstore documents and slices.
func normalize(v any) any {
	switch t := v.(type) {
	case bson.M:
		out := make(docstore.Document, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case bson.D:
		out := make(docstore.Document, len(t))
		for _, e := range t {
			out[e.Key] = normalize(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case int32:
		return int64(t)
	default:
		return v
	}
}
