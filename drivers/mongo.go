package drivers

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/creastat/sessionstate"
)

// MongoConfig holds MongoDB connection configuration.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string

	// ReplicaAcks is the number of replica acknowledgments required
	// before a write is considered successful. Default: 1.
	ReplicaAcks int

	// Journal requires writes to reach the on-disk journal before being
	// acknowledged.
	Journal bool
}

// MongoStore implements sessionstate.DocumentStore using MongoDB. Filters
// and mutations translate to native queries, so conditional updates are a
// single-document compare-and-set on the server.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to MongoDB and returns a store over the configured
// collection. Writes use the configured write concern.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("%w: mongo URI is required", sessionstate.ErrInvalidConfig)
	}
	if cfg.Database == "" || cfg.Collection == "" {
		return nil, fmt.Errorf("%w: mongo database and collection are required", sessionstate.ErrInvalidConfig)
	}

	acks := cfg.ReplicaAcks
	if acks <= 0 {
		acks = 1
	}
	journal := cfg.Journal
	wc := &writeconcern.WriteConcern{W: acks, Journal: &journal}

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.URI).
		SetWriteConcern(wc))
	if err != nil {
		return nil, fmt.Errorf("drivers: failed to connect to mongo: %w", err)
	}

	return &MongoStore{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// NewMongoCollectionStore returns a store over an already-connected
// collection. The caller keeps ownership of the client; Close is a no-op.
func NewMongoCollectionStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

func mongoFilter(f sessionstate.RecordFilter) bson.M {
	filter := bson.M{
		"id":              f.ID,
		"applicationName": f.ApplicationName,
	}
	if f.LockID != nil {
		filter["lockId"] = *f.LockID
	}
	if f.Unlocked {
		filter["locked"] = false
	}
	if f.ExpiresAfter != nil {
		filter["expires"] = bson.M{"$gt": *f.ExpiresAfter}
	}
	return filter
}

func mongoUpdate(u sessionstate.RecordUpdate) bson.M {
	set := bson.M{}
	if u.Locked != nil {
		set["locked"] = *u.Locked
	}
	if u.LockDate != nil {
		set["lockDate"] = *u.LockDate
	}
	if u.Expires != nil {
		set["expires"] = *u.Expires
	}
	if u.Items != nil {
		set["items"] = u.Items
	}
	if u.Flags != nil {
		set["flags"] = *u.Flags
	}

	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if u.IncrementLockID {
		update["$inc"] = bson.M{"lockId": 1}
	}
	return update
}

// transient wraps recoverable store failures (unsatisfiable write concern
// during a primary transition, retryable write errors, timeouts) in
// sessionstate.ErrTransient so the retry policy can tell them apart from
// fatal errors.
func transient(err error) error {
	if err == nil {
		return nil
	}

	var se mongo.ServerError
	if errors.As(err, &se) &&
		(se.HasErrorLabel("RetryableWriteError") || se.HasErrorLabel("TransientTransactionError")) {
		return fmt.Errorf("%w: %v", sessionstate.ErrTransient, err)
	}

	var we mongo.WriteException
	if errors.As(err, &we) && we.WriteConcernError != nil {
		return fmt.Errorf("%w: %v", sessionstate.ErrTransient, err)
	}

	if mongo.IsTimeout(err) {
		return fmt.Errorf("%w: %v", sessionstate.ErrTransient, err)
	}
	return err
}

// FindOne implements sessionstate.DocumentStore.
// Returns nil if no record matches the filter (not an error).
func (s *MongoStore) FindOne(ctx context.Context, f sessionstate.RecordFilter) (*sessionstate.SessionRecord, error) {
	var rec sessionstate.SessionRecord
	err := s.coll.FindOne(ctx, mongoFilter(f)).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpdateOne implements sessionstate.DocumentStore.
func (s *MongoStore) UpdateOne(ctx context.Context, f sessionstate.RecordFilter, u sessionstate.RecordUpdate) (int64, error) {
	res, err := s.coll.UpdateOne(ctx, mongoFilter(f), mongoUpdate(u))
	if err != nil {
		return 0, transient(err)
	}
	return res.MatchedCount, nil
}

// DeleteOne implements sessionstate.DocumentStore.
func (s *MongoStore) DeleteOne(ctx context.Context, f sessionstate.RecordFilter) (int64, error) {
	res, err := s.coll.DeleteOne(ctx, mongoFilter(f))
	if err != nil {
		return 0, transient(err)
	}
	return res.DeletedCount, nil
}

// Upsert implements sessionstate.DocumentStore.
func (s *MongoStore) Upsert(ctx context.Context, f sessionstate.RecordFilter, rec *sessionstate.SessionRecord) error {
	_, err := s.coll.ReplaceOne(ctx, mongoFilter(f), rec, options.Replace().SetUpsert(true))
	return transient(err)
}

// EnsureExpiryIndex implements sessionstate.DocumentStore. It registers the
// store-native TTL sweep on expires with zero grace period, alongside the
// unique (id, applicationName) key index. CreateMany is idempotent for
// identical index definitions.
func (s *MongoStore) EnsureExpiryIndex(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}, {Key: "applicationName", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expires", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	})
	if err != nil {
		return fmt.Errorf("drivers: failed to create session indexes: %w", err)
	}
	return nil
}

// Close implements sessionstate.DocumentStore.
func (s *MongoStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(context.Background())
}
