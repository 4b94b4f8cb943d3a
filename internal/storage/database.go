package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/ShelfScout/internal/types"
)

// runDocument is the stored shape of a run: one document per run name.
type runDocument struct {
	Name       string                `bson:"_id"`
	ID         string                `bson:"run_id"`
	ListingURL string                `bson:"listing_url"`
	CreatedAt  time.Time             `bson:"created_at"`
	Count      int                   `bson:"count"`
	Records    []types.ProductRecord `bson:"records"`
}

func toDocument(run *types.Run) runDocument {
	return runDocument{
		Name:       run.Name,
		ID:         run.ID,
		ListingURL: run.ListingURL,
		CreatedAt:  run.CreatedAt,
		Count:      len(run.Records),
		Records:    run.Records,
	}
}

func (d runDocument) run() *types.Run {
	records := d.Records
	if records == nil {
		records = []types.ProductRecord{}
	}
	return &types.Run{
		ID:         d.ID,
		Name:       d.Name,
		ListingURL: d.ListingURL,
		CreatedAt:  d.CreatedAt,
		Records:    records,
	}
}

// MongoStore keeps runs in a MongoDB collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	timeout    time.Duration
	logger     *slog.Logger
}

// NewMongoStore connects to MongoDB and pings it.
func NewMongoStore(uri, database, collection string, logger *slog.Logger) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("connect: %w", err)}
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("ping: %w", err)}
	}

	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
		timeout:    30 * time.Second,
		logger:     logger.With("component", "mongo_storage"),
	}, nil
}

func (s *MongoStore) Name() string { return "mongodb" }

func (s *MongoStore) Save(ctx context.Context, run *types.Run) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": run.Name}, toDocument(run), options.Replace().SetUpsert(true))
	if err != nil {
		return &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("upsert: %w", err)}
	}

	s.logger.Info("run saved", "name", run.Name, "records", len(run.Records))
	return nil
}

func (s *MongoStore) Load(ctx context.Context, name string) (*types.Run, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var doc runDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("find: %w", err)}
	}
	return doc.run(), nil
}

func (s *MongoStore) List(ctx context.Context) ([]RunInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := options.Find().
		SetProjection(bson.M{"records": 0}).
		SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("find: %w", err)}
	}
	defer cur.Close(ctx)

	out := []RunInfo{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("decode: %w", err)}
	}
	return out, nil
}

func (s *MongoStore) Delete(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": name})
	if err != nil {
		return &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("delete: %w", err)}
	}
	if res.DeletedCount == 0 {
		return notFound(name)
	}
	s.logger.Info("run deleted", "name", name)
	return nil
}

func (s *MongoStore) Close() error {
	s.logger.Debug("mongodb storage closing")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// --- Multi-Store Fan-Out ---

// MultiStore saves to every backend and reads from the first that answers.
type MultiStore struct {
	backends []RunStore
	logger   *slog.Logger
}

// NewMultiStore creates a store that fans out to multiple backends.
func NewMultiStore(backends []RunStore, logger *slog.Logger) *MultiStore {
	return &MultiStore{
		backends: backends,
		logger:   logger.With("component", "multi_storage"),
	}
}

func (s *MultiStore) Name() string { return "multi" }

func (s *MultiStore) Save(ctx context.Context, run *types.Run) error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Save(ctx, run); err != nil {
			s.logger.Error("backend save failed", "backend", backend.Name(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *MultiStore) Load(ctx context.Context, name string) (*types.Run, error) {
	var lastErr error = notFound(name)
	for _, backend := range s.backends {
		run, err := backend.Load(ctx, name)
		if err == nil {
			return run, nil
		}
		if !errors.Is(err, types.ErrRunNotFound) {
			s.logger.Warn("backend load failed", "backend", backend.Name(), "error", err)
		}
		lastErr = err
	}
	return nil, lastErr
}

func (s *MultiStore) List(ctx context.Context) ([]RunInfo, error) {
	var lastErr error
	for _, backend := range s.backends {
		infos, err := backend.List(ctx)
		if err == nil {
			return infos, nil
		}
		s.logger.Warn("backend list failed", "backend", backend.Name(), "error", err)
		lastErr = err
	}
	if lastErr == nil {
		return []RunInfo{}, nil
	}
	return nil, lastErr
}

// Delete removes the run everywhere. It fails only if no backend held it or a
// backend reported something other than a missing run.
func (s *MultiStore) Delete(ctx context.Context, name string) error {
	deleted := false
	var firstErr error
	for _, backend := range s.backends {
		err := backend.Delete(ctx, name)
		switch {
		case err == nil:
			deleted = true
		case errors.Is(err, types.ErrRunNotFound):
		default:
			s.logger.Error("backend delete failed", "backend", backend.Name(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		return firstErr
	}
	if !deleted {
		return notFound(name)
	}
	return nil
}

func (s *MultiStore) Close() error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Close(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
