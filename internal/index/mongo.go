package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/watcherhq/wetvlo/internal/tasks"
)

// MongoIndex is an alternate DownloadedIndex backend, selected by
// storage.type: mongo. One document per series; episode numbers accumulate
// in a set field so RecordDownloaded is naturally idempotent.
type MongoIndex struct {
	client     *mongo.Client
	collection *mongo.Collection
	mu         sync.Mutex
	cache      map[string]map[int]bool
	logger     *slog.Logger
}

type mongoSeriesDoc struct {
	Series     string `bson:"series"`
	Downloaded []int  `bson:"downloaded"`
}

// NewMongoIndex connects to uri and loads the current state of database.collection.
func NewMongoIndex(uri, database, collection string, logger *slog.Logger) (*MongoIndex, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	idx := &MongoIndex{
		client:     client,
		collection: client.Database(database).Collection(collection),
		cache:      map[string]map[int]bool{},
		logger:     logger.With("component", "mongo_index"),
	}

	cur, err := idx.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("mongodb index load: %w", err)
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var doc mongoSeriesDoc
		if err := cur.Decode(&doc); err != nil {
			continue
		}
		set := make(map[int]bool, len(doc.Downloaded))
		for _, n := range doc.Downloaded {
			set[n] = true
		}
		idx.cache[doc.Series] = set
	}

	return idx, nil
}

// IsDownloaded reports whether episode number was already recorded for seriesName.
func (idx *MongoIndex) IsDownloaded(seriesName string, number int) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.cache[seriesName][number]
}

// RecordDownloaded upserts number into seriesName's set, both in Mongo and
// in the in-memory read cache, before returning.
func (idx *MongoIndex) RecordDownloaded(seriesName string, episode tasks.Episode) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.cache[seriesName] == nil {
		idx.cache[seriesName] = map[int]bool{}
	}
	if idx.cache[seriesName][episode.Number] {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := idx.collection.UpdateOne(ctx,
		bson.M{"series": seriesName},
		bson.M{"$addToSet": bson.M{"downloaded": episode.Number}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongodb index upsert: %w", err)
	}

	idx.cache[seriesName][episode.Number] = true
	idx.logger.Debug("downloaded-index updated", "series", seriesName, "episode", episode.Number)
	return nil
}

// Close disconnects the Mongo client.
func (idx *MongoIndex) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return idx.client.Disconnect(ctx)
}

var _ Index = (*MongoIndex)(nil)
