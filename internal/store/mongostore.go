package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"sintetic-qa/internal/ai"
	"sintetic-qa/models"
)

// MongoStore keeps one collection as documents in the "embeddings"
// collection, with a row per chunk, plus a metadata record in
// "collections". Search streams every row of the collection and scores it
// in the application; there is no index-assisted ANN, so query cost grows
// linearly with collection size.
type MongoStore struct {
	collection     string
	collectionsCol *mongo.Collection
	embeddingsCol  *mongo.Collection
	embedder       ai.Embedder
}

type mongoEmbeddingRow struct {
	ID         string          `bson:"chunk_id"`
	Collection string          `bson:"collection"`
	Chunk      models.Document `bson:"chunk"`
	Vector     []float32       `bson:"vector"`
	CreatedAt  time.Time       `bson:"created_at"`
}

func NewMongoStore(db *mongo.Database, collection string, embedder ai.Embedder) *MongoStore {
	return &MongoStore{
		collection:     collection,
		collectionsCol: db.Collection("collections"),
		embeddingsCol:  db.Collection("embeddings"),
		embedder:       embedder,
	}
}

func (s *MongoStore) AddDocuments(ctx context.Context, chunks []models.Document) ([]string, error) {
	if len(chunks) == 0 {
		return []string{}, nil
	}

	now := time.Now().UTC()
	rows := make([]interface{}, 0, len(chunks))
	ids := make([]string, 0, len(chunks))
	var dims int
	for _, chunk := range chunks {
		vec, err := s.embedder.Embed(ctx, chunk.Content)
		if err != nil {
			return nil, fmt.Errorf("store %q: embed chunk: %w", s.collection, err)
		}
		id := uuid.NewString()
		rows = append(rows, mongoEmbeddingRow{
			ID:         id,
			Collection: s.collection,
			Chunk:      chunk,
			Vector:     vec,
			CreatedAt:  now,
		})
		ids = append(ids, id)
		dims = len(vec)
	}

	if _, err := s.embeddingsCol.InsertMany(ctx, rows); err != nil {
		return nil, fmt.Errorf("store %q: insert embeddings: %w", s.collection, err)
	}

	count, err := s.embeddingsCol.CountDocuments(ctx, bson.M{"collection": s.collection})
	if err != nil {
		return nil, fmt.Errorf("store %q: count embeddings: %w", s.collection, err)
	}
	update := bson.M{
		"$set": bson.M{
			"name":       s.collection,
			"size":       count,
			"dimensions": dims,
			"updated_at": now,
		},
	}
	opts := options.Update().SetUpsert(true)
	if _, err := s.collectionsCol.UpdateOne(ctx, bson.M{"name": s.collection}, update, opts); err != nil {
		return nil, fmt.Errorf("store %q: upsert collection record: %w", s.collection, err)
	}

	return ids, nil
}

func (s *MongoStore) SimilaritySearch(ctx context.Context, query string, k int) ([]models.RetrievalResult, error) {
	if k <= 0 {
		k = DefaultK
	}

	qvec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store %q: embed query: %w", s.collection, err)
	}

	cursor, err := s.embeddingsCol.Find(ctx, bson.M{"collection": s.collection})
	if err != nil {
		return nil, fmt.Errorf("store %q: find embeddings: %w", s.collection, err)
	}
	defer cursor.Close(ctx)

	var results []models.RetrievalResult
	for cursor.Next(ctx) {
		var row mongoEmbeddingRow
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("store %q: decode embedding row: %w", s.collection, err)
		}
		results = append(results, models.RetrievalResult{
			Chunk:    row.Chunk,
			Distance: cosineDistance(row.Vector, qvec),
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("store %q: iterate embeddings: %w", s.collection, err)
	}
	if len(results) == 0 {
		return []models.RetrievalResult{}, nil
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}
