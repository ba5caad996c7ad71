package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	// Test connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	// Create indexes
	if err := createIndexes(client, cfg.DBName); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %v", err)
	}

	return client, nil
}

func createIndexes(client *mongo.Client, dbName string) error {
	db := client.Database(dbName)

	// Collection metadata table
	collectionsCol := db.Collection("collections")
	collectionIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err := collectionsCol.Indexes().CreateMany(context.Background(), collectionIndexes)
	if err != nil {
		return err
	}

	// Embeddings-by-chunk table
	embeddingsCol := db.Collection("embeddings")
	embeddingIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "collection", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "collection", Value: 1}, {Key: "chunk_id", Value: 1}},
		},
	}
	_, err = embeddingsCol.Indexes().CreateMany(context.Background(), embeddingIndexes)
	return err
}
