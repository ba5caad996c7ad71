package store

import (
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"sintetic-qa/internal/ai"
	"sintetic-qa/internal/config"
)

// Open builds the configured store backend. The returned mongo client is
// nil for the file backend; callers own its disconnect when present.
func Open(cfg *config.Config, embedder ai.Embedder) (Store, *mongo.Client, error) {
	switch cfg.StoreBackend {
	case "file":
		s, err := OpenFileStore(cfg.PersistDir, cfg.Collection, embedder)
		if err != nil {
			return nil, nil, fmt.Errorf("open file store: %w", err)
		}
		return s, nil, nil
	case "mongo":
		client, err := config.ConnectMongoDB(cfg)
		if err != nil {
			return nil, nil, err
		}
		return NewMongoStore(client.Database(cfg.DBName), cfg.Collection, embedder), client, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
