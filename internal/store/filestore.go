package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"sintetic-qa/internal/ai"
	"sintetic-qa/internal/logger"
	"sintetic-qa/models"
)

const (
	metaFile       = "collection.json"
	embeddingsFile = "embeddings.json"
)

// collectionMeta is the collection metadata table.
type collectionMeta struct {
	Name       string    `json:"name"`
	Size       int       `json:"size"`
	Dimensions int       `json:"dimensions"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// embeddingRow is one entry of the embeddings-by-chunk table.
type embeddingRow struct {
	ID     string          `json:"id"`
	Chunk  models.Document `json:"chunk"`
	Vector []float32       `json:"vector"`
}

// FileStore keeps one collection as a pair of JSON tables under
// baseDir/collection. Every AddDocuments call rewrites both tables and
// reopens them from disk before returning; that full persist-and-reopen
// cycle is O(collection size) by design, trading write latency for the
// guarantee that durability is observed before the next read. The mutex
// serializes writers within the process; concurrent writers from separate
// processes still race (last rename wins).
type FileStore struct {
	mu         sync.RWMutex
	collection string
	dir        string
	embedder   ai.Embedder

	meta collectionMeta
	rows []embeddingRow
}

// OpenFileStore opens the named collection under baseDir, creating nothing
// yet: the collection materializes on first write.
func OpenFileStore(baseDir, collection string, embedder ai.Embedder) (*FileStore, error) {
	s := &FileStore{
		collection: collection,
		dir:        filepath.Join(baseDir, collection),
		embedder:   embedder,
	}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) AddDocuments(ctx context.Context, chunks []models.Document) ([]string, error) {
	if len(chunks) == 0 {
		return []string{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Embed everything first so a failing embedding call leaves the
	// persisted tables untouched.
	added := make([]embeddingRow, 0, len(chunks))
	ids := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		vec, err := s.embedder.Embed(ctx, chunk.Content)
		if err != nil {
			return nil, fmt.Errorf("store %q: embed chunk: %w", s.collection, err)
		}
		row := embeddingRow{ID: uuid.NewString(), Chunk: chunk, Vector: vec}
		added = append(added, row)
		ids = append(ids, row.ID)
	}

	s.rows = append(s.rows, added...)
	s.meta = collectionMeta{
		Name:       s.collection,
		Size:       len(s.rows),
		Dimensions: len(added[0].Vector),
		UpdatedAt:  time.Now().UTC(),
	}

	if err := s.persist(); err != nil {
		return nil, fmt.Errorf("store %q: persist: %w", s.collection, err)
	}
	if err := s.reload(); err != nil {
		return nil, fmt.Errorf("store %q: reopen: %w", s.collection, err)
	}

	return ids, nil
}

func (s *FileStore) SimilaritySearch(ctx context.Context, query string, k int) ([]models.RetrievalResult, error) {
	if k <= 0 {
		k = DefaultK
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.rows) == 0 {
		return []models.RetrievalResult{}, nil
	}

	qvec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store %q: embed query: %w", s.collection, err)
	}

	results := make([]models.RetrievalResult, len(s.rows))
	for i, row := range s.rows {
		results[i] = models.RetrievalResult{
			Chunk:    row.Chunk,
			Distance: cosineDistance(row.Vector, qvec),
		}
	}
	// Stable sort keeps insertion order for equal distances.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// persist writes both tables through temp files renamed into place.
func (s *FileStore) persist() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(s.dir, metaFile), s.meta); err != nil {
		return err
	}
	return writeJSON(filepath.Join(s.dir, embeddingsFile), s.rows)
}

// reload replaces the in-memory handle with the on-disk state. A missing
// collection is not an error: it simply has no rows yet.
func (s *FileStore) reload() error {
	metaPath := filepath.Join(s.dir, metaFile)
	if _, err := os.Stat(metaPath); os.IsNotExist(err) {
		logger.Warn("Collection not found, will be created on first write", "collection", s.collection, "dir", s.dir)
		s.meta = collectionMeta{Name: s.collection}
		s.rows = nil
		return nil
	}

	if err := readJSON(metaPath, &s.meta); err != nil {
		return fmt.Errorf("read collection table: %w", err)
	}
	if err := readJSON(filepath.Join(s.dir, embeddingsFile), &s.rows); err != nil {
		return fmt.Errorf("read embeddings table: %w", err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
