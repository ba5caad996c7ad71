package store

import (
	"context"
	"math"

	"sintetic-qa/models"
)

// DefaultK is the result count returned by SimilaritySearch when the caller
// does not supply one.
const DefaultK = 4

// Store persists embedded chunks for one named collection and serves
// similarity search over them. The collection is created lazily on first
// write; searching a collection that does not exist yet returns an empty
// result set.
type Store interface {
	// AddDocuments embeds each chunk, appends it to the collection and
	// persists before returning, so a read issued after the call observes
	// the write. An empty input is a no-op.
	AddDocuments(ctx context.Context, chunks []models.Document) ([]string, error)

	// SimilaritySearch embeds the query and returns the k nearest chunks
	// ordered by ascending distance, ties kept in insertion order.
	SimilaritySearch(ctx context.Context, query string, k int) ([]models.RetrievalResult, error)
}

// cosineDistance is 1 minus the cosine similarity of a and b, so lower
// means more similar. Degenerate vectors score the maximum distance.
func cosineDistance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
