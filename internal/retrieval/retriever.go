package retrieval

import (
	"context"
	"errors"

	"sintetic-qa/internal/store"
	"sintetic-qa/models"
)

// ErrNotEnoughResults reports that the search ran fine but nothing scored
// within the relevance threshold. Handlers map it to a dedicated response
// code rather than a server error.
var ErrNotEnoughResults = errors.New("not enough relevant results")

// Retriever wraps a vector store with a relevance cutoff on distance.
type Retriever struct {
	store     store.Store
	threshold float64
}

func New(s store.Store, threshold float64) *Retriever {
	return &Retriever{store: s, threshold: threshold}
}

// Retrieve returns the k nearest chunks regardless of relevance.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]models.RetrievalResult, error) {
	return r.store.SimilaritySearch(ctx, query, k)
}

// IsRelevant reports whether a distance passes the cutoff. The threshold
// itself is inclusive.
func (r *Retriever) IsRelevant(distance float64) bool {
	return distance <= r.threshold
}

// FilterRelevant keeps only relevant results, preserving their order.
func (r *Retriever) FilterRelevant(results []models.RetrievalResult) []models.RetrievalResult {
	relevant := make([]models.RetrievalResult, 0, len(results))
	for _, res := range results {
		if r.IsRelevant(res.Distance) {
			relevant = append(relevant, res)
		}
	}
	return relevant
}

// RetrieveRelevant searches and filters in one step. It returns
// ErrNotEnoughResults when the search succeeds but no chunk is relevant,
// along with the unfiltered results so callers can still report what was
// found.
func (r *Retriever) RetrieveRelevant(ctx context.Context, query string, k int) ([]models.RetrievalResult, error) {
	results, err := r.store.SimilaritySearch(ctx, query, k)
	if err != nil {
		return nil, err
	}
	relevant := r.FilterRelevant(results)
	if len(relevant) == 0 {
		return results, ErrNotEnoughResults
	}
	return relevant, nil
}
