package retrieval

import (
	"context"
	"errors"
	"testing"

	"sintetic-qa/models"
)

type stubStore struct {
	results []models.RetrievalResult
	err     error
}

func (s stubStore) AddDocuments(_ context.Context, _ []models.Document) ([]string, error) {
	return nil, nil
}

func (s stubStore) SimilaritySearch(_ context.Context, _ string, _ int) ([]models.RetrievalResult, error) {
	return s.results, s.err
}

func result(content string, distance float64) models.RetrievalResult {
	return models.RetrievalResult{
		Chunk:    models.Document{Content: content},
		Distance: distance,
	}
}

func TestIsRelevantThresholdInclusive(t *testing.T) {
	r := New(stubStore{}, 0.41)
	if !r.IsRelevant(0.41) {
		t.Fatalf("distance equal to the threshold must be relevant")
	}
	if r.IsRelevant(0.4100001) {
		t.Fatalf("distance just above the threshold must not be relevant")
	}
	if !r.IsRelevant(0) {
		t.Fatalf("zero distance must be relevant")
	}
}

func TestFilterRelevantPreservesOrder(t *testing.T) {
	r := New(stubStore{}, 0.41)
	filtered := r.FilterRelevant([]models.RetrievalResult{
		result("a", 0.10),
		result("b", 0.90),
		result("c", 0.41),
		result("d", 0.30),
	})
	if len(filtered) != 3 {
		t.Fatalf("expected 3 relevant results, got %d", len(filtered))
	}
	want := []string{"a", "c", "d"}
	for i, res := range filtered {
		if res.Chunk.Content != want[i] {
			t.Fatalf("order not preserved at %d: got %q want %q", i, res.Chunk.Content, want[i])
		}
	}
}

func TestRetrieveRelevantReturnsSentinel(t *testing.T) {
	r := New(stubStore{results: []models.RetrievalResult{
		result("far", 0.95),
		result("farther", 0.99),
	}}, 0.41)

	results, err := r.RetrieveRelevant(context.Background(), "query", 4)
	if !errors.Is(err, ErrNotEnoughResults) {
		t.Fatalf("expected ErrNotEnoughResults, got %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("sentinel must still carry the unfiltered results, got %d", len(results))
	}
}

func TestRetrieveRelevantEmptyStore(t *testing.T) {
	r := New(stubStore{results: []models.RetrievalResult{}}, 0.41)

	_, err := r.RetrieveRelevant(context.Background(), "query", 4)
	if !errors.Is(err, ErrNotEnoughResults) {
		t.Fatalf("empty store must yield ErrNotEnoughResults, got %v", err)
	}
}

func TestRetrieveRelevantPropagatesStoreError(t *testing.T) {
	wantErr := errors.New("backend down")
	r := New(stubStore{err: wantErr}, 0.41)

	_, err := r.RetrieveRelevant(context.Background(), "query", 4)
	if !errors.Is(err, wantErr) {
		t.Fatalf("store error must propagate, got %v", err)
	}
}

func TestRetrieveRelevantKeepsRelevantOnly(t *testing.T) {
	r := New(stubStore{results: []models.RetrievalResult{
		result("near", 0.12),
		result("far", 0.80),
	}}, 0.41)

	results, err := r.RetrieveRelevant(context.Background(), "query", 4)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(results) != 1 || results[0].Chunk.Content != "near" {
		t.Fatalf("expected only the relevant chunk, got %+v", results)
	}
}
