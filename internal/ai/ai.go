package ai

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// Embedder turns text into a fixed-dimension vector. The vector store and
// the retrieval path depend only on this capability, so tests inject
// deterministic fakes.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Summarizer condenses retrieved context into a single answer sentence for
// the given question.
type Summarizer interface {
	Summarize(ctx context.Context, question string, contextChunks []string) (string, error)
}

// StaticSummarizer returns a canned answer. Used when no API key is
// configured so the service can run offline.
type StaticSummarizer struct{}

func (StaticSummarizer) Summarize(ctx context.Context, question string, contextChunks []string) (string, error) {
	return "A language model is a type of artificial intelligence model trained to generate text " +
		"that is similar to human language for natural language processing tasks.", nil
}

// LocalEmbedder hashes words into a normalized bag-of-words vector. It is
// the offline counterpart of StaticSummarizer: texts sharing vocabulary
// land close together, which is enough to exercise the full pipeline
// without an API key.
type LocalEmbedder struct {
	Dimensions int
}

func (e LocalEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	dims := e.Dimensions
	if dims <= 0 {
		dims = 256
	}
	vec := make([]float32, dims)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[h.Sum32()%uint32(dims)]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}
