package splitter

import (
	"fmt"
	"math/rand"
	"strings"

	"sintetic-qa/internal/config"
	"sintetic-qa/models"
)

// fallbackSeparator is used for the single refinement pass when the probe
// finds oversized chunks: PDF extraction frequently collapses paragraph
// breaks to single newlines, so a "\n\n" split can silently produce
// page-sized chunks.
const (
	fallbackSeparator = "\n"
	probeSize         = 5
)

// Splitter splits documents into overlapping chunks bounded by chunkSize
// characters. After the initial split it probes a small random sample of
// chunks; if any exceeds paragraphScale the chosen separator is treated as
// too coarse and the produced chunks are re-split once with a single
// newline. There is no further escalation.
type Splitter struct {
	separator      string
	chunkSize      int
	chunkOverlap   int
	paragraphScale int
}

// New builds a Splitter. An empty separator and zero size or scale select
// the configured defaults; a zero overlap is honored as no overlap, since
// callers resolve their own default before asking for it. The overlap must
// be smaller than the chunk size; a caller-supplied overlap that swallows
// the whole chunk is rejected rather than clamped.
func New(separator string, chunkSize, chunkOverlap, paragraphScale int) (*Splitter, error) {
	if separator == "" {
		separator = config.DefaultSeparator
	}
	if chunkSize == 0 {
		chunkSize = config.DefaultChunkSize
	}
	if paragraphScale == 0 {
		paragraphScale = config.DefaultParagraphScale
	}

	if chunkSize < 0 {
		return nil, fmt.Errorf("split: chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 {
		return nil, fmt.Errorf("split: chunk overlap must be non-negative, got %d", chunkOverlap)
	}
	if chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("split: chunk overlap %d must be smaller than chunk size %d", chunkOverlap, chunkSize)
	}

	return &Splitter{
		separator:      separator,
		chunkSize:      chunkSize,
		chunkOverlap:   chunkOverlap,
		paragraphScale: paragraphScale,
	}, nil
}

// Split chunks every document and applies the at-most-once refinement pass.
// Zero documents yield an empty chunk list without probing.
func (s *Splitter) Split(docs []models.Document) []models.Document {
	chunks := splitAll(docs, s.separator, s.chunkSize, s.chunkOverlap)
	if len(chunks) == 0 {
		return chunks
	}

	if s.probeOversized(chunks) {
		// Re-split the produced chunk set, not the original documents. A
		// second oversized result is returned as-is.
		chunks = splitAll(chunks, fallbackSeparator, s.chunkSize, s.chunkOverlap)
	}

	return chunks
}

// probeOversized samples up to probeSize chunks without replacement and
// reports whether any exceeds the paragraph-scale threshold. A cheap
// statistical check instead of inspecting every chunk.
func (s *Splitter) probeOversized(chunks []models.Document) bool {
	n := probeSize
	if len(chunks) < n {
		n = len(chunks)
	}
	for _, i := range rand.Perm(len(chunks))[:n] {
		if len(chunks[i].Content) > s.paragraphScale {
			return true
		}
	}
	return false
}

func splitAll(docs []models.Document, sep string, size, overlap int) []models.Document {
	chunks := make([]models.Document, 0, len(docs))
	for _, d := range docs {
		chunks = append(chunks, splitOne(d, sep, size, overlap)...)
	}
	return chunks
}

// splitOne splits a single document on sep and greedily packs consecutive
// pieces into chunks of at most size characters, carrying the last overlap
// characters of each emitted chunk forward as the prefix of the next. A
// piece that contains no separator and is longer than size becomes a single
// oversized chunk; packing is a best-effort bound, not a hard guarantee.
func splitOne(doc models.Document, sep string, size, overlap int) []models.Document {
	var chunks []models.Document
	var cur strings.Builder

	emit := func() string {
		content := cur.String()
		chunks = append(chunks, models.Document{
			Content:  content,
			Metadata: doc.CloneMetadata(),
			SourceID: doc.SourceID,
		})
		cur.Reset()
		return content
	}

	for _, piece := range strings.Split(doc.Content, sep) {
		if strings.TrimSpace(piece) == "" {
			continue
		}

		if cur.Len() > 0 && cur.Len()+len(sep)+len(piece) > size {
			emitted := emit()

			// Carry the overlap tail into the next chunk unless the
			// incoming piece would not fit alongside it.
			if overlap > 0 && overlap <= len(emitted) {
				tail := emitted[len(emitted)-overlap:]
				if len(tail)+len(sep)+len(piece) <= size {
					cur.WriteString(tail)
				}
			}
		}

		if cur.Len() > 0 {
			cur.WriteString(sep)
		}
		cur.WriteString(piece)
	}

	if cur.Len() > 0 {
		emit()
	}

	return chunks
}
