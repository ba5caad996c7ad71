package splitter

import (
	"strings"
	"testing"

	"sintetic-qa/models"
)

func doc(content string) models.Document {
	return models.Document{
		Content:  content,
		Metadata: map[string]string{models.MetaUploadedFilename: "test.txt"},
		SourceID: "test.txt",
	}
}

func TestNewRejectsInvalidParameters(t *testing.T) {
	if _, err := New("", 0, 0, 0); err != nil {
		t.Fatalf("defaults should be accepted: %v", err)
	}
	if _, err := New("\n\n", 100, 100, 0); err == nil {
		t.Fatalf("overlap equal to chunk size must be rejected")
	}
	if _, err := New("\n\n", 100, 150, 0); err == nil {
		t.Fatalf("overlap larger than chunk size must be rejected")
	}
	if _, err := New("\n\n", -5, 10, 0); err == nil {
		t.Fatalf("negative chunk size must be rejected")
	}
}

func TestSplitEmptyInput(t *testing.T) {
	s, err := New("", 0, 0, 0)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if got := s.Split(nil); len(got) != 0 {
		t.Fatalf("expected no chunks for empty input, got %d", len(got))
	}
}

func TestSplitPacksWithinChunkSize(t *testing.T) {
	pieces := make([]string, 12)
	for i := range pieces {
		pieces[i] = strings.Repeat("abcdefgh ", 9) // 81 chars
	}
	s, err := New("\n\n", 200, 20, 1000)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	chunks := s.Split([]models.Document{doc(strings.Join(pieces, "\n\n"))})
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c.Content) > 200 {
			t.Fatalf("chunk %d exceeds chunk size: %d chars", i, len(c.Content))
		}
	}
}

func TestSplitOverlapLaw(t *testing.T) {
	pieces := make([]string, 8)
	for i := range pieces {
		pieces[i] = strings.Repeat(string(rune('a'+i)), 50)
	}
	const overlap = 20
	s, err := New("\n\n", 120, overlap, 1000)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	chunks := s.Split([]models.Document{doc(strings.Join(pieces, "\n\n"))})
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i := 0; i < len(chunks)-1; i++ {
		prev := chunks[i].Content
		next := chunks[i+1].Content
		if prev[len(prev)-overlap:] != next[:overlap] {
			t.Fatalf("chunks %d/%d do not overlap: %q vs %q",
				i, i+1, prev[len(prev)-overlap:], next[:overlap])
		}
	}
}

func TestSplitZeroOverlap(t *testing.T) {
	pieces := make([]string, 6)
	for i := range pieces {
		pieces[i] = strings.Repeat(string(rune('a'+i)), 50)
	}
	s, err := New("\n\n", 120, 0, 1000)
	if err != nil {
		t.Fatalf("zero overlap must be accepted: %v", err)
	}

	chunks := s.Split([]models.Document{doc(strings.Join(pieces, "\n\n"))})
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	var total int
	for _, c := range chunks {
		total += len(c.Content)
	}
	// Without overlap no character is carried twice, so the chunks cannot
	// exceed the source length.
	if total > len(strings.Join(pieces, "\n\n")) {
		t.Fatalf("zero overlap must not duplicate content: %d chars from %d", total, len(strings.Join(pieces, "\n\n")))
	}
	for i := 0; i < len(chunks)-1; i++ {
		prev := chunks[i].Content
		next := chunks[i+1].Content
		if prev[len(prev)-10:] == next[:10] {
			t.Fatalf("chunks %d/%d unexpectedly overlap", i, i+1)
		}
	}
}

func TestSplitNoSeparatorYieldsOversizedChunk(t *testing.T) {
	content := strings.Repeat("x", 700) // no separator anywhere
	s, err := New("\n\n", 500, 100, 1000)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	chunks := s.Split([]models.Document{doc(content)})
	if len(chunks) != 1 {
		t.Fatalf("expected single chunk, got %d", len(chunks))
	}
	if len(chunks[0].Content) != 700 {
		t.Fatalf("oversized unit must be kept intact, got %d chars", len(chunks[0].Content))
	}
}

func TestSplitFallsBackToSingleNewline(t *testing.T) {
	// Single-newline prose with no double newlines: the "\n\n" split leaves
	// one oversized chunk, so the probe must trigger the refinement pass.
	var b strings.Builder
	for i := 0; i < 30; i++ {
		b.WriteString(strings.Repeat("word ", 20)) // 100 chars per line
		b.WriteString("\n")
	}
	s, err := New("\n\n", 500, 100, 1000)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	chunks := s.Split([]models.Document{doc(b.String())})
	if len(chunks) < 2 {
		t.Fatalf("expected refinement to split the oversized chunk, got %d chunks", len(chunks))
	}
	for i, c := range chunks {
		if len(c.Content) > 500 {
			t.Fatalf("chunk %d still oversized after refinement: %d chars", i, len(c.Content))
		}
	}
}

func TestSplitRefinesAtMostOnce(t *testing.T) {
	// No newlines at all: the refinement pass cannot improve anything and
	// the still-oversized chunk must be returned as-is.
	content := strings.Repeat("y", 3000)
	s, err := New("\n\n", 500, 100, 1000)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	chunks := s.Split([]models.Document{doc(content)})
	if len(chunks) != 1 {
		t.Fatalf("expected single chunk, got %d", len(chunks))
	}
	if len(chunks[0].Content) != 3000 {
		t.Fatalf("second oversized result must be returned as-is, got %d chars", len(chunks[0].Content))
	}
}

func TestSplitChunksInheritMetadata(t *testing.T) {
	d := doc(strings.Repeat("para\n\n", 100))
	d.Metadata[models.MetaTitle] = "A Title"

	s, err := New("\n\n", 50, 10, 1000)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	chunks := s.Split([]models.Document{d})
	if len(chunks) == 0 {
		t.Fatalf("expected chunks")
	}
	for _, c := range chunks {
		if c.Metadata[models.MetaTitle] != "A Title" {
			t.Fatalf("chunk lost parent metadata: %v", c.Metadata)
		}
		if c.SourceID != "test.txt" {
			t.Fatalf("chunk lost source id: %q", c.SourceID)
		}
	}
	chunks[0].Metadata[models.MetaTitle] = "changed"
	if d.Metadata[models.MetaTitle] != "A Title" {
		t.Fatalf("chunk metadata aliases the parent map")
	}
}
