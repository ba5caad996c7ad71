package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"sintetic-qa/internal/config"
	"sintetic-qa/internal/logger"
	"sintetic-qa/internal/splitter"
	"sintetic-qa/internal/store"
	"sintetic-qa/models"
)

// Options override the configured splitting parameters for one ingestion.
// A zero separator or chunk size falls back to the loader's defaults; the
// overlap is a pointer so an explicit zero is distinguishable from absent.
type Options struct {
	Separator    string
	ChunkSize    int
	ChunkOverlap *int
}

// Result summarizes one completed ingestion.
type Result struct {
	Filename string   `json:"filename"`
	Pages    int      `json:"pages"`
	ChunkIDs []string `json:"chunk_ids"`
}

// Loader runs the ingestion pipeline: spool the upload to a scratch file,
// extract text, split and persist. The scratch file is named after the
// upload, so two concurrent uploads with the same filename race on it;
// callers needing isolation must pass distinct names.
type Loader struct {
	store          store.Store
	scratchDir     string
	separator      string
	chunkSize      int
	chunkOverlap   int
	paragraphScale int
}

func NewLoader(s store.Store, cfg *config.Config) *Loader {
	return &Loader{
		store:          s,
		scratchDir:     cfg.TmpDir,
		separator:      cfg.Separator,
		chunkSize:      cfg.ChunkSize,
		chunkOverlap:   cfg.ChunkOverlap,
		paragraphScale: cfg.ParagraphScale,
	}
}

// Ingest loads raw into the store. The scratch file is removed on every
// exit path, success or failure.
func (l *Loader) Ingest(ctx context.Context, raw []byte, filename string, opts Options) (*Result, error) {
	tracer := otel.Tracer("ingest")
	ctx, span := tracer.Start(ctx, "ingest.document")
	defer span.End()
	span.SetAttributes(
		attribute.String("ingest.filename", filepath.Base(filename)),
		attribute.Int("ingest.bytes", len(raw)),
	)

	docs, base, err := l.load(raw, filename)
	if err != nil {
		return nil, err
	}

	sep := opts.Separator
	if sep == "" {
		sep = l.separator
	}
	size := opts.ChunkSize
	if size == 0 {
		size = l.chunkSize
	}
	overlap := l.chunkOverlap
	if opts.ChunkOverlap != nil {
		overlap = *opts.ChunkOverlap
	}
	sp, err := splitter.New(sep, size, overlap, l.paragraphScale)
	if err != nil {
		return nil, fmt.Errorf("ingest %q: %w", base, err)
	}

	chunks := sp.Split(docs)
	ids, err := l.store.AddDocuments(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("ingest %q: %w", base, err)
	}

	logger.Info("Document ingested", "filename", base, "pages", len(docs), "chunks", len(chunks))
	return &Result{Filename: base, Pages: len(docs), ChunkIDs: ids}, nil
}

// ExtractText runs only the loading half of the pipeline and returns the
// extracted text, pages joined by double newlines.
func (l *Loader) ExtractText(raw []byte, filename string) (string, error) {
	docs, _, err := l.load(raw, filename)
	if err != nil {
		return "", err
	}
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = d.Content
	}
	return strings.Join(parts, "\n\n"), nil
}

// load spools raw to the scratch directory, extracts per-page documents
// and stamps the upload filename on each.
func (l *Loader) load(raw []byte, filename string) ([]models.Document, string, error) {
	base := filepath.Base(filename)
	if base == "." || base == string(filepath.Separator) || base == "" {
		return nil, "", fmt.Errorf("invalid filename %q", filename)
	}

	if err := os.MkdirAll(l.scratchDir, 0755); err != nil {
		return nil, "", fmt.Errorf("create scratch dir: %w", err)
	}
	scratch := filepath.Join(l.scratchDir, base)
	if err := os.WriteFile(scratch, raw, 0644); err != nil {
		return nil, "", fmt.Errorf("spool %q: %w", base, err)
	}
	defer os.Remove(scratch)

	var docs []models.Document
	var err error
	if isPDF(raw, base) {
		docs, err = loadPDF(scratch)
	} else {
		docs, err = loadText(scratch)
	}
	if err != nil {
		return nil, "", fmt.Errorf("load %q: %w", base, err)
	}

	for i := range docs {
		if docs[i].Metadata == nil {
			docs[i].Metadata = map[string]string{}
		}
		docs[i].Metadata[models.MetaUploadedFilename] = base
		docs[i].SourceID = base
	}
	return docs, base, nil
}

// loadText reads the whole file as one UTF-8 document.
func loadText(path string) ([]models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	content := NormalizeWhitespace(string(data))
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("empty document")
	}
	return []models.Document{{
		Content:  content,
		Metadata: map[string]string{},
	}}, nil
}
