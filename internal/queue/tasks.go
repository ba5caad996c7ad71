package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"sintetic-qa/internal/ingest"
	"sintetic-qa/internal/logger"
)

const TaskIngestDocument = "ingest:document"

// IngestPayload references a spooled upload on shared disk rather than
// embedding the bytes, keeping large uploads out of Redis.
type IngestPayload struct {
	SpoolPath    string `json:"spool_path"`
	Filename     string `json:"filename"`
	Separator    string `json:"separator,omitempty"`
	ChunkSize    int    `json:"chunk_size,omitempty"`
	ChunkOverlap *int   `json:"chunk_overlap,omitempty"`
}

func NewIngestTask(payload IngestPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(
		TaskIngestDocument,
		data,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue("default"),
	), nil
}

// TaskProcessor handles queued ingestion jobs in the worker process.
type TaskProcessor struct {
	loader *ingest.Loader
}

func NewTaskProcessor(loader *ingest.Loader) *TaskProcessor {
	return &TaskProcessor{loader: loader}
}

func (p *TaskProcessor) ProcessIngest(ctx context.Context, t *asynq.Task) error {
	var payload IngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	raw, err := os.ReadFile(payload.SpoolPath)
	if err != nil {
		// A missing spool file will not reappear on retry.
		return fmt.Errorf("read spool %s: %v: %w", payload.SpoolPath, err, asynq.SkipRetry)
	}
	res, err := p.loader.Ingest(ctx, raw, payload.Filename, ingest.Options{
		Separator:    payload.Separator,
		ChunkSize:    payload.ChunkSize,
		ChunkOverlap: payload.ChunkOverlap,
	})
	if err != nil {
		// Keep the spool file for the retry; the scratch sweeper reclaims
		// it if every attempt fails.
		return err
	}
	os.Remove(payload.SpoolPath)

	logger.Info("Queued ingestion completed", "filename", res.Filename, "chunks", len(res.ChunkIDs))
	return nil
}
