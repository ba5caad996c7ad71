package routes

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"sintetic-qa/internal/ai"
	"sintetic-qa/internal/config"
	"sintetic-qa/internal/ingest"
	"sintetic-qa/internal/queue"
	"sintetic-qa/internal/retrieval"
	"sintetic-qa/middleware"
	"sintetic-qa/models"
	"sintetic-qa/utils"
)

// SetupQARoutes wires the document ingestion and question answering
// endpoints. queueClient may be nil, in which case the async upload
// endpoint reports the queue as unavailable.
func SetupQARoutes(
	router *gin.Engine,
	cfg *config.Config,
	loader *ingest.Loader,
	retriever *retrieval.Retriever,
	summarizer ai.Summarizer,
	queueClient *asynq.Client,
	authMiddleware *middleware.AuthMiddleware,
) {
	docs := router.Group("/documents")
	docs.Use(authMiddleware.RequireAuth())
	docs.POST("", handleUpload(cfg, loader))
	docs.POST("/async", handleAsyncUpload(cfg, queueClient))

	ask := router.Group("/ask")
	ask.Use(authMiddleware.RequireAuth())
	ask.POST("", handleAsk(retriever, summarizer))

	extract := router.Group("/extract")
	extract.Use(authMiddleware.RequireAuth())
	extract.POST("", handleExtract(cfg, loader))
}

// handleUpload ingests the uploaded document synchronously: the chunks are
// searchable as soon as the response arrives.
func handleUpload(cfg *config.Config, loader *ingest.Loader) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, filename, ok := readUpload(c, cfg)
		if !ok {
			return
		}
		opts, ok := splitOptions(c, cfg)
		if !ok {
			return
		}

		res, err := loader.Ingest(c.Request.Context(), raw, filename, opts)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to ingest document", gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, models.Generic{
			Message: fmt.Sprintf("Document %s loaded", res.Filename),
			Result:  res,
			Code:    models.CodeOK,
		})
	}
}

// handleAsyncUpload spools the upload next to the scratch files and
// enqueues an ingestion task for the worker.
func handleAsyncUpload(cfg *config.Config, queueClient *asynq.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if queueClient == nil {
			utils.RespondWithError(c, http.StatusServiceUnavailable,
				"queue_unavailable", "Async ingestion requires Redis", nil)
			return
		}

		raw, filename, ok := readUpload(c, cfg)
		if !ok {
			return
		}
		opts, ok := splitOptions(c, cfg)
		if !ok {
			return
		}

		if err := os.MkdirAll(cfg.TmpDir, 0755); err != nil {
			utils.RespondWithInternalError(c, "Failed to create spool directory", nil)
			return
		}
		// The uuid prefix keeps concurrent uploads of the same filename from
		// clobbering each other's spool file.
		spool := filepath.Join(cfg.TmpDir, uuid.NewString()+"_"+filepath.Base(filename))
		if err := os.WriteFile(spool, raw, 0600); err != nil {
			utils.RespondWithInternalError(c, "Failed to spool upload", nil)
			return
		}

		task, err := queue.NewIngestTask(queue.IngestPayload{
			SpoolPath:    spool,
			Filename:     filename,
			Separator:    opts.Separator,
			ChunkSize:    opts.ChunkSize,
			ChunkOverlap: opts.ChunkOverlap,
		})
		if err != nil {
			os.Remove(spool)
			utils.RespondWithInternalError(c, "Failed to create ingestion task", nil)
			return
		}
		info, err := queueClient.Enqueue(task)
		if err != nil {
			os.Remove(spool)
			utils.RespondWithInternalError(c, "Failed to enqueue ingestion task", nil)
			return
		}

		c.JSON(http.StatusAccepted, models.Generic{
			Message: fmt.Sprintf("Document %s accepted for ingestion", filepath.Base(filename)),
			Result:  gin.H{"task_id": info.ID, "filename": filepath.Base(filename)},
			Code:    models.CodeOK,
		})
	}
}

// handleAsk answers a question from the stored documents. When nothing
// relevant enough is found the response is still 200, with the sentinel
// code and the rejected candidates, so clients can distinguish "no answer"
// from transport failures.
func handleAsk(retriever *retrieval.Retriever, summarizer ai.Summarizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.AskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		results, err := retriever.RetrieveRelevant(c.Request.Context(), req.Query, req.Items)
		if err != nil {
			if errors.Is(err, retrieval.ErrNotEnoughResults) {
				c.JSON(http.StatusOK, models.Generic{
					Message: "Not enough relevant results found for the given query",
					Result:  models.AskResult{Sources: toSources(retriever, results)},
					Code:    models.CodeNotEnoughResults,
				})
				return
			}
			utils.RespondWithInternalError(c, "Failed to search documents", gin.H{"error": err.Error()})
			return
		}

		chunks := make([]string, len(results))
		for i, res := range results {
			chunks[i] = res.Chunk.Content
		}
		answer, err := summarizer.Summarize(c.Request.Context(), req.Query, chunks)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to generate answer", gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, models.Generic{
			Message: "Answer generated",
			Result: models.AskResult{
				Answer:  answer,
				Sources: toSources(retriever, results),
			},
			Code: models.CodeOK,
		})
	}
}

// handleExtract returns the extracted text without touching the store.
func handleExtract(cfg *config.Config, loader *ingest.Loader) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, filename, ok := readUpload(c, cfg)
		if !ok {
			return
		}

		text, err := loader.ExtractText(raw, filename)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to extract text", gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, models.Generic{
			Message: fmt.Sprintf("Text extracted from %s", filepath.Base(filename)),
			Result:  gin.H{"text": text},
			Code:    models.CodeOK,
		})
	}
}

// readUpload pulls the "file" part out of the multipart form, enforcing
// the configured size limit.
func readUpload(c *gin.Context, cfg *config.Config) ([]byte, string, bool) {
	if err := c.Request.ParseMultipartForm(cfg.MaxFileSize); err != nil {
		utils.RespondWithBadRequest(c, "File size exceeds maximum limit", nil)
		return nil, "", false
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.RespondWithBadRequest(c, "No file provided", nil)
		return nil, "", false
	}
	defer file.Close()

	if header.Size > cfg.MaxFileSize {
		utils.RespondWithBadRequest(c, "File size exceeds maximum limit", nil)
		return nil, "", false
	}

	raw, err := io.ReadAll(io.LimitReader(file, cfg.MaxFileSize+1))
	if err != nil {
		utils.RespondWithInternalError(c, "Failed to read upload", nil)
		return nil, "", false
	}
	if int64(len(raw)) > cfg.MaxFileSize {
		utils.RespondWithBadRequest(c, "File size exceeds maximum limit", nil)
		return nil, "", false
	}
	return raw, header.Filename, true
}

// splitOptions reads the optional per-upload chunking overrides from the
// form fields and checks them against the effective chunk size, so a bad
// combination is a 400 here instead of a failure deeper in the pipeline.
func splitOptions(c *gin.Context, cfg *config.Config) (ingest.Options, bool) {
	var opts ingest.Options
	opts.Separator = strings.ReplaceAll(c.PostForm("separator"), `\n`, "\n")
	if v := c.PostForm("chunk_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			utils.RespondWithBadRequest(c, "chunk_size must be a positive integer", nil)
			return opts, false
		}
		opts.ChunkSize = n
	}
	if v := c.PostForm("chunk_overlap"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			utils.RespondWithBadRequest(c, "chunk_overlap must be a non-negative integer", nil)
			return opts, false
		}
		opts.ChunkOverlap = &n
	}

	size := opts.ChunkSize
	if size == 0 {
		size = cfg.ChunkSize
	}
	overlap := cfg.ChunkOverlap
	if opts.ChunkOverlap != nil {
		overlap = *opts.ChunkOverlap
	}
	if overlap >= size {
		utils.RespondWithBadRequest(c, "chunk_overlap must be smaller than chunk_size",
			gin.H{"chunk_size": size, "chunk_overlap": overlap})
		return opts, false
	}
	return opts, true
}

func toSources(retriever *retrieval.Retriever, results []models.RetrievalResult) []models.Source {
	sources := make([]models.Source, len(results))
	for i, res := range results {
		meta := res.Chunk.Metadata
		page, _ := strconv.Atoi(meta[models.MetaPageNumber])
		total, _ := strconv.Atoi(meta[models.MetaTotalPages])
		sources[i] = models.Source{
			Answer:     res.Chunk.Content,
			Filename:   meta[models.MetaUploadedFilename],
			Title:      meta[models.MetaTitle],
			Author:     meta[models.MetaAuthor],
			PageNumber: page,
			TotalPages: total,
			Distance:   res.Distance,
			IsRelevant: retriever.IsRelevant(res.Distance),
		}
	}
	return sources
}
