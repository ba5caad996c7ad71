package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"sintetic-qa/internal/ai"
	"sintetic-qa/internal/config"
	"sintetic-qa/internal/ingest"
	"sintetic-qa/internal/retrieval"
	"sintetic-qa/internal/store"
	"sintetic-qa/middleware"
	"sintetic-qa/models"
	"sintetic-qa/utils"
)

// letterEmbedder buckets words by their first letter, so relatedness is
// fully predictable: texts sharing no initial letters score distance 1.
type letterEmbedder struct{}

func (letterEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 26)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		if word[0] >= 'a' && word[0] <= 'z' {
			vec[word[0]-'a']++
		}
	}
	return vec, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *config.Config, *ingest.Loader) {
	t.Helper()
	base := t.TempDir()
	cfg := &config.Config{
		JWTSecret:         "test-secret",
		JWTExpiresIn:      "1h",
		MaxFileSize:       1 << 20,
		Separator:         config.DefaultSeparator,
		ChunkSize:         config.DefaultChunkSize,
		ChunkOverlap:      config.DefaultChunkOverlap,
		ParagraphScale:    config.DefaultParagraphScale,
		RelevantThreshold: config.DefaultThreshold,
		Collection:        "sintetic",
		PersistDir:        filepath.Join(base, "indexes"),
		TmpDir:            filepath.Join(base, "tmp"),
	}

	st, err := store.OpenFileStore(cfg.PersistDir, cfg.Collection, letterEmbedder{})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	loader := ingest.NewLoader(st, cfg)
	retriever := retrieval.New(st, cfg.RelevantThreshold)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	SetupQARoutes(router, cfg, loader, retriever, ai.StaticSummarizer{}, nil, middleware.NewAuthMiddleware(cfg))
	return router, cfg, loader
}

func bearerToken(t *testing.T, cfg *config.Config) string {
	t.Helper()
	token, err := utils.GenerateJWT("ops@example.com", "admin", cfg.JWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return "Bearer " + token
}

type askResponse struct {
	Message string           `json:"message"`
	Result  models.AskResult `json:"result"`
	Code    int              `json:"code"`
}

func postAsk(t *testing.T, router *gin.Engine, token, query string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(models.AskRequest{Query: query})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAskRequiresAuth(t *testing.T) {
	router, _, _ := newTestRouter(t)

	if w := postAsk(t, router, "", "anything"); w.Code != http.StatusUnauthorized {
		t.Fatalf("ask without token must be 401, got %d", w.Code)
	}
	if w := postAsk(t, router, "Bearer not-a-token", "anything"); w.Code != http.StatusUnauthorized {
		t.Fatalf("ask with a bad token must be 401, got %d", w.Code)
	}
}

func TestAskNotEnoughResultsCode(t *testing.T) {
	router, cfg, loader := newTestRouter(t)
	if _, err := loader.Ingest(context.Background(), []byte("alpha beta gamma"), "corpus.txt", ingest.Options{}); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	// No initial letter in common with the stored chunk, so nothing scores
	// inside the threshold.
	w := postAsk(t, router, bearerToken(t, cfg), "zebra quail")
	if w.Code != http.StatusOK {
		t.Fatalf("sentinel outcome must be 200, got %d", w.Code)
	}
	var resp askResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Code != models.CodeNotEnoughResults {
		t.Fatalf("expected code %d, got %d", models.CodeNotEnoughResults, resp.Code)
	}
	if resp.Result.Answer != "" {
		t.Fatalf("no answer must be generated, got %q", resp.Result.Answer)
	}
	if len(resp.Result.Sources) != 1 {
		t.Fatalf("rejected candidates must still be reported, got %d sources", len(resp.Result.Sources))
	}
	if resp.Result.Sources[0].IsRelevant {
		t.Fatalf("rejected candidate must be marked not relevant")
	}
}

func TestAskAnswersFromRelevantChunks(t *testing.T) {
	router, cfg, loader := newTestRouter(t)
	if _, err := loader.Ingest(context.Background(), []byte("alpha beta gamma"), "corpus.txt", ingest.Options{}); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	w := postAsk(t, router, bearerToken(t, cfg), "alpha beta")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp askResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Code != models.CodeOK {
		t.Fatalf("expected code %d, got %d: %s", models.CodeOK, resp.Code, resp.Message)
	}
	if resp.Result.Answer == "" {
		t.Fatalf("expected a generated answer")
	}
	if len(resp.Result.Sources) == 0 || !resp.Result.Sources[0].IsRelevant {
		t.Fatalf("expected a relevant source, got %+v", resp.Result.Sources)
	}
	if resp.Result.Sources[0].Filename != "corpus.txt" {
		t.Fatalf("source filename mismatch: %q", resp.Result.Sources[0].Filename)
	}
}

func TestUploadRejectsOverlapNotSmallerThanSize(t *testing.T) {
	router, cfg, _ := newTestRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "doc.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write([]byte("some content"))
	mw.WriteField("chunk_size", "100")
	mw.WriteField("chunk_overlap", "100")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", bearerToken(t, cfg))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("overlap equal to chunk size must be 400, got %d: %s", w.Code, w.Body.String())
	}
}
