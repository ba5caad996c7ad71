package ai

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"

	"sintetic-qa/internal/logger"
)

const generativeModel = "gemini-2.0-flash"

// summarizerInstruction mirrors the service's original answer-generation
// prompt: one sentence, no conversational filler.
const summarizerInstruction = "Act as a Summarizer. I will provide you with one Question and some " +
	"Context. You will summarize the Context into one sentence in such a way that answers " +
	"to the Question. Remove all the constructions and expressions you find in Context which " +
	"don't add any relevant data, as conversational expressions or constructions."

var spacesRe = regexp.MustCompile(` +`)

// GeminiClient provides embeddings and answer summarization through the
// Google Generative AI API, guarded by a circuit breaker and a client-side
// rate limiter.
type GeminiClient struct {
	client         *genai.Client
	embeddingModel string
	breaker        *gobreaker.CircuitBreaker
	rateLimiter    *rate.Limiter
}

type rateLimits struct {
	RPM int // Requests per minute
}

func getRateLimits(tier string) rateLimits {
	switch tier {
	case "free":
		return rateLimits{RPM: 10}
	case "tier1":
		return rateLimits{RPM: 1000}
	case "tier2":
		return rateLimits{RPM: 2000}
	default:
		return rateLimits{RPM: 10}
	}
}

func NewGeminiClient(ctx context.Context, apiKey, embeddingModel, tier string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("missing GEMINI_API_KEY")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	limits := getRateLimits(tier)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})

	// RPM limit with some buffer
	rateLimiter := rate.NewLimiter(rate.Limit(float64(limits.RPM)*0.9/60.0), limits.RPM/10+1)

	return &GeminiClient{
		client:         client,
		embeddingModel: embeddingModel,
		breaker:        breaker,
		rateLimiter:    rateLimiter,
	}, nil
}

// Embed returns the embedding vector for the given text.
func (gc *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.embed")
	defer span.End()
	span.SetAttributes(
		attribute.Int("gemini.text_len", len(text)),
		attribute.String("gemini.model", gc.embeddingModel),
	)

	if err := gc.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := gc.breaker.Execute(func() (interface{}, error) {
		model := gc.client.EmbeddingModel(gc.embeddingModel)
		resp, err := model.EmbedContent(ctx, genai.Text(text))
		if err != nil {
			return nil, err
		}
		if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
			return nil, errors.New("no embedding returned")
		}
		return resp.Embedding.Values, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState {
			return nil, errors.New("embedding service temporarily unavailable")
		}
		return nil, fmt.Errorf("embed: %w", err)
	}

	return result.([]float32), nil
}

// Summarize answers the question in a single sentence built from the
// retrieved context chunks.
func (gc *GeminiClient) Summarize(ctx context.Context, question string, contextChunks []string) (string, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.summarize")
	defer span.End()
	span.SetAttributes(
		attribute.Int("gemini.context_chunks", len(contextChunks)),
		attribute.String("gemini.model", generativeModel),
	)

	if err := gc.rateLimiter.Wait(ctx); err != nil {
		return "", err
	}

	prompt := fmt.Sprintf("The Question is the following: %s.\nThe Context is the following:%s.",
		question, "\n- "+strings.Join(contextChunks, "\n- "))

	result, err := gc.breaker.Execute(func() (interface{}, error) {
		model := gc.client.GenerativeModel(generativeModel)
		model.SetTemperature(0.1)
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(summarizerInstruction)},
		}
		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return nil, err
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			return nil, errors.New("no candidates in response")
		}
		var answer strings.Builder
		for _, part := range resp.Candidates[0].Content.Parts {
			if textPart, ok := part.(genai.Text); ok {
				answer.WriteString(string(textPart))
			}
		}
		return answer.String(), nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState {
			return "", errors.New("answer generation temporarily unavailable")
		}
		return "", fmt.Errorf("summarize: %w", err)
	}

	return flattenAnswer(result.(string)), nil
}

func (gc *GeminiClient) Close() error {
	return gc.client.Close()
}

// flattenAnswer strips newlines and tabs and collapses runs of spaces so
// the answer reads as one sentence.
func flattenAnswer(s string) string {
	s = strings.ReplaceAll(s, "\n", "")
	s = strings.ReplaceAll(s, "\t", "")
	return strings.TrimSpace(spacesRe.ReplaceAllString(s, " "))
}
