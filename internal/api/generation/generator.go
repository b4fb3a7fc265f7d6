package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/FACorreiaa/go-trip-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-planner/config"
)

var ErrMissingAPIKey = errors.New("genai api key is not set")

// Generator produces text for a system instruction and a user prompt.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

var _ Generator = (*GeminiGenerator)(nil)

// Unavailable stands in when no model is configured. Every call fails with Err.
type Unavailable struct {
	Err error
}

func (u Unavailable) Generate(context.Context, string, string) (string, error) {
	return "", u.Err
}

type GeminiGenerator struct {
	client      *genai.Client
	model       string
	temperature float32
	logger      *slog.Logger
	metrics     *metrics.AppMetrics
}

func NewGeminiGenerator(ctx context.Context, cfg config.GenAIConfig, logger *slog.Logger) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiGenerator{
		client:      client,
		model:       model,
		temperature: cfg.Temperature,
		logger:      logger,
		metrics:     metrics.Get(),
	}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	ctx, span := otel.Tracer("GeminiGenerator").Start(ctx, "Generate", trace.WithAttributes(
		attribute.String("genai.model", g.model),
		attribute.Int("genai.prompt_length", len(prompt)),
	))
	defer span.End()

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr(g.temperature),
	}

	start := time.Now()
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	g.metrics.RecordExternalCall(ctx, "genai", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate failed")
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text := result.Text()
	g.logger.DebugContext(ctx, "Generated content", slog.Int("length", len(text)), slog.Duration("elapsed", time.Since(start)))
	return text, nil
}
