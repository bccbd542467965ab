// Package advisor turns a prompt into a free-text trading advisory using a language model.
package advisor

import (
	"context"
	"fmt"
	"strings"

	"cryptobot-signal/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// LLMClient is a single-shot text completion call.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Generator struct {
	tracer trace.Tracer
	log    *zap.Logger
	client LLMClient
}

func NewGenerator(tracer trace.Tracer, log *zap.Logger, client LLMClient) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{tracer: tracer, log: log, client: client}
}

// Generate returns the model's reply verbatim. The text is not parsed or validated.
func (g *Generator) Generate(ctx context.Context, prompt string) (domain.Advisory, error) {
	ctx, span := g.tracer.Start(ctx, "advisor.generate")
	defer span.End()
	span.SetAttributes(attribute.Int("prompt.length", len(prompt)))

	if g.client == nil {
		return "", domain.NewFailure(domain.KindGenerationFailure, "", fmt.Errorf("llm client is not configured"))
	}

	text, err := g.client.Complete(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		g.log.Warn("advisory generation failed", zap.Error(err))
		return "", domain.NewFailure(domain.KindGenerationFailure, "", err)
	}
	if strings.TrimSpace(text) == "" {
		g.log.Warn("advisory generation returned empty text")
		return "", domain.NewFailure(domain.KindGenerationFailure, "", fmt.Errorf("empty completion"))
	}
	return domain.Advisory(text), nil
}
