package service

import (
	"context"
	"errors"
	"fmt"

	"cryptobot-signal/internal/domain"
	"cryptobot-signal/internal/prompt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const riskDisclaimer = "⚠️ Risk Disclaimer: This is AI-generated analysis. Always do your own research and trade responsibly."

type SnapshotSource interface {
	FetchSnapshot(ctx context.Context, inst domain.Instrument) (*domain.Snapshot, error)
}

type AdvisoryGenerator interface {
	Generate(ctx context.Context, prompt string) (domain.Advisory, error)
}

// SignalService runs fetch, prompt, generate and format for each requested instrument.
// It holds no per-request state and is safe for concurrent use.
type SignalService struct {
	tracer    trace.Tracer
	log       *zap.Logger
	gateway   SnapshotSource
	generator AdvisoryGenerator
}

func NewSignalService(
	tracer trace.Tracer,
	log *zap.Logger,
	gateway SnapshotSource,
	generator AdvisoryGenerator,
) *SignalService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SignalService{
		tracer:    tracer,
		log:       log,
		gateway:   gateway,
		generator: generator,
	}
}

func (s *SignalService) ProduceSignal(ctx context.Context, inst domain.Instrument) (string, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.produce-signal")
	defer span.End()
	span.SetAttributes(attribute.String("instrument", inst.String()))

	if s.gateway == nil || s.generator == nil {
		return "", fmt.Errorf("signal service is not fully initialized")
	}

	text, err := s.BuildPrompt(ctx, inst)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	advisory, err := s.generator.Generate(ctx, text)
	if err != nil {
		err = scoped(inst, domain.KindGenerationFailure, err)
		span.RecordError(err)
		s.log.Warn("advisory generation failed",
			zap.String("instrument", inst.String()),
			zap.String("kind", string(domain.KindOf(err))),
			zap.Error(err),
		)
		return "", err
	}

	s.log.Info("signal produced", zap.String("instrument", inst.String()))
	return FormatMessage(inst, advisory), nil
}

// BuildPrompt fetches a fresh snapshot and renders its prompt without calling the model.
func (s *SignalService) BuildPrompt(ctx context.Context, inst domain.Instrument) (string, error) {
	if s.gateway == nil {
		return "", fmt.Errorf("signal service is not fully initialized")
	}
	snapshot, err := s.gateway.FetchSnapshot(ctx, inst)
	if err != nil {
		err = scoped(inst, domain.KindProviderError, err)
		s.log.Warn("market data fetch failed",
			zap.String("instrument", inst.String()),
			zap.String("kind", string(domain.KindOf(err))),
			zap.Error(err),
		)
		return "", err
	}
	return prompt.Build(*snapshot), nil
}

// ProduceSignals runs the instruments sequentially in input order. Each instrument
// yields exactly one outcome and a failure never stops the remaining ones.
func (s *SignalService) ProduceSignals(ctx context.Context, insts []domain.Instrument) []domain.Outcome {
	outcomes := make([]domain.Outcome, 0, len(insts))
	s.ProduceSignalsFunc(ctx, insts, func(o domain.Outcome) {
		outcomes = append(outcomes, o)
	})
	return outcomes
}

// ProduceSignalsFunc is ProduceSignals with each outcome handed to deliver as soon as it is known.
func (s *SignalService) ProduceSignalsFunc(ctx context.Context, insts []domain.Instrument, deliver func(domain.Outcome)) {
	ctx, span := s.tracer.Start(ctx, "signal-service.produce-signals")
	defer span.End()
	span.SetAttributes(attribute.Int("instruments", len(insts)))

	failed := 0
	for _, inst := range insts {
		msg, err := s.ProduceSignal(ctx, inst)
		if err != nil {
			failed++
		}
		if deliver != nil {
			deliver(domain.Outcome{Instrument: inst, Message: msg, Err: err})
		}
	}
	span.SetAttributes(attribute.Int("failed", failed))
}

func FormatMessage(inst domain.Instrument, advisory domain.Advisory) string {
	return fmt.Sprintf("🚨 CRYPTO TRADING SIGNAL 🚨\n\n%s Analysis:\n%s\n\n%s", inst, advisory, riskDisclaimer)
}

// FailureNotice is the short user-visible text for a failed instrument. Details stay in the log.
func FailureNotice(inst domain.Instrument, err error) string {
	kind := domain.KindOf(err)
	if kind == "" {
		kind = "InternalError"
	}
	return fmt.Sprintf("❌ Could not generate signal for %s: %s", inst, kind)
}

// scoped attaches the instrument to a failure produced by a stage that did not know it.
// Untyped errors are wrapped with the fallback kind.
func scoped(inst domain.Instrument, fallback domain.FailureKind, err error) error {
	var f *domain.Failure
	if !errors.As(err, &f) {
		return domain.NewFailure(fallback, inst, err)
	}
	if f.Instrument == "" {
		return domain.NewFailure(f.Kind, inst, f.Err)
	}
	return err
}
