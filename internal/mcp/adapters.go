package mcp

import (
	"context"

	"cryptobot-signal/internal/domain"
)

// SignalProducer runs the signal pipeline for catalog instruments.
type SignalProducer interface {
	ProduceSignals(ctx context.Context, insts []domain.Instrument) []domain.Outcome
	BuildPrompt(ctx context.Context, inst domain.Instrument) (string, error)
}
