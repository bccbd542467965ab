package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cryptobot-signal/internal/domain"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func TestSignalBroadcasterRunOnceDeliversOutcomes(t *testing.T) {
	producer := &stubProducer{fail: map[domain.Instrument]bool{"ETH/USDT": true}}
	notifier := &stubNotifier{subscribers: 2}
	b := NewSignalBroadcaster(
		trace.NewNoopTracerProvider().Tracer("test"),
		zap.NewNop(),
		producer,
		notifier,
		domain.MustCatalog("BTC/USDT", "ETH/USDT", "SOL/USDT"),
		"@hourly",
	)

	if got := b.RunOnce(context.Background()); got != 2 {
		t.Fatalf("expected 2 delivered, got %d", got)
	}
	if len(notifier.outcomes) != 3 {
		t.Fatalf("expected every outcome handed to the notifier, got %d", len(notifier.outcomes))
	}
	if notifier.outcomes[1].Instrument != "ETH/USDT" || notifier.outcomes[1].OK() {
		t.Fatalf("unexpected second outcome %+v", notifier.outcomes[1])
	}
}

func TestSignalBroadcasterSkipsWithoutSubscribers(t *testing.T) {
	producer := &stubProducer{}
	b := NewSignalBroadcaster(
		trace.NewNoopTracerProvider().Tracer("test"),
		zap.NewNop(),
		producer,
		&stubNotifier{},
		domain.MustCatalog("BTC/USDT"),
		"@hourly",
	)

	if got := b.RunOnce(context.Background()); got != 0 {
		t.Fatalf("expected 0 delivered, got %d", got)
	}
	if producer.calls() != 0 {
		t.Fatalf("expected no signal production, got %d", producer.calls())
	}
}

func TestSignalBroadcasterRejectsInvalidSchedule(t *testing.T) {
	b := NewSignalBroadcaster(
		trace.NewNoopTracerProvider().Tracer("test"),
		zap.NewNop(),
		&stubProducer{},
		&stubNotifier{},
		domain.MustCatalog("BTC/USDT"),
		"not a schedule",
	)

	if err := b.Start(context.Background()); err == nil {
		t.Fatal("expected schedule parse error")
	}
}

func TestSignalBroadcasterDisabledBlocksUntilCancel(t *testing.T) {
	b := NewSignalBroadcaster(
		trace.NewNoopTracerProvider().Tracer("test"),
		zap.NewNop(),
		&stubProducer{},
		&stubNotifier{},
		domain.MustCatalog("BTC/USDT"),
		"",
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Start(ctx) }()

	select {
	case <-done:
		t.Fatal("disabled broadcaster returned before cancel")
	case <-time.After(20 * time.Millisecond):
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("broadcaster did not stop after cancel")
	}
}

func TestSignalBroadcasterStartStopsOnCancel(t *testing.T) {
	b := NewSignalBroadcaster(
		trace.NewNoopTracerProvider().Tracer("test"),
		zap.NewNop(),
		&stubProducer{},
		&stubNotifier{subscribers: 1},
		domain.MustCatalog("BTC/USDT"),
		"0 9 * * *",
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("broadcaster did not stop after cancel")
	}
}

type stubProducer struct {
	mu   sync.Mutex
	n    int
	fail map[domain.Instrument]bool
}

func (s *stubProducer) ProduceSignalsFunc(_ context.Context, insts []domain.Instrument, deliver func(domain.Outcome)) {
	for _, inst := range insts {
		s.mu.Lock()
		s.n++
		s.mu.Unlock()
		if s.fail[inst] {
			deliver(domain.Outcome{Instrument: inst, Err: domain.NewFailure(domain.KindGenerationFailure, inst, errors.New("down"))})
			continue
		}
		deliver(domain.Outcome{Instrument: inst, Message: "signal " + inst.String()})
	}
}

func (s *stubProducer) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

type stubNotifier struct {
	subscribers int
	outcomes    []domain.Outcome
}

func (s *stubNotifier) SubscriberCount() int { return s.subscribers }

func (s *stubNotifier) NotifyOutcome(_ context.Context, o domain.Outcome) error {
	s.outcomes = append(s.outcomes, o)
	return nil
}
