package job

import (
	"context"
	"fmt"
	"strings"

	"cryptobot-signal/internal/domain"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type SignalProducer interface {
	ProduceSignalsFunc(ctx context.Context, insts []domain.Instrument, deliver func(domain.Outcome))
}

type OutcomeNotifier interface {
	SubscriberCount() int
	NotifyOutcome(ctx context.Context, outcome domain.Outcome) error
}

// SignalBroadcaster runs a bulk signal pass over the catalog on a cron schedule and
// pushes each outcome to subscribed chats as soon as it is ready.
type SignalBroadcaster struct {
	tracer   trace.Tracer
	log      *zap.Logger
	producer SignalProducer
	notifier OutcomeNotifier
	catalog  *domain.Catalog
	schedule string
}

func NewSignalBroadcaster(
	tracer trace.Tracer,
	log *zap.Logger,
	producer SignalProducer,
	notifier OutcomeNotifier,
	catalog *domain.Catalog,
	schedule string,
) *SignalBroadcaster {
	if log == nil {
		log = zap.NewNop()
	}
	return &SignalBroadcaster{
		tracer:   tracer,
		log:      log,
		producer: producer,
		notifier: notifier,
		catalog:  catalog,
		schedule: strings.TrimSpace(schedule),
	}
}

// Start registers the schedule and blocks until ctx is cancelled. An empty schedule
// disables the job; an unparsable one is returned as an error.
func (b *SignalBroadcaster) Start(ctx context.Context) error {
	if b.schedule == "" || b.producer == nil || b.notifier == nil {
		b.log.Info("signal broadcast disabled")
		<-ctx.Done()
		return nil
	}

	c, err := b.newCron(ctx)
	if err != nil {
		return err
	}

	c.Start()
	b.log.Info("signal broadcast scheduled", zap.String("schedule", b.schedule))

	<-ctx.Done()
	<-c.Stop().Done()
	b.log.Info("signal broadcast stopped")
	return nil
}

func (b *SignalBroadcaster) newCron(ctx context.Context) (*cron.Cron, error) {
	logger := cronLogger{log: b.log.Sugar()}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(b.schedule, func() { b.RunOnce(ctx) }); err != nil {
		return nil, fmt.Errorf("register broadcast schedule %q: %w", b.schedule, err)
	}
	return c, nil
}

// RunOnce performs one broadcast pass and returns how many outcomes were delivered.
// Without subscribers no signals are produced.
func (b *SignalBroadcaster) RunOnce(ctx context.Context) int {
	ctx, span := b.tracer.Start(ctx, "job.signal-broadcast")
	defer span.End()

	if b.notifier.SubscriberCount() == 0 {
		b.log.Debug("signal broadcast skipped: no subscribers")
		return 0
	}

	delivered := 0
	b.producer.ProduceSignalsFunc(ctx, b.catalog.Instruments(), func(o domain.Outcome) {
		if err := b.notifier.NotifyOutcome(ctx, o); err != nil {
			b.log.Warn("broadcast notify error", zap.String("instrument", o.Instrument.String()), zap.Error(err))
			return
		}
		if o.OK() {
			delivered++
		}
	})
	span.SetAttributes(attribute.Int("delivered", delivered))
	b.log.Info("signal broadcast finished", zap.Int("delivered", delivered), zap.Int("instruments", b.catalog.Len()))
	return delivered
}

type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
