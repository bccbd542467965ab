package service

import (
	"context"
	"fmt"
	"sort"

	"cryptobot-signal/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultCandleInterval = "1h"
	DefaultCandleWindow   = 24
)

// MarketDataClient is the provider-facing contract implemented in internal/provider.
type MarketDataClient interface {
	FetchTicker(ctx context.Context, inst domain.Instrument) (*domain.Ticker, error)
	FetchRecentCandles(ctx context.Context, inst domain.Instrument, interval string, count int) ([]domain.Candle, error)
}

// MarketDataGateway turns provider reads into a validated Snapshot for catalog instruments.
type MarketDataGateway struct {
	tracer   trace.Tracer
	client   MarketDataClient
	catalog  *domain.Catalog
	interval string
	window   int
}

func NewMarketDataGateway(
	tracer trace.Tracer,
	client MarketDataClient,
	catalog *domain.Catalog,
	interval string,
	window int,
) *MarketDataGateway {
	if interval == "" {
		interval = DefaultCandleInterval
	}
	if window <= 0 {
		window = DefaultCandleWindow
	}
	return &MarketDataGateway{
		tracer:   tracer,
		client:   client,
		catalog:  catalog,
		interval: interval,
		window:   window,
	}
}

func (g *MarketDataGateway) Catalog() *domain.Catalog { return g.catalog }

func (g *MarketDataGateway) FetchSnapshot(ctx context.Context, inst domain.Instrument) (*domain.Snapshot, error) {
	ctx, span := g.tracer.Start(ctx, "gateway.fetch-snapshot")
	defer span.End()
	span.SetAttributes(attribute.String("instrument", inst.String()))

	if !g.catalog.Contains(inst) {
		return nil, domain.NewFailure(domain.KindUnknownInstrument, inst, fmt.Errorf("not in monitored catalog"))
	}
	if g.client == nil {
		return nil, domain.NewFailure(domain.KindProviderError, inst, fmt.Errorf("market data client is not configured"))
	}

	ticker, err := g.client.FetchTicker(ctx, inst)
	if err != nil {
		span.RecordError(err)
		return nil, asFailure(domain.KindProviderError, inst, err)
	}
	if ticker == nil {
		return nil, domain.NewFailure(domain.KindProviderError, inst, fmt.Errorf("empty ticker"))
	}

	candles, err := g.client.FetchRecentCandles(ctx, inst, g.interval, g.window)
	if err != nil {
		span.RecordError(err)
		return nil, asFailure(domain.KindProviderError, inst, err)
	}

	candles = normalizeCandles(candles, g.window)
	snapshot := &domain.Snapshot{
		Instrument:   inst,
		LastPrice:    ticker.LastPrice,
		Change24hPct: ticker.Change24hPct,
		Volume24h:    ticker.Volume24h,
		Candles:      candles,
	}
	if err := snapshot.Validate(g.window); err != nil {
		span.RecordError(err)
		return nil, domain.NewFailure(domain.KindProviderError, inst, err)
	}
	span.SetAttributes(attribute.Int("candles", len(candles)))
	return snapshot, nil
}

// normalizeCandles sorts ascending and keeps the most recent window entries.
func normalizeCandles(candles []domain.Candle, window int) []domain.Candle {
	out := append([]domain.Candle(nil), candles...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OpenTime.Before(out[j].OpenTime)
	})
	if len(out) > window {
		out = out[len(out)-window:]
	}
	return out
}

// asFailure keeps a typed failure as is and wraps anything else with the fallback kind.
func asFailure(fallback domain.FailureKind, inst domain.Instrument, err error) error {
	if domain.KindOf(err) != "" {
		return err
	}
	return domain.NewFailure(fallback, inst, err)
}
