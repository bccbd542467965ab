// Package app assembles the signal pipeline from configuration for the binaries under cmd/.
package app

import (
	"fmt"
	"time"

	"cryptobot-signal/internal/advisor"
	"cryptobot-signal/internal/config"
	"cryptobot-signal/internal/domain"
	"cryptobot-signal/internal/provider"
	"cryptobot-signal/internal/service"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Pipeline struct {
	Catalog *domain.Catalog
	Gateway *service.MarketDataGateway
	Signals *service.SignalService
}

// NewMarketDataClient returns the provider selected by MARKET_DATA_PROVIDER. Every call
// it makes shares one cooperative rate limiter.
func NewMarketDataClient(cfg *config.Config, tracer trace.Tracer) service.MarketDataClient {
	opts := provider.Options{
		BaseURL: cfg.MarketDataBaseURL,
		Timeout: time.Duration(cfg.MarketDataTimeoutSecs) * time.Second,
		Limiter: provider.NewLimiter(cfg.MarketDataRatePerSec),
	}
	if cfg.MarketDataProvider == config.ProviderBinance {
		return provider.NewBinanceClient(tracer, cfg.BinanceAPIKey, cfg.BinanceAPISecret, opts)
	}
	return provider.NewBitgetClient(tracer, opts)
}

func NewPipeline(cfg *config.Config, tracer trace.Tracer, log *zap.Logger) (*Pipeline, error) {
	if log == nil {
		log = zap.NewNop()
	}
	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}
	if err := cfg.ValidateAdvisor(); err != nil {
		return nil, err
	}

	gateway := service.NewMarketDataGateway(
		tracer,
		NewMarketDataClient(cfg, tracer),
		catalog,
		cfg.CandleInterval,
		cfg.CandleWindow,
	)
	llm := advisor.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	generator := advisor.NewGenerator(tracer, log, llm)

	log.Info("signal pipeline ready",
		zap.String("provider", cfg.MarketDataProvider),
		zap.String("model", cfg.OpenAIModel),
		zap.String("interval", cfg.CandleInterval),
		zap.Int("window", cfg.CandleWindow),
		zap.Strings("pairs", catalog.Strings()),
	)

	return &Pipeline{
		Catalog: catalog,
		Gateway: gateway,
		Signals: service.NewSignalService(tracer, log, gateway, generator),
	}, nil
}
