package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cryptobot-signal/internal/domain"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const binanceBaseURL = "https://api.binance.com"

// BinanceClient reads public spot market data through the go-binance SDK.
type BinanceClient struct {
	tracer  trace.Tracer
	spot    *binance.Client
	limiter *rate.Limiter
}

func NewBinanceClient(tracer trace.Tracer, apiKey, apiSecret string, opts Options) *BinanceClient {
	opts = opts.withDefaults(binanceBaseURL)

	spot := binance.NewClient(apiKey, apiSecret)
	spot.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	spot.HTTPClient = &http.Client{
		Timeout:   opts.Timeout,
		Transport: statusRecorder{next: http.DefaultTransport},
	}

	return &BinanceClient{
		tracer:  tracer,
		spot:    spot,
		limiter: opts.Limiter,
	}
}

func (c *BinanceClient) FetchTicker(ctx context.Context, inst domain.Instrument) (*domain.Ticker, error) {
	ctx, span := c.tracer.Start(ctx, "binance.fetch-ticker")
	defer span.End()
	span.SetAttributes(attribute.String("instrument", inst.String()))

	if err := waitTurn(ctx, c.limiter, inst); err != nil {
		return nil, err
	}

	status := new(int)
	stats, err := c.spot.NewListPriceChangeStatsService().Symbol(inst.Compact()).Do(withStatus(ctx, status))
	if err != nil {
		span.RecordError(err)
		return nil, classifyBinance(inst, "fetch ticker", *status, err)
	}
	for _, s := range stats {
		if s == nil || s.Symbol != inst.Compact() {
			continue
		}
		nums, err := parseDecimals(inst, s.LastPrice, s.PriceChangePercent, s.Volume)
		if err != nil {
			return nil, err
		}
		return &domain.Ticker{
			Instrument:   inst,
			LastPrice:    nums[0],
			Change24hPct: nums[1],
			Volume24h:    nums[2],
		}, nil
	}
	return nil, providerError(inst, "ticker for %s not found", inst.Compact())
}

func (c *BinanceClient) FetchRecentCandles(ctx context.Context, inst domain.Instrument, interval string, count int) ([]domain.Candle, error) {
	ctx, span := c.tracer.Start(ctx, "binance.fetch-candles")
	defer span.End()
	span.SetAttributes(
		attribute.String("instrument", inst.String()),
		attribute.String("interval", interval),
		attribute.Int("count", count),
	)

	if err := waitTurn(ctx, c.limiter, inst); err != nil {
		return nil, err
	}

	status := new(int)
	klines, err := c.spot.NewKlinesService().
		Symbol(inst.Compact()).
		Interval(interval).
		Limit(count).
		Do(withStatus(ctx, status))
	if err != nil {
		span.RecordError(err)
		return nil, classifyBinance(inst, "fetch candles", *status, err)
	}

	candles := make([]domain.Candle, 0, len(klines))
	for _, k := range klines {
		if k == nil {
			continue
		}
		nums, err := parseDecimals(inst, k.Open, k.High, k.Low, k.Close, k.Volume)
		if err != nil {
			return nil, err
		}
		candles = append(candles, domain.Candle{
			OpenTime: time.UnixMilli(k.OpenTime).UTC(),
			Open:     nums[0],
			High:     nums[1],
			Low:      nums[2],
			Close:    nums[3],
			Volume:   nums[4],
		})
	}
	return candles, nil
}

// classifyBinance maps SDK errors using the HTTP status seen by the transport. The SDK
// returns *common.APIError for every status >= 400, so 5xx and 429 are told apart here.
func classifyBinance(inst domain.Instrument, op string, status int, err error) error {
	var apiErr *common.APIError
	isAPIErr := errors.As(err, &apiErr)
	if status >= http.StatusInternalServerError || status == http.StatusTooManyRequests {
		msg := ""
		if isAPIErr {
			msg = apiErr.Message
		}
		return domain.NewFailure(domain.KindNetworkFailure, inst, fmt.Errorf("%s: %w", op, httpStatusError(status, msg)))
	}
	if isAPIErr {
		return providerError(inst, "%s: binance code %d: %s", op, apiErr.Code, apiErr.Message)
	}
	return classify(inst, op, err)
}

type statusKey struct{}

func withStatus(ctx context.Context, status *int) context.Context {
	return context.WithValue(ctx, statusKey{}, status)
}

// statusRecorder stores the response status in the *int carried by the request context.
type statusRecorder struct {
	next http.RoundTripper
}

func (r statusRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := r.next.RoundTrip(req)
	if resp != nil {
		if status, ok := req.Context().Value(statusKey{}).(*int); ok {
			*status = resp.StatusCode
		}
	}
	return resp, err
}
