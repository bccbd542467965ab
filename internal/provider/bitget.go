package provider

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cryptobot-signal/internal/domain"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	bitgetBaseURL   = "https://api.bitget.com"
	bitgetSuccess   = "00000"
	defaultTimeout  = 15 * time.Second
	tickersEndpoint = "/api/v2/spot/market/tickers"
	candlesEndpoint = "/api/v2/spot/market/candles"
)

var bitgetGranularity = map[string]string{
	"1m":  "1min",
	"5m":  "5min",
	"15m": "15min",
	"30m": "30min",
	"1h":  "1h",
	"4h":  "4h",
	"1d":  "1day",
}

type Options struct {
	BaseURL string
	Timeout time.Duration
	Limiter *rate.Limiter
}

func (o Options) withDefaults(baseURL string) Options {
	if strings.TrimSpace(o.BaseURL) == "" {
		o.BaseURL = baseURL
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.Limiter == nil {
		o.Limiter = NewLimiter(defaultRatePerSec)
	}
	return o
}

// BitgetClient reads public spot market data from Bitget's v2 REST API.
type BitgetClient struct {
	tracer  trace.Tracer
	http    *resty.Client
	limiter *rate.Limiter
}

func NewBitgetClient(tracer trace.Tracer, opts Options) *BitgetClient {
	opts = opts.withDefaults(bitgetBaseURL)

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(opts.BaseURL, "/"))
	client.SetTimeout(opts.Timeout)
	client.SetHeader("Accept", "application/json")

	return &BitgetClient{
		tracer:  tracer,
		http:    client,
		limiter: opts.Limiter,
	}
}

type bitgetResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

type bitgetTickersResponse struct {
	bitgetResponse
	Data []bitgetTicker `json:"data"`
}

type bitgetTicker struct {
	Symbol     string `json:"symbol"`
	LastPr     string `json:"lastPr"`
	Change24h  string `json:"change24h"`
	BaseVolume string `json:"baseVolume"`
}

type bitgetCandlesResponse struct {
	bitgetResponse
	Data [][]string `json:"data"`
}

func (c *BitgetClient) FetchTicker(ctx context.Context, inst domain.Instrument) (*domain.Ticker, error) {
	ctx, span := c.tracer.Start(ctx, "bitget.fetch-ticker")
	defer span.End()
	span.SetAttributes(attribute.String("instrument", inst.String()))

	if err := waitTurn(ctx, c.limiter, inst); err != nil {
		return nil, err
	}

	var out bitgetTickersResponse
	var apiErr bitgetResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("symbol", inst.Compact()).
		SetResult(&out).
		SetError(&apiErr).
		Get(tickersEndpoint)
	if err != nil {
		span.RecordError(err)
		return nil, classify(inst, "fetch ticker", err)
	}
	if err := checkBitgetResponse(inst, resp, out.bitgetResponse, apiErr); err != nil {
		span.RecordError(err)
		return nil, err
	}

	for _, t := range out.Data {
		if t.Symbol != inst.Compact() {
			continue
		}
		nums, err := parseDecimals(inst, t.LastPr, t.Change24h, t.BaseVolume)
		if err != nil {
			return nil, err
		}
		return &domain.Ticker{
			Instrument:   inst,
			LastPrice:    nums[0],
			Change24hPct: nums[1].Mul(decimal.NewFromInt(100)),
			Volume24h:    nums[2],
		}, nil
	}
	return nil, providerError(inst, "ticker for %s not found", inst.Compact())
}

func (c *BitgetClient) FetchRecentCandles(ctx context.Context, inst domain.Instrument, interval string, count int) ([]domain.Candle, error) {
	ctx, span := c.tracer.Start(ctx, "bitget.fetch-candles")
	defer span.End()
	span.SetAttributes(
		attribute.String("instrument", inst.String()),
		attribute.String("interval", interval),
		attribute.Int("count", count),
	)

	granularity, ok := bitgetGranularity[interval]
	if !ok {
		return nil, providerError(inst, "unsupported interval %q", interval)
	}
	if err := waitTurn(ctx, c.limiter, inst); err != nil {
		return nil, err
	}

	var out bitgetCandlesResponse
	var apiErr bitgetResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":      inst.Compact(),
			"granularity": granularity,
			"limit":       strconv.Itoa(count),
		}).
		SetResult(&out).
		SetError(&apiErr).
		Get(candlesEndpoint)
	if err != nil {
		span.RecordError(err)
		return nil, classify(inst, "fetch candles", err)
	}
	if err := checkBitgetResponse(inst, resp, out.bitgetResponse, apiErr); err != nil {
		span.RecordError(err)
		return nil, err
	}

	candles := make([]domain.Candle, 0, len(out.Data))
	for _, row := range out.Data {
		if len(row) < 6 {
			return nil, providerError(inst, "malformed candle row with %d fields", len(row))
		}
		ts, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, providerError(inst, "malformed candle timestamp %q", row[0])
		}
		nums, err := parseDecimals(inst, row[1:6]...)
		if err != nil {
			return nil, err
		}
		candles = append(candles, domain.Candle{
			OpenTime: time.UnixMilli(ts).UTC(),
			Open:     nums[0],
			High:     nums[1],
			Low:      nums[2],
			Close:    nums[3],
			Volume:   nums[4],
		})
	}
	return candles, nil
}

func checkBitgetResponse(inst domain.Instrument, resp *resty.Response, body, apiErr bitgetResponse) error {
	if resp.StatusCode() >= http.StatusInternalServerError || resp.StatusCode() == http.StatusTooManyRequests {
		return domain.NewFailure(domain.KindNetworkFailure, inst, httpStatusError(resp.StatusCode(), apiErr.Msg))
	}
	if resp.IsError() {
		return providerError(inst, "bitget %d: %s %s", resp.StatusCode(), apiErr.Code, apiErr.Msg)
	}
	if body.Code != bitgetSuccess {
		return providerError(inst, "bitget code %s: %s", body.Code, body.Msg)
	}
	return nil
}

type statusError struct {
	status int
	msg    string
}

func (e *statusError) Error() string {
	if e.msg == "" {
		return "http " + strconv.Itoa(e.status)
	}
	return "http " + strconv.Itoa(e.status) + ": " + e.msg
}

func httpStatusError(status int, msg string) error {
	return &statusError{status: status, msg: msg}
}
