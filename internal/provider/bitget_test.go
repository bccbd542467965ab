package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cryptobot-signal/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

func newBitgetTestClient(t *testing.T, handler http.HandlerFunc) *BitgetClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewBitgetClient(trace.NewNoopTracerProvider().Tracer("test"), Options{
		BaseURL: srv.URL,
		Timeout: time.Second,
		Limiter: NewLimiter(1000),
	})
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestBitgetFetchTicker(t *testing.T) {
	var gotSymbol string
	client := newBitgetTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != tickersEndpoint {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotSymbol = r.URL.Query().Get("symbol")
		writeJSON(w, http.StatusOK, `{"code":"00000","msg":"success","data":[
			{"symbol":"BTCUSDT","lastPr":"65000.5","change24h":"0.023","baseVolume":"1234.5"}
		]}`)
	})

	ticker, err := client.FetchTicker(context.Background(), "BTC/USDT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotSymbol != "BTCUSDT" {
		t.Fatalf("expected compact symbol, got %s", gotSymbol)
	}
	if ticker.LastPrice.String() != "65000.5" {
		t.Fatalf("unexpected last price %s", ticker.LastPrice)
	}
	if ticker.Change24hPct.String() != "2.3" {
		t.Fatalf("expected ratio converted to percent, got %s", ticker.Change24hPct)
	}
	if ticker.Volume24h.String() != "1234.5" {
		t.Fatalf("unexpected volume %s", ticker.Volume24h)
	}
}

func TestBitgetFetchTickerUnknownSymbolIsProviderError(t *testing.T) {
	client := newBitgetTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"code":"40034","msg":"Parameter does not exist"}`)
	})

	_, err := client.FetchTicker(context.Background(), "XRP/USDT")
	if !domain.IsKind(err, domain.KindProviderError) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
}

func TestBitgetServerErrorIsNetworkFailure(t *testing.T) {
	client := newBitgetTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadGateway, `{}`)
	})

	_, err := client.FetchTicker(context.Background(), "BTC/USDT")
	if !domain.IsKind(err, domain.KindNetworkFailure) {
		t.Fatalf("expected NetworkFailure, got %v", err)
	}
}

func TestBitgetTransportErrorIsNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewBitgetClient(trace.NewNoopTracerProvider().Tracer("test"), Options{BaseURL: url, Timeout: time.Second})
	_, err := client.FetchRecentCandles(context.Background(), "BTC/USDT", "1h", 24)
	if !domain.IsKind(err, domain.KindNetworkFailure) {
		t.Fatalf("expected NetworkFailure, got %v", err)
	}
}

func TestBitgetFetchRecentCandles(t *testing.T) {
	client := newBitgetTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("granularity") != "1h" || q.Get("limit") != "2" || q.Get("symbol") != "ETHUSDT" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		writeJSON(w, http.StatusOK, `{"code":"00000","msg":"success","data":[
			["1700000000000","1","2","0.5","1.5","10","15","15"],
			["1700003600000","1.5","2.5","1.0","2.0","11","22","22"]
		]}`)
	})

	candles, err := client.FetchRecentCandles(context.Background(), "ETH/USDT", "1h", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(candles))
	}
	if !candles[0].OpenTime.Equal(time.UnixMilli(1700000000000)) {
		t.Fatalf("unexpected open time %s", candles[0].OpenTime)
	}
	if candles[1].Close.String() != "2" || candles[1].Volume.String() != "11" {
		t.Fatalf("unexpected candle values %+v", candles[1])
	}
}

func TestBitgetFetchRecentCandlesMalformed(t *testing.T) {
	client := newBitgetTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"code":"00000","data":[["1700000000000","x","2","0.5","1.5","10"]]}`)
	})

	_, err := client.FetchRecentCandles(context.Background(), "BTC/USDT", "1h", 1)
	if !domain.IsKind(err, domain.KindProviderError) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
}

func TestBitgetUnsupportedInterval(t *testing.T) {
	client := newBitgetTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := client.FetchRecentCandles(context.Background(), "BTC/USDT", "2h", 1)
	if !domain.IsKind(err, domain.KindProviderError) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
}

func TestLimiterHonorsCancelledContext(t *testing.T) {
	limiter := NewLimiter(0.001)
	limiter.Allow()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := waitTurn(ctx, limiter, "BTC/USDT"); !domain.IsKind(err, domain.KindNetworkFailure) {
		t.Fatalf("expected NetworkFailure, got %v", err)
	}
}
