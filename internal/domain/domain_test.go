package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestParseInstrument(t *testing.T) {
	inst, err := ParseInstrument(" btc/usdt ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inst != "BTC/USDT" || inst.Base() != "BTC" || inst.Quote() != "USDT" || inst.Compact() != "BTCUSDT" {
		t.Fatalf("unexpected instrument parts: %s %s %s %s", inst, inst.Base(), inst.Quote(), inst.Compact())
	}

	for _, bad := range []string{"", "BTC", "BTC/", "/USDT", "BTC/USDT/X", "BTC-USDT"} {
		if _, err := ParseInstrument(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestNewCatalogDedupesAndKeepsOrder(t *testing.T) {
	c, err := NewCatalog([]string{"eth/usdt", "BTC/USDT", "ETH/USDT", " "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := c.Strings()
	if len(got) != 2 || got[0] != "ETH/USDT" || got[1] != "BTC/USDT" {
		t.Fatalf("unexpected catalog order: %v", got)
	}
	if !c.Contains("BTC/USDT") || c.Contains("SOL/USDT") {
		t.Fatal("unexpected membership result")
	}

	if _, err := NewCatalog(nil); err == nil {
		t.Fatal("expected empty catalog error")
	}
}

func TestCatalogInstrumentsReturnsCopy(t *testing.T) {
	c := MustCatalog(DefaultInstruments...)
	list := c.Instruments()
	list[0] = "DOGE/USDT"
	if c.Instruments()[0] != "BTC/USDT" {
		t.Fatal("catalog was mutated through returned slice")
	}
}

func TestSnapshotValidate(t *testing.T) {
	base := time.Unix(1700000000, 0).UTC()
	s := Snapshot{Instrument: "BTC/USDT", Candles: []Candle{
		{OpenTime: base},
		{OpenTime: base.Add(time.Hour)},
	}}
	if err := s.Validate(24); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Validate(1); err == nil {
		t.Fatal("expected window error")
	}

	s.Candles[1].OpenTime = base
	if err := s.Validate(24); err == nil {
		t.Fatal("expected ordering error")
	}
}

func TestFailureKindThroughWrapping(t *testing.T) {
	cause := errors.New("boom")
	f := NewFailure(KindProviderError, "XRP/USDT", cause)
	wrapped := fmt.Errorf("stage: %w", f)

	if KindOf(wrapped) != KindProviderError {
		t.Fatalf("expected ProviderError, got %q", KindOf(wrapped))
	}
	if !IsKind(wrapped, KindProviderError) || IsKind(nil, KindProviderError) {
		t.Fatal("IsKind mismatch")
	}
	if !errors.Is(wrapped, cause) {
		t.Fatal("expected cause to be reachable")
	}
	if f.Error() != "XRP/USDT ProviderError: boom" {
		t.Fatalf("unexpected message: %s", f.Error())
	}
	if KindOf(cause) != "" {
		t.Fatal("plain errors carry no kind")
	}
}
