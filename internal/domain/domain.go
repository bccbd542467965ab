package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultInstruments is the monitored catalog used when MONITORED_PAIRS is unset.
var DefaultInstruments = []string{"BTC/USDT", "ETH/USDT", "SOL/USDT", "XRP/USDT"}

// Instrument is a BASE/QUOTE pair such as BTC/USDT.
type Instrument string

func ParseInstrument(raw string) (Instrument, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	base, quote, ok := strings.Cut(s, "/")
	if !ok || !isAssetCode(base) || !isAssetCode(quote) {
		return "", fmt.Errorf("invalid instrument %q: expected BASE/QUOTE", raw)
	}
	return Instrument(s), nil
}

func isAssetCode(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func (i Instrument) String() string { return string(i) }

func (i Instrument) Base() string {
	base, _, _ := strings.Cut(string(i), "/")
	return base
}

func (i Instrument) Quote() string {
	_, quote, _ := strings.Cut(string(i), "/")
	return quote
}

// Compact returns the exchange-style symbol without separator (BTCUSDT).
func (i Instrument) Compact() string {
	return strings.ReplaceAll(string(i), "/", "")
}

// Catalog is the ordered, read-only set of monitored instruments.
type Catalog struct {
	instruments []Instrument
	index       map[Instrument]struct{}
}

func NewCatalog(raw []string) (*Catalog, error) {
	c := &Catalog{index: make(map[Instrument]struct{}, len(raw))}
	for _, r := range raw {
		if strings.TrimSpace(r) == "" {
			continue
		}
		inst, err := ParseInstrument(r)
		if err != nil {
			return nil, err
		}
		if _, seen := c.index[inst]; seen {
			continue
		}
		c.index[inst] = struct{}{}
		c.instruments = append(c.instruments, inst)
	}
	if len(c.instruments) == 0 {
		return nil, fmt.Errorf("catalog must contain at least one instrument")
	}
	return c, nil
}

// MustCatalog panics on an invalid list. Intended for fixed literals.
func MustCatalog(raw ...string) *Catalog {
	c, err := NewCatalog(raw)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) Instruments() []Instrument {
	return append([]Instrument(nil), c.instruments...)
}

func (c *Catalog) Contains(i Instrument) bool {
	if c == nil {
		return false
	}
	_, ok := c.index[i]
	return ok
}

func (c *Catalog) Len() int { return len(c.instruments) }

func (c *Catalog) Strings() []string {
	out := make([]string, len(c.instruments))
	for i, inst := range c.instruments {
		out[i] = inst.String()
	}
	return out
}

// Candle is one OHLCV bucket keyed by its open time.
type Candle struct {
	OpenTime time.Time       `json:"open_time"`
	Open     decimal.Decimal `json:"open"`
	High     decimal.Decimal `json:"high"`
	Low      decimal.Decimal `json:"low"`
	Close    decimal.Decimal `json:"close"`
	Volume   decimal.Decimal `json:"volume"`
}

// Ticker is the 24h rolling statistics for one instrument.
type Ticker struct {
	Instrument   Instrument      `json:"instrument"`
	LastPrice    decimal.Decimal `json:"last_price"`
	Change24hPct decimal.Decimal `json:"change_24h_pct"`
	Volume24h    decimal.Decimal `json:"volume_24h"`
}

// Snapshot is the point-in-time market data bundle handed to the prompt builder.
type Snapshot struct {
	Instrument   Instrument      `json:"instrument"`
	LastPrice    decimal.Decimal `json:"last_price"`
	Change24hPct decimal.Decimal `json:"change_24h_pct"`
	Volume24h    decimal.Decimal `json:"volume_24h"`
	Candles      []Candle        `json:"candles"`
}

// Validate checks the candle invariants: at most window entries, strictly increasing open times.
func (s *Snapshot) Validate(window int) error {
	if window > 0 && len(s.Candles) > window {
		return fmt.Errorf("snapshot for %s has %d candles, window is %d", s.Instrument, len(s.Candles), window)
	}
	for i := 1; i < len(s.Candles); i++ {
		if !s.Candles[i].OpenTime.After(s.Candles[i-1].OpenTime) {
			return fmt.Errorf("snapshot for %s has non-increasing candle at index %d", s.Instrument, i)
		}
	}
	return nil
}

// Advisory is the free-text recommendation returned by the reasoning service.
type Advisory string

// Outcome records the result of one instrument within a signal request.
type Outcome struct {
	Instrument Instrument
	Message    string
	Err        error
}

func (o Outcome) OK() bool { return o.Err == nil }
