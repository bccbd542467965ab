// Package prompt renders a market snapshot into the analysis request sent to the language model.
package prompt

import (
	"strings"

	"cryptobot-signal/internal/domain"
)

// CandleWindow is the number of most recent candles included in a prompt.
const CandleWindow = 5

const timeLayout = "2006-01-02T15:04:05.000Z"

const preamble = `You are an expert futures trader that provides trading signals for futures trading.
As a futures trading expert, your task is to analyze market data and provide a trading signal.
Please analyze this crypto market data and provide a trading signal for futures trading:`

const instructions = `Provide a concise trading signal with:
1. Position (LONG/SHORT), and when to open the position
2. Entry price
3. Stop loss
4. Take profit targets
5. Risk level (Low/Medium/High)
6. Brief reasoning`

// Build is a pure function of the snapshot: equal snapshots yield byte-identical prompts.
func Build(s domain.Snapshot) string {
	var b strings.Builder

	b.WriteString(preamble)
	b.WriteString("\n")
	b.WriteString("Symbol: " + s.Instrument.String() + "\n")
	b.WriteString("Current Price: " + s.LastPrice.String() + "\n")
	b.WriteString("24h Change: " + s.Change24hPct.String() + "%\n")
	b.WriteString("24h Volume: " + s.Volume24h.String() + "\n")
	b.WriteString("\nRecent price action (last candles):\n")

	for _, c := range RecentCandles(s.Candles) {
		b.WriteString("Time: " + c.OpenTime.UTC().Format(timeLayout) + "\n")
		b.WriteString("  Open: " + c.Open.String() + "\n")
		b.WriteString("  High: " + c.High.String() + "\n")
		b.WriteString("  Low: " + c.Low.String() + "\n")
		b.WriteString("  Close: " + c.Close.String() + "\n")
		b.WriteString("  Volume: " + c.Volume.String() + "\n")
	}

	b.WriteString("\n")
	b.WriteString(instructions)
	b.WriteString("\n")
	return b.String()
}

// RecentCandles returns the last CandleWindow candles, or all of them when fewer exist.
func RecentCandles(candles []domain.Candle) []domain.Candle {
	if len(candles) <= CandleWindow {
		return candles
	}
	return candles[len(candles)-CandleWindow:]
}
