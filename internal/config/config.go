package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"cryptobot-signal/internal/domain"

	"github.com/robfig/cron/v3"
)

const (
	SignalModeMenu = "menu"
	SignalModeBulk = "bulk"

	ProviderBitget  = "bitget"
	ProviderBinance = "binance"
)

// SupportedCandleIntervals are the intervals both market data providers accept.
var SupportedCandleIntervals = []string{"1m", "5m", "15m", "30m", "1h", "4h", "1d"}

type Config struct {
	TelegramBotToken string
	SignalMode       string
	MonitoredPairs   []string
	LogLevel         string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	MarketDataProvider    string
	MarketDataBaseURL     string
	MarketDataRatePerSec  float64
	MarketDataTimeoutSecs int
	BinanceAPIKey         string
	BinanceAPISecret      string
	CandleInterval        string
	CandleWindow          int

	BroadcastCron string

	MCPTransport          string
	MCPHTTPEnabled        bool
	MCPHTTPBind           string
	MCPHTTPPort           int
	MCPAuthToken          string
	MCPRequestTimeoutSecs int
	MCPRateLimitPerMin    int
}

func Load() *Config {
	cfg := &Config{
		TelegramBotToken:  strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		OpenAIAPIKey:      strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIBaseURL:     strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),
		MarketDataBaseURL: strings.TrimSpace(os.Getenv("MARKET_DATA_BASE_URL")),
		BinanceAPIKey:     os.Getenv("BINANCE_API_KEY"),
		BinanceAPISecret:  os.Getenv("BINANCE_API_SECRET"),
		MCPAuthToken:      os.Getenv("MCP_AUTH_TOKEN"),
		BroadcastCron:     strings.TrimSpace(os.Getenv("BROADCAST_CRON")),
	}

	cfg.SignalMode = strings.ToLower(strings.TrimSpace(os.Getenv("SIGNAL_MODE")))
	if cfg.SignalMode != SignalModeBulk {
		cfg.SignalMode = SignalModeMenu
	}

	cfg.MonitoredPairs = parseList(os.Getenv("MONITORED_PAIRS"))
	if len(cfg.MonitoredPairs) == 0 {
		cfg.MonitoredPairs = append([]string(nil), domain.DefaultInstruments...)
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.OpenAIModel = strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o-mini"
	}

	cfg.MarketDataProvider = strings.ToLower(strings.TrimSpace(os.Getenv("MARKET_DATA_PROVIDER")))
	if cfg.MarketDataProvider != ProviderBinance {
		cfg.MarketDataProvider = ProviderBitget
	}

	cfg.MarketDataRatePerSec = 5
	if v := strings.TrimSpace(os.Getenv("MARKET_DATA_RATE_PER_SEC")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 {
			cfg.MarketDataRatePerSec = n
		}
	}

	cfg.MarketDataTimeoutSecs = 15
	if v := strings.TrimSpace(os.Getenv("MARKET_DATA_TIMEOUT_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MarketDataTimeoutSecs = n
		}
	}

	cfg.CandleInterval = strings.TrimSpace(os.Getenv("CANDLE_INTERVAL"))
	if !isSupportedInterval(cfg.CandleInterval) {
		cfg.CandleInterval = "1h"
	}

	cfg.CandleWindow = 24
	if v := strings.TrimSpace(os.Getenv("CANDLE_WINDOW")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			cfg.CandleWindow = n
		}
	}

	cfg.MCPTransport = strings.ToLower(strings.TrimSpace(os.Getenv("MCP_TRANSPORT")))
	if cfg.MCPTransport != "http" {
		cfg.MCPTransport = "stdio"
	}

	cfg.MCPHTTPEnabled = strings.EqualFold(strings.TrimSpace(os.Getenv("MCP_HTTP_ENABLED")), "true")

	cfg.MCPHTTPBind = strings.TrimSpace(os.Getenv("MCP_HTTP_BIND"))
	if cfg.MCPHTTPBind == "" {
		cfg.MCPHTTPBind = "127.0.0.1"
	}

	cfg.MCPHTTPPort = 8090
	if v := strings.TrimSpace(os.Getenv("MCP_HTTP_PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MCPHTTPPort = n
		}
	}

	cfg.MCPRequestTimeoutSecs = 120
	if v := strings.TrimSpace(os.Getenv("MCP_REQUEST_TIMEOUT_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MCPRequestTimeoutSecs = n
		}
	}

	cfg.MCPRateLimitPerMin = 30
	if v := strings.TrimSpace(os.Getenv("MCP_RATE_LIMIT_PER_MIN")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MCPRateLimitPerMin = n
		}
	}

	return cfg
}

// Catalog builds the monitored instrument catalog from MonitoredPairs.
func (c *Config) Catalog() (*domain.Catalog, error) {
	return domain.NewCatalog(c.MonitoredPairs)
}

// ValidateBot reports every credential the chat bot cannot start without.
func (c *Config) ValidateBot() error {
	var errs []error
	if c.TelegramBotToken == "" {
		errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN is missing"))
	}
	if err := c.ValidateAdvisor(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Catalog(); err != nil {
		errs = append(errs, err)
	}
	if c.BroadcastCron != "" {
		if _, err := cron.ParseStandard(c.BroadcastCron); err != nil {
			errs = append(errs, fmt.Errorf("BROADCAST_CRON %q is invalid: %w", c.BroadcastCron, err))
		}
	}
	return errors.Join(errs...)
}

func (c *Config) ValidateAdvisor() error {
	if c.OpenAIAPIKey == "" {
		return errors.New("OPENAI_API_KEY is missing")
	}
	return nil
}

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func isSupportedInterval(interval string) bool {
	for _, supported := range SupportedCandleIntervals {
		if interval == supported {
			return true
		}
	}
	return false
}
