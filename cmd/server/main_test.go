package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"cryptobot-signal/internal/app"
	"cryptobot-signal/internal/bot"
	"cryptobot-signal/internal/config"
	"cryptobot-signal/internal/service"

	"github.com/gin-gonic/gin"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func TestMainBootstrap(t *testing.T) {
	gin.SetMode(gin.TestMode)
	restore := stubServerDeps()
	defer restore()

	var botSettings bot.Settings
	startTelegramBotFunc = func(settings bot.Settings, _ *zap.Logger, _ bot.SignalProducer) (*bot.TelegramBot, error) {
		botSettings = settings
		return nil, nil
	}

	done := make(chan struct{})
	go func() {
		main()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("main did not exit")
	}

	if botSettings.Token != "test-token" {
		t.Fatalf("expected bot token to be passed through, got %q", botSettings.Token)
	}
	if botSettings.Catalog == nil || botSettings.Catalog.Len() != 2 {
		t.Fatalf("expected catalog with two instruments, got %+v", botSettings.Catalog)
	}
}

func TestRunRejectsMissingCredentials(t *testing.T) {
	restore := stubServerDeps()
	defer restore()

	loadConfigFunc = func() *config.Config {
		return &config.Config{MonitoredPairs: []string{"BTC/USDT"}}
	}
	pipelineBuilt := false
	newPipelineFunc = func(*config.Config, trace.Tracer, *zap.Logger) (*app.Pipeline, error) {
		pipelineBuilt = true
		return nil, nil
	}

	err := run()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"TELEGRAM_BOT_TOKEN", "OPENAI_API_KEY"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
	if pipelineBuilt {
		t.Fatal("pipeline must not be built with invalid config")
	}
}

func TestRunRejectsInvalidBroadcastSchedule(t *testing.T) {
	restore := stubServerDeps()
	defer restore()

	loadConfigFunc = func() *config.Config {
		return &config.Config{
			TelegramBotToken: "test-token",
			OpenAIAPIKey:     "sk-test",
			MonitoredPairs:   []string{"BTC/USDT"},
			BroadcastCron:    "every four hours",
		}
	}
	botStarted := false
	startTelegramBotFunc = func(bot.Settings, *zap.Logger, bot.SignalProducer) (*bot.TelegramBot, error) {
		botStarted = true
		return nil, nil
	}

	if err := run(); err == nil || !strings.Contains(err.Error(), "BROADCAST_CRON") {
		t.Fatalf("expected BROADCAST_CRON error, got %v", err)
	}
	if botStarted {
		t.Fatal("bot must not start with an invalid schedule")
	}
}

func TestRunPropagatesBotStartupError(t *testing.T) {
	restore := stubServerDeps()
	defer restore()

	startTelegramBotFunc = func(bot.Settings, *zap.Logger, bot.SignalProducer) (*bot.TelegramBot, error) {
		return nil, errors.New("telegram unreachable")
	}
	serverStarted := false
	startHTTPServerFunc = func(*http.Server) error {
		serverStarted = true
		return http.ErrServerClosed
	}

	if err := run(); err == nil || !strings.Contains(err.Error(), "telegram unreachable") {
		t.Fatalf("expected bot startup error, got %v", err)
	}
	if serverStarted {
		t.Fatal("http server must not start when the bot fails")
	}
}

func TestMainExitsNonZeroOnFailure(t *testing.T) {
	restore := stubServerDeps()
	defer restore()

	loadConfigFunc = func() *config.Config { return &config.Config{} }
	code := -1
	exitFunc = func(c int) { code = c }

	main()

	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
}

func TestHTTPAddrFromEnv(t *testing.T) {
	t.Setenv("PORT", "")
	if got := httpAddrFromEnv(); got != ":3000" {
		t.Fatalf("expected default :3000, got %s", got)
	}

	t.Setenv("PORT", "9090")
	if got := httpAddrFromEnv(); got != ":9090" {
		t.Fatalf("expected :9090, got %s", got)
	}

	t.Setenv("PORT", ":7070")
	if got := httpAddrFromEnv(); got != ":7070" {
		t.Fatalf("expected :7070, got %s", got)
	}
}

func stubServerDeps() func() {
	origLoadEnv := loadEnvFunc
	origLoadConfig := loadConfigFunc
	origNewLogger := newLoggerFunc
	origInitTracer := initTracerFunc
	origNewPipeline := newPipelineFunc
	origStartTelegram := startTelegramBotFunc
	origNewRouter := newRouterFunc
	origSetupSignal := setupSignalNotify
	origWait := waitForSignalFunc
	origStartHTTP := startHTTPServerFunc
	origShutdownHTTP := shutdownHTTPServerFunc
	origExit := exitFunc

	loadEnvFunc = func(...string) error { return nil }
	loadConfigFunc = func() *config.Config {
		return &config.Config{
			TelegramBotToken: "test-token",
			OpenAIAPIKey:     "sk-test",
			MonitoredPairs:   []string{"BTC/USDT", "ETH/USDT"},
			SignalMode:       config.SignalModeMenu,
		}
	}
	newLoggerFunc = func(string) *zap.Logger { return zap.NewNop() }
	initTracerFunc = func(ctx context.Context) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}
	newPipelineFunc = func(cfg *config.Config, tracer trace.Tracer, log *zap.Logger) (*app.Pipeline, error) {
		catalog, err := cfg.Catalog()
		if err != nil {
			return nil, err
		}
		gateway := service.NewMarketDataGateway(tracer, nil, catalog, "1h", 24)
		return &app.Pipeline{
			Catalog: catalog,
			Gateway: gateway,
			Signals: service.NewSignalService(tracer, log, gateway, nil),
		}, nil
	}
	startTelegramBotFunc = func(bot.Settings, *zap.Logger, bot.SignalProducer) (*bot.TelegramBot, error) {
		return nil, nil
	}
	newRouterFunc = func(...gin.OptionFunc) *gin.Engine { return gin.New() }
	setupSignalNotify = func(c chan<- os.Signal, sig ...os.Signal) {}
	waitForSignalFunc = func(<-chan os.Signal) {}
	startHTTPServerFunc = func(*http.Server) error { return http.ErrServerClosed }
	shutdownHTTPServerFunc = func(*http.Server, context.Context) error { return nil }
	exitFunc = func(int) {}

	return func() {
		loadEnvFunc = origLoadEnv
		loadConfigFunc = origLoadConfig
		newLoggerFunc = origNewLogger
		initTracerFunc = origInitTracer
		newPipelineFunc = origNewPipeline
		startTelegramBotFunc = origStartTelegram
		newRouterFunc = origNewRouter
		setupSignalNotify = origSetupSignal
		waitForSignalFunc = origWait
		startHTTPServerFunc = origStartHTTP
		shutdownHTTPServerFunc = origShutdownHTTP
		exitFunc = origExit
	}
}
