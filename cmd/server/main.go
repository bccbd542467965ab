package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"
	"time"

	"cryptobot-signal/internal/app"
	"cryptobot-signal/internal/bot"
	"cryptobot-signal/internal/config"
	"cryptobot-signal/internal/handler"
	"cryptobot-signal/internal/job"
	"cryptobot-signal/pkg/logger"
	"cryptobot-signal/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const defaultHTTPPort = "3000"

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	newLoggerFunc          = logger.NewOrNop
	initTracerFunc         = tracing.InitTracer
	newPipelineFunc        = app.NewPipeline
	startTelegramBotFunc   = bot.StartTelegramBot
	newBroadcasterFunc     = job.NewSignalBroadcaster
	startBroadcasterFunc   = func(b *job.SignalBroadcaster, ctx context.Context) <-chan error { return runAsync(ctx, b.Start) }
	newHandlerFunc         = handler.New
	newRouterFunc          = gin.Default
	setupSignalNotify      = ossignal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
	exitFunc               = os.Exit
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "cryptobot-signal: %v\n", err)
		exitFunc(1)
	}
}

func run() error {
	_ = loadEnvFunc()
	cfg := loadConfigFunc()

	log := newLoggerFunc(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	if err := cfg.ValidateBot(); err != nil {
		log.Error("invalid configuration", zap.Error(err))
		return err
	}
	log.Info("environment variables loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		return fmt.Errorf("initialize tracer: %w", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Warn("error shutting down tracer provider", zap.Error(err))
		}
	}()

	pipeline, err := newPipelineFunc(cfg, tracer, log)
	if err != nil {
		return err
	}

	tb, err := startTelegramBotFunc(bot.Settings{
		Token:   cfg.TelegramBotToken,
		Mode:    cfg.SignalMode,
		Catalog: pipeline.Catalog,
	}, log, pipeline.Signals)
	if err != nil {
		return err
	}
	defer tb.Stop()

	var broadcastErr <-chan error
	if tb != nil && cfg.BroadcastCron != "" {
		broadcaster := newBroadcasterFunc(tracer, log, pipeline.Signals, tb.Controller().Alerts(), pipeline.Catalog, cfg.BroadcastCron)
		broadcastErr = startBroadcasterFunc(broadcaster, ctx)
	}

	h := newHandlerFunc(tracer, pipeline.Catalog)
	r := newRouterFunc()
	r.Use(otelgin.Middleware("cryptobot-signal"))
	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    httpAddrFromEnv(),
		Handler: r,
	}

	go func() {
		log.Info("health check server running", zap.String("addr", srv.Addr))
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Error("health check server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	stopped := make(chan struct{})
	go func() {
		waitForSignalFunc(quit)
		close(stopped)
	}()

	select {
	case <-stopped:
	case err := <-broadcastErr:
		if err != nil {
			log.Error("signal broadcast failed", zap.Error(err))
		}
		<-stopped
	}
	log.Info("shutting down")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server exiting")
	return nil
}

// httpAddrFromEnv reads PORT, accepting both "8080" and ":8080".
func httpAddrFromEnv() string {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = defaultHTTPPort
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func runAsync(ctx context.Context, fn func(context.Context) error) <-chan error {
	errc := make(chan error, 1)
	go func() { errc <- fn(ctx) }()
	return errc
}
