package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cryptobot-signal/internal/domain"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

type Settings struct {
	Token   string
	Mode    string
	Catalog *domain.Catalog
}

// TelegramBot is a running long-polling bot wired to a Controller.
type TelegramBot struct {
	bot        *tele.Bot
	controller *Controller
}

func (t *TelegramBot) Controller() *Controller { return t.controller }

func (t *TelegramBot) Stop() {
	if t != nil && t.bot != nil {
		t.bot.Stop()
	}
}

// StartTelegramBot connects to Telegram (getMe), registers the command handlers and
// starts polling in the background. Updates are handled asynchronously, one goroutine each.
func StartTelegramBot(settings Settings, log *zap.Logger, producer SignalProducer) (*TelegramBot, error) {
	if strings.TrimSpace(settings.Token) == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	if err := validateCatalog(settings.Catalog); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	pref := tele.Settings{
		Token:  settings.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			fields := []zap.Field{zap.Error(err)}
			if c != nil && c.Chat() != nil {
				fields = append(fields, zap.Int64("chat_id", c.Chat().ID))
			}
			log.Error("telegram handler error", fields...)
		},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	log.Info("telegram bot connected", zap.String("username", b.Me.Username))

	ctrl := NewController(log, b, settings.Catalog, producer, settings.Mode)
	registerHandlers(b, ctrl)

	log.Info("telegram bot started",
		zap.Strings("pairs", settings.Catalog.Strings()),
		zap.String("mode", ctrl.mode),
	)
	go b.Start()
	return &TelegramBot{bot: b, controller: ctrl}, nil
}

type handlerRegistrar interface {
	Handle(endpoint interface{}, h tele.HandlerFunc, m ...tele.MiddlewareFunc)
}

func registerHandlers(b handlerRegistrar, ctrl *Controller) {
	withChat := func(fn func(chatID int64, c tele.Context) error) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			if chat == nil {
				return nil
			}
			return fn(chat.ID, c)
		}
	}

	start := withChat(func(chatID int64, _ tele.Context) error { return ctrl.HandleStart(chatID) })
	b.Handle("/start", start)
	b.Handle("/help", start)

	pairs := withChat(func(chatID int64, _ tele.Context) error { return ctrl.HandlePairs(chatID) })
	b.Handle("/pairs", pairs)
	b.Handle("/list", pairs)

	b.Handle("/signal", withChat(func(chatID int64, _ tele.Context) error {
		return ctrl.HandleSignal(context.Background(), chatID)
	}))

	b.Handle("/alerts", withChat(func(chatID int64, c tele.Context) error {
		return ctrl.HandleAlerts(chatID, c.Args())
	}))

	b.Handle(tele.OnCallback, func(c tele.Context) error {
		cb := c.Callback()
		if cb == nil {
			return nil
		}
		_ = c.Respond()
		chat := c.Chat()
		if chat == nil {
			return nil
		}
		return ctrl.HandleSelection(context.Background(), chat.ID, cb.Data)
	})
}
