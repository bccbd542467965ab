package bot

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf16"

	"cryptobot-signal/internal/config"
	"cryptobot-signal/internal/domain"
	"cryptobot-signal/internal/service"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

const (
	callbackPrefix  = "pair_"
	maxCallbackData = 64
	maxMessageUnits = 4000
	truncatedMarker = "\n\n[truncated]"
)

const welcomeText = `Welcome to the Crypto Trading Signals Bot! 🤖

Available commands:
/signal - Get trading signals (select a pair)
/pairs - List monitored trading pairs
/alerts on|off|status - Scheduled signal broadcasts for this chat
/help - Show this help message

Note: This bot provides AI-generated trading signals. Always verify signals and trade at your own risk.`

type SignalProducer interface {
	ProduceSignal(ctx context.Context, inst domain.Instrument) (string, error)
	ProduceSignalsFunc(ctx context.Context, insts []domain.Instrument, deliver func(domain.Outcome))
}

// Controller owns the chat command surface and the per-chat selection state.
// Handlers are invoked concurrently, one goroutine per update.
type Controller struct {
	log      *zap.Logger
	sender   messageSender
	catalog  *domain.Catalog
	producer SignalProducer
	mode     string
	sessions *sessionRegistry
	alerts   *AlertDispatcher
}

func NewController(
	log *zap.Logger,
	sender messageSender,
	catalog *domain.Catalog,
	producer SignalProducer,
	mode string,
) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	if mode != config.SignalModeBulk {
		mode = config.SignalModeMenu
	}
	return &Controller{
		log:      log,
		sender:   sender,
		catalog:  catalog,
		producer: producer,
		mode:     mode,
		sessions: newSessionRegistry(),
		alerts:   NewAlertDispatcher(sender, log),
	}
}

func (c *Controller) Alerts() *AlertDispatcher { return c.alerts }

func (c *Controller) State(chatID int64) SessionState { return c.sessions.State(chatID) }

func (c *Controller) HandleStart(chatID int64) error {
	return c.send(chatID, welcomeText)
}

func (c *Controller) HandlePairs(chatID int64) error {
	return c.send(chatID, "Monitored Trading Pairs:\n"+strings.Join(c.catalog.Strings(), "\n"))
}

// HandleSignal shows the pair menu, or in bulk mode runs every catalog instrument in order.
func (c *Controller) HandleSignal(ctx context.Context, chatID int64) error {
	if c.mode == config.SignalModeBulk {
		return c.runBulk(ctx, chatID)
	}
	if err := c.send(chatID, "📊 Select a trading pair to analyze:", pairKeyboard(c.catalog)); err != nil {
		return err
	}
	c.sessions.Set(chatID, StateMenuShown)
	return nil
}

// HandleSelection processes a menu callback token. Tokens naming an instrument outside the
// catalog are ignored: no signal is produced, no reply is sent and the state is unchanged.
func (c *Controller) HandleSelection(ctx context.Context, chatID int64, token string) error {
	inst, ok := c.parseSelection(token)
	if !ok {
		c.log.Debug("ignoring selection token", zap.Int64("chat_id", chatID), zap.String("token", token))
		return nil
	}
	defer c.sessions.Set(chatID, StateIdle)

	_ = c.send(chatID, fmt.Sprintf("🔄 Generating trading signal for %s...", inst))

	msg, err := c.producer.ProduceSignal(ctx, inst)
	if err != nil {
		return c.send(chatID, service.FailureNotice(inst, err))
	}
	return c.send(chatID, msg)
}

func (c *Controller) HandleAlerts(chatID int64, args []string) error {
	mode, err := parseAlertMode(args)
	if err != nil {
		return c.send(chatID, "Usage: /alerts on | /alerts off | /alerts status")
	}

	switch mode {
	case "on":
		if c.alerts.Subscribe(chatID) {
			return c.send(chatID, "Signal broadcasts enabled for this chat.")
		}
		return c.send(chatID, "Signal broadcasts are already enabled for this chat.")
	case "off":
		if c.alerts.Unsubscribe(chatID) {
			return c.send(chatID, "Signal broadcasts disabled for this chat.")
		}
		return c.send(chatID, "Signal broadcasts are already disabled for this chat.")
	default:
		if c.alerts.IsSubscribed(chatID) {
			return c.send(chatID, "Alerts status: ON")
		}
		return c.send(chatID, "Alerts status: OFF")
	}
}

func (c *Controller) runBulk(ctx context.Context, chatID int64) error {
	insts := c.catalog.Instruments()
	_ = c.send(chatID, fmt.Sprintf("🔄 Generating trading signals for %d pairs...", len(insts)))

	c.producer.ProduceSignalsFunc(ctx, insts, func(o domain.Outcome) {
		if o.Err != nil {
			_ = c.send(chatID, service.FailureNotice(o.Instrument, o.Err))
			return
		}
		_ = c.send(chatID, o.Message)
	})
	return nil
}

func (c *Controller) parseSelection(token string) (domain.Instrument, bool) {
	raw, ok := strings.CutPrefix(token, callbackPrefix)
	if !ok {
		return "", false
	}
	inst, err := domain.ParseInstrument(raw)
	if err != nil || inst.String() != raw {
		return "", false
	}
	return inst, c.catalog.Contains(inst)
}

// send delivers one plain-text message. Failures are logged and surfaced as DeliveryFailure, never retried.
func (c *Controller) send(chatID int64, text string, opts ...interface{}) error {
	if c.sender == nil {
		return domain.NewFailure(domain.KindDeliveryFailure, "", fmt.Errorf("no sender configured"))
	}
	if _, err := c.sender.Send(&tele.Chat{ID: chatID}, truncate(text), opts...); err != nil {
		c.log.Warn("message delivery failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return domain.NewFailure(domain.KindDeliveryFailure, "", err)
	}
	return nil
}

func pairKeyboard(catalog *domain.Catalog) *tele.ReplyMarkup {
	rows := make([][]tele.InlineButton, 0, catalog.Len())
	for _, inst := range catalog.Instruments() {
		rows = append(rows, []tele.InlineButton{{
			Text: inst.String(),
			Data: callbackPrefix + inst.String(),
		}})
	}
	return &tele.ReplyMarkup{InlineKeyboard: rows}
}

// truncate caps text at maxMessageUnits UTF-16 code units, the unit Telegram counts,
// without splitting a character.
func truncate(text string) string {
	units := 0
	for i, r := range text {
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		if units+n > maxMessageUnits {
			return text[:i] + truncatedMarker
		}
		units += n
	}
	return text
}

// validateCatalog rejects instruments whose menu callback data Telegram would refuse.
func validateCatalog(catalog *domain.Catalog) error {
	if catalog == nil || catalog.Len() == 0 {
		return fmt.Errorf("catalog must contain at least one instrument")
	}
	for _, inst := range catalog.Instruments() {
		if len(callbackPrefix+inst.String()) > maxCallbackData {
			return fmt.Errorf("instrument %s is too long for a menu button (max %d bytes of callback data)", inst, maxCallbackData)
		}
	}
	return nil
}
