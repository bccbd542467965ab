package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"cryptobot-signal/internal/domain"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

type messageSender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// AlertDispatcher fans scheduled signal outcomes out to the chats that opted in with /alerts on.
type AlertDispatcher struct {
	sender messageSender
	log    *zap.Logger

	mu          sync.RWMutex
	subscribers map[int64]struct{}
}

func NewAlertDispatcher(sender messageSender, log *zap.Logger) *AlertDispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &AlertDispatcher{
		sender:      sender,
		log:         log,
		subscribers: make(map[int64]struct{}),
	}
}

func (d *AlertDispatcher) Subscribe(chatID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.subscribers[chatID]; exists {
		return false
	}
	d.subscribers[chatID] = struct{}{}
	return true
}

func (d *AlertDispatcher) Unsubscribe(chatID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.subscribers[chatID]; !exists {
		return false
	}
	delete(d.subscribers, chatID)
	return true
}

func (d *AlertDispatcher) IsSubscribed(chatID int64) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, exists := d.subscribers[chatID]
	return exists
}

func (d *AlertDispatcher) SubscriberCount() int {
	if d == nil {
		return 0
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers)
}

// NotifyOutcome sends a successful outcome to every subscriber. Failed outcomes are
// logged only; scheduled broadcasts never push error notices.
func (d *AlertDispatcher) NotifyOutcome(ctx context.Context, outcome domain.Outcome) error {
	_ = ctx
	if d == nil || d.sender == nil {
		return nil
	}
	if outcome.Err != nil {
		d.log.Warn("broadcast skipped failed instrument",
			zap.String("instrument", outcome.Instrument.String()),
			zap.String("kind", string(domain.KindOf(outcome.Err))),
			zap.Error(outcome.Err),
		)
		return nil
	}

	chatIDs := d.snapshotSubscribers()
	if len(chatIDs) == 0 {
		return nil
	}

	msg := truncate(outcome.Message)
	var failures []string
	for _, chatID := range chatIDs {
		if _, err := d.sender.Send(&tele.Chat{ID: chatID}, msg); err != nil {
			failures = append(failures, fmt.Sprintf("chat %d: %v", chatID, err))
		}
	}
	if len(failures) > 0 {
		err := domain.NewFailure(domain.KindDeliveryFailure, outcome.Instrument,
			fmt.Errorf("failed sending %d alerts: %s", len(failures), strings.Join(failures, "; ")))
		d.log.Warn("broadcast delivery failed", zap.Error(err))
		return err
	}
	return nil
}

func (d *AlertDispatcher) snapshotSubscribers() []int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	chatIDs := make([]int64, 0, len(d.subscribers))
	for chatID := range d.subscribers {
		chatIDs = append(chatIDs, chatID)
	}
	sort.Slice(chatIDs, func(i, j int) bool { return chatIDs[i] < chatIDs[j] })
	return chatIDs
}

func parseAlertMode(args []string) (string, error) {
	if len(args) == 0 {
		return "status", nil
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "on":
		return "on", nil
	case "off":
		return "off", nil
	case "status":
		return "status", nil
	default:
		return "", fmt.Errorf("invalid mode")
	}
}
