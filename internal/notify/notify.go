// Package notify appends to the organizer notification feed and fans
// changes out to live subscribers. Delivery is best effort: failures are
// logged and never reported to the caller, whose write has already
// committed.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukerupert/potluck/internal/metrics"
	"github.com/dukerupert/potluck/internal/model"
	"github.com/dukerupert/potluck/internal/websocket"
)

// Feed persists notifications.
type Feed interface {
	Create(ctx context.Context, eventType, title, message string) (*model.Notification, error)
}

// Broadcaster delivers messages to live subscribers.
type Broadcaster interface {
	Broadcast(msg websocket.Message) (int, error)
}

// Event is a notification before it is stored.
type Event struct {
	Type    string
	Title   string
	Message string
}

// CheckinPayload is what grocery_list subscribers receive when an item's
// override changes.
type CheckinPayload struct {
	IngredientID     int64      `json:"ingredient_id"`
	Checked          bool       `json:"checked"`
	CheckedBy        *string    `json:"checked_by"`
	CheckedAt        *time.Time `json:"checked_at"`
	QuantityOverride *int       `json:"quantity_override"`
}

func NewCheckinPayload(c model.GroceryCheckin) CheckinPayload {
	return CheckinPayload{
		IngredientID:     c.IngredientID,
		Checked:          c.Checked,
		CheckedBy:        c.CheckedBy,
		CheckedAt:        c.CheckedAt,
		QuantityOverride: c.QuantityOverride,
	}
}

type Service struct {
	feed    Feed
	hub     Broadcaster
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New returns a Service. hub and m may be nil.
func New(feed Feed, hub Broadcaster, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{feed: feed, hub: hub, metrics: m, logger: logger}
}

// Publish stores ev in the feed and broadcasts it on the notifications
// stream. It runs detached from ctx cancellation so a client hanging up
// after its write committed does not lose the notification.
func (s *Service) Publish(ctx context.Context, ev Event) {
	if s == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	n, err := s.feed.Create(ctx, ev.Type, ev.Title, ev.Message)
	if err != nil {
		s.logger.Error("store notification", "event_type", ev.Type, "error", err)
		return
	}
	s.metrics.IncNotification(ev.Type)
	s.broadcast(websocket.NewMessage(websocket.StreamNotifications, ev.Type, n))
}

// GroceryChanged tells grocery_list subscribers about an override change.
func (s *Service) GroceryChanged(c model.GroceryCheckin) {
	if s == nil {
		return
	}
	s.broadcast(websocket.NewMessage(websocket.StreamGroceryList, "checkin", NewCheckinPayload(c)))
}

func (s *Service) broadcast(msg websocket.Message) {
	if s.hub == nil {
		return
	}
	if _, err := s.hub.Broadcast(msg); err != nil {
		s.logger.Warn("broadcast failed", "stream", msg.Stream, "type", msg.Type, "error", err)
	}
}
