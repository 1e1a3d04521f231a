package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/events"
)

// NotificationService fans domain events out to the per-ticket realtime
// channels. Events are published to Redis pub/sub under ticket.<id>; channel
// membership is authorized separately before a client may subscribe.
type NotificationService struct {
	dispatcher events.Dispatcher
	publisher  *redis.Client
	logger     *zap.Logger
}

// NewNotificationService creates the service. A nil publisher degrades to
// log-only delivery.
func NewNotificationService(dispatcher events.Dispatcher, publisher *redis.Client, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		publisher:  publisher,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.broadcast)
	n.dispatcher.Subscribe(events.EventTicketUpdated, n.broadcast)
	n.dispatcher.Subscribe(events.EventTicketDeleted, n.broadcast)
	n.dispatcher.Subscribe(events.EventTicketMessageAdded, n.broadcast)
	n.dispatcher.Subscribe(events.EventRatingSubmitted, n.broadcast)
}

func (n *NotificationService) broadcast(ctx context.Context, event events.Event) error {
	n.logger.Info("ticket event",
		zap.String("event_type", string(event.Type)),
		zap.Int64("ticket_id", event.TicketID),
		zap.Int64("actor_user_id", event.Actor.UserID))

	if n.publisher == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn("event marshal failed", zap.Error(err))
		return nil
	}
	channel := fmt.Sprintf("ticket.%d", event.TicketID)
	if err := n.publisher.Publish(ctx, channel, payload).Err(); err != nil {
		n.logger.Warn("event publish failed", zap.String("channel", channel), zap.Error(err))
	}
	return nil
}
