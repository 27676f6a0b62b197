package consumer

import (
	"context"
	"encoding/json"

	"github.com/vhvplatform/go-reminder-service/internal/domain"
	"github.com/vhvplatform/go-reminder-service/internal/service"
	"github.com/vhvplatform/go-reminder-service/internal/shared/logger"
	"github.com/vhvplatform/go-reminder-service/internal/shared/rabbitmq"
)

const (
	preferenceExchange   = "reminders"
	preferenceQueue      = "reminder_preference_events"
	preferenceRoutingKey = "reminder.preferences.*"
	consumerTag          = "reminder-service"
)

// EventConsumer consumes preference change events published by the chat
// frontend and folds them into the preference store.
type EventConsumer struct {
	client  *rabbitmq.RabbitMQClient
	service *service.PreferenceService
	log     *logger.Logger
}

// NewEventConsumer creates a new event consumer
func NewEventConsumer(client *rabbitmq.RabbitMQClient, service *service.PreferenceService, log *logger.Logger) *EventConsumer {
	return &EventConsumer{
		client:  client,
		service: service,
		log:     log,
	}
}

// Start declares the topology and consumes until the channel closes.
func (c *EventConsumer) Start() error {
	c.log.Info("Starting preference event consumer", "queue", preferenceQueue)

	if err := c.client.DeclareExchange(preferenceExchange, "topic"); err != nil {
		c.log.Error("Failed to declare exchange", "error", err)
		return err
	}

	if err := c.client.DeclareQueue(preferenceQueue); err != nil {
		c.log.Error("Failed to declare queue", "error", err)
		return err
	}

	if err := c.client.BindQueue(preferenceQueue, preferenceRoutingKey, preferenceExchange); err != nil {
		c.log.Error("Failed to bind queue", "error", err)
		return err
	}

	messages, err := c.client.Consume(preferenceQueue, consumerTag)
	if err != nil {
		c.log.Error("Failed to start consuming", "error", err)
		return err
	}

	for msg := range messages {
		c.log.Info("Received preference event", "routing_key", msg.RoutingKey)

		var event domain.PreferenceEvent
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			c.log.Error("Failed to unmarshal event", "error", err)
			msg.Nack(false, false) // Don't requeue invalid messages
			continue
		}

		ctx := context.Background()
		if err := c.service.ApplyEvent(ctx, &event); err != nil {
			c.log.Error("Failed to apply preference event", "error", err, "type", event.Type, "user_id", event.UserID)
			msg.Nack(false, true) // Requeue for retry
			continue
		}

		msg.Ack(false)
		c.log.Info("Preference event applied", "type", event.Type, "user_id", event.UserID)
	}

	return nil
}
