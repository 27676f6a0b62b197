// Package alerting carries free-text operator alerts to a monitoring sink.
package alerting

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/vhvplatform/go-reminder-service/internal/metrics"
	"github.com/vhvplatform/go-reminder-service/internal/shared/logger"
	"github.com/vhvplatform/go-reminder-service/internal/shared/rabbitmq"
)

// Sink accepts free-text alerts for human operators. Alerts are best-effort;
// a sink must never block delivery work.
type Sink interface {
	Alert(text string, isError bool)
}

// LogSink writes alerts to the service log. Always available, used as the
// fallback when no broker is configured.
type LogSink struct {
	log *logger.Logger
}

// NewLogSink creates a log-backed sink
func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{log: log}
}

// Alert implements Sink
func (s *LogSink) Alert(text string, isError bool) {
	metrics.OperatorAlerts.Inc()
	if isError {
		s.log.Error("operator alert", "text", text)
		return
	}
	s.log.Info("operator alert", "text", text)
}

const (
	alertsExchange   = "ops.alerts"
	alertsRoutingKey = "reminder-service"
)

// alertMessage is the payload published to the ops exchange.
type alertMessage struct {
	ID        string    `json:"id"`
	Service   string    `json:"service"`
	Text      string    `json:"text"`
	Level     string    `json:"level"`
	Timestamp time.Time `json:"timestamp"`
}

// RabbitMQSink publishes alerts to the ops exchange so they reach the
// on-call tooling. Publish failures fall back to the log.
type RabbitMQSink struct {
	client *rabbitmq.RabbitMQClient
	log    *logger.Logger
}

// NewRabbitMQSink declares the ops exchange and returns a broker-backed sink
func NewRabbitMQSink(client *rabbitmq.RabbitMQClient, log *logger.Logger) (*RabbitMQSink, error) {
	if err := client.DeclareExchange(alertsExchange, "topic"); err != nil {
		return nil, err
	}
	return &RabbitMQSink{client: client, log: log}, nil
}

// Alert implements Sink
func (s *RabbitMQSink) Alert(text string, isError bool) {
	level := "info"
	if isError {
		level = "error"
	}

	body, err := json.Marshal(alertMessage{
		ID:        uuid.New().String(),
		Service:   "reminder-service",
		Text:      text,
		Level:     level,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		s.log.Error("failed to marshal alert", "error", err)
		return
	}

	if err := s.client.Publish(alertsExchange, alertsRoutingKey, body); err != nil {
		s.log.Error("failed to publish alert, falling back to log", "error", err, "text", text)
	}
}

// MultiSink fans an alert out to every configured sink.
type MultiSink []Sink

// Alert implements Sink
func (m MultiSink) Alert(text string, isError bool) {
	for _, s := range m {
		s.Alert(text, isError)
	}
}
