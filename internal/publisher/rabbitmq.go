package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"tutorial_finder/internal/domain"
)

// RabbitMQ publishes one TutorialsMessage per finished run to a durable
// direct exchange.
type RabbitMQ struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
	logger     *slog.Logger
}

type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
	QueueName  string
}

func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	r := &RabbitMQ{
		conn:       conn,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		logger:     logger.With("component", "publisher"),
	}

	if r.channel, err = conn.Channel(); err != nil {
		r.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := r.declare(cfg.QueueName); err != nil {
		r.Close()
		return nil, err
	}

	r.logger.Debug("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"queue", cfg.QueueName,
		"routing_key", cfg.RoutingKey,
	)

	return r, nil
}

// declare sets up the exchange and, when queueName is set, a durable queue
// bound to the routing key so results are kept until a consumer shows up.
func (r *RabbitMQ) declare(queueName string) error {
	if err := r.channel.ExchangeDeclare(r.exchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if queueName == "" {
		return nil
	}

	q, err := r.channel.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := r.channel.QueueBind(q.Name, r.routingKey, r.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

type TutorialsMessage struct {
	RunID          string                  `json:"run_id"`
	ImageURL       string                  `json:"image_url"`
	Outcome        string                  `json:"outcome"` // "accepted", "rejected" or "uninterpretable"
	ProductKeyword string                  `json:"product_keyword"`
	Reason         string                  `json:"reason,omitempty"`
	Tutorials      []domain.VideoCandidate `json:"tutorials"`
	Timestamp      time.Time               `json:"timestamp"`
}

func newTutorialsMessage(report *domain.Report, now time.Time) TutorialsMessage {
	tutorials := report.Result.Tutorials
	if tutorials == nil {
		tutorials = []domain.VideoCandidate{}
	}

	return TutorialsMessage{
		RunID:          report.RunID,
		ImageURL:       report.ImageURL,
		Outcome:        report.Outcome.String(),
		ProductKeyword: report.Result.ProductKeyword,
		Reason:         report.Result.Reason,
		Tutorials:      tutorials,
		Timestamp:      now.UTC(),
	}
}

func (r *RabbitMQ) Publish(ctx context.Context, report *domain.Report) error {
	msg := newTutorialsMessage(report, time.Now())

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = r.channel.PublishWithContext(ctx, r.exchange, r.routingKey, false, false, amqp.Publishing{
		DeliveryMode:  amqp.Persistent,
		ContentType:   "application/json",
		CorrelationId: report.RunID,
		Timestamp:     msg.Timestamp,
		Body:          body,
	})
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	r.logger.Debug("published tutorials",
		"run_id", report.RunID,
		"outcome", msg.Outcome,
		"tutorials", len(msg.Tutorials),
	)

	return nil
}

func (r *RabbitMQ) Close() error {
	var errs []error
	if r.channel != nil {
		errs = append(errs, r.channel.Close())
	}
	if r.conn != nil {
		errs = append(errs, r.conn.Close())
	}
	return errors.Join(errs...)
}
