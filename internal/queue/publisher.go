// Package queue publishes collection-run summaries to RabbitMQ so downstream
// consumers (alerting, audit) can react without polling the logs table.
package queue

import (
	"context"
	"encoding/json"
	"time"

	errwrap "github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RunEvent is the JSON payload published after each finalized run.
type RunEvent struct {
	RunID         string    `json:"run_id"`
	ConnectionID  int64     `json:"connection_id"`
	Status        string    `json:"status"`
	RowsCollected int       `json:"rows_collected"`
	RowsInserted  int       `json:"rows_inserted"`
	DurationMs    int64     `json:"duration_ms"`
	CompletedAt   time.Time `json:"completed_at"`
}

type Publisher interface {
	PublishRunEvent(ctx context.Context, event RunEvent) error
	Close() error
}

type amqpPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// NewPublisher connects to RabbitMQ and declares a fanout exchange. An empty
// URL yields a no-op publisher, so callers never branch on configuration.
func NewPublisher(url, exchange string) (Publisher, error) {
	if url == "" {
		return noopPublisher{}, nil
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errwrap.Wrap(err, "queue.NewPublisher")
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, errwrap.Wrap(err, "queue.NewPublisher")
	}
	if err := channel.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, errwrap.Wrap(err, "queue.NewPublisher")
	}

	return &amqpPublisher{conn: conn, channel: channel, exchange: exchange}, nil
}

func (p *amqpPublisher) PublishRunEvent(ctx context.Context, event RunEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return errwrap.Wrap(err, "Publisher.PublishRunEvent")
	}
	err = p.channel.PublishWithContext(ctx, p.exchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   event.CompletedAt,
		Body:        body,
	})
	return errwrap.Wrap(err, "Publisher.PublishRunEvent")
}

func (p *amqpPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.conn.Close()
		return errwrap.Wrap(err, "Publisher.Close")
	}
	return errwrap.Wrap(p.conn.Close(), "Publisher.Close")
}

type noopPublisher struct{}

func (noopPublisher) PublishRunEvent(context.Context, RunEvent) error { return nil }
func (noopPublisher) Close() error                                    { return nil }
