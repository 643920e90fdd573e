package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

type rmqPublisher struct {
	conn     *amqp091.Connection
	exchange string
	log      *slog.Logger
}

// NewRabbitPublisher connects to the broker and declares a durable topic exchange
func NewRabbitPublisher(url, exchange string, logger *slog.Logger) (Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(
		exchange, "topic", true, false, false, false, nil,
	); err != nil {
		conn.Close()
		return nil, err
	}

	return &rmqPublisher{
		conn:     conn,
		exchange: exchange,
		log:      logger,
	}, nil
}

func (r *rmqPublisher) Publish(ctx context.Context, key string, msg Envelope) error {
	ch, err := r.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if msg.Meta.ID == "" {
		msg.Meta.ID = uuid.NewString()
	}
	if msg.Meta.OccurredAt.IsZero() {
		msg.Meta.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(
		ctx, r.exchange, key, false, false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    msg.Meta.ID,
			Type:         msg.Meta.Type,
			Timestamp:    msg.Meta.OccurredAt,
			Body:         body,
		},
	)
	if err == nil {
		r.log.Debug("event published", slog.String("key", key), slog.String("exchange", r.exchange))
	}
	return err
}

func (r *rmqPublisher) Close() error {
	return r.conn.Close()
}
