package messages

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// EventsChannel is the logical channel all canonical messages are published
// on.
const EventsChannel = "events"

// EventBus publishes canonical messages to the platform's internal bus.
type EventBus interface {
	Publish(ctx context.Context, channel string, message Message) error
}

// busChannel is the subset of the amqp channel the bus publishes through.
type busChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AmqpBus delivers messages to a topic exchange, using the logical channel
// as routing key.
type AmqpBus struct {
	channel  busChannel
	exchange string
}

func NewAmqpBus(channel *amqp.Channel, exchange string) *AmqpBus {
	return &AmqpBus{channel: channel, exchange: exchange}
}

func (b *AmqpBus) Publish(ctx context.Context, channel string, message Message) error {
	body, err := json.Marshal(message.ToMap())
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", message.MessageType(), err)
	}

	return b.channel.PublishWithContext(
		ctx,
		b.exchange,
		channel,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Type:         message.MessageType(),
			Body:         body,
		},
	)
}
