package messages

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

type mockBus struct {
	published []Message
	channels  []string
	err       error
}

func (m *mockBus) Publish(ctx context.Context, channel string, message Message) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, message)
	m.channels = append(m.channels, channel)
	return nil
}

type mockAcknowledger struct {
	acks     int
	nacks    int
	requeued bool
}

func (m *mockAcknowledger) Ack(tag uint64, multiple bool) error {
	m.acks++
	return nil
}

func (m *mockAcknowledger) Nack(tag uint64, multiple bool, requeue bool) error {
	m.nacks++
	m.requeued = requeue
	return nil
}

func (m *mockAcknowledger) Reject(tag uint64, requeue bool) error {
	m.nacks++
	m.requeued = requeue
	return nil
}

type mockQueueChannel struct {
	prefetchCount int
	qosErr        error

	consumedQueue string
	autoAck       bool
	deliveries    chan amqp.Delivery
	consumeErr    error
}

func (m *mockQueueChannel) Qos(prefetchCount, prefetchSize int, global bool) error {
	m.prefetchCount = prefetchCount
	return m.qosErr
}

func (m *mockQueueChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	m.consumedQueue = queue
	m.autoAck = autoAck
	if m.consumeErr != nil {
		return nil, m.consumeErr
	}
	return m.deliveries, nil
}

type mockPublishChannel struct {
	exchange   string
	key        string
	publishing amqp.Publishing
	err        error
}

func (m *mockPublishChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	m.exchange = exchange
	m.key = key
	m.publishing = msg
	return m.err
}
