package messages

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"github.com/ngutech/lndlink/lightning"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Routing keys the node publisher stamps on queued notifications.
const (
	invoiceRoutingKey   = "lnd.message.invoice"
	htlcEventRoutingKey = "lnd.message.htlc_event"
)

// Invoice state codes as they appear in queued notification bodies.
const (
	stateInvoiceOpen = iota
	stateInvoiceSettled
	stateInvoiceCancelled
	stateInvoiceAccepted
)

// HTLC event codes as they appear in queued notification bodies.
const (
	eventHtlcForward = iota + 7
	eventHtlcForwardFail
	eventHtlcSettle
	eventHtlcLinkFail
)

// queueChannel is the subset of the amqp channel the worker consumes through.
type queueChannel interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// Worker drains the node notification queue one delivery at a time and
// republishes each as a canonical message. Failed deliveries are rejected
// without requeue so a poison message cannot wedge the queue.
type Worker struct {
	channel queueChannel
	bus     EventBus
	queue   string
}

func NewWorker(channel *amqp.Channel, bus EventBus, queue string) *Worker {
	return &Worker{channel: channel, bus: bus, queue: queue}
}

// Run consumes the queue until ctx is cancelled or the delivery channel
// closes.
func (w *Worker) Run(ctx context.Context) error {
	// One unacknowledged delivery at a time.
	if err := w.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set channel qos: %w", err)
	}

	deliveries, err := w.channel.Consume(w.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume queue '%s': %w", w.queue, err)
	}
	log.Printf("messages: consuming queue '%s'", w.queue)

	for {
		select {
		case <-ctx.Done():
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return nil
			}
			w.handle(ctx, delivery)
		}
	}
}

func (w *Worker) handle(ctx context.Context, delivery amqp.Delivery) {
	message, err := w.createMessage(delivery)
	if err == nil && message != nil {
		err = w.bus.Publish(ctx, EventsChannel, message)
	}
	if err != nil {
		log.Printf("messages: dropping '%s' delivery: %v", delivery.RoutingKey, err)
		if err := delivery.Nack(false, false); err != nil {
			log.Printf("messages: failed to reject delivery: %v", err)
		}
		return
	}

	if err := delivery.Ack(false); err != nil {
		log.Printf("messages: failed to acknowledge delivery: %v", err)
	}
}

// createMessage translates one queued notification. A nil message with a nil
// error means the delivery is not ours to translate and is dropped silently.
func (w *Worker) createMessage(delivery amqp.Delivery) (Message, error) {
	switch delivery.RoutingKey {
	case invoiceRoutingKey:
		return createInvoiceMessage(delivery)
	case htlcEventRoutingKey:
		return createHtlcMessage(delivery)
	}
	return nil, nil
}

// invoiceNotification mirrors the node's proto-JSON invoice dump. Amounts and
// dates arrive as strings or numbers depending on the publisher.
type invoiceNotification struct {
	State          int        `json:"state"`
	RHash          string     `json:"rHash"`
	RPreimage      string     `json:"rPreimage"`
	PaymentRequest string     `json:"paymentRequest"`
	ValueMsat      looseInt64 `json:"valueMsat"`
	AmtPaidMsat    looseInt64 `json:"amtPaidMsat"`
	CreationDate   looseInt64 `json:"creationDate"`
	SettleDate     looseInt64 `json:"settleDate"`
	CltvExpiry     looseInt64 `json:"cltvExpiry"`
}

func createInvoiceMessage(delivery amqp.Delivery) (Message, error) {
	var notification invoiceNotification
	if err := json.Unmarshal(delivery.Body, &notification); err != nil {
		return nil, fmt.Errorf("failed to decode invoice notification: %w", err)
	}

	var timestamp int64
	var wrap func(invoiceMessage) Message
	switch notification.State {
	case stateInvoiceOpen:
		timestamp = int64(notification.CreationDate)
		wrap = func(m invoiceMessage) Message { return &InvoiceRequested{m} }
	case stateInvoiceSettled:
		timestamp = int64(notification.SettleDate)
		wrap = func(m invoiceMessage) Message { return &InvoiceSettled{m} }
	case stateInvoiceCancelled:
		timestamp = delivery.Timestamp.Unix()
		wrap = func(m invoiceMessage) Message { return &InvoiceCancelled{m} }
	case stateInvoiceAccepted:
		timestamp = delivery.Timestamp.Unix()
		wrap = func(m invoiceMessage) Message { return &InvoiceAccepted{m} }
	default:
		return nil, fmt.Errorf("unhandled invoice state '%d'", notification.State)
	}

	message, err := invoiceMessageFromMap(map[string]string{
		"preimageHash": notification.RHash,
		"preimage":     notification.RPreimage,
		"request":      notification.PaymentRequest,
		"amount":       string(lightning.MsatMoney(lightning.MilliSatoshi(notification.ValueMsat))),
		"amountPaid":   string(lightning.MsatMoney(lightning.MilliSatoshi(notification.AmtPaidMsat))),
		"timestamp":    strconv.FormatInt(timestamp, 10),
		"cltvExpiry":   strconv.FormatInt(int64(notification.CltvExpiry), 10),
	})
	if err != nil {
		return nil, err
	}
	return wrap(message), nil
}

// htlcNotification mirrors the node's proto-JSON htlc event dump.
type htlcNotification struct {
	Event             int    `json:"event"`
	EventType         int    `json:"eventType"`
	IncomingChannelID string `json:"incomingChannelId"`
	OutgoingChannelID string `json:"outgoingChannelId"`
	IncomingHtlcID    string `json:"incomingHtlcId"`
	OutgoingHtlcID    string `json:"outgoingHtlcId"`
	TimestampNs       string `json:"timestampNs"`
}

func createHtlcMessage(delivery amqp.Delivery) (Message, error) {
	var notification htlcNotification
	if err := json.Unmarshal(delivery.Body, &notification); err != nil {
		return nil, fmt.Errorf("failed to decode htlc notification: %w", err)
	}

	var wrap func(htlcMessage) Message
	switch notification.Event {
	case eventHtlcForward:
		wrap = func(m htlcMessage) Message { return &HtlcForwarded{m} }
	case eventHtlcForwardFail:
		wrap = func(m htlcMessage) Message { return &HtlcForwardFailed{m} }
	case eventHtlcSettle:
		wrap = func(m htlcMessage) Message { return &HtlcSettled{m} }
	case eventHtlcLinkFail:
		wrap = func(m htlcMessage) Message { return &HtlcLinkFailed{m} }
	default:
		return nil, fmt.Errorf("unhandled htlc event '%d'", notification.Event)
	}

	timestamp, err := htlcTimestamp(notification.TimestampNs)
	if err != nil {
		return nil, err
	}

	message, err := htlcMessageFromMap(map[string]string{
		"incomingChannelId": notification.IncomingChannelID,
		"outgoingChannelId": notification.OutgoingChannelID,
		"incomingHtlcId":    notification.IncomingHtlcID,
		"outgoingHtlcId":    notification.OutgoingHtlcID,
		"timestamp":         timestamp,
		"eventType":         strconv.Itoa(notification.EventType),
	})
	if err != nil {
		return nil, err
	}
	return wrap(message), nil
}

// htlcTimestamp rewrites a nanosecond timestamp as seconds with microsecond
// precision: the nanosecond digits are cut and a decimal point is placed six
// digits from the end.
func htlcTimestamp(ns string) (string, error) {
	if len(ns) < 10 {
		return "", fmt.Errorf("invalid htlc timestamp '%s'", ns)
	}
	micros := ns[:len(ns)-3]
	return micros[:len(micros)-6] + "." + micros[len(micros)-6:], nil
}

// looseInt64 accepts both JSON numbers and the string-encoded int64 values
// proto-JSON emits.
type looseInt64 int64

func (i *looseInt64) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*i = 0
		return nil
	}
	value, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return err
	}
	*i = looseInt64(value)
	return nil
}
