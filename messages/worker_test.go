package messages

import (
	"context"
	"strconv"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func invoiceDelivery(t *testing.T, body string) (amqp.Delivery, *mockAcknowledger) {
	t.Helper()
	acker := &mockAcknowledger{}
	return amqp.Delivery{
		Acknowledger: acker,
		RoutingKey:   invoiceRoutingKey,
		Body:         []byte(body),
	}, acker
}

func htlcDelivery(t *testing.T, body string) (amqp.Delivery, *mockAcknowledger) {
	t.Helper()
	acker := &mockAcknowledger{}
	return amqp.Delivery{
		Acknowledger: acker,
		RoutingKey:   htlcEventRoutingKey,
		Body:         []byte(body),
	}, acker
}

func Test_Handle_SettledInvoice(t *testing.T) {
	bus := &mockBus{}
	w := &Worker{bus: bus}

	delivery, acker := invoiceDelivery(t, `{
		"state": 1,
		"rHash": "ab12",
		"rPreimage": "cd34",
		"paymentRequest": "lnbc20m1pvjluez",
		"valueMsat": "25000",
		"amtPaidMsat": "26000",
		"creationDate": "1610000000",
		"settleDate": "1610000060",
		"cltvExpiry": "40"
	}`)
	w.handle(context.Background(), delivery)

	require.Len(t, bus.published, 1)
	assert.Equal(t, 1, acker.acks)
	assert.Equal(t, 0, acker.nacks)
	assert.Equal(t, EventsChannel, bus.channels[0])

	message, ok := bus.published[0].(*InvoiceSettled)
	require.True(t, ok)
	assert.Equal(t, map[string]string{
		"preimageHash": "ab12",
		"preimage":     "cd34",
		"request":      "lnbc20m1pvjluez",
		"amount":       "25000msat",
		"amountPaid":   "26000msat",
		"timestamp":    "1610000060",
		"cltvExpiry":   "40",
	}, message.ToMap())
}

func Test_Handle_OpenInvoice(t *testing.T) {
	bus := &mockBus{}
	w := &Worker{bus: bus}

	// Amounts arrive as plain JSON numbers from some publisher versions.
	delivery, acker := invoiceDelivery(t, `{
		"state": 0,
		"rHash": "ab12",
		"paymentRequest": "lnbc20m1pvjluez",
		"valueMsat": 25000,
		"creationDate": 1610000000,
		"cltvExpiry": 40
	}`)
	w.handle(context.Background(), delivery)

	require.Len(t, bus.published, 1)
	assert.Equal(t, 1, acker.acks)

	message, ok := bus.published[0].(*InvoiceRequested)
	require.True(t, ok)
	state := message.ToMap()
	assert.Equal(t, "25000msat", state["amount"])
	assert.Equal(t, "0msat", state["amountPaid"])
	assert.Equal(t, "1610000000", state["timestamp"])
}

func Test_Handle_CancelledInvoice_UsesDeliveryTimestamp(t *testing.T) {
	bus := &mockBus{}
	w := &Worker{bus: bus}

	delivery, acker := invoiceDelivery(t, `{"state": 2, "rHash": "ab12"}`)
	delivery.Timestamp = time.Unix(1700000000, 0)
	w.handle(context.Background(), delivery)

	require.Len(t, bus.published, 1)
	assert.Equal(t, 1, acker.acks)

	message, ok := bus.published[0].(*InvoiceCancelled)
	require.True(t, ok)
	assert.Equal(t, "1700000000", message.ToMap()["timestamp"])
}

func Test_Handle_AcceptedInvoice(t *testing.T) {
	bus := &mockBus{}
	w := &Worker{bus: bus}

	delivery, acker := invoiceDelivery(t, `{"state": 3, "rHash": "ab12"}`)
	delivery.Timestamp = time.Unix(1700000000, 0)
	w.handle(context.Background(), delivery)

	require.Len(t, bus.published, 1)
	assert.Equal(t, 1, acker.acks)
	assert.IsType(t, &InvoiceAccepted{}, bus.published[0])
}

func Test_Handle_UnknownInvoiceState(t *testing.T) {
	bus := &mockBus{}
	w := &Worker{bus: bus}

	delivery, acker := invoiceDelivery(t, `{"state": 9}`)
	w.handle(context.Background(), delivery)

	assert.Empty(t, bus.published)
	assert.Equal(t, 0, acker.acks)
	assert.Equal(t, 1, acker.nacks)
	assert.False(t, acker.requeued)
}

func Test_Handle_HtlcForward(t *testing.T) {
	bus := &mockBus{}
	w := &Worker{bus: bus}

	delivery, acker := htlcDelivery(t, `{
		"event": 7,
		"eventType": 3,
		"incomingChannelId": "744132558415069185",
		"outgoingChannelId": "744132558415069186",
		"incomingHtlcId": "10",
		"outgoingHtlcId": "11",
		"timestampNs": "1610000000123456789"
	}`)
	w.handle(context.Background(), delivery)

	require.Len(t, bus.published, 1)
	assert.Equal(t, 1, acker.acks)

	message, ok := bus.published[0].(*HtlcForwarded)
	require.True(t, ok)
	assert.Equal(t, map[string]string{
		"incomingChannelId": "744132558415069185",
		"outgoingChannelId": "744132558415069186",
		"incomingHtlcId":    "10",
		"outgoingHtlcId":    "11",
		"timestamp":         "1610000000.123456",
		"eventType":         "3",
	}, message.ToMap())
}

func Test_Handle_HtlcEventKinds(t *testing.T) {
	cases := []struct {
		event    int
		expected Message
	}{
		{7, &HtlcForwarded{}},
		{8, &HtlcForwardFailed{}},
		{9, &HtlcSettled{}},
		{10, &HtlcLinkFailed{}},
	}
	for _, c := range cases {
		bus := &mockBus{}
		w := &Worker{bus: bus}

		delivery, acker := htlcDelivery(t, `{
			"event": `+strconv.Itoa(c.event)+`,
			"eventType": 1,
			"timestampNs": "1610000000123456789"
		}`)
		w.handle(context.Background(), delivery)

		require.Len(t, bus.published, 1, "event %d", c.event)
		assert.IsType(t, c.expected, bus.published[0])
		assert.Equal(t, 1, acker.acks)
	}
}

func Test_Handle_UnknownHtlcEvent(t *testing.T) {
	bus := &mockBus{}
	w := &Worker{bus: bus}

	delivery, acker := htlcDelivery(t, `{"event": 999}`)
	w.handle(context.Background(), delivery)

	assert.Empty(t, bus.published)
	assert.Equal(t, 1, acker.nacks)
	assert.False(t, acker.requeued)
}

func Test_Handle_MalformedBody(t *testing.T) {
	bus := &mockBus{}
	w := &Worker{bus: bus}

	delivery, acker := invoiceDelivery(t, `{not json`)
	w.handle(context.Background(), delivery)

	assert.Empty(t, bus.published)
	assert.Equal(t, 1, acker.nacks)
	assert.False(t, acker.requeued)
}

func Test_Handle_UnknownRoutingKey(t *testing.T) {
	bus := &mockBus{}
	w := &Worker{bus: bus}

	acker := &mockAcknowledger{}
	delivery := amqp.Delivery{
		Acknowledger: acker,
		RoutingKey:   "lnd.message.channel",
		Body:         []byte(`{}`),
	}
	w.handle(context.Background(), delivery)

	// Not ours, drop without rejecting.
	assert.Empty(t, bus.published)
	assert.Equal(t, 1, acker.acks)
	assert.Equal(t, 0, acker.nacks)
}

func Test_Handle_PublishFailure(t *testing.T) {
	bus := &mockBus{err: assert.AnError}
	w := &Worker{bus: bus}

	delivery, acker := invoiceDelivery(t, `{"state": 1, "settleDate": "1610000060"}`)
	w.handle(context.Background(), delivery)

	assert.Equal(t, 1, acker.nacks)
	assert.False(t, acker.requeued)
}

func Test_Run(t *testing.T) {
	deliveries := make(chan amqp.Delivery, 1)
	channel := &mockQueueChannel{deliveries: deliveries}
	bus := &mockBus{}
	w := &Worker{channel: channel, bus: bus, queue: "lnd_messages"}

	acker := &mockAcknowledger{}
	deliveries <- amqp.Delivery{
		Acknowledger: acker,
		RoutingKey:   invoiceRoutingKey,
		Body:         []byte(`{"state": 1, "settleDate": "1610000060"}`),
	}
	close(deliveries)

	err := w.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, channel.prefetchCount)
	assert.Equal(t, "lnd_messages", channel.consumedQueue)
	assert.False(t, channel.autoAck)
	assert.Len(t, bus.published, 1)
	assert.Equal(t, 1, acker.acks)
}

func Test_Run_ContextCancelled(t *testing.T) {
	channel := &mockQueueChannel{deliveries: make(chan amqp.Delivery)}
	w := &Worker{channel: channel, bus: &mockBus{}, queue: "lnd_messages"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := w.Run(ctx)
	assert.NoError(t, err)
}

func Test_Run_QosFailure(t *testing.T) {
	channel := &mockQueueChannel{qosErr: assert.AnError}
	w := &Worker{channel: channel, bus: &mockBus{}, queue: "lnd_messages"}

	err := w.Run(context.Background())
	assert.Error(t, err)
}

func Test_Run_ConsumeFailure(t *testing.T) {
	channel := &mockQueueChannel{consumeErr: assert.AnError}
	w := &Worker{channel: channel, bus: &mockBus{}, queue: "lnd_messages"}

	err := w.Run(context.Background())
	assert.Error(t, err)
}
