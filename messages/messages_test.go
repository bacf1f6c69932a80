package messages

import (
	"context"
	"encoding/json"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_HtlcTimestamp(t *testing.T) {
	timestamp, err := htlcTimestamp("1610000000123456789")
	require.NoError(t, err)
	assert.Equal(t, "1610000000.123456", timestamp)

	_, err = htlcTimestamp("123")
	assert.Error(t, err)
}

func Test_HtlcMessage_MapRoundTrip(t *testing.T) {
	state := map[string]string{
		"incomingChannelId": "744132558415069185",
		"outgoingChannelId": "744132558415069186",
		"incomingHtlcId":    "10",
		"outgoingHtlcId":    "11",
		"timestamp":         "1610000000.123456",
		"eventType":         "3",
	}

	message, err := htlcMessageFromMap(state)
	require.NoError(t, err)
	assert.Equal(t, state, message.ToMap())
}

func Test_HtlcMessage_MissingKey(t *testing.T) {
	_, err := htlcMessageFromMap(map[string]string{"timestamp": "1610000000.123456"})
	assert.Error(t, err)
}

func Test_InvoiceMessage_MissingKey(t *testing.T) {
	_, err := invoiceMessageFromMap(map[string]string{"preimageHash": "ab12"})
	assert.Error(t, err)
}

func Test_LooseInt64(t *testing.T) {
	var decoded struct {
		Number looseInt64 `json:"number"`
		Quoted looseInt64 `json:"quoted"`
		Empty  looseInt64 `json:"empty"`
	}
	err := json.Unmarshal([]byte(`{"number": 42, "quoted": "43", "empty": ""}`), &decoded)
	require.NoError(t, err)
	assert.Equal(t, looseInt64(42), decoded.Number)
	assert.Equal(t, looseInt64(43), decoded.Quoted)
	assert.Equal(t, looseInt64(0), decoded.Empty)
}

func Test_AmqpBus_Publish(t *testing.T) {
	channel := &mockPublishChannel{}
	bus := &AmqpBus{channel: channel, exchange: "platform"}

	message := &InvoiceSettled{invoiceMessage{
		PreimageHash: "ab12",
		Amount:       "25000msat",
		Timestamp:    "1610000060",
	}}
	err := bus.Publish(context.Background(), EventsChannel, message)
	require.NoError(t, err)

	assert.Equal(t, "platform", channel.exchange)
	assert.Equal(t, EventsChannel, channel.key)
	assert.Equal(t, "lightning.invoice.settled", channel.publishing.Type)
	assert.Equal(t, "application/json", channel.publishing.ContentType)
	assert.Equal(t, amqp.Persistent, channel.publishing.DeliveryMode)

	var body map[string]string
	require.NoError(t, json.Unmarshal(channel.publishing.Body, &body))
	assert.Equal(t, message.ToMap(), body)
}

func Test_AmqpBus_PublishFailure(t *testing.T) {
	bus := &AmqpBus{channel: &mockPublishChannel{err: assert.AnError}, exchange: "platform"}

	err := bus.Publish(context.Background(), EventsChannel, &HtlcSettled{})
	assert.Error(t, err)
}
