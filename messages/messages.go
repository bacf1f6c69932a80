// Package messages reconstructs canonical platform messages from the node's
// queued notifications and republishes them on the internal event bus.
package messages

import (
	"fmt"
	"strconv"
)

// Message is a canonical event-bus record. Messages serialize as flat
// string-keyed maps with string-encoded amounts and timestamps.
type Message interface {
	MessageType() string
	ToMap() map[string]string
}

type invoiceMessage struct {
	PreimageHash string
	Preimage     string
	Request      string
	Amount       string
	AmountPaid   string
	Timestamp    string
	CltvExpiry   string
}

var invoiceMessageKeys = []string{
	"preimageHash", "request", "amount", "amountPaid", "timestamp", "cltvExpiry",
}

func invoiceMessageFromMap(state map[string]string) (invoiceMessage, error) {
	for _, key := range invoiceMessageKeys {
		if _, ok := state[key]; !ok {
			return invoiceMessage{}, fmt.Errorf("invoice message is missing key %q", key)
		}
	}

	return invoiceMessage{
		PreimageHash: state["preimageHash"],
		Preimage:     state["preimage"],
		Request:      state["request"],
		Amount:       state["amount"],
		AmountPaid:   state["amountPaid"],
		Timestamp:    state["timestamp"],
		CltvExpiry:   state["cltvExpiry"],
	}, nil
}

func (m invoiceMessage) ToMap() map[string]string {
	return map[string]string{
		"preimageHash": m.PreimageHash,
		"preimage":     m.Preimage,
		"request":      m.Request,
		"amount":       m.Amount,
		"amountPaid":   m.AmountPaid,
		"timestamp":    m.Timestamp,
		"cltvExpiry":   m.CltvExpiry,
	}
}

type InvoiceRequested struct{ invoiceMessage }

func (InvoiceRequested) MessageType() string { return "lightning.invoice.requested" }

type InvoiceSettled struct{ invoiceMessage }

func (InvoiceSettled) MessageType() string { return "lightning.invoice.settled" }

type InvoiceCancelled struct{ invoiceMessage }

func (InvoiceCancelled) MessageType() string { return "lightning.invoice.cancelled" }

type InvoiceAccepted struct{ invoiceMessage }

func (InvoiceAccepted) MessageType() string { return "lightning.invoice.accepted" }

// htlcMessage carries one HTLC lifecycle event at a channel hop. Immutable
// once constructed; a pure translation of the node notification.
type htlcMessage struct {
	IncomingChannelID string
	OutgoingChannelID string
	IncomingHtlcID    string
	OutgoingHtlcID    string
	Timestamp         string
	EventType         int
}

var htlcMessageKeys = []string{
	"incomingChannelId", "outgoingChannelId", "incomingHtlcId", "outgoingHtlcId",
	"timestamp", "eventType",
}

func htlcMessageFromMap(state map[string]string) (htlcMessage, error) {
	for _, key := range htlcMessageKeys {
		if _, ok := state[key]; !ok {
			return htlcMessage{}, fmt.Errorf("htlc message is missing key %q", key)
		}
	}

	eventType, err := strconv.Atoi(state["eventType"])
	if err != nil {
		return htlcMessage{}, fmt.Errorf("htlc message has invalid event type: %w", err)
	}

	return htlcMessage{
		IncomingChannelID: state["incomingChannelId"],
		OutgoingChannelID: state["outgoingChannelId"],
		IncomingHtlcID:    state["incomingHtlcId"],
		OutgoingHtlcID:    state["outgoingHtlcId"],
		Timestamp:         state["timestamp"],
		EventType:         eventType,
	}, nil
}

func (m htlcMessage) ToMap() map[string]string {
	return map[string]string{
		"incomingChannelId": m.IncomingChannelID,
		"outgoingChannelId": m.OutgoingChannelID,
		"incomingHtlcId":    m.IncomingHtlcID,
		"outgoingHtlcId":    m.OutgoingHtlcID,
		"timestamp":         m.Timestamp,
		"eventType":         strconv.Itoa(m.EventType),
	}
}

type HtlcForwarded struct{ htlcMessage }

func (HtlcForwarded) MessageType() string { return "lightning.htlc.forwarded" }

type HtlcForwardFailed struct{ htlcMessage }

func (HtlcForwardFailed) MessageType() string { return "lightning.htlc.forward_failed" }

type HtlcSettled struct{ htlcMessage }

func (HtlcSettled) MessageType() string { return "lightning.htlc.settled" }

type HtlcLinkFailed struct{ htlcMessage }

func (HtlcLinkFailed) MessageType() string { return "lightning.htlc.link_failed" }
