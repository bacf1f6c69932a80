package lightning

import "time"

// Invoice expiry bounds in seconds.
const (
	InvoiceExpiryMin int64 = 60
	InvoiceExpiryMax int64 = 31536000
)

// Default policy bounds applied when no amount window is configured.
const (
	AmountMinimum Money = "1msat"
	AmountMaximum Money = "4294967295msat"
)

type InvoiceState string

const (
	InvoiceStatePending   InvoiceState = "pending"
	InvoiceStateSettled   InvoiceState = "settled"
	InvoiceStateCancelled InvoiceState = "cancelled"
)

// Invoice is a value object constructed fresh from each node response. It is
// never retained by this layer.
type Invoice struct {
	Preimage     Preimage
	PreimageHash Hash
	Request      string
	Destination  string
	Description  string
	Amount       Money
	AmountPaid   Money
	Label        string
	Expiry       int64
	CltvExpiry   uint64
	CreatedAt    time.Time
	BlockHeight  uint32
	State        InvoiceState
}
