package lightning

import "time"

type PaymentState string

const (
	PaymentStatePending   PaymentState = "pending"
	PaymentStateCompleted PaymentState = "completed"
	PaymentStateFailed    PaymentState = "failed"
)

// Payment is a value object describing an outgoing payment attempt.
type Payment struct {
	Preimage     Preimage
	PreimageHash Hash
	Request      string
	Destination  string
	Amount       Money
	AmountPaid   Money
	// FeeLimitPercent bounds the routing fee as a percentage of the amount.
	FeeLimitPercent float64
	FeeEstimate     Money
	FeeSettled      Money
	CreatedAt       time.Time
	State           PaymentState
}
