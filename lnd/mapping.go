package lnd

import (
	"fmt"

	"github.com/lightningnetwork/lnd/lnrpc"
	"github.com/ngutech/lndlink/lightning"
)

// mapInvoiceState translates the node's invoice state codes to the canonical
// lifecycle. Mapping is total over the known codes; anything else is a
// service failure, never a silent default.
func mapInvoiceState(state lnrpc.Invoice_InvoiceState) (lightning.InvoiceState, error) {
	switch state {
	case lnrpc.Invoice_OPEN, lnrpc.Invoice_ACCEPTED:
		return lightning.InvoiceStatePending, nil
	case lnrpc.Invoice_SETTLED:
		return lightning.InvoiceStateSettled, nil
	case lnrpc.Invoice_CANCELED:
		return lightning.InvoiceStateCancelled, nil
	default:
		return "", fmt.Errorf("%w: unknown invoice state '%d'", lightning.ErrServiceFailed, state)
	}
}

func mapPaymentState(state lnrpc.Payment_PaymentStatus) (lightning.PaymentState, error) {
	switch state {
	case lnrpc.Payment_UNKNOWN, lnrpc.Payment_IN_FLIGHT:
		return lightning.PaymentStatePending, nil
	case lnrpc.Payment_SUCCEEDED:
		return lightning.PaymentStateCompleted, nil
	case lnrpc.Payment_FAILED:
		return lightning.PaymentStateFailed, nil
	default:
		return "", fmt.Errorf("%w: unknown payment state '%d'", lightning.ErrServiceFailed, state)
	}
}
