package lnd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/lightningnetwork/lnd/lnrpc/invoicesrpc"
	"github.com/ngutech/lndlink/config"
	"github.com/ngutech/lndlink/lightning"
	"google.golang.org/grpc/status"
)

// HoldService drives the three-phase hold invoice lifecycle. A hold invoice
// is registered by hash only; the funds lock until the preimage is revealed
// (settle) or released back (cancel).
type HoldService struct {
	*PaymentService
}

func NewHoldService(client *Client, money lightning.MoneyService, conf *config.Config) *HoldService {
	return &HoldService{PaymentService: NewPaymentService(client, money, conf)}
}

// Request registers a hold invoice. The preimage hash is computed locally
// from the draft preimage; the preimage itself is not sent to the node.
func (s *HoldService) Request(ctx context.Context, draft lightning.Invoice) (*lightning.Invoice, error) {
	if !s.CanRequest(draft.Amount) {
		return nil, fmt.Errorf("%w: lnd hold service cannot request amount %v", lightning.ErrPolicyViolation, draft.Amount)
	}
	if draft.Expiry < lightning.InvoiceExpiryMin || draft.Expiry > lightning.InvoiceExpiryMax {
		return nil, fmt.Errorf("%w: invoice expiry %d is not acceptable", lightning.ErrPolicyViolation, draft.Expiry)
	}

	amount, err := s.convert(draft.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", lightning.ErrPolicyViolation, err)
	}

	preimageHash := draft.Preimage.Hash()
	expiry := draft.Expiry
	if expiry > lightning.InvoiceExpiryMax {
		expiry = lightning.InvoiceExpiryMax
	}

	invoices, err := s.conn.invoices()
	if err != nil {
		return nil, err
	}

	resp, err := invoices.AddHoldInvoice(ctx, &invoicesrpc.AddHoldInvoiceRequest{
		Hash:       preimageHash,
		Memo:       draft.Label,
		ValueMsat:  int64(amount),
		Expiry:     expiry,
		CltvExpiry: draft.CltvExpiry,
	})
	if err != nil {
		return nil, serviceFailed("AddHoldInvoice", err)
	}

	info, err := s.GetInfo(ctx)
	if err != nil {
		return nil, err
	}

	invoice := draft
	invoice.PreimageHash = preimageHash
	invoice.Request = resp.PaymentRequest
	invoice.Expiry = expiry
	invoice.BlockHeight = info.BlockHeight
	invoice.CreatedAt = time.Now()
	return &invoice, nil
}

// Settle reveals the preimage to the node. A rejected settle reports false
// rather than an error; callers rely on the soft-fail contract.
func (s *HoldService) Settle(ctx context.Context, invoice *lightning.Invoice) bool {
	invoices, err := s.conn.invoices()
	if err != nil {
		log.Printf("LND: SettleInvoice connection error: %v", err)
		return false
	}

	_, err = invoices.SettleInvoice(ctx, &invoicesrpc.SettleInvoiceMsg{
		Preimage: invoice.Preimage,
	})
	if err != nil {
		log.Printf("LND: SettleInvoice(%v) rejected: %v", invoice.PreimageHash, status.Convert(err).Message())
		return false
	}
	return true
}

// Cancel releases the locked funds back by hash. Same soft-fail contract as
// Settle.
func (s *HoldService) Cancel(ctx context.Context, invoice *lightning.Invoice) bool {
	invoices, err := s.conn.invoices()
	if err != nil {
		log.Printf("LND: CancelInvoice connection error: %v", err)
		return false
	}

	_, err = invoices.CancelInvoice(ctx, &invoicesrpc.CancelInvoiceMsg{
		PaymentHash: invoice.PreimageHash,
	})
	if err != nil {
		log.Printf("LND: CancelInvoice(%v) rejected: %v", invoice.PreimageHash, status.Convert(err).Message())
		return false
	}
	return true
}
