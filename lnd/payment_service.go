package lnd

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"time"

	"github.com/lightningnetwork/lnd/lnrpc"
	"github.com/lightningnetwork/lnd/lnrpc/routerrpc"
	"github.com/ngutech/lndlink/config"
	"github.com/ngutech/lndlink/lightning"
	"google.golang.org/grpc/status"
)

const (
	defaultSendTimeout  = 30 * time.Second
	defaultSendMaxParts = 5

	// trackPaymentTimeout bounds payment lookups. A lookup opens a tracking
	// stream with inflight updates disabled, so the terminal message either
	// arrives quickly or not at all.
	trackPaymentTimeout = 5 * time.Second
)

// NodeInfo describes the connected node.
type NodeInfo struct {
	Pubkey        string
	Alias         string
	BlockHeight   uint32
	Network       string
	SyncedToChain bool
	SyncedToGraph bool
	Version       string
}

// PaymentService is the synchronous facade over the node's invoice and
// payment rpcs. All amounts pass through the money service so the platform
// can hand in amounts in any currency it supports.
type PaymentService struct {
	conn    connection
	money   lightning.MoneyService
	request *config.RequestConfig
	send    *config.SendConfig
}

func NewPaymentService(client *Client, money lightning.MoneyService, conf *config.Config) *PaymentService {
	s := &PaymentService{conn: client, money: money}
	if conf != nil {
		s.request = conf.Request
		s.send = conf.Send
	}
	return s
}

// Request registers a new invoice with the node and returns the draft
// enriched with the node-assigned preimage hash and payment request.
func (s *PaymentService) Request(ctx context.Context, draft lightning.Invoice) (*lightning.Invoice, error) {
	if !s.CanRequest(draft.Amount) {
		return nil, fmt.Errorf("%w: lnd service cannot request amount %v", lightning.ErrPolicyViolation, draft.Amount)
	}
	if draft.Expiry < lightning.InvoiceExpiryMin || draft.Expiry > lightning.InvoiceExpiryMax {
		return nil, fmt.Errorf("%w: invoice expiry %d is not acceptable", lightning.ErrPolicyViolation, draft.Expiry)
	}

	amount, err := s.convert(draft.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", lightning.ErrPolicyViolation, err)
	}

	ln, err := s.conn.lightning()
	if err != nil {
		return nil, err
	}

	resp, err := ln.AddInvoice(ctx, &lnrpc.Invoice{
		RPreimage:  draft.Preimage,
		Memo:       draft.Label,
		ValueMsat:  int64(amount),
		Expiry:     draft.Expiry,
		CltvExpiry: draft.CltvExpiry,
	})
	if err != nil {
		return nil, serviceFailed("AddInvoice", err)
	}

	info, err := s.GetInfo(ctx)
	if err != nil {
		return nil, err
	}

	invoice := draft
	invoice.PreimageHash = lightning.Hash(resp.RHash)
	invoice.Request = resp.PaymentRequest
	invoice.BlockHeight = info.BlockHeight
	invoice.CreatedAt = time.Now()
	return &invoice, nil
}

// Send pays the payment request. The send stream may emit in-flight updates
// before the terminal result; the full stream is consumed and only the last
// message kept.
func (s *PaymentService) Send(ctx context.Context, draft lightning.Payment) (*lightning.Payment, error) {
	if !s.CanSend(draft.Amount) {
		return nil, fmt.Errorf("%w: lnd service cannot send amount %v", lightning.ErrPolicyViolation, draft.Amount)
	}

	var feeLimit lightning.MilliSatoshi
	if draft.FeeEstimate != "" {
		var err error
		feeLimit, err = s.convert(draft.FeeEstimate)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", lightning.ErrPolicyViolation, err)
		}
	}

	router, err := s.conn.router()
	if err != nil {
		return nil, err
	}

	timeout := s.sendTimeout()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stream, err := router.SendPaymentV2(ctx, &routerrpc.SendPaymentRequest{
		PaymentRequest: draft.Request,
		TimeoutSeconds: int32(timeout / time.Second),
		MaxParts:       s.sendMaxParts(),
		FeeLimitMsat:   int64(feeLimit),
	})
	if err != nil {
		return nil, serviceFailed("SendPaymentV2", err)
	}

	result, err := lastPayment(stream)
	if err != nil {
		return nil, serviceFailed("SendPaymentV2", err)
	}
	if result == nil {
		return nil, fmt.Errorf("%w: send payment stream closed without a result", lightning.ErrServiceFailed)
	}

	if result.Status == lnrpc.Payment_FAILED {
		reason := result.FailureReason
		name := lnrpc.PaymentFailureReason_name[int32(reason)]
		if reason == lnrpc.PaymentFailureReason_FAILURE_REASON_NO_ROUTE ||
			reason == lnrpc.PaymentFailureReason_FAILURE_REASON_INSUFFICIENT_BALANCE {
			return nil, fmt.Errorf("%w: %s", lightning.ErrServiceUnavailable, name)
		}
		log.Printf("LND: payment failed: %v", name)
		return nil, fmt.Errorf("%w: %s", lightning.ErrServiceFailed, name)
	}

	preimage, err := lightning.ParsePreimage(result.PaymentPreimage)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", lightning.ErrServiceFailed, err)
	}
	hash, err := lightning.ParseHash(result.PaymentHash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", lightning.ErrServiceFailed, err)
	}

	payment := draft
	payment.Preimage = preimage
	payment.PreimageHash = hash
	payment.FeeSettled = lightning.MsatMoney(lightning.MilliSatoshi(result.FeeMsat))
	return &payment, nil
}

// Decode parses a payment request string without touching policy.
func (s *PaymentService) Decode(ctx context.Context, request string) (*lightning.Invoice, error) {
	ln, err := s.conn.lightning()
	if err != nil {
		return nil, err
	}

	resp, err := ln.DecodePayReq(ctx, &lnrpc.PayReqString{PayReq: request})
	if err != nil {
		return nil, serviceFailed("DecodePayReq", err)
	}

	hash, err := lightning.ParseHash(resp.PaymentHash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", lightning.ErrServiceFailed, err)
	}

	return &lightning.Invoice{
		PreimageHash: hash,
		Request:      request,
		Destination:  resp.Destination,
		Amount:       lightning.MsatMoney(lightning.MilliSatoshi(resp.NumMsat)),
		Description:  resp.Description,
		Expiry:       resp.Expiry,
		CltvExpiry:   uint64(resp.CltvExpiry),
		CreatedAt:    time.Unix(resp.Timestamp, 0),
	}, nil
}

// EstimateFee computes a fee ceiling as a percentage of the payment amount
// and queries the node for routes within it. The largest observed route fee
// wins; a zero route fee, or one above the ceiling, yields the ceiling.
func (s *PaymentService) EstimateFee(ctx context.Context, draft lightning.Payment) (lightning.Money, error) {
	amount, err := s.convert(draft.Amount)
	if err != nil {
		return "", fmt.Errorf("%w: %v", lightning.ErrPolicyViolation, err)
	}
	feeLimit := lightning.MilliSatoshi(math.Ceil(float64(amount) * draft.FeeLimitPercent / 100))

	ln, err := s.conn.lightning()
	if err != nil {
		return "", err
	}

	resp, err := ln.QueryRoutes(ctx, &lnrpc.QueryRoutesRequest{
		PubKey:  draft.Destination,
		AmtMsat: int64(amount),
		FeeLimit: &lnrpc.FeeLimit{
			Limit: &lnrpc.FeeLimit_FixedMsat{FixedMsat: int64(feeLimit)},
		},
	})
	if err != nil {
		return "", serviceFailed("QueryRoutes", err)
	}

	var routeFee lightning.MilliSatoshi
	for _, route := range resp.Routes {
		if fee := lightning.MilliSatoshi(route.TotalFeesMsat); fee > routeFee {
			routeFee = fee
		}
	}

	if routeFee == 0 || routeFee > feeLimit {
		return lightning.MsatMoney(feeLimit), nil
	}
	return lightning.MsatMoney(routeFee), nil
}

// GetInvoice looks up an invoice by preimage hash. A non-success status is
// reported as absence; callers rely on this never returning a transport
// error.
func (s *PaymentService) GetInvoice(ctx context.Context, preimageHash lightning.Hash) (*lightning.Invoice, error) {
	ln, err := s.conn.lightning()
	if err != nil {
		return nil, err
	}

	invoice, err := ln.LookupInvoice(ctx, &lnrpc.PaymentHash{RHashStr: preimageHash.String()})
	if err != nil {
		return nil, nil
	}

	state, err := mapInvoiceState(invoice.State)
	if err != nil {
		return nil, err
	}

	return &lightning.Invoice{
		Preimage:     lightning.Preimage(invoice.RPreimage),
		PreimageHash: lightning.Hash(invoice.RHash),
		Request:      invoice.PaymentRequest,
		Amount:       lightning.MsatMoney(lightning.MilliSatoshi(invoice.ValueMsat)),
		AmountPaid:   lightning.MsatMoney(lightning.MilliSatoshi(invoice.AmtPaidMsat)),
		Label:        invoice.Memo,
		Expiry:       invoice.Expiry,
		CltvExpiry:   invoice.CltvExpiry,
		State:        state,
		CreatedAt:    time.Unix(invoice.CreationDate, 0),
	}, nil
}

// GetPayment looks up a payment by preimage hash over a short-lived tracking
// stream. A non-success status is reported as absence, but a stream that
// ends cleanly without a payment is a service failure.
func (s *PaymentService) GetPayment(ctx context.Context, preimageHash lightning.Hash) (*lightning.Payment, error) {
	router, err := s.conn.router()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, trackPaymentTimeout)
	defer cancel()

	stream, err := router.TrackPaymentV2(ctx, &routerrpc.TrackPaymentRequest{
		PaymentHash:       preimageHash,
		NoInflightUpdates: true,
	})
	if err != nil {
		return nil, nil
	}

	result, err := lastPayment(stream)
	if err != nil {
		return nil, nil
	}
	if result == nil {
		log.Printf("LND: TrackPaymentV2(%v) returned no payment", preimageHash)
		return nil, fmt.Errorf("%w: track payment stream closed without a result", lightning.ErrServiceFailed)
	}

	state, err := mapPaymentState(result.Status)
	if err != nil {
		return nil, err
	}

	preimage, err := lightning.ParsePreimage(result.PaymentPreimage)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", lightning.ErrServiceFailed, err)
	}
	hash, err := lightning.ParseHash(result.PaymentHash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", lightning.ErrServiceFailed, err)
	}

	return &lightning.Payment{
		Preimage:     preimage,
		PreimageHash: hash,
		Request:      result.PaymentRequest,
		Amount:       lightning.MsatMoney(lightning.MilliSatoshi(result.ValueMsat)),
		AmountPaid:   lightning.MsatMoney(lightning.MilliSatoshi(result.ValueMsat)),
		FeeSettled:   lightning.MsatMoney(lightning.MilliSatoshi(result.FeeMsat)),
		State:        state,
		CreatedAt:    time.Unix(0, result.CreationTimeNs),
	}, nil
}

func (s *PaymentService) GetInfo(ctx context.Context) (*NodeInfo, error) {
	ln, err := s.conn.lightning()
	if err != nil {
		return nil, err
	}

	resp, err := ln.GetInfo(ctx, &lnrpc.GetInfoRequest{})
	if err != nil {
		return nil, serviceFailed("GetInfo", err)
	}

	info := &NodeInfo{
		Pubkey:        resp.IdentityPubkey,
		Alias:         resp.Alias,
		BlockHeight:   resp.BlockHeight,
		SyncedToChain: resp.SyncedToChain,
		SyncedToGraph: resp.SyncedToGraph,
		Version:       resp.Version,
	}
	if len(resp.Chains) > 0 {
		info.Network = resp.Chains[0].Network
	}
	return info, nil
}

// CanRequest reports whether the configured request policy admits the
// amount. Pure: no rpc is involved.
func (s *PaymentService) CanRequest(amount lightning.Money) bool {
	enabled, minimum, maximum := policyWindow(requestPolicy(s.request))
	return enabled && s.inWindow(amount, minimum, maximum)
}

func (s *PaymentService) CanSend(amount lightning.Money) bool {
	enabled, minimum, maximum := policyWindow(sendPolicy(s.send))
	return enabled && s.inWindow(amount, minimum, maximum)
}

func (s *PaymentService) inWindow(amount, minimum, maximum lightning.Money) bool {
	msat, err := s.convert(amount)
	if err != nil {
		return false
	}
	minMsat, err := s.convert(minimum)
	if err != nil {
		return false
	}
	maxMsat, err := s.convert(maximum)
	if err != nil {
		return false
	}
	return msat >= minMsat && msat <= maxMsat
}

func (s *PaymentService) convert(amount lightning.Money) (lightning.MilliSatoshi, error) {
	converted, err := s.money.Convert(amount, lightning.CurrencyMsat)
	if err != nil {
		return 0, err
	}
	return converted.MilliSatoshi()
}

func (s *PaymentService) sendTimeout() time.Duration {
	if s.send != nil && s.send.Timeout > 0 {
		return time.Duration(s.send.Timeout) * time.Second
	}
	return defaultSendTimeout
}

func (s *PaymentService) sendMaxParts() uint32 {
	if s.send != nil && s.send.MaxParts > 0 {
		return s.send.MaxParts
	}
	return defaultSendMaxParts
}

// paymentStream is satisfied by both the send and track stream clients.
type paymentStream interface {
	Recv() (*lnrpc.Payment, error)
}

// lastPayment consumes the stream until it ends and returns the final
// message, or nil if the stream was empty.
func lastPayment(stream paymentStream) (*lnrpc.Payment, error) {
	var last *lnrpc.Payment
	for {
		payment, err := stream.Recv()
		if err == io.EOF {
			return last, nil
		}
		if err != nil {
			return nil, err
		}
		last = payment
	}
}

func serviceFailed(rpc string, err error) error {
	detail := status.Convert(err).Message()
	log.Printf("LND: %s error: %v", rpc, detail)
	return fmt.Errorf("%w: %s", lightning.ErrServiceFailed, detail)
}

type policy struct {
	enabled *bool
	minimum string
	maximum string
}

func requestPolicy(c *config.RequestConfig) policy {
	if c == nil {
		return policy{}
	}
	return policy{enabled: c.Enabled, minimum: c.Minimum, maximum: c.Maximum}
}

func sendPolicy(c *config.SendConfig) policy {
	if c == nil {
		return policy{}
	}
	return policy{enabled: c.Enabled, minimum: c.Minimum, maximum: c.Maximum}
}

func policyWindow(p policy) (bool, lightning.Money, lightning.Money) {
	enabled := p.enabled == nil || *p.enabled
	minimum := lightning.AmountMinimum
	if p.minimum != "" {
		minimum = lightning.Money(p.minimum)
	}
	maximum := lightning.AmountMaximum
	if p.maximum != "" {
		maximum = lightning.Money(p.maximum)
	}
	return enabled, minimum, maximum
}
