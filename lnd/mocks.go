package lnd

import (
	"context"
	"io"

	"github.com/lightningnetwork/lnd/lnrpc"
	"github.com/lightningnetwork/lnd/lnrpc/invoicesrpc"
	"github.com/lightningnetwork/lnd/lnrpc/routerrpc"
	"google.golang.org/grpc"
)

type mockConnection struct {
	ln  *mockLightningClient
	inv *mockInvoicesClient
	rt  *mockRouterClient
	err error
}

func (m *mockConnection) lightning() (lightningAPI, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.ln, nil
}

func (m *mockConnection) invoices() (invoicesAPI, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.inv, nil
}

func (m *mockConnection) router() (routerAPI, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.rt, nil
}

type mockLightningClient struct {
	addInvoiceReq  *lnrpc.Invoice
	addInvoiceResp *lnrpc.AddInvoiceResponse
	addInvoiceErr  error

	decodeResp *lnrpc.PayReq
	decodeErr  error

	lookupReq  *lnrpc.PaymentHash
	lookupResp *lnrpc.Invoice
	lookupErr  error

	queryRoutesReq  *lnrpc.QueryRoutesRequest
	queryRoutesResp *lnrpc.QueryRoutesResponse
	queryRoutesErr  error

	getInfoResp *lnrpc.GetInfoResponse
	getInfoErr  error
}

func (m *mockLightningClient) AddInvoice(ctx context.Context, in *lnrpc.Invoice, opts ...grpc.CallOption) (*lnrpc.AddInvoiceResponse, error) {
	m.addInvoiceReq = in
	return m.addInvoiceResp, m.addInvoiceErr
}

func (m *mockLightningClient) DecodePayReq(ctx context.Context, in *lnrpc.PayReqString, opts ...grpc.CallOption) (*lnrpc.PayReq, error) {
	return m.decodeResp, m.decodeErr
}

func (m *mockLightningClient) LookupInvoice(ctx context.Context, in *lnrpc.PaymentHash, opts ...grpc.CallOption) (*lnrpc.Invoice, error) {
	m.lookupReq = in
	return m.lookupResp, m.lookupErr
}

func (m *mockLightningClient) QueryRoutes(ctx context.Context, in *lnrpc.QueryRoutesRequest, opts ...grpc.CallOption) (*lnrpc.QueryRoutesResponse, error) {
	m.queryRoutesReq = in
	return m.queryRoutesResp, m.queryRoutesErr
}

func (m *mockLightningClient) GetInfo(ctx context.Context, in *lnrpc.GetInfoRequest, opts ...grpc.CallOption) (*lnrpc.GetInfoResponse, error) {
	return m.getInfoResp, m.getInfoErr
}

type mockInvoicesClient struct {
	addHoldReq  *invoicesrpc.AddHoldInvoiceRequest
	addHoldResp *invoicesrpc.AddHoldInvoiceResp
	addHoldErr  error

	settleReq *invoicesrpc.SettleInvoiceMsg
	settleErr error

	cancelReq *invoicesrpc.CancelInvoiceMsg
	cancelErr error
}

func (m *mockInvoicesClient) AddHoldInvoice(ctx context.Context, in *invoicesrpc.AddHoldInvoiceRequest, opts ...grpc.CallOption) (*invoicesrpc.AddHoldInvoiceResp, error) {
	m.addHoldReq = in
	return m.addHoldResp, m.addHoldErr
}

func (m *mockInvoicesClient) SettleInvoice(ctx context.Context, in *invoicesrpc.SettleInvoiceMsg, opts ...grpc.CallOption) (*invoicesrpc.SettleInvoiceResp, error) {
	m.settleReq = in
	if m.settleErr != nil {
		return nil, m.settleErr
	}
	return &invoicesrpc.SettleInvoiceResp{}, nil
}

func (m *mockInvoicesClient) CancelInvoice(ctx context.Context, in *invoicesrpc.CancelInvoiceMsg, opts ...grpc.CallOption) (*invoicesrpc.CancelInvoiceResp, error) {
	m.cancelReq = in
	if m.cancelErr != nil {
		return nil, m.cancelErr
	}
	return &invoicesrpc.CancelInvoiceResp{}, nil
}

type mockRouterClient struct {
	sendReq    *routerrpc.SendPaymentRequest
	sendStream *mockPaymentStream
	sendErr    error

	trackReq    *routerrpc.TrackPaymentRequest
	trackStream *mockPaymentStream
	trackErr    error
}

func (m *mockRouterClient) SendPaymentV2(ctx context.Context, in *routerrpc.SendPaymentRequest, opts ...grpc.CallOption) (routerrpc.Router_SendPaymentV2Client, error) {
	m.sendReq = in
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	return m.sendStream, nil
}

func (m *mockRouterClient) TrackPaymentV2(ctx context.Context, in *routerrpc.TrackPaymentRequest, opts ...grpc.CallOption) (routerrpc.Router_TrackPaymentV2Client, error) {
	m.trackReq = in
	if m.trackErr != nil {
		return nil, m.trackErr
	}
	return m.trackStream, nil
}

// mockPaymentStream replays a fixed sequence of payment updates, then ends
// with err or a clean EOF.
type mockPaymentStream struct {
	grpc.ClientStream
	payments []*lnrpc.Payment
	err      error
	next     int
}

func (m *mockPaymentStream) Recv() (*lnrpc.Payment, error) {
	if m.next < len(m.payments) {
		payment := m.payments[m.next]
		m.next++
		return payment, nil
	}
	if m.err != nil {
		return nil, m.err
	}
	return nil, io.EOF
}
