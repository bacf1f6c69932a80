package lnd

import (
	"context"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/lightningnetwork/lnd/lnrpc"
	"github.com/lightningnetwork/lnd/lnrpc/invoicesrpc"
	"github.com/lightningnetwork/lnd/lnrpc/routerrpc"
	"github.com/ngutech/lndlink/config"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

// The subsets of the generated clients this module calls. Narrow interfaces
// keep the services testable without a node.
type lightningAPI interface {
	AddInvoice(ctx context.Context, in *lnrpc.Invoice, opts ...grpc.CallOption) (*lnrpc.AddInvoiceResponse, error)
	DecodePayReq(ctx context.Context, in *lnrpc.PayReqString, opts ...grpc.CallOption) (*lnrpc.PayReq, error)
	LookupInvoice(ctx context.Context, in *lnrpc.PaymentHash, opts ...grpc.CallOption) (*lnrpc.Invoice, error)
	QueryRoutes(ctx context.Context, in *lnrpc.QueryRoutesRequest, opts ...grpc.CallOption) (*lnrpc.QueryRoutesResponse, error)
	GetInfo(ctx context.Context, in *lnrpc.GetInfoRequest, opts ...grpc.CallOption) (*lnrpc.GetInfoResponse, error)
}

type invoicesAPI interface {
	AddHoldInvoice(ctx context.Context, in *invoicesrpc.AddHoldInvoiceRequest, opts ...grpc.CallOption) (*invoicesrpc.AddHoldInvoiceResp, error)
	SettleInvoice(ctx context.Context, in *invoicesrpc.SettleInvoiceMsg, opts ...grpc.CallOption) (*invoicesrpc.SettleInvoiceResp, error)
	CancelInvoice(ctx context.Context, in *invoicesrpc.CancelInvoiceMsg, opts ...grpc.CallOption) (*invoicesrpc.CancelInvoiceResp, error)
}

type routerAPI interface {
	SendPaymentV2(ctx context.Context, in *routerrpc.SendPaymentRequest, opts ...grpc.CallOption) (routerrpc.Router_SendPaymentV2Client, error)
	TrackPaymentV2(ctx context.Context, in *routerrpc.TrackPaymentRequest, opts ...grpc.CallOption) (routerrpc.Router_TrackPaymentV2Client, error)
}

// connection hands out the three service stubs sharing one authenticated
// transport.
type connection interface {
	lightning() (lightningAPI, error)
	invoices() (invoicesAPI, error)
	router() (routerAPI, error)
}

// Client owns the grpc connection to the node. The connection is established
// on first use; construction happens exactly once no matter how many callers
// race for it, and a construction failure is returned to every caller.
type Client struct {
	conf *config.LndConfig

	once    sync.Once
	connErr error
	conn    *grpc.ClientConn

	lnClient       lnrpc.LightningClient
	invoicesClient invoicesrpc.InvoicesClient
	routerClient   routerrpc.RouterClient
}

func NewClient(conf *config.LndConfig) *Client {
	return &Client{conf: conf}
}

func (c *Client) connect() error {
	c.once.Do(func() {
		if _, err := hex.DecodeString(c.conf.Macaroon); err != nil {
			c.connErr = fmt.Errorf("failed to decode macaroon: %w", err)
			return
		}

		// Creds file to connect to LND gRPC
		cp := x509.NewCertPool()
		if !cp.AppendCertsFromPEM([]byte(c.conf.Cert)) {
			c.connErr = fmt.Errorf("credentials: failed to append certificates")
			return
		}
		creds := credentials.NewClientTLSFromCert(cp, "")
		macCred := NewMacaroonCredential(c.conf.Macaroon)

		conn, err := grpc.Dial(
			c.conf.Address(),
			grpc.WithTransportCredentials(creds),
			grpc.WithPerRPCCredentials(macCred),
		)
		if err != nil {
			c.connErr = fmt.Errorf("failed to connect to LND gRPC: %w", err)
			return
		}

		c.conn = conn
		c.lnClient = lnrpc.NewLightningClient(conn)
		c.invoicesClient = invoicesrpc.NewInvoicesClient(conn)
		c.routerClient = routerrpc.NewRouterClient(conn)
	})

	return c.connErr
}

func (c *Client) lightning() (lightningAPI, error) {
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c.lnClient, nil
}

func (c *Client) invoices() (invoicesAPI, error) {
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c.invoicesClient, nil
}

func (c *Client) router() (routerAPI, error) {
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c.routerClient, nil
}

func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}
