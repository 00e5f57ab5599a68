package adapter

import "context"

// OrderRequest is what the gateway needs to open an order.
type OrderRequest struct {
	AmountMinor int64             // minor currency units
	Currency    string            // ISO code
	Receipt     string            // unique per attempt
	Notes       map[string]string // echoed back by the gateway dashboards
}

// GatewayOrder is the gateway's view of a created order.
type GatewayOrder struct {
	ID          string
	AmountMinor int64
	Currency    string
	Receipt     string
	Status      string
}

// GatewayError carries the gateway's own error description.
type GatewayError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *GatewayError) Error() string {
	if e.Description != "" {
		return e.Description
	}
	if e.Code != "" {
		return e.Code
	}
	return "gateway request failed"
}

// PaymentGateway is the hex port for the checkout provider.
type PaymentGateway interface {
	Name() string
	// KeyID is the public key the client widget is opened with.
	KeyID() string

	CreateOrder(ctx context.Context, req OrderRequest) (*GatewayOrder, error)

	// VerifyPaymentSignature checks the per-payment signature handed to the
	// client after checkout. A mismatch or empty signature is domain.ErrInvalidSignature.
	VerifyPaymentSignature(orderID, paymentID, signature string) error
	// VerifyWebhookSignature checks the webhook HMAC over the raw payload.
	VerifyWebhookSignature(payload []byte, signature string) error
}
