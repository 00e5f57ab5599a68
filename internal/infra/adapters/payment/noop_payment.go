package payment

import (
	"context"
	"fmt"
	"sync"

	"exam-prep-payments/internal/domain"
	"exam-prep-payments/internal/domain/ports/adapter"
	"exam-prep-payments/internal/infra/security"
)

var _ adapter.PaymentGateway = (*NoopPaymentGateway)(nil)

// NoopPaymentGateway is an in-memory gateway for dev mode and tests. It opens
// orders locally and verifies signatures with the same HMAC scheme as the
// real gateway, so a client can sign its own proofs with Sign.
type NoopPaymentGateway struct {
	mu            sync.Mutex
	seq           int64
	secret        string
	webhookSecret string
}

func NewNoopPaymentGateway(secret, webhookSecret string) *NoopPaymentGateway {
	if secret == "" {
		secret = "noop-secret"
	}
	if webhookSecret == "" {
		webhookSecret = "noop-webhook-secret"
	}
	return &NoopPaymentGateway{
		secret:        secret,
		webhookSecret: webhookSecret,
	}
}

func (g *NoopPaymentGateway) Name() string  { return "noop" }
func (g *NoopPaymentGateway) KeyID() string { return "rzp_test_noop" }

func (g *NoopPaymentGateway) CreateOrder(ctx context.Context, req adapter.OrderRequest) (*adapter.GatewayOrder, error) {
	if req.AmountMinor <= 0 {
		return nil, &adapter.GatewayError{StatusCode: 400, Code: "BAD_REQUEST_ERROR", Description: "amount must be positive"}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	o := adapter.GatewayOrder{
		ID:          fmt.Sprintf("order_noop%d", g.seq),
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
		Receipt:     req.Receipt,
		Status:      "created",
	}
	return &o, nil
}

// Sign returns the checkout signature a real gateway would hand the client.
func (g *NoopPaymentGateway) Sign(orderID, paymentID string) string {
	return security.HMACSHA256Hex([]byte(g.secret), security.PaymentSignaturePayload(orderID, paymentID))
}

// SignWebhook returns the webhook header value for payload.
func (g *NoopPaymentGateway) SignWebhook(payload []byte) string {
	return security.HMACSHA256Hex([]byte(g.webhookSecret), payload)
}

func (g *NoopPaymentGateway) VerifyPaymentSignature(orderID, paymentID, signature string) error {
	if !security.VerifyHMACSHA256Hex([]byte(g.secret), security.PaymentSignaturePayload(orderID, paymentID), signature) {
		return domain.ErrInvalidSignature
	}
	return nil
}

func (g *NoopPaymentGateway) VerifyWebhookSignature(payload []byte, signature string) error {
	if !security.VerifyHMACSHA256Hex([]byte(g.webhookSecret), payload, signature) {
		return domain.ErrInvalidSignature
	}
	return nil
}
