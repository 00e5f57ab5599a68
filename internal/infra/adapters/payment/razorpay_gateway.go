package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"exam-prep-payments/internal/domain"
	"exam-prep-payments/internal/domain/ports/adapter"
	"exam-prep-payments/internal/infra/security"
)

var _ adapter.PaymentGateway = (*RazorpayGateway)(nil)

const DefaultRazorpayBaseURL = "https://api.razorpay.com/v1"

// RazorpayGateway implements adapter.PaymentGateway against the Orders REST API.
// Order creation authenticates with key id / key secret (Basic auth); checkout
// signatures are keyed by the key secret and webhooks by a separate secret.
type RazorpayGateway struct {
	keyID         string
	keySecret     string
	webhookSecret string
	client        *resty.Client
}

func NewRazorpayGateway(keyID, keySecret, webhookSecret, baseURL string, timeout time.Duration) (*RazorpayGateway, error) {
	if keyID == "" || keySecret == "" {
		return nil, errors.New("razorpay key id/secret empty")
	}
	if webhookSecret == "" {
		return nil, errors.New("razorpay webhook secret empty")
	}
	if baseURL == "" {
		baseURL = DefaultRazorpayBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetBasicAuth(keyID, keySecret).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &RazorpayGateway{
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		client:        c,
	}, nil
}

func (g *RazorpayGateway) Name() string  { return "razorpay" }
func (g *RazorpayGateway) KeyID() string { return g.keyID }

type razorpayOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type razorpayOrder struct {
	ID       string `json:"id"`
	Entity   string `json:"entity"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type razorpayErrorEnvelope struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
		Reason      string `json:"reason"`
	} `json:"error"`
}

// CreateOrder calls POST /orders. No retry: a failed call surfaces to the
// caller, who retries the whole checkout.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, req adapter.OrderRequest) (*adapter.GatewayOrder, error) {
	var (
		out    razorpayOrder
		apiErr razorpayErrorEnvelope
	)
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(razorpayOrderRequest{
			Amount:   req.AmountMinor,
			Currency: req.Currency,
			Receipt:  req.Receipt,
			Notes:    req.Notes,
		}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/orders")
	if err != nil {
		return nil, fmt.Errorf("razorpay create order: %w", err)
	}
	if resp.IsError() {
		return nil, &adapter.GatewayError{
			StatusCode:  resp.StatusCode(),
			Code:        apiErr.Error.Code,
			Description: apiErr.Error.Description,
		}
	}
	if resp.StatusCode() != http.StatusOK || out.ID == "" {
		return nil, &adapter.GatewayError{StatusCode: resp.StatusCode(), Description: "razorpay returned no order id"}
	}
	return &adapter.GatewayOrder{
		ID:          out.ID,
		AmountMinor: out.Amount,
		Currency:    out.Currency,
		Receipt:     out.Receipt,
		Status:      out.Status,
	}, nil
}

func (g *RazorpayGateway) VerifyPaymentSignature(orderID, paymentID, signature string) error {
	if !security.VerifyHMACSHA256Hex([]byte(g.keySecret), security.PaymentSignaturePayload(orderID, paymentID), signature) {
		return domain.ErrInvalidSignature
	}
	return nil
}

func (g *RazorpayGateway) VerifyWebhookSignature(payload []byte, signature string) error {
	if !security.VerifyHMACSHA256Hex([]byte(g.webhookSecret), payload, signature) {
		return domain.ErrInvalidSignature
	}
	return nil
}
