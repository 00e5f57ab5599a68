package model

import (
	"encoding/json"
	"fmt"
)

const (
	EventPaymentCaptured = "payment.captured"
	EventOrderPaid       = "order.paid"
)

// WebhookEvent is the subset of the gateway's event envelope the verifier reads.
type WebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Status  string `json:"status"`
			} `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

func ParseWebhookEvent(payload []byte) (*WebhookEvent, error) {
	var ev WebhookEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("decode webhook event: %w", err)
	}
	return &ev, nil
}

// Actionable reports whether the event type completes a payment.
func (e *WebhookEvent) Actionable() bool {
	return e.Event == EventPaymentCaptured || e.Event == EventOrderPaid
}

// PaymentID returns the captured payment id.
func (e *WebhookEvent) PaymentID() string { return e.Payload.Payment.Entity.ID }

// OrderID prefers the payment entity's order id and falls back to the order entity.
func (e *WebhookEvent) OrderID() string {
	if id := e.Payload.Payment.Entity.OrderID; id != "" {
		return id
	}
	return e.Payload.Order.Entity.ID
}
