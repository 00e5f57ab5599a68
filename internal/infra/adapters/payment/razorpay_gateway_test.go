package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"exam-prep-payments/internal/domain"
	"exam-prep-payments/internal/domain/ports/adapter"
	"exam-prep-payments/internal/infra/security"
)

func newTestGateway(t *testing.T, h http.HandlerFunc) *RazorpayGateway {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	g, err := NewRazorpayGateway("rzp_test_key", "key-secret", "hook-secret", srv.URL, 2*time.Second)
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	return g
}

func TestNewRazorpayGateway_RequiresSecrets(t *testing.T) {
	if _, err := NewRazorpayGateway("", "s", "w", "", 0); err == nil {
		t.Fatal("expected error for empty key id")
	}
	if _, err := NewRazorpayGateway("k", "s", "", "", 0); err == nil {
		t.Fatal("expected error for empty webhook secret")
	}
}

func TestRazorpayGateway_CreateOrder(t *testing.T) {
	t.Run("sends basic auth and minor units", func(t *testing.T) {
		var got razorpayOrderRequest
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/orders" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			user, pass, ok := r.BasicAuth()
			if !ok || user != "rzp_test_key" || pass != "key-secret" {
				t.Errorf("basic auth mismatch: %q %q %v", user, pass, ok)
			}
			if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
				t.Errorf("decode: %v", err)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"order_abc","entity":"order","amount":62900,"currency":"INR","receipt":"rcpt_1","status":"created"}`))
		})

		o, err := g.CreateOrder(context.Background(), adapter.OrderRequest{AmountMinor: 62900, Currency: "INR", Receipt: "rcpt_1"})
		if err != nil {
			t.Fatalf("create order: %v", err)
		}
		if o.ID != "order_abc" || o.AmountMinor != 62900 || o.Currency != "INR" {
			t.Fatalf("unexpected order %+v", o)
		}
		if got.Amount != 62900 || got.Currency != "INR" || got.Receipt != "rcpt_1" {
			t.Fatalf("unexpected request body %+v", got)
		}
	})

	t.Run("surfaces gateway error description", func(t *testing.T) {
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"The amount must be atleast INR 1.00"}}`))
		})

		_, err := g.CreateOrder(context.Background(), adapter.OrderRequest{AmountMinor: 10, Currency: "INR", Receipt: "r"})
		var gwErr *adapter.GatewayError
		if !errors.As(err, &gwErr) {
			t.Fatalf("want GatewayError, got %v", err)
		}
		if gwErr.Description != "The amount must be atleast INR 1.00" || gwErr.StatusCode != http.StatusBadRequest {
			t.Fatalf("unexpected gateway error %+v", gwErr)
		}
	})

	t.Run("network failure is an error", func(t *testing.T) {
		g, _ := NewRazorpayGateway("k", "s", "w", "http://127.0.0.1:1", time.Second)
		if _, err := g.CreateOrder(context.Background(), adapter.OrderRequest{AmountMinor: 100, Currency: "INR", Receipt: "r"}); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestRazorpayGateway_Signatures(t *testing.T) {
	g, _ := NewRazorpayGateway("k", "key-secret", "hook-secret", "", 0)

	sig := security.HMACSHA256Hex([]byte("key-secret"), []byte("order_abc|pay_123"))
	if err := g.VerifyPaymentSignature("order_abc", "pay_123", sig); err != nil {
		t.Fatalf("valid payment signature rejected: %v", err)
	}
	if err := g.VerifyPaymentSignature("order_abc", "pay_124", sig); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("want ErrInvalidSignature, got %v", err)
	}
	if err := g.VerifyPaymentSignature("order_abc", "pay_123", ""); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("empty signature must fail, got %v", err)
	}

	body := []byte(`{"event":"payment.captured"}`)
	hook := security.HMACSHA256Hex([]byte("hook-secret"), body)
	if err := g.VerifyWebhookSignature(body, hook); err != nil {
		t.Fatalf("valid webhook rejected: %v", err)
	}
	// The payment key must not validate webhooks.
	wrong := security.HMACSHA256Hex([]byte("key-secret"), body)
	if err := g.VerifyWebhookSignature(body, wrong); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("want ErrInvalidSignature, got %v", err)
	}
}
