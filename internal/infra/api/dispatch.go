package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"exam-prep-payments/internal/domain"
	"exam-prep-payments/internal/domain/model"
)

const (
	HeaderWebhookSignature = "X-Razorpay-Signature"
	HeaderWebhookEventID   = "X-Razorpay-Event-Id"

	maxBodyBytes = 1 << 20
)

// field names as sent by the checkout widget, then the client SDK's spelling
var (
	orderIDKeys   = []string{"razorpay_order_id", "razorpayOrderId"}
	paymentIDKeys = []string{"razorpay_payment_id", "razorpayPaymentId"}
	signatureKeys = []string{"razorpay_signature", "razorpaySignature"}
)

// DecodeProof classifies the request into exactly one proof variant:
// webhook header, then GET query string, then JSON body, then form body.
// A GET never carries its proof in a body, whatever its Content-Type says.
func DecodeProof(r *http.Request) (model.PaymentProof, error) {
	if sig := r.Header.Get(HeaderWebhookSignature); sig != "" {
		payload, err := readBody(r)
		if err != nil {
			return nil, err
		}
		return model.WebhookProof{Payload: payload, Signature: sig, EventID: r.Header.Get(HeaderWebhookEventID)}, nil
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case r.Method == http.MethodGet:
		q := r.URL.Query()
		return model.RedirectProof{SignedFields: pickFields(q.Get)}, nil

	case mediaType == "application/json":
		payload, err := readBody(r)
		if err != nil {
			return nil, err
		}
		var body map[string]any
		if err := json.Unmarshal(payload, &body); err != nil {
			return nil, fmt.Errorf("%w: decode json callback: %w", domain.ErrVerificationError, err)
		}
		get := func(k string) string {
			s, _ := body[k].(string)
			return s
		}
		return model.JSONCallbackProof{SignedFields: pickFields(get)}, nil

	case mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data":
		r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
		var err error
		if mediaType == "multipart/form-data" {
			err = r.ParseMultipartForm(maxBodyBytes)
		} else {
			err = r.ParseForm()
		}
		if err != nil {
			return nil, fmt.Errorf("%w: parse form callback: %w", domain.ErrVerificationError, err)
		}
		return model.FormCallbackProof{SignedFields: pickFields(r.PostFormValue)}, nil
	}
	return nil, domain.ErrMissingParameters
}

func readBody(r *http.Request) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", domain.ErrVerificationError, err)
	}
	if len(b) > maxBodyBytes {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", domain.ErrVerificationError, maxBodyBytes)
	}
	return b, nil
}

func pickFields(get func(string) string) model.SignedFields {
	first := func(keys []string) string {
		for _, k := range keys {
			if v := strings.TrimSpace(get(k)); v != "" {
				return v
			}
		}
		return ""
	}
	return model.SignedFields{
		OrderID:   first(orderIDKeys),
		PaymentID: first(paymentIDKeys),
		Signature: first(signatureKeys),
	}
}

// withQuery appends params to a configured redirect target.
func withQuery(target string, params url.Values) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", errors.New("redirect url must be absolute")
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
