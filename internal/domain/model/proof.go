package model

// Channel names the delivery path a proof of payment arrived on.
type Channel string

const (
	ChannelWebhook  Channel = "webhook"
	ChannelJSON     Channel = "json"
	ChannelForm     Channel = "form"
	ChannelRedirect Channel = "redirect"
)

// PaymentProof is the closed set of verification inputs. Only the four
// variants below implement it; consumers switch over them exhaustively.
type PaymentProof interface {
	Channel() Channel
	isPaymentProof()
}

// WebhookProof is a server-to-server notification. Payload is the exact raw
// body the signature was computed over.
type WebhookProof struct {
	Payload   []byte
	Signature string
	EventID   string
}

// SignedFields are the three values the checkout widget hands back to the client.
type SignedFields struct {
	OrderID   string
	PaymentID string
	Signature string
}

// JSONCallbackProof is posted by the client after the widget reports success.
type JSONCallbackProof struct{ SignedFields }

// FormCallbackProof is the gateway's form POST to the callback URL.
type FormCallbackProof struct{ SignedFields }

// RedirectProof carries the fields on the query string of a browser redirect.
type RedirectProof struct{ SignedFields }

func (WebhookProof) Channel() Channel      { return ChannelWebhook }
func (JSONCallbackProof) Channel() Channel { return ChannelJSON }
func (FormCallbackProof) Channel() Channel { return ChannelForm }
func (RedirectProof) Channel() Channel     { return ChannelRedirect }

func (WebhookProof) isPaymentProof()      {}
func (JSONCallbackProof) isPaymentProof() {}
func (FormCallbackProof) isPaymentProof() {}
func (RedirectProof) isPaymentProof()     {}
