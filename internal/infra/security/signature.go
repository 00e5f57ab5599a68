package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HMACSHA256Hex returns the lowercase hex HMAC-SHA256 of msg keyed by key.
func HMACSHA256Hex(key, msg []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(msg)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMACSHA256Hex compares a hex signature against the expected MAC in
// constant time. An empty signature never verifies.
func VerifyHMACSHA256Hex(key, msg []byte, signature string) bool {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return false
	}
	expected := HMACSHA256Hex(key, msg)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// PaymentSignaturePayload is the string the gateway signs for a checkout:
// "{order_id}|{payment_id}".
func PaymentSignaturePayload(orderID, paymentID string) []byte {
	return []byte(orderID + "|" + paymentID)
}
