package payment

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"

	"github.com/shopspring/decimal"
)

// Sign computes the processor's callback signature: hex(HMAC-SHA1(secret,
// "<checkoutId>&<amount>")) with the amount in two-digit form.
func Sign(checkoutID string, amount decimal.Decimal, secret string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(checkoutID + "&" + FormatAmount(amount)))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares in constant time.
func VerifySignature(checkoutID string, amount decimal.Decimal, secret, signature string) bool {
	expected := Sign(checkoutID, amount, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
