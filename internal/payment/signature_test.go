package payment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// hex(HMAC-SHA1("CHK1&25.00", "s3cret"))
const chk1Signature = "9428c061f315a0e25877b24f350d901027e97cd3"

func TestSign(t *testing.T) {
	amount := decimal.RequireFromString("25")

	sig := Sign("CHK1", amount, testSecret)
	assert.Equal(t, chk1Signature, sig)

	t.Run("Deterministic", func(t *testing.T) {
		assert.Equal(t, sig, Sign("CHK1", amount, testSecret))
	})

	t.Run("EveryInputMatters", func(t *testing.T) {
		assert.NotEqual(t, sig, Sign("CHK2", amount, testSecret))
		assert.NotEqual(t, sig, Sign("CHK1", decimal.RequireFromString("25.01"), testSecret))
		assert.NotEqual(t, sig, Sign("CHK1", amount, "other"))
	})
}

func TestVerifySignature(t *testing.T) {
	amount := decimal.RequireFromString("25.00")

	assert.True(t, VerifySignature("CHK1", amount, "s3cret", chk1Signature))
	assert.False(t, VerifySignature("CHK1", decimal.RequireFromString("25.01"), "s3cret", chk1Signature))
	assert.False(t, VerifySignature("CHK1", amount, testSecret, "bad"))
	assert.False(t, VerifySignature("CHK1", amount, testSecret, ""))
}
