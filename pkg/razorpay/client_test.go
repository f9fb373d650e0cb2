package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signPayload(t *testing.T, secret, payload string) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyCallback(t *testing.T) {
	client := NewClient(&Config{KeyID: "rzp_test_key", KeySecret: "secret123"})

	params := &CallbackParams{
		OrderID:   "order_abc",
		PaymentID: "pay_def",
	}
	params.Signature = signPayload(t, "secret123", "order_abc|pay_def")

	require.NoError(t, client.VerifyCallback(params))
}

func TestVerifyCallback_BadSignature(t *testing.T) {
	client := NewClient(&Config{KeyID: "rzp_test_key", KeySecret: "secret123"})

	params := &CallbackParams{
		OrderID:   "order_abc",
		PaymentID: "pay_def",
		Signature: "deadbeef",
	}

	err := client.VerifyCallback(params)
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestVerifyWebhook(t *testing.T) {
	client := NewClient(&Config{KeyID: "k", KeySecret: "s", WebhookSecret: "whsec"})

	body := []byte(`{"event":"payment.captured"}`)
	sig := signPayload(t, "whsec", string(body))

	require.NoError(t, client.VerifyWebhook(body, sig))
	assert.Error(t, client.VerifyWebhook(body, "bad"))
}
