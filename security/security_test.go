package security

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWebhookSignatureRoundTrip(t *testing.T) {
	payload := []byte(`{"type":"transfer.succeeded","correlationId":"abc"}`)

	signature := ComputeWebhookSignature("secret-1", payload)
	require.True(t, VerifyWebhookSignature("secret-1", payload, signature))

	require.False(t, VerifyWebhookSignature("secret-2", payload, signature))
	require.False(t, VerifyWebhookSignature("secret-1", []byte(`tampered`), signature))
	require.False(t, VerifyWebhookSignature("secret-1", payload, ""))
	require.False(t, VerifyWebhookSignature("", payload, signature))
}

func TestGenerateWebhookSecret(t *testing.T) {
	a, err := GenerateWebhookSecret()
	require.NoError(t, err)
	b, err := GenerateWebhookSecret()
	require.NoError(t, err)
	require.NotEqual(t, a, b)
	require.GreaterOrEqual(t, len(a), 32)
}
