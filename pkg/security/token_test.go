package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOpaqueToken(t *testing.T) {
	token, err := GenerateOpaqueToken(64)
	require.NoError(t, err)
	assert.Len(t, token, 128) // 64 bytes hex-encoded

	other, err := GenerateOpaqueToken(64)
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestHashTokenDeterministic(t *testing.T) {
	h1 := HashToken("some-token")
	h2 := HashToken("some-token")
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64) // sha256 hex
	assert.NotEqual(t, h1, HashToken("other-token"))
}

func TestGenerateOTP(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := GenerateOTP()
		require.NoError(t, err)
		require.Len(t, code, 6)
		require.GreaterOrEqual(t, code[0], byte('1'))
	}
}

func TestTOTPSecretAndVerify(t *testing.T) {
	secret, uri, err := GenerateTOTPSecret("alice@x.com")
	require.NoError(t, err)
	assert.NotEmpty(t, secret)
	assert.Contains(t, uri, "otpauth://totp/")
	assert.Contains(t, uri, "Cartify")

	assert.False(t, VerifyTOTPCode("not-a-code", secret))
}
