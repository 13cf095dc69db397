package subscribeto_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/subscribeto/subscribeto"
)

// base32 of the RFC 6238 appendix B ASCII secret "12345678901234567890".
const rfc6238Secret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func TestGenerateTOTPSecret(t *testing.T) {
	first, err := subscribeto.GenerateTOTPSecret()
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	second, err := subscribeto.GenerateTOTPSecret()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	code, err := subscribeto.GenerateTOTPCode(first, time.Now())
	require.NoError(t, err)
	assert.Len(t, code, 6)
}

func TestGenerateTOTPCode(t *testing.T) {
	// truncated to six digits from the RFC 6238 appendix B table
	cases := []struct {
		at   int64
		code string
	}{
		{59, "287082"},
		{1111111109, "081804"},
		{1111111111, "050471"},
		{1234567890, "005924"},
	}

	for _, tc := range cases {
		code, err := subscribeto.GenerateTOTPCode(rfc6238Secret, time.Unix(tc.at, 0))
		require.NoError(t, err)
		assert.Equal(t, tc.code, code, "at t=%d", tc.at)
	}

	t.Run("rejects a non base32 secret", func(t *testing.T) {
		_, err := subscribeto.GenerateTOTPCode("not base32!!", time.Now())
		assert.Error(t, err)
	})
}

func TestVerifyTOTPCode(t *testing.T) {
	at := time.Unix(1111111109, 0)

	t.Run("accepts the current period", func(t *testing.T) {
		assert.True(t, subscribeto.VerifyTOTPCode(rfc6238Secret, "081804", at))
	})

	t.Run("accepts one period of drift either side", func(t *testing.T) {
		assert.True(t, subscribeto.VerifyTOTPCode(rfc6238Secret, "081804", at.Add(30*time.Second)))
		assert.True(t, subscribeto.VerifyTOTPCode(rfc6238Secret, "081804", at.Add(-30*time.Second)))
	})

	t.Run("rejects two periods of drift", func(t *testing.T) {
		assert.False(t, subscribeto.VerifyTOTPCode(rfc6238Secret, "081804", at.Add(60*time.Second)))
		assert.False(t, subscribeto.VerifyTOTPCode(rfc6238Secret, "081804", at.Add(-60*time.Second)))
	})

	t.Run("rejects the wrong code", func(t *testing.T) {
		assert.False(t, subscribeto.VerifyTOTPCode(rfc6238Secret, "000000", at))
	})

	t.Run("never errors on malformed input", func(t *testing.T) {
		assert.False(t, subscribeto.VerifyTOTPCode(rfc6238Secret, "", at))
		assert.False(t, subscribeto.VerifyTOTPCode(rfc6238Secret, "12345", at))
		assert.False(t, subscribeto.VerifyTOTPCode(rfc6238Secret, "1234567", at))
		assert.False(t, subscribeto.VerifyTOTPCode("not base32!!", "081804", at))
		assert.False(t, subscribeto.VerifyTOTPCode("", "081804", at))
	})
}
