package subscribeto_test

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/subscribeto/subscribeto"
)

func newTestCodec(t *testing.T) *subscribeto.ChallengeCodec {
	t.Helper()
	cipher, err := subscribeto.NewCipher("operator-secret-for-tests")
	require.NoError(t, err)
	return subscribeto.NewChallengeCodec(cipher)
}

func TestChallengeCodecIssue(t *testing.T) {
	codec := newTestCodec(t)

	challenge, token, err := codec.Issue("user-payload", subscribeto.TokenEncodingHex)
	require.NoError(t, err)

	assert.Len(t, challenge.Code, 6)
	assert.Equal(t, "user-payload", challenge.Data)
	assert.NotEmpty(t, token)

	// token must be valid hex carrying no plaintext
	_, err = hex.DecodeString(token)
	assert.NoError(t, err)
	assert.NotContains(t, token, "user-payload")

	opened, err := codec.Open(token, subscribeto.TokenEncodingHex)
	require.NoError(t, err)
	assert.Equal(t, challenge, opened)
}

func TestChallengeCodecRoundTrip(t *testing.T) {
	codec := newTestCodec(t)
	challenge := subscribeto.Challenge{Code: "123456", Data: "payload"}

	for _, enc := range []subscribeto.TokenEncoding{
		subscribeto.TokenEncodingHex,
		subscribeto.TokenEncodingBase64,
	} {
		token, err := codec.Seal(challenge, enc)
		require.NoError(t, err)

		opened, err := codec.Open(token, enc)
		require.NoError(t, err)
		assert.Equal(t, challenge, opened)
	}
}

func TestChallengeCodecOpenFailures(t *testing.T) {
	codec := newTestCodec(t)

	token, err := codec.Seal(subscribeto.Challenge{Code: "123456", Data: "payload"}, subscribeto.TokenEncodingHex)
	require.NoError(t, err)

	assertInvalid := func(t *testing.T, err error) {
		t.Helper()
		require.Error(t, err)
		assert.True(t, subscribeto.HasTextCode(err, subscribeto.TextCodeInvalidToken))
	}

	t.Run("wrong encoding", func(t *testing.T) {
		_, err := codec.Open(token, subscribeto.TokenEncodingBase64)
		assertInvalid(t, err)
	})

	t.Run("undecodable token", func(t *testing.T) {
		_, err := codec.Open("zz-not-hex", subscribeto.TokenEncodingHex)
		assertInvalid(t, err)
	})

	t.Run("tampered ciphertext", func(t *testing.T) {
		raw, err := hex.DecodeString(token)
		require.NoError(t, err)
		raw[len(raw)-1] ^= 0x01

		_, err = codec.Open(hex.EncodeToString(raw), subscribeto.TokenEncodingHex)
		assertInvalid(t, err)
	})

	t.Run("token from another key", func(t *testing.T) {
		cipher, err := subscribeto.NewCipher("a-completely-different-secret")
		require.NoError(t, err)
		other := subscribeto.NewChallengeCodec(cipher)

		foreign, err := other.Seal(subscribeto.Challenge{Code: "123456"}, subscribeto.TokenEncodingHex)
		require.NoError(t, err)

		_, err = codec.Open(foreign, subscribeto.TokenEncodingHex)
		assertInvalid(t, err)
	})

	t.Run("unkeyed cipher is not an invalid token", func(t *testing.T) {
		dead := subscribeto.NewChallengeCodec(nil)

		_, err := dead.Open(token, subscribeto.TokenEncodingHex)
		require.Error(t, err)
		assert.True(t, subscribeto.HasTextCode(err, subscribeto.TextCodeCipherNotReady))
	})
}

func TestChallengeCodecIsCodeValid(t *testing.T) {
	codec := newTestCodec(t)

	challenge, token, err := codec.Issue("", subscribeto.TokenEncodingBase64)
	require.NoError(t, err)

	assert.True(t, codec.IsCodeValid(token, challenge.Code, subscribeto.TokenEncodingBase64))
	assert.False(t, codec.IsCodeValid(token, "999999", subscribeto.TokenEncodingBase64))
	assert.False(t, codec.IsCodeValid(token, challenge.Code, subscribeto.TokenEncodingHex))
	assert.False(t, codec.IsCodeValid("garbage", challenge.Code, subscribeto.TokenEncodingBase64))
}
