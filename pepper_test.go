package subscribeto_test

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/subscribeto/subscribeto"
)

func TestNewSalt(t *testing.T) {
	first, err := subscribeto.NewSalt()
	require.NoError(t, err)
	assert.Len(t, first, subscribeto.SaltLength)

	second, err := subscribeto.NewSalt()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestCreatePepper(t *testing.T) {
	salt, err := subscribeto.NewSalt()
	require.NoError(t, err)

	t.Run("is deterministic", func(t *testing.T) {
		a := subscribeto.CreatePepper(salt, "hunter2hunter2")
		b := subscribeto.CreatePepper(salt, "hunter2hunter2")
		assert.Equal(t, a, b)
		assert.Len(t, a, sha256.Size)
	})

	t.Run("depends on the salt", func(t *testing.T) {
		other, err := subscribeto.NewSalt()
		require.NoError(t, err)

		a := subscribeto.CreatePepper(salt, "hunter2hunter2")
		b := subscribeto.CreatePepper(other, "hunter2hunter2")
		assert.NotEqual(t, a, b)
	})

	t.Run("depends on the password", func(t *testing.T) {
		a := subscribeto.CreatePepper(salt, "hunter2hunter2")
		b := subscribeto.CreatePepper(salt, "hunter2hunter3")
		assert.NotEqual(t, a, b)
	})

	t.Run("chains rounds left to right", func(t *testing.T) {
		// independently walk the chain: p0 = password, p(i+1) = H(p(i) || salt)
		expected := []byte("hunter2hunter2")
		for i := 0; i < subscribeto.PepperRounds; i++ {
			h := sha256.New()
			h.Write(expected)
			h.Write(salt)
			expected = h.Sum(nil)
		}

		assert.Equal(t, expected, subscribeto.CreatePepper(salt, "hunter2hunter2"))
	})
}

func TestPasswordIsCorrect(t *testing.T) {
	salt, err := subscribeto.NewSalt()
	require.NoError(t, err)
	pepper := subscribeto.CreatePepper(salt, "correct horse battery")

	t.Run("accepts the right password", func(t *testing.T) {
		assert.True(t, subscribeto.PasswordIsCorrect(salt, pepper, "correct horse battery"))
	})

	t.Run("rejects the wrong password", func(t *testing.T) {
		assert.False(t, subscribeto.PasswordIsCorrect(salt, pepper, "correct horse staple"))
	})

	t.Run("never errors on malformed credentials", func(t *testing.T) {
		assert.False(t, subscribeto.PasswordIsCorrect(nil, pepper, "correct horse battery"))
		assert.False(t, subscribeto.PasswordIsCorrect(salt, nil, "correct horse battery"))
		assert.False(t, subscribeto.PasswordIsCorrect(salt[:4], pepper, "correct horse battery"))
		assert.False(t, subscribeto.PasswordIsCorrect(nil, nil, ""))
	})
}
