package subscribeto_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/subscribeto/subscribeto"
)

func TestLoadConfig(t *testing.T) {
	t.Run("valid environment boots", func(t *testing.T) {
		t.Setenv("HTTP_ADDR", "")
		t.Setenv("DATABASE_DSN", "")
		t.Setenv("CIPHER_SECRET", "operator-secret-for-tests")

		cfg, err := subscribeto.LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, ":8572", cfg.HTTPAddr)
		assert.Equal(t, "file:subscribeto.db", cfg.DSN)
	})

	t.Run("missing cipher secret refuses to boot", func(t *testing.T) {
		t.Setenv("CIPHER_SECRET", "")

		_, err := subscribeto.LoadConfig()
		assert.Error(t, err)
	})

	t.Run("short cipher secret refuses to boot", func(t *testing.T) {
		t.Setenv("CIPHER_SECRET", "too-short")

		_, err := subscribeto.LoadConfig()
		assert.Error(t, err)
	})
}
