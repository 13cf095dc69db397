package subscribeto_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/subscribeto/subscribeto"
)

func TestNormalizePhone(t *testing.T) {
	t.Run("formats to E.164", func(t *testing.T) {
		cases := map[string]string{
			"+1 415 555 2671":   "+14155552671",
			"+14155552671":      "+14155552671",
			"+44 20 7946 0958":  "+442079460958",
			"+49 (30) 12345678": "+493012345678",
		}

		for raw, want := range cases {
			got, err := subscribeto.NormalizePhone(raw)
			require.NoError(t, err, raw)
			assert.Equal(t, want, got)
		}
	})

	t.Run("rejects numbers without a country prefix", func(t *testing.T) {
		_, err := subscribeto.NormalizePhone("415 555 2671")
		assert.Error(t, err)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		for _, raw := range []string{"", "not a phone", "+1", "+999999"} {
			_, err := subscribeto.NormalizePhone(raw)
			assert.Error(t, err, raw)
		}
	})
}
