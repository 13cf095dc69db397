package subscribeto_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/subscribeto/subscribeto"
)

type allowListStub struct {
	admins map[uuid.UUID]bool
	err    error
}

func (s *allowListStub) IsAdmin(_ context.Context, userID uuid.UUID) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.admins[userID], nil
}

func TestSessionAlive(t *testing.T) {
	var absent *subscribeto.Session
	assert.False(t, absent.Alive())

	assert.False(t, (&subscribeto.Session{Dead: true}).Alive())
	assert.True(t, (&subscribeto.Session{}).Alive())
}

func TestSessionValidator(t *testing.T) {
	adminID := uuid.New()
	userID := uuid.New()
	businessID := uuid.New()

	validator := subscribeto.NewSessionValidator(&allowListStub{
		admins: map[uuid.UUID]bool{adminID: true},
	})

	userSession := &subscribeto.Session{ID: uuid.New(), UserID: &userID}
	businessSession := &subscribeto.Session{ID: uuid.New(), UserID: &userID, BusinessID: &businessID}
	adminSession := &subscribeto.Session{ID: uuid.New(), UserID: &adminID}
	deadSession := &subscribeto.Session{ID: uuid.New(), UserID: &adminID, BusinessID: &businessID, Dead: true}

	ctx := context.Background()

	t.Run("no requirement always allows", func(t *testing.T) {
		assert.NoError(t, validator.Validate(ctx, nil))
		assert.NoError(t, validator.Validate(ctx, deadSession))
		assert.NoError(t, validator.Validate(ctx, userSession))
	})

	t.Run("none requires nothing", func(t *testing.T) {
		assert.NoError(t, validator.Validate(ctx, nil, subscribeto.TierNone))

		// none drops out of the set; the remaining tiers still apply
		err := validator.Validate(ctx, userSession, subscribeto.TierNone, subscribeto.TierAdmin)
		assert.True(t, subscribeto.HasTextCode(err, subscribeto.TextCodeUnauthorized))
		assert.NoError(t, validator.Validate(ctx, adminSession, subscribeto.TierNone, subscribeto.TierAdmin))
	})

	t.Run("absent or dead session denies explicit tiers", func(t *testing.T) {
		for _, tier := range []subscribeto.SessionTier{
			subscribeto.TierUser,
			subscribeto.TierBusiness,
			subscribeto.TierAdmin,
		} {
			err := validator.Validate(ctx, nil, tier)
			assert.True(t, subscribeto.HasTextCode(err, subscribeto.TextCodeUnauthorized))

			err = validator.Validate(ctx, deadSession, tier)
			assert.True(t, subscribeto.HasTextCode(err, subscribeto.TextCodeUnauthorized))
		}
	})

	t.Run("user tier", func(t *testing.T) {
		assert.NoError(t, validator.Validate(ctx, userSession, subscribeto.TierUser))
		assert.NoError(t, validator.Validate(ctx, businessSession, subscribeto.TierUser))
	})

	t.Run("business tier needs an active business", func(t *testing.T) {
		assert.NoError(t, validator.Validate(ctx, businessSession, subscribeto.TierBusiness))

		err := validator.Validate(ctx, userSession, subscribeto.TierBusiness)
		assert.True(t, subscribeto.HasTextCode(err, subscribeto.TextCodeUnauthorized))
	})

	t.Run("admin tier consults the allow list", func(t *testing.T) {
		assert.NoError(t, validator.Validate(ctx, adminSession, subscribeto.TierAdmin))

		err := validator.Validate(ctx, userSession, subscribeto.TierAdmin)
		assert.True(t, subscribeto.HasTextCode(err, subscribeto.TextCodeUnauthorized))

		// business context does not imply admin
		err = validator.Validate(ctx, businessSession, subscribeto.TierAdmin)
		assert.True(t, subscribeto.HasTextCode(err, subscribeto.TextCodeUnauthorized))
	})

	t.Run("admin does not imply business", func(t *testing.T) {
		err := validator.Validate(ctx, adminSession, subscribeto.TierBusiness)
		assert.True(t, subscribeto.HasTextCode(err, subscribeto.TextCodeUnauthorized))
	})

	t.Run("every required tier must hold", func(t *testing.T) {
		// a user-only session fails the combined user+business requirement
		err := validator.Validate(ctx, userSession, subscribeto.TierUser, subscribeto.TierBusiness)
		assert.True(t, subscribeto.HasTextCode(err, subscribeto.TextCodeUnauthorized))

		err = validator.Validate(ctx, userSession, subscribeto.TierAdmin, subscribeto.TierUser)
		assert.True(t, subscribeto.HasTextCode(err, subscribeto.TextCodeUnauthorized))

		err = validator.Validate(ctx, adminSession, subscribeto.TierBusiness, subscribeto.TierAdmin)
		assert.True(t, subscribeto.HasTextCode(err, subscribeto.TextCodeUnauthorized))

		assert.NoError(t, validator.Validate(ctx, businessSession, subscribeto.TierUser, subscribeto.TierBusiness))

		adminBusiness := &subscribeto.Session{ID: uuid.New(), UserID: &adminID, BusinessID: &businessID}
		assert.NoError(t, validator.Validate(ctx, adminBusiness, subscribeto.TierBusiness, subscribeto.TierAdmin))
	})

	t.Run("session bound to no user denies", func(t *testing.T) {
		orphan := &subscribeto.Session{ID: uuid.New()}
		err := validator.Validate(ctx, orphan, subscribeto.TierUser)
		assert.True(t, subscribeto.HasTextCode(err, subscribeto.TextCodeUnauthorized))
	})
}
