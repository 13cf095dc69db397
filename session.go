package subscribeto

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SessionTier is a privilege level a route can require.
type SessionTier string

const (
	// TierNone requires nothing; even an absent or dead session passes.
	TierNone SessionTier = "none"
	// TierUser requires a live session bound to a user.
	TierUser SessionTier = "user"
	// TierBusiness requires a live session with an active business context.
	TierBusiness SessionTier = "business"
	// TierAdmin requires a live session whose user is on the admin allow
	// list. Admin does not imply business.
	TierAdmin SessionTier = "admin"
)

// AdminLookup answers whether a user is on the administrator allow list.
type AdminLookup interface {
	IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
}

// SessionValidator evaluates a session against required tiers. Tiers are
// independent predicates and every required tier must hold: one failing
// check denies the whole request. The allow list is consulted on every
// check so admin revocation takes effect immediately.
type SessionValidator struct {
	admins AdminLookup
}

func NewSessionValidator(admins AdminLookup) *SessionValidator {
	return &SessionValidator{admins: admins}
}

// Validate returns nil when the session satisfies every required tier.
// TierNone requires nothing and drops out of the set; no effective
// requirement always allows. A dead or absent session denies every
// explicit requirement.
func (v *SessionValidator) Validate(ctx context.Context, session *Session, tiers ...SessionTier) error {
	required := make([]SessionTier, 0, len(tiers))
	for _, tier := range tiers {
		if tier != TierNone {
			required = append(required, tier)
		}
	}

	if len(required) == 0 {
		return nil
	}

	if !session.Alive() || session.UserID == nil {
		return ErrUnauthorized()
	}

	for _, tier := range required {
		ok, err := v.satisfies(ctx, session, tier)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUnauthorized()
		}
	}

	return nil
}

func (v *SessionValidator) satisfies(ctx context.Context, session *Session, tier SessionTier) (bool, error) {
	switch tier {
	case TierUser:
		return true, nil
	case TierBusiness:
		return session.BusinessID != nil, nil
	case TierAdmin:
		if v.admins == nil {
			return false, nil
		}
		ok, err := v.admins.IsAdmin(ctx, *session.UserID)
		if err != nil {
			return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consult admin allow list")
		}
		return ok, nil
	default:
		return false, nil
	}
}

// newSessionTx creates the session row for a fresh sign in. Every sign in
// gets its own session; ids are never reused.
func newSessionTx(ctx context.Context, tx bun.IDB, repo Sessions, userID uuid.UUID) (*Session, error) {
	session := &Session{
		ID:     uuid.New(),
		UserID: &userID,
	}

	session, err := repo.CreateTx(ctx, tx, session)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create session")
	}

	return session, nil
}
