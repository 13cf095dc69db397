package subscribeto

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Sessions is the session store. Sessions never get deleted; revocation
// flips the dead flag so a row remains for audit.
type Sessions interface {
	repository.Repository[*Session]

	KillTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
	KillAllForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (int64, error)
	SetBusinessTx(ctx context.Context, tx bun.IDB, id uuid.UUID, businessID *uuid.UUID) error
}

type sessions struct {
	repository.Repository[*Session]
	db *bun.DB
}

var _ Sessions = (*sessions)(nil)

func NewSessionsRepository(db *bun.DB) Sessions {
	repo := repository.NewRepository[*Session](db, repository.ModelHandlers[*Session]{
		NewRecord: func() *Session { return &Session{} },
		GetID: func(s *Session) uuid.UUID {
			if s == nil {
				return uuid.Nil
			}
			return s.ID
		},
		SetID: func(s *Session, id uuid.UUID) {
			if s != nil {
				s.ID = id
			}
		},
	})

	return &sessions{
		Repository: repo,
		db:         db,
	}
}

func (a *sessions) KillTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewUpdate().
		Model((*Session)(nil)).
		Set("dead = ?", true).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return repository.NewRecordNotFound().WithMetadata(map[string]any{
			"session_id": id.String(),
		})
	}

	return nil
}

func (a *sessions) KillAllForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (int64, error) {
	res, err := tx.NewUpdate().
		Model((*Session)(nil)).
		Set("dead = ?", true).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.dead = ?", false).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	rows, _ := res.RowsAffected()
	return rows, nil
}

func (a *sessions) SetBusinessTx(ctx context.Context, tx bun.IDB, id uuid.UUID, businessID *uuid.UUID) error {
	res, err := tx.NewUpdate().
		Model((*Session)(nil)).
		Set("business_id = ?", businessID).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.dead = ?", false).
		Exec(ctx)
	if err != nil {
		return err
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return repository.NewRecordNotFound().WithMetadata(map[string]any{
			"session_id": id.String(),
		})
	}

	return nil
}
