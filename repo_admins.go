package subscribeto

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Admins is the administrator allow list store.
type Admins interface {
	repository.Repository[*Admin]

	IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
	Grant(ctx context.Context, userID uuid.UUID) error
	Revoke(ctx context.Context, userID uuid.UUID) error
}

type admins struct {
	repository.Repository[*Admin]
	db *bun.DB
}

var _ Admins = (*admins)(nil)

func NewAdminsRepository(db *bun.DB) Admins {
	repo := repository.NewRepository[*Admin](db, repository.ModelHandlers[*Admin]{
		NewRecord: func() *Admin { return &Admin{} },
		GetID: func(a *Admin) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Admin, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
	})

	return &admins{
		Repository: repo,
		db:         db,
	}
}

func (a *admins) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	count, err := a.db.NewSelect().
		Model((*Admin)(nil)).
		Where("?TableAlias.user_id = ?", userID).
		Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (a *admins) Grant(ctx context.Context, userID uuid.UUID) error {
	granted, err := a.IsAdmin(ctx, userID)
	if err != nil {
		return err
	}
	if granted {
		return nil
	}

	_, err = a.db.NewInsert().
		Model(&Admin{ID: uuid.New(), UserID: userID}).
		Exec(ctx)
	return err
}

func (a *admins) Revoke(ctx context.Context, userID uuid.UUID) error {
	_, err := a.db.NewDelete().
		Model((*Admin)(nil)).
		Where("?TableAlias.user_id = ?", userID).
		Exec(ctx)
	return err
}
