package subscribeto

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Businesses is the tenant store.
type Businesses interface {
	repository.Repository[*Business]

	ListPage(ctx context.Context, limit, offset int) ([]*Business, error)
}

// BusinessOwners links users to the businesses they administer.
type BusinessOwners interface {
	repository.Repository[*BusinessOwner]

	IsOwner(ctx context.Context, userID, businessID uuid.UUID) (bool, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*BusinessOwner, error)
}

// Products is the product catalog store.
type Products interface {
	repository.Repository[*Product]

	ListForBusiness(ctx context.Context, businessID uuid.UUID) ([]*Product, error)
}

// Programs is the recurring offer store.
type Programs interface {
	repository.Repository[*Program]

	ListForBusiness(ctx context.Context, businessID uuid.UUID) ([]*Program, error)
	CloseTx(ctx context.Context, tx bun.IDB, id uuid.UUID, successorID uuid.UUID) error
}

// Subscriptions is the enrollment store.
type Subscriptions interface {
	repository.Repository[*Subscription]

	ListForUser(ctx context.Context, userID uuid.UUID) ([]*Subscription, error)
	ListForProgram(ctx context.Context, programID uuid.UUID) ([]*Subscription, error)
	CountForProgram(ctx context.Context, programID uuid.UUID) (int, error)
	GetForUserProgram(ctx context.Context, userID, programID uuid.UUID) (*Subscription, error)
	SetAutoRenewTx(ctx context.Context, tx bun.IDB, id uuid.UUID, autoRenew bool) error
	CancelTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

func uuidHandlers[T any](getID func(T) uuid.UUID, setID func(T, uuid.UUID), newRecord func() T) repository.ModelHandlers[T] {
	return repository.ModelHandlers[T]{
		NewRecord: newRecord,
		GetID:     getID,
		SetID:     setID,
	}
}

type businesses struct {
	repository.Repository[*Business]
	db *bun.DB
}

var _ Businesses = (*businesses)(nil)

func NewBusinessesRepository(db *bun.DB) Businesses {
	repo := repository.NewRepository[*Business](db, uuidHandlers(
		func(b *Business) uuid.UUID {
			if b == nil {
				return uuid.Nil
			}
			return b.ID
		},
		func(b *Business, id uuid.UUID) {
			if b != nil {
				b.ID = id
			}
		},
		func() *Business { return &Business{} },
	))
	return &businesses{Repository: repo, db: db}
}

func (a *businesses) ListPage(ctx context.Context, limit, offset int) ([]*Business, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	if offset < 0 {
		offset = 0
	}

	var records []*Business
	err := a.db.NewSelect().
		Model(&records).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	return records, err
}

type businessOwners struct {
	repository.Repository[*BusinessOwner]
	db *bun.DB
}

var _ BusinessOwners = (*businessOwners)(nil)

func NewBusinessOwnersRepository(db *bun.DB) BusinessOwners {
	repo := repository.NewRepository[*BusinessOwner](db, uuidHandlers(
		func(o *BusinessOwner) uuid.UUID {
			if o == nil {
				return uuid.Nil
			}
			return o.ID
		},
		func(o *BusinessOwner, id uuid.UUID) {
			if o != nil {
				o.ID = id
			}
		},
		func() *BusinessOwner { return &BusinessOwner{} },
	))
	return &businessOwners{Repository: repo, db: db}
}

func (a *businessOwners) IsOwner(ctx context.Context, userID, businessID uuid.UUID) (bool, error) {
	count, err := a.db.NewSelect().
		Model((*BusinessOwner)(nil)).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.business_id = ?", businessID).
		Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (a *businessOwners) ListForUser(ctx context.Context, userID uuid.UUID) ([]*BusinessOwner, error) {
	var records []*BusinessOwner
	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		Scan(ctx)
	return records, err
}

type products struct {
	repository.Repository[*Product]
	db *bun.DB
}

var _ Products = (*products)(nil)

func NewProductsRepository(db *bun.DB) Products {
	repo := repository.NewRepository[*Product](db, uuidHandlers(
		func(p *Product) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		func(p *Product, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
		func() *Product { return &Product{} },
	))
	return &products{Repository: repo, db: db}
}

func (a *products) ListForBusiness(ctx context.Context, businessID uuid.UUID) ([]*Product, error) {
	var records []*Product
	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.business_id = ?", businessID).
		Order("created_at DESC").
		Scan(ctx)
	return records, err
}

type programs struct {
	repository.Repository[*Program]
	db *bun.DB
}

var _ Programs = (*programs)(nil)

func NewProgramsRepository(db *bun.DB) Programs {
	repo := repository.NewRepository[*Program](db, uuidHandlers(
		func(p *Program) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		func(p *Program, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
		func() *Program { return &Program{} },
	))
	return &programs{Repository: repo, db: db}
}

func (a *programs) ListForBusiness(ctx context.Context, businessID uuid.UUID) ([]*Program, error) {
	var records []*Program
	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.business_id = ?", businessID).
		Order("created_at DESC").
		Scan(ctx)
	return records, err
}

// CloseTx closes a program and points it at its successor. Closed programs
// reject new subscriptions; existing ones are untouched.
func (a *programs) CloseTx(ctx context.Context, tx bun.IDB, id uuid.UUID, successorID uuid.UUID) error {
	res, err := tx.NewUpdate().
		Model((*Program)(nil)).
		Set("closed = ?", true).
		Set("successor_id = ?", successorID).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return repository.NewRecordNotFound().WithMetadata(map[string]any{
			"program_id": id.String(),
		})
	}

	return nil
}

type subscriptions struct {
	repository.Repository[*Subscription]
	db *bun.DB
}

var _ Subscriptions = (*subscriptions)(nil)

func NewSubscriptionsRepository(db *bun.DB) Subscriptions {
	repo := repository.NewRepository[*Subscription](db, uuidHandlers(
		func(s *Subscription) uuid.UUID {
			if s == nil {
				return uuid.Nil
			}
			return s.ID
		},
		func(s *Subscription, id uuid.UUID) {
			if s != nil {
				s.ID = id
			}
		},
		func() *Subscription { return &Subscription{} },
	))
	return &subscriptions{Repository: repo, db: db}
}

func (a *subscriptions) ListForUser(ctx context.Context, userID uuid.UUID) ([]*Subscription, error) {
	var records []*Subscription
	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	return records, err
}

func (a *subscriptions) ListForProgram(ctx context.Context, programID uuid.UUID) ([]*Subscription, error) {
	var records []*Subscription
	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.program_id = ?", programID).
		Scan(ctx)
	return records, err
}

func (a *subscriptions) CountForProgram(ctx context.Context, programID uuid.UUID) (int, error) {
	return a.db.NewSelect().
		Model((*Subscription)(nil)).
		Where("?TableAlias.program_id = ?", programID).
		Count(ctx)
}

// SetAutoRenewTx flips the renewal flag with an explicit Set clause; an ORM
// record update would drop the column when the flag turns false.
func (a *subscriptions) SetAutoRenewTx(ctx context.Context, tx bun.IDB, id uuid.UUID, autoRenew bool) error {
	res, err := tx.NewUpdate().
		Model((*Subscription)(nil)).
		Set("auto_renew = ?", autoRenew).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return err
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return repository.NewRecordNotFound().WithMetadata(map[string]any{
			"subscription_id": id.String(),
		})
	}

	return nil
}

// CancelTx soft deletes a subscription; the row survives for history and
// the model's soft delete column keeps it out of every normal query.
func (a *subscriptions) CancelTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewDelete().
		Model((*Subscription)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return repository.NewRecordNotFound().WithMetadata(map[string]any{
			"subscription_id": id.String(),
		})
	}

	return nil
}

func (a *subscriptions) GetForUserProgram(ctx context.Context, userID, programID uuid.UUID) (*Subscription, error) {
	record := &Subscription{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.program_id = ?", programID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().WithMetadata(map[string]any{
				"user_id":    userID.String(),
				"program_id": programID.String(),
			})
		}
		return nil, err
	}
	return record, nil
}
