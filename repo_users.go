package subscribeto

import (
	"context"
	"strings"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the account store.
type Users interface {
	repository.Repository[*User]

	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	EmailTakenTx(ctx context.Context, tx bun.IDB, email string) (bool, error)

	SetCredentialsTx(ctx context.Context, tx bun.IDB, id uuid.UUID, salt, pepper []byte) error
	SetTOTPTx(ctx context.Context, tx bun.IDB, id uuid.UUID, secret string, enabled bool) error
	SetSMSTx(ctx context.Context, tx bun.IDB, id uuid.UUID, enabled bool) error
	SetEmailTx(ctx context.Context, tx bun.IDB, id uuid.UUID, email string) error
	SetPhoneTx(ctx context.Context, tx bun.IDB, id uuid.UUID, phone string) error

	ListPage(ctx context.Context, limit, offset int) ([]*User, error)
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("LOWER(?TableAlias.email) = LOWER(?)", strings.TrimSpace(email)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().WithMetadata(map[string]any{
				"email": email,
			})
		}
		return nil, err
	}
	return record, nil
}

func (a *users) EmailTaken(ctx context.Context, email string) (bool, error) {
	return a.EmailTakenTx(ctx, a.db, email)
}

func (a *users) EmailTakenTx(ctx context.Context, tx bun.IDB, email string) (bool, error) {
	count, err := tx.NewSelect().
		Model((*User)(nil)).
		Where("LOWER(?TableAlias.email) = LOWER(?)", strings.TrimSpace(email)).
		Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// NOTE: column updates below go through explicit Set clauses; updating via
// the ORM record drops fields that are at their zero value, which matters
// when a flag flips back to false or a secret is cleared.

func (a *users) SetCredentialsTx(ctx context.Context, tx bun.IDB, id uuid.UUID, salt, pepper []byte) error {
	return a.updateColumns(ctx, tx, id, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("salt = ?", salt).Set("pepper = ?", pepper)
	})
}

func (a *users) SetTOTPTx(ctx context.Context, tx bun.IDB, id uuid.UUID, secret string, enabled bool) error {
	return a.updateColumns(ctx, tx, id, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("totp_secret = ?", secret).Set("totp_enabled = ?", enabled)
	})
}

func (a *users) SetSMSTx(ctx context.Context, tx bun.IDB, id uuid.UUID, enabled bool) error {
	return a.updateColumns(ctx, tx, id, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("sms_enabled = ?", enabled)
	})
}

func (a *users) SetEmailTx(ctx context.Context, tx bun.IDB, id uuid.UUID, email string) error {
	return a.updateColumns(ctx, tx, id, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("email = ?", strings.TrimSpace(email))
	})
}

func (a *users) SetPhoneTx(ctx context.Context, tx bun.IDB, id uuid.UUID, phone string) error {
	return a.updateColumns(ctx, tx, id, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("phone_number = ?", phone)
	})
}

func (a *users) updateColumns(ctx context.Context, tx bun.IDB, id uuid.UUID, apply func(*bun.UpdateQuery) *bun.UpdateQuery) error {
	q := tx.NewUpdate().
		Model((*User)(nil)).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.deleted_at IS NULL")

	res, err := apply(q).Exec(ctx)
	if err != nil {
		return err
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return repository.NewRecordNotFound().WithMetadata(map[string]any{
			"id": id.String(),
		})
	}

	return nil
}

func (a *users) ListPage(ctx context.Context, limit, offset int) ([]*User, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	if offset < 0 {
		offset = 0
	}

	var records []*User
	err := a.db.NewSelect().
		Model(&records).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	return records, err
}
