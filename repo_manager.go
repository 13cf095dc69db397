package subscribeto

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories behind one seam so handlers can
// share transactions.
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	Sessions() Sessions
	Admins() Admins
	Businesses() Businesses
	BusinessOwners() BusinessOwners
	Products() Products
	Programs() Programs
	Subscriptions() Subscriptions
}

type mngr struct {
	db             *bun.DB
	users          Users
	sessions       Sessions
	admins         Admins
	businesses     Businesses
	businessOwners BusinessOwners
	products       Products
	programs       Programs
	subscriptions  Subscriptions
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:             db,
		users:          NewUsersRepository(db),
		sessions:       NewSessionsRepository(db),
		admins:         NewAdminsRepository(db),
		businesses:     NewBusinessesRepository(db),
		businessOwners: NewBusinessOwnersRepository(db),
		products:       NewProductsRepository(db),
		programs:       NewProgramsRepository(db),
		subscriptions:  NewSubscriptionsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.sessions == nil {
		return errors.New("repository sessions should be initialized")
	}

	if m.admins == nil {
		return errors.New("repository admins should be initialized")
	}

	if m.businesses == nil || m.businessOwners == nil {
		return errors.New("business repositories should be initialized")
	}

	if m.products == nil || m.programs == nil || m.subscriptions == nil {
		return errors.New("commerce repositories should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users                   { return m.users }
func (m mngr) Sessions() Sessions             { return m.sessions }
func (m mngr) Admins() Admins                 { return m.admins }
func (m mngr) Businesses() Businesses         { return m.businesses }
func (m mngr) BusinessOwners() BusinessOwners { return m.businessOwners }
func (m mngr) Products() Products             { return m.products }
func (m mngr) Programs() Programs             { return m.programs }
func (m mngr) Subscriptions() Subscriptions   { return m.subscriptions }
