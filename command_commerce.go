package subscribeto

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CommerceHandler owns the storefront mutations: businesses, products,
// programs, and subscriptions. Program price and allowance are immutable;
// a change closes the program and mints a successor.
type CommerceHandler struct {
	repo   RepositoryManager
	logger Logger
}

func NewCommerceHandler(repo RepositoryManager) *CommerceHandler {
	return &CommerceHandler{
		repo:   repo,
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *CommerceHandler) WithLogger(logger Logger) *CommerceHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

type CreateBusinessMessage struct {
	OwnerID uuid.UUID `json:"-"`
	Name    string    `json:"name"`
	Lat     float64   `json:"lat"`
	Lng     float64   `json:"lng"`
}

func (e CreateBusinessMessage) Type() string { return "commerce.business.create" }

// CreateBusiness creates the tenant and makes the creator its first owner,
// atomically.
func (h *CommerceHandler) CreateBusiness(ctx context.Context, event CreateBusinessMessage) (*Business, error) {
	business := &Business{
		ID:   uuid.New(),
		Name: event.Name,
		Lat:  event.Lat,
		Lng:  event.Lng,
	}

	if err := business.Validate(); err != nil {
		return nil, err
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		if business, err = h.repo.Businesses().CreateTx(ctx, tx, business); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create business")
		}

		owner := &BusinessOwner{
			ID:         uuid.New(),
			UserID:     event.OwnerID,
			BusinessID: business.ID,
		}
		if _, err = h.repo.BusinessOwners().CreateTx(ctx, tx, owner); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not record business owner")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "business creation transaction failed")
	}

	return business, nil
}

type UpdateBusinessMessage struct {
	BusinessID uuid.UUID `json:"-"`
	Name       string    `json:"name"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
}

func (e UpdateBusinessMessage) Type() string { return "commerce.business.update" }

func (h *CommerceHandler) UpdateBusiness(ctx context.Context, event UpdateBusinessMessage) (*Business, error) {
	business, err := h.repo.Businesses().GetByID(ctx, event.BusinessID.String())
	if err != nil {
		return nil, err
	}

	business.Name = event.Name
	business.Lat = event.Lat
	business.Lng = event.Lng

	if err := business.Validate(); err != nil {
		return nil, err
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		business, err = h.repo.Businesses().UpdateTx(ctx, tx, business)
		return err
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not update business")
	}

	return business, nil
}

type CreateProductMessage struct {
	BusinessID  uuid.UUID `json:"-"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
}

func (e CreateProductMessage) Type() string { return "commerce.product.create" }

func (h *CommerceHandler) CreateProduct(ctx context.Context, event CreateProductMessage) (*Product, error) {
	product := &Product{
		ID:          uuid.New(),
		BusinessID:  event.BusinessID,
		Name:        event.Name,
		Description: event.Description,
	}

	if err := product.Validate(); err != nil {
		return nil, err
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		product, err = h.repo.Products().CreateTx(ctx, tx, product)
		return err
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not create product")
	}

	return product, nil
}

type CreateProgramMessage struct {
	BusinessID uuid.UUID `json:"-"`
	ProductID  uuid.UUID `json:"product_id"`
	Price      int64     `json:"price"`
	Allowance  int       `json:"allowance"`
}

func (e CreateProgramMessage) Type() string { return "commerce.program.create" }

func (h *CommerceHandler) CreateProgram(ctx context.Context, event CreateProgramMessage) (*Program, error) {
	product, err := h.repo.Products().GetByID(ctx, event.ProductID.String())
	if err != nil {
		return nil, err
	}

	// a program always sells a product of the same business
	if product.BusinessID != event.BusinessID {
		return nil, ErrUnauthorized()
	}

	program := &Program{
		ID:         uuid.New(),
		BusinessID: event.BusinessID,
		ProductID:  event.ProductID,
		Price:      event.Price,
		Allowance:  event.Allowance,
	}

	if err := program.Validate(); err != nil {
		return nil, err
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		program, err = h.repo.Programs().CreateTx(ctx, tx, program)
		return err
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not create program")
	}

	return program, nil
}

type ChangeProgramMessage struct {
	BusinessID uuid.UUID `json:"-"`
	ProgramID  uuid.UUID `json:"-"`
	Price      *int64    `json:"price"`
	Allowance  *int      `json:"allowance"`
}

func (e ChangeProgramMessage) Type() string { return "commerce.program.change" }

// ChangeProgram applies a price or allowance change by closing the program
// and creating a successor; existing subscribers stay on the closed program
// at their original terms.
func (h *CommerceHandler) ChangeProgram(ctx context.Context, event ChangeProgramMessage) (*Program, error) {
	if event.Price == nil && event.Allowance == nil {
		return nil, goerrors.New("nothing to change", goerrors.CategoryBadInput)
	}

	current, err := h.repo.Programs().GetByID(ctx, event.ProgramID.String())
	if err != nil {
		return nil, err
	}

	if current.BusinessID != event.BusinessID {
		return nil, ErrUnauthorized()
	}

	if current.Closed {
		return nil, goerrors.New("program is closed", goerrors.CategoryConflict).
			WithTextCode("PROGRAM_CLOSED")
	}

	successor := current
	if event.Price != nil {
		successor = successor.WithChangedPrice(*event.Price)
	}
	if event.Allowance != nil {
		if successor == current {
			successor = successor.WithChangedAllowance(*event.Allowance)
		} else {
			successor.Allowance = *event.Allowance
		}
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		if successor, err = h.repo.Programs().CreateTx(ctx, tx, successor); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create successor program")
		}
		return h.repo.Programs().CloseTx(ctx, tx, current.ID, successor.ID)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "program change transaction failed")
	}

	return successor, nil
}

type SubscribeMessage struct {
	UserID    uuid.UUID `json:"-"`
	ProgramID uuid.UUID `json:"program_id"`
	AutoRenew bool      `json:"auto_renew"`
}

func (e SubscribeMessage) Type() string { return "commerce.subscription.create" }

func (h *CommerceHandler) Subscribe(ctx context.Context, event SubscribeMessage) (*Subscription, error) {
	program, err := h.repo.Programs().GetByID(ctx, event.ProgramID.String())
	if err != nil {
		return nil, err
	}

	if program.Closed {
		return nil, goerrors.New("program is closed to new subscribers", goerrors.CategoryConflict).
			WithTextCode("PROGRAM_CLOSED")
	}

	if _, err := h.repo.Subscriptions().GetForUserProgram(ctx, event.UserID, event.ProgramID); err == nil {
		return nil, ErrValueAlreadyExists("subscription")
	} else if !goerrors.IsNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check existing subscription")
	}

	subscription := &Subscription{
		ID:         uuid.New(),
		UserID:     event.UserID,
		BusinessID: program.BusinessID,
		ProgramID:  program.ID,
		AutoRenew:  event.AutoRenew,
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		subscription, err = h.repo.Subscriptions().CreateTx(ctx, tx, subscription)
		return err
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not create subscription")
	}

	return subscription, nil
}

type SetAutoRenewMessage struct {
	UserID         uuid.UUID `json:"-"`
	SubscriptionID uuid.UUID `json:"-"`
	AutoRenew      bool      `json:"auto_renew"`
}

func (e SetAutoRenewMessage) Type() string { return "commerce.subscription.auto_renew" }

func (h *CommerceHandler) SetAutoRenew(ctx context.Context, event SetAutoRenewMessage) (*Subscription, error) {
	subscription, err := h.loadOwnSubscription(ctx, event.UserID, event.SubscriptionID)
	if err != nil {
		return nil, err
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return h.repo.Subscriptions().SetAutoRenewTx(ctx, tx, subscription.ID, event.AutoRenew)
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not update subscription")
	}

	subscription.AutoRenew = event.AutoRenew
	return subscription, nil
}

type CancelSubscriptionMessage struct {
	UserID         uuid.UUID `json:"-"`
	SubscriptionID uuid.UUID `json:"-"`
}

func (e CancelSubscriptionMessage) Type() string { return "commerce.subscription.cancel" }

func (h *CommerceHandler) CancelSubscription(ctx context.Context, event CancelSubscriptionMessage) error {
	subscription, err := h.loadOwnSubscription(ctx, event.UserID, event.SubscriptionID)
	if err != nil {
		return err
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return h.repo.Subscriptions().CancelTx(ctx, tx, subscription.ID)
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not cancel subscription")
	}

	return nil
}

func (h *CommerceHandler) loadOwnSubscription(ctx context.Context, userID, subscriptionID uuid.UUID) (*Subscription, error) {
	subscription, err := h.repo.Subscriptions().GetByID(ctx, subscriptionID.String())
	if err != nil {
		return nil, err
	}

	if subscription.UserID != userID {
		return nil, ErrUnauthorized()
	}

	return subscription, nil
}
