package subscribeto

import (
	"strconv"

	"github.com/goliatone/go-router"
)

// CommerceController exposes the storefront CRUD surface. Reads are public;
// writes require the user tier, and business scoped writes additionally
// require an active business context matching the target record.
type CommerceController struct {
	repo      RepositoryManager
	commerce  *CommerceHandler
	validator *SessionValidator
	logger    Logger
}

func NewCommerceController(repo RepositoryManager, commerce *CommerceHandler, validator *SessionValidator) *CommerceController {
	return &CommerceController{
		repo:      repo,
		commerce:  commerce,
		validator: validator,
		logger:    defLogger{},
	}
}

// WithLogger overrides the logger used by the controller.
func (c *CommerceController) WithLogger(logger Logger) *CommerceController {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// RegisterRoutes registers the commerce routes.
func (c *CommerceController) RegisterRoutes(group RouteRegistrar) {
	user := RequireTiers(c.validator, TierUser)
	business := RequireTiers(c.validator, TierBusiness)

	group.Get("/businesses", c.ListBusinesses)
	group.Get("/businesses/:id", c.GetBusiness)
	group.Post("/businesses", c.CreateBusiness, user)
	group.Put("/businesses/:id", c.UpdateBusiness, business)
	group.Get("/businesses/:id/products", c.ListProducts)
	group.Get("/businesses/:id/programs", c.ListPrograms)

	group.Post("/products", c.CreateProduct, business)
	group.Get("/products/:id", c.GetProduct)

	group.Post("/programs", c.CreateProgram, business)
	group.Get("/programs/:id", c.GetProgram)
	group.Post("/programs/:id/change", c.ChangeProgram, business)
	group.Get("/programs/:id/subscribers", c.CountSubscribers, business)

	group.Post("/subscriptions", c.Subscribe, user)
	group.Get("/subscriptions", c.ListSubscriptions, user)
	group.Put("/subscriptions/:id/auto-renew", c.SetAutoRenew, user)
	group.Delete("/subscriptions/:id", c.CancelSubscription, user)
}

func (c *CommerceController) ListBusinesses(ctx router.Context) error {
	limit, _ := strconv.Atoi(ctx.Query("limit", ""))
	offset, _ := strconv.Atoi(ctx.Query("offset", ""))

	records, err := c.repo.Businesses().ListPage(ctx.Context(), limit, offset)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"businesses": records})
}

func (c *CommerceController) GetBusiness(ctx router.Context) error {
	id, err := parseUUIDParam(ctx, "id")
	if err != nil {
		return respondError(ctx, err)
	}

	record, err := c.repo.Businesses().GetByID(ctx.Context(), id.String())
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"business": record})
}

func (c *CommerceController) CreateBusiness(ctx router.Context) error {
	userID, _, err := requireSessionUser(ctx)
	if err != nil {
		return respondError(ctx, err)
	}

	payload := CreateBusinessMessage{}
	if err := ctx.Bind(&payload); err != nil {
		return respondError(ctx, err)
	}
	payload.OwnerID = userID

	record, err := c.commerce.CreateBusiness(ctx.Context(), payload)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, map[string]any{"business": record})
}

func (c *CommerceController) UpdateBusiness(ctx router.Context) error {
	_, businessID, err := requireSessionBusiness(ctx)
	if err != nil {
		return respondError(ctx, err)
	}

	id, err := parseUUIDParam(ctx, "id")
	if err != nil {
		return respondError(ctx, err)
	}

	// the session's business context is the only business it may edit
	if id != businessID {
		return respondError(ctx, ErrUnauthorized())
	}

	payload := UpdateBusinessMessage{}
	if err := ctx.Bind(&payload); err != nil {
		return respondError(ctx, err)
	}
	payload.BusinessID = id

	record, err := c.commerce.UpdateBusiness(ctx.Context(), payload)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"business": record})
}

func (c *CommerceController) ListProducts(ctx router.Context) error {
	id, err := parseUUIDParam(ctx, "id")
	if err != nil {
		return respondError(ctx, err)
	}

	records, err := c.repo.Products().ListForBusiness(ctx.Context(), id)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"products": records})
}

func (c *CommerceController) GetProduct(ctx router.Context) error {
	id, err := parseUUIDParam(ctx, "id")
	if err != nil {
		return respondError(ctx, err)
	}

	record, err := c.repo.Products().GetByID(ctx.Context(), id.String())
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"product": record})
}

func (c *CommerceController) CreateProduct(ctx router.Context) error {
	_, businessID, err := requireSessionBusiness(ctx)
	if err != nil {
		return respondError(ctx, err)
	}

	payload := CreateProductMessage{}
	if err := ctx.Bind(&payload); err != nil {
		return respondError(ctx, err)
	}
	payload.BusinessID = businessID

	record, err := c.commerce.CreateProduct(ctx.Context(), payload)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, map[string]any{"product": record})
}

func (c *CommerceController) ListPrograms(ctx router.Context) error {
	id, err := parseUUIDParam(ctx, "id")
	if err != nil {
		return respondError(ctx, err)
	}

	records, err := c.repo.Programs().ListForBusiness(ctx.Context(), id)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"programs": records})
}

func (c *CommerceController) GetProgram(ctx router.Context) error {
	id, err := parseUUIDParam(ctx, "id")
	if err != nil {
		return respondError(ctx, err)
	}

	record, err := c.repo.Programs().GetByID(ctx.Context(), id.String())
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"program": record})
}

func (c *CommerceController) CreateProgram(ctx router.Context) error {
	_, businessID, err := requireSessionBusiness(ctx)
	if err != nil {
		return respondError(ctx, err)
	}

	payload := CreateProgramMessage{}
	if err := ctx.Bind(&payload); err != nil {
		return respondError(ctx, err)
	}
	payload.BusinessID = businessID

	record, err := c.commerce.CreateProgram(ctx.Context(), payload)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, map[string]any{"program": record})
}

func (c *CommerceController) ChangeProgram(ctx router.Context) error {
	_, businessID, err := requireSessionBusiness(ctx)
	if err != nil {
		return respondError(ctx, err)
	}

	id, err := parseUUIDParam(ctx, "id")
	if err != nil {
		return respondError(ctx, err)
	}

	payload := ChangeProgramMessage{}
	if err := ctx.Bind(&payload); err != nil {
		return respondError(ctx, err)
	}
	payload.BusinessID = businessID
	payload.ProgramID = id

	successor, err := c.commerce.ChangeProgram(ctx.Context(), payload)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, map[string]any{"program": successor})
}

func (c *CommerceController) CountSubscribers(ctx router.Context) error {
	_, businessID, err := requireSessionBusiness(ctx)
	if err != nil {
		return respondError(ctx, err)
	}

	id, err := parseUUIDParam(ctx, "id")
	if err != nil {
		return respondError(ctx, err)
	}

	program, err := c.repo.Programs().GetByID(ctx.Context(), id.String())
	if err != nil {
		return respondError(ctx, err)
	}

	if program.BusinessID != businessID {
		return respondError(ctx, ErrUnauthorized())
	}

	count, err := c.repo.Subscriptions().CountForProgram(ctx.Context(), id)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"subscribers": count})
}

func (c *CommerceController) Subscribe(ctx router.Context) error {
	userID, _, err := requireSessionUser(ctx)
	if err != nil {
		return respondError(ctx, err)
	}

	payload := SubscribeMessage{}
	if err := ctx.Bind(&payload); err != nil {
		return respondError(ctx, err)
	}
	payload.UserID = userID

	record, err := c.commerce.Subscribe(ctx.Context(), payload)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, map[string]any{"subscription": record})
}

func (c *CommerceController) ListSubscriptions(ctx router.Context) error {
	userID, _, err := requireSessionUser(ctx)
	if err != nil {
		return respondError(ctx, err)
	}

	records, err := c.repo.Subscriptions().ListForUser(ctx.Context(), userID)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"subscriptions": records})
}

func (c *CommerceController) SetAutoRenew(ctx router.Context) error {
	userID, _, err := requireSessionUser(ctx)
	if err != nil {
		return respondError(ctx, err)
	}

	id, err := parseUUIDParam(ctx, "id")
	if err != nil {
		return respondError(ctx, err)
	}

	payload := SetAutoRenewMessage{}
	if err := ctx.Bind(&payload); err != nil {
		return respondError(ctx, err)
	}
	payload.UserID = userID
	payload.SubscriptionID = id

	record, err := c.commerce.SetAutoRenew(ctx.Context(), payload)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"subscription": record})
}

func (c *CommerceController) CancelSubscription(ctx router.Context) error {
	userID, _, err := requireSessionUser(ctx)
	if err != nil {
		return respondError(ctx, err)
	}

	id, err := parseUUIDParam(ctx, "id")
	if err != nil {
		return respondError(ctx, err)
	}

	err = c.commerce.CancelSubscription(ctx.Context(), CancelSubscriptionMessage{
		UserID:         userID,
		SubscriptionID: id,
	})
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"status": "cancelled"})
}
