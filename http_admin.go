package subscribeto

import (
	"strconv"

	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// AdminController exposes the administrative surface. Every route requires
// the admin tier; the allow list is consulted per request so a revoked
// admin loses access immediately.
type AdminController struct {
	repo      RepositoryManager
	sessions  *SessionHandler
	validator *SessionValidator
	logger    Logger
}

func NewAdminController(repo RepositoryManager, sessions *SessionHandler, validator *SessionValidator) *AdminController {
	return &AdminController{
		repo:      repo,
		sessions:  sessions,
		validator: validator,
		logger:    defLogger{},
	}
}

// WithLogger overrides the logger used by the controller.
func (c *AdminController) WithLogger(logger Logger) *AdminController {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// RegisterRoutes registers the admin routes behind the admin guard.
func (c *AdminController) RegisterRoutes(group RouteRegistrar) {
	guard := RequireTiers(c.validator, TierAdmin)

	group.Get("/users", c.ListUsers, guard)
	group.Post("/admins", c.GrantAdmin, guard)
	group.Delete("/admins/:userId", c.RevokeAdmin, guard)
	group.Post("/sessions/:id/kill", c.KillSession, guard)
}

func (c *AdminController) ListUsers(ctx router.Context) error {
	limit, _ := strconv.Atoi(ctx.Query("limit", ""))
	offset, _ := strconv.Atoi(ctx.Query("offset", ""))

	records, err := c.repo.Users().ListPage(ctx.Context(), limit, offset)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"users": records})
}

type grantAdminPayload struct {
	UserID uuid.UUID `json:"user_id"`
}

func (c *AdminController) GrantAdmin(ctx router.Context) error {
	payload := grantAdminPayload{}
	if err := ctx.Bind(&payload); err != nil {
		return respondError(ctx, err)
	}

	if _, err := c.repo.Users().GetByID(ctx.Context(), payload.UserID.String()); err != nil {
		return respondError(ctx, err)
	}

	if err := c.repo.Admins().Grant(ctx.Context(), payload.UserID); err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, map[string]any{"status": "granted"})
}

func (c *AdminController) RevokeAdmin(ctx router.Context) error {
	id, err := parseUUIDParam(ctx, "userId")
	if err != nil {
		return respondError(ctx, err)
	}

	if err := c.repo.Admins().Revoke(ctx.Context(), id); err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"status": "revoked"})
}

func (c *AdminController) KillSession(ctx router.Context) error {
	id, err := parseUUIDParam(ctx, "id")
	if err != nil {
		return respondError(ctx, err)
	}

	if err := c.sessions.SignOut(ctx.Context(), SignOutMessage{SessionID: id}); err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"status": "killed"})
}
