package subscribeto

import (
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// SessionController exposes the current session: inspection, business
// context switching, and sign out.
type SessionController struct {
	sessions  *SessionHandler
	validator *SessionValidator
	logger    Logger
}

func NewSessionController(sessions *SessionHandler, validator *SessionValidator) *SessionController {
	return &SessionController{
		sessions:  sessions,
		validator: validator,
		logger:    defLogger{},
	}
}

// WithLogger overrides the logger used by the controller.
func (c *SessionController) WithLogger(logger Logger) *SessionController {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// RegisterRoutes registers the session routes behind the user guard.
func (c *SessionController) RegisterRoutes(group RouteRegistrar) {
	guard := RequireTiers(c.validator, TierUser)

	group.Get("/session", c.Get, guard)
	group.Put("/session/business", c.SetBusiness, guard)
	group.Post("/session/sign-out", c.SignOut, guard)
	group.Post("/session/sign-out-all", c.SignOutAll, guard)
}

func (c *SessionController) Get(ctx router.Context) error {
	_, session, err := requireSessionUser(ctx)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"session": session})
}

type setBusinessPayload struct {
	BusinessID *uuid.UUID `json:"business_id"`
}

func (c *SessionController) SetBusiness(ctx router.Context) error {
	userID, session, err := requireSessionUser(ctx)
	if err != nil {
		return respondError(ctx, err)
	}

	payload := setBusinessPayload{}
	if err := ctx.Bind(&payload); err != nil {
		return respondError(ctx, err)
	}

	err = c.sessions.SetBusiness(ctx.Context(), SetSessionBusinessMessage{
		SessionID:  session.ID,
		UserID:     userID,
		BusinessID: payload.BusinessID,
	})
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"status": "updated"})
}

func (c *SessionController) SignOut(ctx router.Context) error {
	_, session, err := requireSessionUser(ctx)
	if err != nil {
		return respondError(ctx, err)
	}

	if err := c.sessions.SignOut(ctx.Context(), SignOutMessage{SessionID: session.ID}); err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"status": "signed-out"})
}

func (c *SessionController) SignOutAll(ctx router.Context) error {
	userID, _, err := requireSessionUser(ctx)
	if err != nil {
		return respondError(ctx, err)
	}

	killed, err := c.sessions.SignOutAll(ctx.Context(), SignOutAllMessage{UserID: userID})
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"status": "signed-out",
		"killed": killed,
	})
}
