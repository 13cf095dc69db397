package subscribeto

import (
	"github.com/goliatone/go-router"
)

// AccountController exposes the authenticated account surface: profile,
// credential changes, and second factor enrollment. All routes sit behind
// the user tier guard.
type AccountController struct {
	repo      RepositoryManager
	security  *SecurityHandler
	twoFactor *TwoFactorHandler
	validator *SessionValidator
	logger    Logger
}

func NewAccountController(
	repo RepositoryManager,
	security *SecurityHandler,
	twoFactor *TwoFactorHandler,
	validator *SessionValidator,
) *AccountController {
	return &AccountController{
		repo:      repo,
		security:  security,
		twoFactor: twoFactor,
		validator: validator,
		logger:    defLogger{},
	}
}

// WithLogger overrides the logger used by the controller.
func (c *AccountController) WithLogger(logger Logger) *AccountController {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// RegisterRoutes registers the account routes behind the user guard.
func (c *AccountController) RegisterRoutes(group RouteRegistrar) {
	guard := RequireTiers(c.validator, TierUser)

	group.Get("/me", c.Me, guard)
	group.Post("/password", c.ChangePassword, guard)
	group.Post("/email", c.RequestEmailChange, guard)
	group.Post("/email/finalize", c.FinalizeEmailChange, guard)
	group.Post("/phone", c.RequestPhoneChange, guard)
	group.Post("/phone/finalize", c.FinalizePhoneChange, guard)
	group.Post("/totp", c.EnableTOTP, guard)
	group.Post("/totp/finalize", c.FinalizeTOTP, guard)
	group.Post("/totp/disable", c.DisableTOTP, guard)
	group.Post("/sms", c.EnableSMS, guard)
	group.Post("/sms/finalize", c.FinalizeSMS, guard)
	group.Post("/sms/disable", c.DisableSMS, guard)
}

func (c *AccountController) Me(ctx router.Context) error {
	userID, _, err := requireSessionUser(ctx)
	if err != nil {
		return respondError(ctx, err)
	}

	user, err := c.repo.Users().GetByID(ctx.Context(), userID.String())
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"user": user})
}

func (c *AccountController) ChangePassword(ctx router.Context) error {
	userID, _, err := requireSessionUser(ctx)
	if err != nil {
		return respondError(ctx, err)
	}

	payload := ChangePasswordMessage{}
	if err := ctx.Bind(&payload); err != nil {
		return respondError(ctx, err)
	}
	payload.UserID = userID

	if err := c.security.ChangePassword(ctx.Context(), payload); err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"status": "changed"})
}

func (c *AccountController) RequestEmailChange(ctx router.Context) error {
	userID, _, err := requireSessionUser(ctx)
	if err != nil {
		return respondError(ctx, err)
	}

	payload := RequestEmailChangeMessage{}
	if err := ctx.Bind(&payload); err != nil {
		return respondError(ctx, err)
	}
	payload.UserID = userID

	res, err := c.security.RequestEmailChange(ctx.Context(), payload)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, res)
}

func (c *AccountController) FinalizeEmailChange(ctx router.Context) error {
	userID, _, err := requireSessionUser(ctx)
	if err != nil {
		return respondError(ctx, err)
	}

	payload := FinalizeEmailChangeMessage{}
	if err := ctx.Bind(&payload); err != nil {
		return respondError(ctx, err)
	}
	payload.UserID = userID

	if err := c.security.FinalizeEmailChange(ctx.Context(), payload); err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"status": "changed"})
}

func (c *AccountController) RequestPhoneChange(ctx router.Context) error {
	userID, _, err := requireSessionUser(ctx)
	if err != nil {
		return respondError(ctx, err)
	}

	payload := RequestPhoneChangeMessage{}
	if err := ctx.Bind(&payload); err != nil {
		return respondError(ctx, err)
	}
	payload.UserID = userID

	res, err := c.security.RequestPhoneChange(ctx.Context(), payload)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, res)
}

func (c *AccountController) FinalizePhoneChange(ctx router.Context) error {
	userID, _, err := requireSessionUser(ctx)
	if err != nil {
		return respondError(ctx, err)
	}

	payload := FinalizePhoneChangeMessage{}
	if err := ctx.Bind(&payload); err != nil {
		return respondError(ctx, err)
	}
	payload.UserID = userID

	if err := c.security.FinalizePhoneChange(ctx.Context(), payload); err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"status": "changed"})
}

func (c *AccountController) EnableTOTP(ctx router.Context) error {
	userID, _, err := requireSessionUser(ctx)
	if err != nil {
		return respondError(ctx, err)
	}

	payload := EnableTOTPMessage{}
	if err := ctx.Bind(&payload); err != nil {
		return respondError(ctx, err)
	}
	payload.UserID = userID

	res, err := c.twoFactor.EnableTOTP(ctx.Context(), payload)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, res)
}

func (c *AccountController) FinalizeTOTP(ctx router.Context) error {
	userID, _, err := requireSessionUser(ctx)
	if err != nil {
		return respondError(ctx, err)
	}

	payload := FinalizeTOTPMessage{}
	if err := ctx.Bind(&payload); err != nil {
		return respondError(ctx, err)
	}
	payload.UserID = userID

	if err := c.twoFactor.FinalizeTOTP(ctx.Context(), payload); err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"status": "enabled"})
}

func (c *AccountController) DisableTOTP(ctx router.Context) error {
	userID, _, err := requireSessionUser(ctx)
	if err != nil {
		return respondError(ctx, err)
	}

	payload := DisableTOTPMessage{}
	if err := ctx.Bind(&payload); err != nil {
		return respondError(ctx, err)
	}
	payload.UserID = userID

	if err := c.twoFactor.DisableTOTP(ctx.Context(), payload); err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"status": "disabled"})
}

func (c *AccountController) EnableSMS(ctx router.Context) error {
	userID, _, err := requireSessionUser(ctx)
	if err != nil {
		return respondError(ctx, err)
	}

	payload := EnableSMSMessage{}
	if err := ctx.Bind(&payload); err != nil {
		return respondError(ctx, err)
	}
	payload.UserID = userID

	res, err := c.twoFactor.EnableSMS(ctx.Context(), payload)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, res)
}

func (c *AccountController) FinalizeSMS(ctx router.Context) error {
	userID, _, err := requireSessionUser(ctx)
	if err != nil {
		return respondError(ctx, err)
	}

	payload := FinalizeSMSMessage{}
	if err := ctx.Bind(&payload); err != nil {
		return respondError(ctx, err)
	}
	payload.UserID = userID

	if err := c.twoFactor.FinalizeSMS(ctx.Context(), payload); err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"status": "enabled"})
}

func (c *AccountController) DisableSMS(ctx router.Context) error {
	userID, _, err := requireSessionUser(ctx)
	if err != nil {
		return respondError(ctx, err)
	}

	payload := DisableSMSMessage{}
	if err := ctx.Bind(&payload); err != nil {
		return respondError(ctx, err)
	}
	payload.UserID = userID

	if err := c.twoFactor.DisableSMS(ctx.Context(), payload); err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"status": "disabled"})
}
