package subscribeto

import (
	"github.com/goliatone/go-router"
)

// RouteRegistrar captures the router methods used by the controllers.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Put(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// AuthController exposes the sign up and sign in flows. Every route is
// public; the flows authenticate through challenge tokens, not sessions.
type AuthController struct {
	requestSignUp  *RequestSignUpHandler
	finalizeSignUp *FinalizeSignUpHandler
	signIn         *SignInHandler
	signInTOTP     *SignInTOTPHandler
	signInSMS      *SignInSMSHandler
	logger         Logger
}

func NewAuthController(
	requestSignUp *RequestSignUpHandler,
	finalizeSignUp *FinalizeSignUpHandler,
	signIn *SignInHandler,
	signInTOTP *SignInTOTPHandler,
	signInSMS *SignInSMSHandler,
) *AuthController {
	return &AuthController{
		requestSignUp:  requestSignUp,
		finalizeSignUp: finalizeSignUp,
		signIn:         signIn,
		signInTOTP:     signInTOTP,
		signInSMS:      signInSMS,
		logger:         defLogger{},
	}
}

// WithLogger overrides the logger used by the controller.
func (c *AuthController) WithLogger(logger Logger) *AuthController {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// RegisterRoutes registers the auth routes.
func (c *AuthController) RegisterRoutes(group RouteRegistrar) {
	group.Post("/sign-up", c.RequestSignUp)
	group.Post("/sign-up/finalize", c.FinalizeSignUp)
	group.Post("/sign-in", c.SignIn)
	group.Post("/sign-in/totp", c.SignInTOTP)
	group.Post("/sign-in/sms", c.SignInSMS)
}

func (c *AuthController) RequestSignUp(ctx router.Context) error {
	payload := RequestSignUpMessage{}
	if err := ctx.Bind(&payload); err != nil {
		return respondError(ctx, err)
	}

	res, err := c.requestSignUp.Execute(ctx.Context(), payload)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"type":  "sign-up",
		"token": res.Token,
	})
}

func (c *AuthController) FinalizeSignUp(ctx router.Context) error {
	payload := FinalizeSignUpMessage{}
	if err := ctx.Bind(&payload); err != nil {
		return respondError(ctx, err)
	}

	session, err := c.finalizeSignUp.Execute(ctx.Context(), payload)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, map[string]any{
		"type":    "session",
		"session": session,
	})
}

func (c *AuthController) SignIn(ctx router.Context) error {
	payload := SignInMessage{}
	if err := ctx.Bind(&payload); err != nil {
		return respondError(ctx, err)
	}

	result, err := c.signIn.Execute(ctx.Context(), payload)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, result)
}

func (c *AuthController) SignInTOTP(ctx router.Context) error {
	payload := SignInTOTPMessage{}
	if err := ctx.Bind(&payload); err != nil {
		return respondError(ctx, err)
	}

	session, err := c.signInTOTP.Execute(ctx.Context(), payload)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"type":    "session",
		"session": session,
	})
}

func (c *AuthController) SignInSMS(ctx router.Context) error {
	payload := SignInSMSMessage{}
	if err := ctx.Bind(&payload); err != nil {
		return respondError(ctx, err)
	}

	session, err := c.signInSMS.Execute(ctx.Context(), payload)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"type":    "session",
		"session": session,
	})
}
