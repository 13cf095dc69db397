package subscribeto

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// SessionContextKey is the router locals key the loaded session lives under.
const SessionContextKey = "session"

// SessionLoader resolves the bearer session id into a session record and
// stores it in the request locals. Absent, malformed, or unknown ids leave
// the locals empty; the tier guard decides whether that matters.
func SessionLoader(repo RepositoryManager, logger Logger) router.MiddlewareFunc {
	if logger == nil {
		logger = defLogger{}
	}

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			token, ok := bearerToken(ctx.GetString(router.HeaderAuthorization, ""))
			if !ok {
				return next(ctx)
			}

			id, err := uuid.Parse(token)
			if err != nil {
				return next(ctx)
			}

			session, err := repo.Sessions().GetByID(ctx.Context(), id.String())
			if err != nil {
				if !goerrors.IsNotFound(err) {
					logger.Error("session lookup failed", "error", err)
				}
				return next(ctx)
			}

			ctx.Locals(SessionContextKey, session)
			return next(ctx)
		}
	}
}

// RequireTiers denies the request unless the loaded session satisfies every
// required tier.
func RequireTiers(validator *SessionValidator, tiers ...SessionTier) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			session := SessionFromContext(ctx)
			if err := validator.Validate(ctx.Context(), session, tiers...); err != nil {
				return respondError(ctx, err)
			}
			return next(ctx)
		}
	}
}

// SessionFromContext returns the session loaded by SessionLoader, or nil.
func SessionFromContext(ctx router.Context) *Session {
	raw := ctx.Locals(SessionContextKey)
	if raw == nil {
		return nil
	}

	session, ok := raw.(*Session)
	if !ok {
		return nil
	}
	return session
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
