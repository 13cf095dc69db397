package subscribeto

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// respondError translates a domain error into the JSON error envelope. The
// category picks the status; the text code is the only machine readable
// discriminator clients get.
func respondError(ctx router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		if goerrors.IsNotFound(err) {
			return ctx.JSON(router.StatusNotFound, map[string]any{
				"error": map[string]any{"message": "not found"},
			})
		}
		return ctx.JSON(router.StatusInternalServerError, map[string]any{
			"error": map[string]any{"message": "internal error"},
		})
	}

	status := statusForCategory(richErr.Category)

	body := map[string]any{
		"message": richErr.Message,
	}
	if richErr.TextCode != "" {
		body["code"] = richErr.TextCode
	}
	if fields := richErr.ValidationMap(); len(fields) > 0 {
		body["fields"] = fields
	}

	return ctx.JSON(status, map[string]any{"error": body})
}

func statusForCategory(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryAuth:
		return router.StatusUnauthorized
	case goerrors.CategoryNotFound:
		return router.StatusNotFound
	case goerrors.CategoryConflict:
		return router.StatusConflict
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return router.StatusBadRequest
	default:
		return router.StatusInternalServerError
	}
}

// requireSessionUser pulls the authenticated user id out of the request,
// for handlers that run behind a user tier guard.
func requireSessionUser(ctx router.Context) (uuid.UUID, *Session, error) {
	session := SessionFromContext(ctx)
	if !session.Alive() || session.UserID == nil {
		return uuid.Nil, nil, ErrUnauthorized()
	}
	return *session.UserID, session, nil
}

// requireSessionBusiness additionally demands an active business context.
func requireSessionBusiness(ctx router.Context) (uuid.UUID, uuid.UUID, error) {
	userID, session, err := requireSessionUser(ctx)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	if session.BusinessID == nil {
		return uuid.Nil, uuid.Nil, ErrUnauthorized()
	}
	return userID, *session.BusinessID, nil
}

func parseUUIDParam(ctx router.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Param(name))
	if err != nil {
		return uuid.Nil, goerrors.New("invalid identifier", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"param": name})
	}
	return id, nil
}
