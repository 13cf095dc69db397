package subscribeto

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SessionHandler owns mutations on live sessions: business context switches
// and revocation. Revocation only ever flips the dead flag.
type SessionHandler struct {
	repo   RepositoryManager
	logger Logger
}

func NewSessionHandler(repo RepositoryManager) *SessionHandler {
	return &SessionHandler{
		repo:   repo,
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *SessionHandler) WithLogger(logger Logger) *SessionHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

type SetSessionBusinessMessage struct {
	SessionID  uuid.UUID  `json:"-"`
	UserID     uuid.UUID  `json:"-"`
	BusinessID *uuid.UUID `json:"business_id"`
}

func (e SetSessionBusinessMessage) Type() string { return "session.business.set" }

// SetBusiness switches the session's active business context. Entering a
// business requires ownership; a nil business id clears the context.
func (h *SessionHandler) SetBusiness(ctx context.Context, event SetSessionBusinessMessage) error {
	if event.BusinessID != nil {
		owner, err := h.repo.BusinessOwners().IsOwner(ctx, event.UserID, *event.BusinessID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check business ownership")
		}
		if !owner {
			return ErrUnauthorized()
		}
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return h.repo.Sessions().SetBusinessTx(ctx, tx, event.SessionID, event.BusinessID)
	})

	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrUnauthorized()
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to switch business context")
	}

	return nil
}

type SignOutMessage struct {
	SessionID uuid.UUID `json:"-"`
}

func (e SignOutMessage) Type() string { return "session.sign_out" }

// SignOut marks the session dead. The row stays behind; a dead session
// fails every later authorization check exactly like a missing one.
func (h *SessionHandler) SignOut(ctx context.Context, event SignOutMessage) error {
	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return h.repo.Sessions().KillTx(ctx, tx, event.SessionID)
	})

	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrUnauthorized()
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign out")
	}

	return nil
}

type SignOutAllMessage struct {
	UserID uuid.UUID `json:"-"`
}

func (e SignOutAllMessage) Type() string { return "session.sign_out_all" }

// SignOutAll kills every live session belonging to the user, including the
// one making the request.
func (h *SessionHandler) SignOutAll(ctx context.Context, event SignOutAllMessage) (int64, error) {
	var killed int64

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		killed, err = h.repo.Sessions().KillAllForUserTx(ctx, tx, event.UserID)
		return err
	})

	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign out everywhere")
	}

	return killed, nil
}
