package subscribeto

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SecurityHandler owns credential and contact mutations on an existing
// account: password changes, and the challenge driven email and phone
// swaps. Contact changes prove reachability of the new destination before
// committing, by sending the code there.
type SecurityHandler struct {
	repo      RepositoryManager
	codec     *ChallengeCodec
	messenger Messenger
	logger    Logger
}

func NewSecurityHandler(repo RepositoryManager, codec *ChallengeCodec, messenger Messenger) *SecurityHandler {
	return &SecurityHandler{
		repo:      repo,
		codec:     codec,
		messenger: messenger,
		logger:    defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *SecurityHandler) WithLogger(logger Logger) *SecurityHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

type ChangePasswordMessage struct {
	UserID          uuid.UUID `json:"-"`
	CurrentPassword string    `json:"current_password"`
	NewPassword     string    `json:"new_password"`
}

func (e ChangePasswordMessage) Type() string { return "auth.password.change" }

func (e ChangePasswordMessage) Validate() error {
	if err := goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&e,
			validation.Field(&e.CurrentPassword, validation.Required),
			validation.Field(&e.NewPassword, validation.Required, validation.Length(8, 128)),
		)
	}, "Invalid password change payload"); err != nil {
		return err
	}
	return nil
}

func (h *SecurityHandler) ChangePassword(ctx context.Context, event ChangePasswordMessage) error {
	if err := event.Validate(); err != nil {
		return err
	}

	user, err := h.verifyPassword(ctx, event.UserID, event.CurrentPassword)
	if err != nil {
		return err
	}

	salt, err := NewSalt()
	if err != nil {
		return err
	}
	pepper := CreatePepper(salt, event.NewPassword)

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return h.repo.Users().SetCredentialsTx(ctx, tx, user.ID, salt, pepper)
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update credentials")
	}

	return nil
}

type RequestEmailChangeMessage struct {
	UserID   uuid.UUID `json:"-"`
	Password string    `json:"password"`
	NewEmail string    `json:"new_email"`
}

func (e RequestEmailChangeMessage) Type() string { return "auth.email.change.request" }

func (e RequestEmailChangeMessage) Validate() error {
	if err := goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&e,
			validation.Field(&e.Password, validation.Required),
			validation.Field(&e.NewEmail, validation.Required, is.Email),
		)
	}, "Invalid email change payload"); err != nil {
		return err
	}
	return nil
}

// ChallengeResponse hands back the token for a pending contact change.
type ChallengeResponse struct {
	Token string `json:"token"`
}

func (h *SecurityHandler) RequestEmailChange(ctx context.Context, event RequestEmailChangeMessage) (*ChallengeResponse, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}

	if _, err := h.verifyPassword(ctx, event.UserID, event.Password); err != nil {
		return nil, err
	}

	taken, err := h.repo.Users().EmailTaken(ctx, event.NewEmail)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email availability")
	}
	if taken {
		return nil, ErrValueAlreadyExists("email")
	}

	challenge, token, err := h.codec.Issue(event.NewEmail, TokenEncodingHex)
	if err != nil {
		return nil, err
	}

	// code goes to the address being claimed, proving the user controls it
	if err := h.messenger.SendEmailCode(ctx, event.NewEmail, challenge.Code); err != nil {
		h.logger.Warn("email change code delivery failed", "user_id", event.UserID.String(), "error", err)
	}

	return &ChallengeResponse{Token: token}, nil
}

type FinalizeEmailChangeMessage struct {
	UserID uuid.UUID `json:"-"`
	Token  string    `json:"token"`
	Code   string    `json:"code"`
}

func (e FinalizeEmailChangeMessage) Type() string { return "auth.email.change.finalize" }

func (h *SecurityHandler) FinalizeEmailChange(ctx context.Context, event FinalizeEmailChangeMessage) error {
	challenge, err := h.codec.Open(event.Token, TokenEncodingHex)
	if err != nil {
		return err
	}

	if !codeMatches(challenge.Code, event.Code) {
		return ErrIncorrectCode()
	}

	newEmail := challenge.Data

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		taken, err := h.repo.Users().EmailTakenTx(ctx, tx, newEmail)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email availability")
		}
		if taken {
			return ErrValueAlreadyExists("email")
		}

		return h.repo.Users().SetEmailTx(ctx, tx, event.UserID, newEmail)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "email change transaction failed")
	}

	return nil
}

type RequestPhoneChangeMessage struct {
	UserID   uuid.UUID `json:"-"`
	Password string    `json:"password"`
	NewPhone string    `json:"new_phone"`
}

func (e RequestPhoneChangeMessage) Type() string { return "auth.phone.change.request" }

func (h *SecurityHandler) RequestPhoneChange(ctx context.Context, event RequestPhoneChangeMessage) (*ChallengeResponse, error) {
	if _, err := h.verifyPassword(ctx, event.UserID, event.Password); err != nil {
		return nil, err
	}

	phone, err := NormalizePhone(event.NewPhone)
	if err != nil {
		return nil, err
	}

	challenge, token, err := h.codec.Issue(phone, TokenEncodingHex)
	if err != nil {
		return nil, err
	}

	if err := h.messenger.SendSMSCode(ctx, phone, challenge.Code); err != nil {
		h.logger.Warn("phone change code delivery failed", "user_id", event.UserID.String(), "error", err)
	}

	return &ChallengeResponse{Token: token}, nil
}

type FinalizePhoneChangeMessage struct {
	UserID uuid.UUID `json:"-"`
	Token  string    `json:"token"`
	Code   string    `json:"code"`
}

func (e FinalizePhoneChangeMessage) Type() string { return "auth.phone.change.finalize" }

func (h *SecurityHandler) FinalizePhoneChange(ctx context.Context, event FinalizePhoneChangeMessage) error {
	challenge, err := h.codec.Open(event.Token, TokenEncodingHex)
	if err != nil {
		return err
	}

	if !codeMatches(challenge.Code, event.Code) {
		return ErrIncorrectCode()
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return h.repo.Users().SetPhoneTx(ctx, tx, event.UserID, challenge.Data)
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "phone change transaction failed")
	}

	return nil
}

func (h *SecurityHandler) verifyPassword(ctx context.Context, id uuid.UUID, password string) (*User, error) {
	user, err := h.repo.Users().GetByID(ctx, id.String())
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrUnauthorized()
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
	}

	if !PasswordIsCorrect(user.Salt, user.Pepper, password) {
		return nil, ErrPasswordIncorrect()
	}

	return user, nil
}
