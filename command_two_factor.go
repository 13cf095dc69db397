package subscribeto

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TwoFactorHandler owns second factor enrollment: enabling, proving, and
// disabling the TOTP and SMS factors. Every mutation re-checks the password
// so a hijacked session alone cannot change factors.
type TwoFactorHandler struct {
	repo      RepositoryManager
	codec     *ChallengeCodec
	messenger Messenger
	logger    Logger
	now       func() time.Time
}

func NewTwoFactorHandler(repo RepositoryManager, codec *ChallengeCodec, messenger Messenger) *TwoFactorHandler {
	return &TwoFactorHandler{
		repo:      repo,
		codec:     codec,
		messenger: messenger,
		logger:    defLogger{},
		now:       time.Now,
	}
}

// WithLogger overrides the logger used by the handler.
func (h *TwoFactorHandler) WithLogger(logger Logger) *TwoFactorHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithClock overrides the time source used for code verification.
func (h *TwoFactorHandler) WithClock(now func() time.Time) *TwoFactorHandler {
	if now != nil {
		h.now = now
	}
	return h
}

type EnableTOTPMessage struct {
	UserID   uuid.UUID `json:"-"`
	Password string    `json:"password"`
}

func (e EnableTOTPMessage) Type() string { return "auth.totp.enable" }

// EnableTOTPResponse carries the fresh secret for authenticator
// provisioning. The factor stays off until the user proves possession with
// FinalizeTOTP.
type EnableTOTPResponse struct {
	Secret string `json:"secret"`
}

func (h *TwoFactorHandler) EnableTOTP(ctx context.Context, event EnableTOTPMessage) (*EnableTOTPResponse, error) {
	user, err := h.verifyPassword(ctx, event.UserID, event.Password)
	if err != nil {
		return nil, err
	}

	secret, err := GenerateTOTPSecret()
	if err != nil {
		return nil, err
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return h.repo.Users().SetTOTPTx(ctx, tx, user.ID, secret, false)
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store totp secret")
	}

	return &EnableTOTPResponse{Secret: secret}, nil
}

type FinalizeTOTPMessage struct {
	UserID uuid.UUID `json:"-"`
	Code   string    `json:"code"`
}

func (e FinalizeTOTPMessage) Type() string { return "auth.totp.finalize" }

func (h *TwoFactorHandler) FinalizeTOTP(ctx context.Context, event FinalizeTOTPMessage) error {
	user, err := h.loadUser(ctx, event.UserID)
	if err != nil {
		return err
	}

	if user.TOTPSecret == "" {
		return ErrIncorrectCode()
	}

	if !VerifyTOTPCode(user.TOTPSecret, event.Code, h.now()) {
		return ErrIncorrectCode()
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return h.repo.Users().SetTOTPTx(ctx, tx, user.ID, user.TOTPSecret, true)
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to enable totp")
	}

	return nil
}

type DisableTOTPMessage struct {
	UserID   uuid.UUID `json:"-"`
	Password string    `json:"password"`
}

func (e DisableTOTPMessage) Type() string { return "auth.totp.disable" }

func (h *TwoFactorHandler) DisableTOTP(ctx context.Context, event DisableTOTPMessage) error {
	user, err := h.verifyPassword(ctx, event.UserID, event.Password)
	if err != nil {
		return err
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return h.repo.Users().SetTOTPTx(ctx, tx, user.ID, "", false)
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to disable totp")
	}

	return nil
}

type EnableSMSMessage struct {
	UserID   uuid.UUID `json:"-"`
	Password string    `json:"password"`
	Phone    string    `json:"phone"`
}

func (e EnableSMSMessage) Type() string { return "auth.sms.enable" }

// EnableSMSResponse carries the challenge token the client echoes back to
// FinalizeSMS together with the code delivered to the phone.
type EnableSMSResponse struct {
	Token string `json:"token"`
}

func (h *TwoFactorHandler) EnableSMS(ctx context.Context, event EnableSMSMessage) (*EnableSMSResponse, error) {
	user, err := h.verifyPassword(ctx, event.UserID, event.Password)
	if err != nil {
		return nil, err
	}

	phone, err := NormalizePhone(event.Phone)
	if err != nil {
		return nil, err
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return h.repo.Users().SetPhoneTx(ctx, tx, user.ID, phone)
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store phone number")
	}

	challenge, token, err := h.codec.Issue(user.ID.String(), TokenEncodingHex)
	if err != nil {
		return nil, err
	}

	if err := h.messenger.SendSMSCode(ctx, phone, challenge.Code); err != nil {
		h.logger.Warn("sms enrollment code delivery failed", "user_id", user.ID.String(), "error", err)
	}

	return &EnableSMSResponse{Token: token}, nil
}

type FinalizeSMSMessage struct {
	UserID uuid.UUID `json:"-"`
	Token  string    `json:"token"`
	Code   string    `json:"code"`
}

func (e FinalizeSMSMessage) Type() string { return "auth.sms.finalize" }

func (h *TwoFactorHandler) FinalizeSMS(ctx context.Context, event FinalizeSMSMessage) error {
	challenge, err := h.codec.Open(event.Token, TokenEncodingHex)
	if err != nil {
		return err
	}

	if !codeMatches(challenge.Code, event.Code) {
		return ErrIncorrectCode()
	}

	// a token minted for another account must not enroll this one
	if challenge.Data != event.UserID.String() {
		return ErrInvalidToken()
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return h.repo.Users().SetSMSTx(ctx, tx, event.UserID, true)
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to enable sms factor")
	}

	return nil
}

type DisableSMSMessage struct {
	UserID   uuid.UUID `json:"-"`
	Password string    `json:"password"`
}

func (e DisableSMSMessage) Type() string { return "auth.sms.disable" }

func (h *TwoFactorHandler) DisableSMS(ctx context.Context, event DisableSMSMessage) error {
	user, err := h.verifyPassword(ctx, event.UserID, event.Password)
	if err != nil {
		return err
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return h.repo.Users().SetSMSTx(ctx, tx, user.ID, false)
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to disable sms factor")
	}

	return nil
}

func (h *TwoFactorHandler) loadUser(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := h.repo.Users().GetByID(ctx, id.String())
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrUnauthorized()
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
	}
	return user, nil
}

func (h *TwoFactorHandler) verifyPassword(ctx context.Context, id uuid.UUID, password string) (*User, error) {
	user, err := h.loadUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if !PasswordIsCorrect(user.Salt, user.Pepper, password) {
		return nil, ErrPasswordIncorrect()
	}

	return user, nil
}
