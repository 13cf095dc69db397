package subscribeto

import (
	"context"
	"encoding/json"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// signUpPayload travels inside the sign up challenge token. The credential
// material is derived at request time so finalize never sees the password.
type signUpPayload struct {
	Email  string `json:"email"`
	Salt   []byte `json:"salt"`
	Pepper []byte `json:"pepper"`
}

type RequestSignUpMessage struct {
	Email    string `json:"email" example:"jane@example.com" doc:"Account email address"`
	Password string `json:"password" example:"some_secret_word" doc:"Password"`
}

func (e RequestSignUpMessage) Type() string { return "auth.sign_up.request" }

func (e RequestSignUpMessage) Validate() error {
	// ValidateWithOzzo returns a typed pointer; returning it straight
	// through would make a nil result non nil as an error interface.
	if err := goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&e,
			validation.Field(&e.Email, validation.Required, is.Email),
			validation.Field(&e.Password, validation.Required, validation.Length(8, 128)),
		)
	}, "Invalid sign up request payload"); err != nil {
		return err
	}
	return nil
}

// RequestSignUpResponse hands the client the sealed token it must echo back
// to finalize. The code travels out of band only.
type RequestSignUpResponse struct {
	Token string `json:"token"`
}

type RequestSignUpHandler struct {
	repo      RepositoryManager
	codec     *ChallengeCodec
	messenger Messenger
	logger    Logger
}

func NewRequestSignUpHandler(repo RepositoryManager, codec *ChallengeCodec, messenger Messenger) *RequestSignUpHandler {
	return &RequestSignUpHandler{
		repo:      repo,
		codec:     codec,
		messenger: messenger,
		logger:    defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *RequestSignUpHandler) WithLogger(logger Logger) *RequestSignUpHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RequestSignUpHandler) Execute(ctx context.Context, event RequestSignUpMessage) (*RequestSignUpResponse, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during sign up request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RequestSignUpHandler) execute(ctx context.Context, event RequestSignUpMessage) (*RequestSignUpResponse, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	taken, err := h.repo.Users().EmailTaken(ctx, event.Email)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email availability")
	}
	if taken {
		return nil, ErrValueAlreadyExists("email")
	}

	salt, err := NewSalt()
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(signUpPayload{
		Email:  event.Email,
		Salt:   salt,
		Pepper: CreatePepper(salt, event.Password),
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to serialize sign up payload")
	}

	challenge, token, err := h.codec.Issue(string(payload), TokenEncodingBase64)
	if err != nil {
		return nil, err
	}

	if err := h.messenger.SendEmailCode(ctx, event.Email, challenge.Code); err != nil {
		h.logger.Warn("sign up code delivery failed", "email", event.Email, "error", err)
	}

	return &RequestSignUpResponse{Token: token}, nil
}

type FinalizeSignUpMessage struct {
	Token string `json:"token" doc:"Sign up challenge token"`
	Code  string `json:"code" example:"042719" doc:"Code delivered out of band"`
}

func (e FinalizeSignUpMessage) Type() string { return "auth.sign_up.finalize" }

func (e FinalizeSignUpMessage) Validate() error {
	if err := goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&e,
			validation.Field(&e.Token, validation.Required),
			validation.Field(&e.Code, validation.Required),
		)
	}, "Invalid sign up finalize payload"); err != nil {
		return err
	}
	return nil
}

type FinalizeSignUpHandler struct {
	repo   RepositoryManager
	codec  *ChallengeCodec
	logger Logger
}

func NewFinalizeSignUpHandler(repo RepositoryManager, codec *ChallengeCodec) *FinalizeSignUpHandler {
	return &FinalizeSignUpHandler{
		repo:   repo,
		codec:  codec,
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *FinalizeSignUpHandler) WithLogger(logger Logger) *FinalizeSignUpHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *FinalizeSignUpHandler) Execute(ctx context.Context, event FinalizeSignUpMessage) (*Session, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during sign up finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizeSignUpHandler) execute(ctx context.Context, event FinalizeSignUpMessage) (*Session, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}

	challenge, err := h.codec.Open(event.Token, TokenEncodingBase64)
	if err != nil {
		return nil, err
	}

	if !codeMatches(challenge.Code, event.Code) {
		return nil, ErrIncorrectCode()
	}

	payload := signUpPayload{}
	if err := json.Unmarshal([]byte(challenge.Data), &payload); err != nil {
		return nil, ErrInvalidToken()
	}

	session := &Session{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// the address may have been claimed between request and finalize
		taken, err := h.repo.Users().EmailTakenTx(ctx, tx, payload.Email)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email availability")
		}
		if taken {
			return ErrValueAlreadyExists("email")
		}

		user := &User{
			ID:     uuid.New(),
			Email:  payload.Email,
			Salt:   payload.Salt,
			Pepper: payload.Pepper,
		}
		if id, err := hashid.NewUUID(payload.Email); err == nil {
			user.ID = id
		}

		if err := user.Validate(); err != nil {
			return ErrInvalidToken()
		}

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		if session, err = newSessionTx(ctx, tx, h.repo.Sessions(), user.ID); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "sign up finalization transaction failed")
	}

	return session, nil
}
