package subscribeto_test

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/subscribeto/subscribeto"
)

func TestRequestSignUp(t *testing.T) {
	repo := setupRepo(t)
	codec := newTestCodec(t)
	ctx := context.Background()

	t.Run("issues a token and delivers a code", func(t *testing.T) {
		messenger := &captureMessenger{}
		handler := subscribeto.NewRequestSignUpHandler(repo, codec, messenger)

		res, err := handler.Execute(ctx, subscribeto.RequestSignUpMessage{
			Email:    "jane@example.com",
			Password: "some_secret_word",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, res.Token)
		assert.Equal(t, "jane@example.com", messenger.emailTo)
		assert.Len(t, messenger.emailCode, 6)

		// no user record exists until finalize
		_, err = repo.Users().GetByEmail(ctx, "jane@example.com")
		assert.True(t, goerrors.IsNotFound(err))
	})

	t.Run("rejects invalid payloads", func(t *testing.T) {
		handler := subscribeto.NewRequestSignUpHandler(repo, codec, &captureMessenger{})

		_, err := handler.Execute(ctx, subscribeto.RequestSignUpMessage{
			Email:    "not-an-email",
			Password: "some_secret_word",
		})
		assert.Error(t, err)

		_, err = handler.Execute(ctx, subscribeto.RequestSignUpMessage{
			Email:    "jane@example.com",
			Password: "short",
		})
		assert.Error(t, err)
	})

	t.Run("rejects a taken email", func(t *testing.T) {
		signUpUser(t, repo, codec, "taken@example.com", "some_secret_word")

		handler := subscribeto.NewRequestSignUpHandler(repo, codec, &captureMessenger{})
		_, err := handler.Execute(ctx, subscribeto.RequestSignUpMessage{
			Email:    "taken@example.com",
			Password: "some_secret_word",
		})
		assert.True(t, subscribeto.HasTextCode(err, subscribeto.TextCodeValueAlreadyExists))
	})
}

func TestFinalizeSignUp(t *testing.T) {
	repo := setupRepo(t)
	codec := newTestCodec(t)
	ctx := context.Background()

	requestSignUp := func(t *testing.T, email string) (string, string) {
		t.Helper()
		messenger := &captureMessenger{}
		handler := subscribeto.NewRequestSignUpHandler(repo, codec, messenger)
		res, err := handler.Execute(ctx, subscribeto.RequestSignUpMessage{
			Email:    email,
			Password: "some_secret_word",
		})
		require.NoError(t, err)
		return res.Token, messenger.emailCode
	}

	t.Run("creates the user and opens a session", func(t *testing.T) {
		token, code := requestSignUp(t, "jane@example.com")

		handler := subscribeto.NewFinalizeSignUpHandler(repo, codec)
		session, err := handler.Execute(ctx, subscribeto.FinalizeSignUpMessage{
			Token: token,
			Code:  code,
		})
		require.NoError(t, err)
		require.NotNil(t, session.UserID)
		assert.True(t, session.Alive())
		assert.Nil(t, session.BusinessID)

		user, err := repo.Users().GetByEmail(ctx, "jane@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, *session.UserID)
		assert.NotEmpty(t, user.Salt)
		assert.NotEmpty(t, user.Pepper)
		assert.True(t, subscribeto.PasswordIsCorrect(user.Salt, user.Pepper, "some_secret_word"))
	})

	t.Run("rejects a wrong code and leaves no record", func(t *testing.T) {
		token, code := requestSignUp(t, "carol@example.com")

		wrong := "000000"
		if wrong == code {
			wrong = "000001"
		}

		handler := subscribeto.NewFinalizeSignUpHandler(repo, codec)
		_, err := handler.Execute(ctx, subscribeto.FinalizeSignUpMessage{
			Token: token,
			Code:  wrong,
		})
		assert.True(t, subscribeto.HasTextCode(err, subscribeto.TextCodeIncorrectCode))

		_, err = repo.Users().GetByEmail(ctx, "carol@example.com")
		assert.True(t, goerrors.IsNotFound(err))
	})

	t.Run("rejects a forged token", func(t *testing.T) {
		handler := subscribeto.NewFinalizeSignUpHandler(repo, codec)
		_, err := handler.Execute(ctx, subscribeto.FinalizeSignUpMessage{
			Token: "bm90IGEgcmVhbCB0b2tlbg==",
			Code:  "123456",
		})
		assert.True(t, subscribeto.HasTextCode(err, subscribeto.TextCodeInvalidToken))
	})

	t.Run("rejects a token opened with the wrong encoding", func(t *testing.T) {
		// sign in tokens are hex; they must not open the base64 sign up flow
		_, hexToken, err := codec.Issue("payload", subscribeto.TokenEncodingHex)
		require.NoError(t, err)

		handler := subscribeto.NewFinalizeSignUpHandler(repo, codec)
		_, err = handler.Execute(ctx, subscribeto.FinalizeSignUpMessage{
			Token: hexToken,
			Code:  "123456",
		})
		assert.True(t, subscribeto.HasTextCode(err, subscribeto.TextCodeInvalidToken))
	})

	t.Run("rejects when the email was claimed meanwhile", func(t *testing.T) {
		token, code := requestSignUp(t, "raced@example.com")

		// someone else completes sign up for the same address first
		signUpUser(t, repo, codec, "raced@example.com", "other_secret_word")

		handler := subscribeto.NewFinalizeSignUpHandler(repo, codec)
		_, err := handler.Execute(ctx, subscribeto.FinalizeSignUpMessage{
			Token: token,
			Code:  code,
		})
		assert.True(t, subscribeto.HasTextCode(err, subscribeto.TextCodeValueAlreadyExists))
	})
}
