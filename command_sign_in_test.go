package subscribeto_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/subscribeto/subscribeto"
)

func TestSignIn(t *testing.T) {
	repo := setupRepo(t)
	codec := newTestCodec(t)
	ctx := context.Background()

	user, _ := signUpUser(t, repo, codec, "jane@example.com", "some_secret_word")

	t.Run("unknown email fails on the username", func(t *testing.T) {
		handler := subscribeto.NewSignInHandler(repo, codec, &captureMessenger{})
		_, err := handler.Execute(ctx, subscribeto.SignInMessage{
			Email:    "nobody@example.com",
			Password: "some_secret_word",
		})
		assert.True(t, subscribeto.HasTextCode(err, subscribeto.TextCodeUsernameIncorrect))
	})

	t.Run("known email with a bad password fails on the password", func(t *testing.T) {
		handler := subscribeto.NewSignInHandler(repo, codec, &captureMessenger{})
		_, err := handler.Execute(ctx, subscribeto.SignInMessage{
			Email:    "jane@example.com",
			Password: "wrong_secret_word",
		})
		assert.True(t, subscribeto.HasTextCode(err, subscribeto.TextCodePasswordIncorrect))
	})

	t.Run("no second factor opens a session directly", func(t *testing.T) {
		handler := subscribeto.NewSignInHandler(repo, codec, &captureMessenger{})
		res, err := handler.Execute(ctx, subscribeto.SignInMessage{
			Email:    "jane@example.com",
			Password: "some_secret_word",
		})
		require.NoError(t, err)
		assert.Equal(t, subscribeto.SignInResultSession, res.Type)
		require.NotNil(t, res.Session)
		assert.Equal(t, user.ID, *res.Session.UserID)
		assert.Empty(t, res.Token)
	})

	t.Run("every sign in gets a fresh session", func(t *testing.T) {
		handler := subscribeto.NewSignInHandler(repo, codec, &captureMessenger{})

		first, err := handler.Execute(ctx, subscribeto.SignInMessage{
			Email: "jane@example.com", Password: "some_secret_word",
		})
		require.NoError(t, err)
		second, err := handler.Execute(ctx, subscribeto.SignInMessage{
			Email: "jane@example.com", Password: "some_secret_word",
		})
		require.NoError(t, err)

		assert.NotEqual(t, first.Session.ID, second.Session.ID)
	})
}

func TestSignInTOTP(t *testing.T) {
	repo := setupRepo(t)
	codec := newTestCodec(t)
	ctx := context.Background()

	user, _ := signUpUser(t, repo, codec, "totp@example.com", "some_secret_word")

	secret, err := subscribeto.GenerateTOTPSecret()
	require.NoError(t, err)
	enableTOTP(t, repo, user.ID, secret)

	at := time.Now()
	clock := func() time.Time { return at }

	code, err := subscribeto.GenerateTOTPCode(secret, at)
	require.NoError(t, err)

	password := subscribeto.NewSignInHandler(repo, codec, &captureMessenger{})
	res, err := password.Execute(ctx, subscribeto.SignInMessage{
		Email:    "totp@example.com",
		Password: "some_secret_word",
	})
	require.NoError(t, err)
	require.Equal(t, subscribeto.SignInResultTOTP, res.Type)
	assert.Nil(t, res.Session)
	require.NotEmpty(t, res.Token)

	t.Run("authenticator code completes the sign in", func(t *testing.T) {
		handler := subscribeto.NewSignInTOTPHandler(repo, codec).WithClock(clock)
		session, err := handler.Execute(ctx, subscribeto.SignInTOTPMessage{
			Token: res.Token,
			Code:  code,
		})
		require.NoError(t, err)
		assert.Equal(t, user.ID, *session.UserID)
	})

	t.Run("wrong authenticator code is rejected", func(t *testing.T) {
		wrong := "000000"
		if wrong == code {
			wrong = "000001"
		}

		handler := subscribeto.NewSignInTOTPHandler(repo, codec).WithClock(clock)
		_, err := handler.Execute(ctx, subscribeto.SignInTOTPMessage{
			Token: res.Token,
			Code:  wrong,
		})
		assert.True(t, subscribeto.HasTextCode(err, subscribeto.TextCodeIncorrectCode))
	})

	t.Run("the code sealed into the token never verifies", func(t *testing.T) {
		// open the raw challenge to recover the sealed code, then submit it
		// as if it were an authenticator code
		challenge, err := codec.Open(res.Token, subscribeto.TokenEncodingHex)
		require.NoError(t, err)

		handler := subscribeto.NewSignInTOTPHandler(repo, codec).WithClock(clock)
		_, err = handler.Execute(ctx, subscribeto.SignInTOTPMessage{
			Token: res.Token,
			Code:  challenge.Code,
		})
		assert.True(t, subscribeto.HasTextCode(err, subscribeto.TextCodeIncorrectCode))
	})

	t.Run("a token for a user without totp is invalid", func(t *testing.T) {
		other, _ := signUpUser(t, repo, codec, "plain@example.com", "some_secret_word")

		_, token, err := codec.Issue(other.ID.String(), subscribeto.TokenEncodingHex)
		require.NoError(t, err)

		handler := subscribeto.NewSignInTOTPHandler(repo, codec).WithClock(clock)
		_, err = handler.Execute(ctx, subscribeto.SignInTOTPMessage{
			Token: token,
			Code:  code,
		})
		assert.True(t, subscribeto.HasTextCode(err, subscribeto.TextCodeInvalidToken))
	})

	t.Run("forged token is invalid", func(t *testing.T) {
		handler := subscribeto.NewSignInTOTPHandler(repo, codec).WithClock(clock)
		_, err := handler.Execute(ctx, subscribeto.SignInTOTPMessage{
			Token: "deadbeef",
			Code:  code,
		})
		assert.True(t, subscribeto.HasTextCode(err, subscribeto.TextCodeInvalidToken))
	})
}

func TestSignInSMS(t *testing.T) {
	repo := setupRepo(t)
	codec := newTestCodec(t)
	ctx := context.Background()

	user, _ := signUpUser(t, repo, codec, "sms@example.com", "some_secret_word")
	enableSMS(t, repo, user.ID, "+14155552671")

	messenger := &captureMessenger{}
	password := subscribeto.NewSignInHandler(repo, codec, messenger)
	res, err := password.Execute(ctx, subscribeto.SignInMessage{
		Email:    "sms@example.com",
		Password: "some_secret_word",
	})
	require.NoError(t, err)
	require.Equal(t, subscribeto.SignInResultSMS, res.Type)
	assert.Nil(t, res.Session)
	assert.Equal(t, "+14155552671", res.Phone)
	assert.Equal(t, "+14155552671", messenger.smsTo)
	require.Len(t, messenger.smsCode, 6)

	t.Run("delivered code completes the sign in", func(t *testing.T) {
		handler := subscribeto.NewSignInSMSHandler(repo, codec)
		session, err := handler.Execute(ctx, subscribeto.SignInSMSMessage{
			Token: res.Token,
			Code:  messenger.smsCode,
		})
		require.NoError(t, err)
		assert.Equal(t, user.ID, *session.UserID)
	})

	t.Run("wrong code is rejected", func(t *testing.T) {
		wrong := "000000"
		if wrong == messenger.smsCode {
			wrong = "000001"
		}

		handler := subscribeto.NewSignInSMSHandler(repo, codec)
		_, err := handler.Execute(ctx, subscribeto.SignInSMSMessage{
			Token: res.Token,
			Code:  wrong,
		})
		assert.True(t, subscribeto.HasTextCode(err, subscribeto.TextCodeIncorrectCode))
	})

	t.Run("an authenticator code never verifies the sms flow", func(t *testing.T) {
		secret, err := subscribeto.GenerateTOTPSecret()
		require.NoError(t, err)
		code, err := subscribeto.GenerateTOTPCode(secret, time.Now())
		require.NoError(t, err)

		if code == messenger.smsCode {
			t.Skip("random collision between code spaces")
		}

		handler := subscribeto.NewSignInSMSHandler(repo, codec)
		_, err = handler.Execute(ctx, subscribeto.SignInSMSMessage{
			Token: res.Token,
			Code:  code,
		})
		assert.True(t, subscribeto.HasTextCode(err, subscribeto.TextCodeIncorrectCode))
	})

	t.Run("forged token is invalid", func(t *testing.T) {
		handler := subscribeto.NewSignInSMSHandler(repo, codec)
		_, err := handler.Execute(ctx, subscribeto.SignInSMSMessage{
			Token: "deadbeef",
			Code:  messenger.smsCode,
		})
		assert.True(t, subscribeto.HasTextCode(err, subscribeto.TextCodeInvalidToken))
	})
}
