package subscribeto_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/subscribeto/subscribeto"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// setupRepo spins up an in memory sqlite database with the schema applied.
func setupRepo(t *testing.T) subscribeto.RepositoryManager {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	require.NoError(t, subscribeto.RunMigrations(context.Background(), db, nil))

	repo := subscribeto.NewRepositoryManager(db)
	require.NoError(t, repo.Validate())

	return repo
}

// captureMessenger records the last code handed to each channel so tests can
// play the out of band leg of a challenge flow.
type captureMessenger struct {
	emailTo   string
	emailCode string
	smsTo     string
	smsCode   string
}

func (m *captureMessenger) SendEmailCode(_ context.Context, email, code string) error {
	m.emailTo = email
	m.emailCode = code
	return nil
}

func (m *captureMessenger) SendSMSCode(_ context.Context, phone, code string) error {
	m.smsTo = phone
	m.smsCode = code
	return nil
}

// inUserTx runs a user column update inside its own transaction.
func inUserTx(t *testing.T, repo subscribeto.RepositoryManager, fn func(ctx context.Context, tx bun.Tx) error) {
	t.Helper()
	require.NoError(t, repo.RunInTx(context.Background(), nil, fn))
}

func enableTOTP(t *testing.T, repo subscribeto.RepositoryManager, userID uuid.UUID, secret string) {
	inUserTx(t, repo, func(ctx context.Context, tx bun.Tx) error {
		return repo.Users().SetTOTPTx(ctx, tx, userID, secret, true)
	})
}

func enableSMS(t *testing.T, repo subscribeto.RepositoryManager, userID uuid.UUID, phone string) {
	inUserTx(t, repo, func(ctx context.Context, tx bun.Tx) error {
		if err := repo.Users().SetPhoneTx(ctx, tx, userID, phone); err != nil {
			return err
		}
		return repo.Users().SetSMSTx(ctx, tx, userID, true)
	})
}

// signUpUser runs the full sign up flow and returns the created user and the
// session that finalize opened.
func signUpUser(t *testing.T, repo subscribeto.RepositoryManager, codec *subscribeto.ChallengeCodec, email, password string) (*subscribeto.User, *subscribeto.Session) {
	t.Helper()

	messenger := &captureMessenger{}
	ctx := context.Background()

	request := subscribeto.NewRequestSignUpHandler(repo, codec, messenger)
	res, err := request.Execute(ctx, subscribeto.RequestSignUpMessage{
		Email:    email,
		Password: password,
	})
	require.NoError(t, err)

	finalize := subscribeto.NewFinalizeSignUpHandler(repo, codec)
	session, err := finalize.Execute(ctx, subscribeto.FinalizeSignUpMessage{
		Token: res.Token,
		Code:  messenger.emailCode,
	})
	require.NoError(t, err)
	require.NotNil(t, session.UserID)

	user, err := repo.Users().GetByEmail(ctx, email)
	require.NoError(t, err)

	return user, session
}
