package subscribeto

import (
	goerrors "github.com/goliatone/go-errors"
)

// Text codes attached to every failure the API can surface. Clients branch
// on these, never on messages.
const (
	TextCodeCipherNotReady     = "CIPHER_NOT_READY"
	TextCodeCipherFailure      = "CIPHER_FAILURE"
	TextCodeUsernameIncorrect  = "USERNAME_INCORRECT"
	TextCodePasswordIncorrect  = "PASSWORD_INCORRECT"
	TextCodeInvalidToken       = "INVALID_TOKEN"
	TextCodeIncorrectCode      = "INCORRECT_CODE"
	TextCodeValueAlreadyExists = "VALUE_ALREADY_EXISTS"
	TextCodeUnauthorized       = "UNAUTHORIZED"
)

// ErrCipherNotReady reports use of a cipher context that was never keyed.
func ErrCipherNotReady() *goerrors.Error {
	return goerrors.New("cipher context is not initialized", goerrors.CategoryInternal).
		WithTextCode(TextCodeCipherNotReady)
}

// ErrCipherFailure reports an encrypt or decrypt failure. The message never
// distinguishes tampering from truncation or a wrong key.
func ErrCipherFailure() *goerrors.Error {
	return goerrors.New("cipher operation failed", goerrors.CategoryInternal).
		WithTextCode(TextCodeCipherFailure)
}

// ErrUsernameIncorrect reports a sign in attempt for an unknown email.
// Kept distinct from ErrPasswordIncorrect on purpose; the API contract
// exposes the asymmetry.
func ErrUsernameIncorrect() *goerrors.Error {
	return goerrors.New("no account for that email address", goerrors.CategoryAuth).
		WithCode(goerrors.CodeUnauthorized).
		WithTextCode(TextCodeUsernameIncorrect)
}

// ErrPasswordIncorrect reports a failed password check for a known account.
func ErrPasswordIncorrect() *goerrors.Error {
	return goerrors.New("password does not match", goerrors.CategoryAuth).
		WithCode(goerrors.CodeUnauthorized).
		WithTextCode(TextCodePasswordIncorrect)
}

// ErrInvalidToken is the single failure for any challenge token that does
// not open: bad encoding, tampered ciphertext, or malformed payload.
func ErrInvalidToken() *goerrors.Error {
	return goerrors.New("challenge token is invalid", goerrors.CategoryAuth).
		WithCode(goerrors.CodeUnauthorized).
		WithTextCode(TextCodeInvalidToken)
}

// ErrIncorrectCode reports a wrong challenge or one time code.
func ErrIncorrectCode() *goerrors.Error {
	return goerrors.New("verification code is incorrect", goerrors.CategoryAuth).
		WithCode(goerrors.CodeUnauthorized).
		WithTextCode(TextCodeIncorrectCode)
}

// ErrValueAlreadyExists reports a uniqueness conflict, e.g. a taken email.
func ErrValueAlreadyExists(field string) *goerrors.Error {
	return goerrors.New("value already exists", goerrors.CategoryConflict).
		WithCode(goerrors.CodeConflict).
		WithTextCode(TextCodeValueAlreadyExists).
		WithMetadata(map[string]any{"field": field})
}

// ErrUnauthorized reports a session that does not meet the required tier.
func ErrUnauthorized() *goerrors.Error {
	return goerrors.New("session does not grant access", goerrors.CategoryAuth).
		WithCode(goerrors.CodeUnauthorized).
		WithTextCode(TextCodeUnauthorized)
}

// HasTextCode reports whether err carries the given text code.
func HasTextCode(err error, code string) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr == nil {
		return false
	}
	return richErr.TextCode == code
}
