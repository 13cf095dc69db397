package subscribeto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"io"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// SaltLength is the size of a credential salt in bytes.
	SaltLength = 32
	// PepperRounds is the number of chained hash rounds applied to a
	// password before it is stored.
	PepperRounds = 1000
)

// NewSalt returns a fresh random credential salt.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate salt")
	}
	return salt, nil
}

// CreatePepper derives the stored credential from a password and salt by
// chaining the hash left to right: each round rehashes the previous output
// concatenated with the salt.
func CreatePepper(salt []byte, password string) []byte {
	pepper := []byte(password)
	for i := 0; i < PepperRounds; i++ {
		h := sha256.New()
		h.Write(pepper)
		h.Write(salt)
		pepper = h.Sum(nil)
	}
	return pepper
}

// PasswordIsCorrect recomputes the pepper for the candidate password and
// compares in constant time. It answers false for missing or malformed
// credentials; it never errors.
func PasswordIsCorrect(salt, pepper []byte, password string) bool {
	if len(salt) != SaltLength || len(pepper) == 0 {
		return false
	}
	candidate := CreatePepper(salt, password)
	return subtle.ConstantTimeCompare(candidate, pepper) == 1
}
