package subscribeto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"io"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/pbkdf2"
)

const (
	cipherKeyLen    = 32
	cipherNonceLen  = 12
	cipherKDFRounds = 4096
)

// cipherKDFSalt is a fixed domain separator for key derivation. The operator
// secret is the only confidential input; tokens from two deployments with
// different secrets never open across deployments.
var cipherKDFSalt = []byte("subscribeto.cipher.v1")

// Cipher is the process wide AEAD context. It is constructed once at startup
// from the operator secret and passed explicitly to everything that mints or
// opens opaque tokens. The zero value is unusable and reports ErrCipherNotReady
// from every operation.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives a 256 bit key from the operator secret and returns a
// ready AES-GCM context. An empty secret is rejected.
func NewCipher(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, goerrors.New("cipher secret must not be empty", goerrors.CategoryBadInput).
			WithTextCode(TextCodeCipherNotReady)
	}

	key := pbkdf2.Key([]byte(secret), cipherKDFSalt, cipherKDFRounds, cipherKeyLen, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to construct cipher")
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to construct AEAD")
	}

	return &Cipher{aead: aead}, nil
}

// Ready reports whether the context holds a key.
func (c *Cipher) Ready() bool {
	return c != nil && c.aead != nil
}

// Encrypt seals plain with a fresh random nonce. Output is nonce||ciphertext;
// two calls with the same plaintext never produce the same bytes.
func (c *Cipher) Encrypt(plain []byte) ([]byte, error) {
	if !c.Ready() {
		return nil, ErrCipherNotReady()
	}

	nonce := make([]byte, cipherNonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, ErrCipherFailure().WithMetadata(map[string]any{"stage": "nonce"})
	}

	return c.aead.Seal(nonce, nonce, plain, nil), nil
}

// Decrypt opens nonce||ciphertext. Truncated input, a flipped bit anywhere,
// or a different key all fail the same way.
func (c *Cipher) Decrypt(sealed []byte) ([]byte, error) {
	if !c.Ready() {
		return nil, ErrCipherNotReady()
	}

	if len(sealed) < cipherNonceLen+c.aead.Overhead() {
		return nil, ErrCipherFailure()
	}

	nonce, ciphertext := sealed[:cipherNonceLen], sealed[cipherNonceLen:]
	plain, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrCipherFailure()
	}

	return plain, nil
}
