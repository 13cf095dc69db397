package subscribeto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"

	goerrors "github.com/goliatone/go-errors"
)

// TokenEncoding selects the transport encoding for a sealed challenge token.
type TokenEncoding int

const (
	// TokenEncodingHex is used by the sign in and SMS challenge flows.
	TokenEncodingHex TokenEncoding = iota
	// TokenEncodingBase64 is used by the sign up flow.
	TokenEncodingBase64
)

const challengeCodeDigits = 6

// Challenge is the plaintext content of a challenge token: a short numeric
// code delivered out of band, and an opaque payload the issuing flow round
// trips through the client. Nothing is persisted server side.
type Challenge struct {
	Code string `json:"code"`
	Data string `json:"data"`
}

// ChallengeCodec seals and opens challenge tokens through an injected
// cipher context.
type ChallengeCodec struct {
	cipher *Cipher
}

// NewChallengeCodec returns a codec bound to the given cipher context.
func NewChallengeCodec(cipher *Cipher) *ChallengeCodec {
	return &ChallengeCodec{cipher: cipher}
}

// Issue mints a challenge carrying data, seals it, and returns the plaintext
// challenge (so the flow can deliver the code out of band) together with the
// encoded token handed to the client.
func (c *ChallengeCodec) Issue(data string, enc TokenEncoding) (Challenge, string, error) {
	code, err := randomCode(challengeCodeDigits)
	if err != nil {
		return Challenge{}, "", err
	}

	challenge := Challenge{Code: code, Data: data}

	token, err := c.Seal(challenge, enc)
	if err != nil {
		return Challenge{}, "", err
	}

	return challenge, token, nil
}

// Seal serializes and encrypts a challenge into a transport token.
func (c *ChallengeCodec) Seal(challenge Challenge, enc TokenEncoding) (string, error) {
	plain, err := json.Marshal(challenge)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to serialize challenge")
	}

	sealed, err := c.cipher.Encrypt(plain)
	if err != nil {
		return "", err
	}

	switch enc {
	case TokenEncodingBase64:
		return base64.StdEncoding.EncodeToString(sealed), nil
	default:
		return hex.EncodeToString(sealed), nil
	}
}

// Open decodes, decrypts, and deserializes a token. Every failure mode
// collapses into the invalid token error: the caller, and therefore the
// client, cannot tell a bad encoding from tampered ciphertext. A cipher that
// was never keyed still reports its own error so misconfiguration is not
// mistaken for a forged token.
func (c *ChallengeCodec) Open(token string, enc TokenEncoding) (Challenge, error) {
	if !c.cipher.Ready() {
		return Challenge{}, ErrCipherNotReady()
	}

	var sealed []byte
	var err error
	switch enc {
	case TokenEncodingBase64:
		sealed, err = base64.StdEncoding.DecodeString(token)
	default:
		sealed, err = hex.DecodeString(token)
	}
	if err != nil {
		return Challenge{}, ErrInvalidToken()
	}

	plain, err := c.cipher.Decrypt(sealed)
	if err != nil {
		if HasTextCode(err, TextCodeCipherNotReady) {
			return Challenge{}, err
		}
		return Challenge{}, ErrInvalidToken()
	}

	challenge := Challenge{}
	if err := json.Unmarshal(plain, &challenge); err != nil {
		return Challenge{}, ErrInvalidToken()
	}

	return challenge, nil
}

// IsCodeValid opens the token and compares the submitted code to the sealed
// one. It answers a bare bool; an unopenable token is simply not valid.
func (c *ChallengeCodec) IsCodeValid(token, code string, enc TokenEncoding) bool {
	challenge, err := c.Open(token, enc)
	if err != nil {
		return false
	}
	return codeMatches(challenge.Code, code)
}

// codeMatches compares two short codes in constant time.
func codeMatches(want, got string) bool {
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}

// randomCode returns a uniformly random zero padded numeric code.
func randomCode(digits int) (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < digits; i++ {
		limit.Mul(limit, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate challenge code")
	}

	return fmt.Sprintf("%0*d", digits, n), nil
}
