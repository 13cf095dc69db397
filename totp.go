package subscribeto

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	totpSecretLen = 20
	totpPeriod    = 30 * time.Second
	totpDigits    = 6
	// totpSkew is how many adjacent periods either side of now still
	// verify, absorbing clock drift between server and authenticator.
	totpSkew = 1
)

var totpEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateTOTPSecret returns a new base32 encoded shared secret suitable for
// authenticator app provisioning.
func GenerateTOTPSecret() (string, error) {
	raw := make([]byte, totpSecretLen)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate totp secret")
	}
	return totpEncoding.EncodeToString(raw), nil
}

// GenerateTOTPCode computes the RFC 6238 code for the given secret at t.
func GenerateTOTPCode(secret string, t time.Time) (string, error) {
	key, err := totpEncoding.DecodeString(secret)
	if err != nil {
		return "", goerrors.New("totp secret is not valid base32", goerrors.CategoryBadInput)
	}
	return hotp(key, uint64(t.Unix())/uint64(totpPeriod/time.Second)), nil
}

// VerifyTOTPCode checks a submitted code against the secret at t, accepting
// the current period and one period either side. Malformed input answers
// false; this function never errors.
func VerifyTOTPCode(secret, code string, t time.Time) bool {
	if len(code) != totpDigits {
		return false
	}

	key, err := totpEncoding.DecodeString(secret)
	if err != nil || len(key) == 0 {
		return false
	}

	counter := t.Unix() / int64(totpPeriod/time.Second)
	for offset := int64(-totpSkew); offset <= totpSkew; offset++ {
		window := counter + offset
		if window < 0 {
			continue
		}
		want := hotp(key, uint64(window))
		if subtle.ConstantTimeCompare([]byte(want), []byte(code)) == 1 {
			return true
		}
	}
	return false
}

// hotp implements RFC 4226 dynamic truncation over HMAC-SHA1.
func hotp(key []byte, counter uint64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	value := (uint32(sum[offset]&0x7f)<<24 |
		uint32(sum[offset+1])<<16 |
		uint32(sum[offset+2])<<8 |
		uint32(sum[offset+3])) % 1000000

	return fmt.Sprintf("%0*d", totpDigits, value)
}
