package subscribeto

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
)

// NormalizePhone parses and validates a phone number and returns it in
// E.164 form. Numbers without a country prefix are rejected rather than
// guessed at.
func NormalizePhone(raw string) (string, error) {
	num, err := phonenumbers.Parse(raw, "")
	if err != nil {
		return "", goerrors.New("phone number could not be parsed", goerrors.CategoryBadInput).
			WithTextCode("PHONE_INVALID").
			WithMetadata(map[string]any{"phone": raw})
	}

	if !phonenumbers.IsValidNumber(num) {
		return "", goerrors.New("phone number is not valid", goerrors.CategoryBadInput).
			WithTextCode("PHONE_INVALID").
			WithMetadata(map[string]any{"phone": raw})
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}
