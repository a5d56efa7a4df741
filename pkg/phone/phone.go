// Package phone converts local phone numbers into the international digit form
// used as the verification ledger key and by the SMS provider.
package phone

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// ErrInvalidPhone is returned when a number or country cannot be normalised.
var ErrInvalidPhone = errors.New("phone: invalid phone number")

// regions maps the country codes clients send to libphonenumber regions.
var regions = map[string]string{
	"nga": "NG",
	"ng":  "NG",
	"gha": "GH",
	"gh":  "GH",
}

// Supported reports whether country (ISO alpha-2 or alpha-3, any case) is accepted.
func Supported(country string) bool {
	_, ok := lookup(country)
	return ok
}

// Normalize returns the E.164 form of a mobile number without the leading
// plus: calling code followed by the national significant number. Local
// input with a trunk 0 and already international input give the same
// result, so Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw, country string) (string, error) {
	region, ok := lookup(country)
	if !ok {
		return "", fmt.Errorf("%w: unsupported country %q", ErrInvalidPhone, country)
	}

	digits, err := clean(raw)
	if err != nil {
		return "", err
	}

	num, err := parse(digits, region)
	if err != nil {
		return "", err
	}

	switch phonenumbers.GetNumberType(num) {
	case phonenumbers.MOBILE, phonenumbers.FIXED_LINE_OR_MOBILE:
	default:
		return "", fmt.Errorf("%w: not a mobile number", ErrInvalidPhone)
	}

	return strings.TrimPrefix(phonenumbers.Format(num, phonenumbers.E164), "+"), nil
}

// parse reads digits as international when they carry the region's calling
// code and form a valid number that way, and as a national number otherwise.
func parse(digits, region string) (*phonenumbers.PhoneNumber, error) {
	callingCode := strconv.Itoa(phonenumbers.GetCountryCodeForRegion(region))
	if strings.HasPrefix(digits, callingCode) {
		if num, err := phonenumbers.Parse("+"+digits, region); err == nil && phonenumbers.IsValidNumberForRegion(num, region) {
			return num, nil
		}
	}

	num, err := phonenumbers.Parse(digits, region)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPhone, err)
	}
	if !phonenumbers.IsValidNumberForRegion(num, region) {
		return nil, fmt.Errorf("%w: not valid for %s", ErrInvalidPhone, region)
	}
	return num, nil
}

func lookup(country string) (string, bool) {
	region, ok := regions[strings.ToLower(strings.TrimSpace(country))]
	return region, ok
}

// clean strips separators and rejects anything that is not a digit, so
// vanity letters never reach the parser.
func clean(raw string) (string, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "+")

	var b strings.Builder
	for _, r := range trimmed {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return "", fmt.Errorf("%w: unexpected character %q", ErrInvalidPhone, r)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: empty", ErrInvalidPhone)
	}
	return b.String(), nil
}
