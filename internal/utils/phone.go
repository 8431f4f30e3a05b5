package utils

import (
	"strconv"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// CallingCode returns the international calling code for an ISO 3166-1
// alpha-2 country code, e.g. "GH" -> "233". The second return is false for
// unknown regions.
func CallingCode(country string) (string, bool) {
	code := phonenumbers.GetCountryCodeForRegion(strings.ToUpper(strings.TrimSpace(country)))
	if code == 0 {
		return "", false
	}
	return strconv.Itoa(code), true
}

// NormalizePhone converts a locally-entered phone number into its canonical
// E.164-shaped form for the given country. It is pure and total: malformed
// input produces a syntactically plausible string and deliverability is the
// SMS gateway's problem.
//
// Rules, in order: keep digits only; if the digits already start with the
// country calling code, prefix "+"; if they start with a local trunk zero,
// strip exactly one zero and prepend "+<callingCode>"; otherwise prepend
// "+<callingCode>" directly.
func NormalizePhone(raw, country string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	cc, ok := CallingCode(country)
	if !ok {
		return "+" + digits
	}

	if strings.HasPrefix(digits, cc) {
		return "+" + digits
	}
	if strings.HasPrefix(digits, "0") {
		return "+" + cc + digits[1:]
	}
	return "+" + cc + digits
}
