package sdk

import (
	"regexp"
	"strings"
)

var e164 = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// minPhoneDigits is the shortest dialable number including the country code
const minPhoneDigits = 7

// FormatPhoneNumber strips everything but digits, assumes a North American
// number when exactly ten digits remain, and prefixes "+".
func FormatPhoneNumber(number string) string {
	var b strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 10 {
		digits = "1" + digits
	}
	return "+" + digits
}

// IsValidPhoneNumber reports whether number is in E.164 form and long
// enough to dial
func IsValidPhoneNumber(number string) bool {
	return e164.MatchString(number) && len(number)-1 >= minPhoneDigits
}
