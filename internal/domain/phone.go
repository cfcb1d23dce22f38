package domain

import "strings"

// PhoneDigits is the length a normalized phone must have to be checked.
const PhoneDigits = 10

// NormalizePhone strips every non-digit character.
func NormalizePhone(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsCompletePhone reports whether raw normalizes to exactly PhoneDigits digits.
func IsCompletePhone(raw string) bool {
	return len(NormalizePhone(raw)) == PhoneDigits
}
