package textutil

import (
	"regexp"
	"strings"
)

// trailing 3-4 digits, optionally behind mask characters, not part of a
// longer digit run; a separated brand name may follow ("XXXX1234 VISA")
var last4Re = regexp.MustCompile(`(?i)(?:^|[^0-9])[x*]*([0-9]{3,4})(?:[^0-9\pL]+\pL[\pL ]*)?[^0-9\pL]*$`)

// ExtractLast4 returns the trailing card digits of a masked card number,
// e.g. "554574XXXXXXX439" -> "439" and "XXX3733" -> "3733". Digits are
// returned as found; see PadLast4.
func ExtractLast4(cardText string) (string, bool) {
	m := last4Re.FindStringSubmatch(strings.TrimSpace(cardText))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// PadLast4 left-pads a 3-digit capture with "0". Some banks only reveal
// three digits of the card.
func PadLast4(digits string) string {
	if len(digits) >= 4 {
		return digits[len(digits)-4:]
	}
	return strings.Repeat("0", 4-len(digits)) + digits
}
