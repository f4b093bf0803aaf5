package validate

import (
	"regexp"
	"strconv"
)

var (
	phoneRegex = regexp.MustCompile(`^(07|01)[0-9]{8}$`)
	pinRegex   = regexp.MustCompile(`^[0-9]{4}$`)
)

// Phone reports whether s is a valid payout/login phone number:
// exactly 10 digits starting with 07 or 01.
func Phone(s string) bool {
	return phoneRegex.MatchString(s)
}

// PIN reports whether s is a valid 4-digit PIN.
func PIN(s string) bool {
	return pinRegex.MatchString(s)
}

// Amount parses s as a positive amount of money.
func Amount(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// AmountInRange parses s and checks it against the inclusive bounds.
func AmountInRange(s string, min, max float64) (float64, bool) {
	v, ok := Amount(s)
	if !ok || v < min || v > max {
		return 0, false
	}
	return v, true
}
