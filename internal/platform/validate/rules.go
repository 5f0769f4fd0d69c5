package validate

import (
	"math"
	"regexp"
	"time"
)

var (
	// National id card: 1 letter, 12 digits, 1 alphanumeric (14 chars).
	nicPattern = regexp.MustCompile(`^(?i:[a-z][0-9]{12}[a-z0-9])$`)
	// Passport: 13 alphanumerics.
	passportPattern = regexp.MustCompile(`^(?i:[a-z0-9]{13})$`)
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	digitsPattern   = regexp.MustCompile(`^[0-9]+$`)
)

// NIC reports whether id matches the national id card format.
func NIC(id string) bool {
	return nicPattern.MatchString(id)
}

// Passport reports whether id matches the passport number format.
func Passport(id string) bool {
	return passportPattern.MatchString(id)
}

// Email reports whether s has the local@domain.tld shape.
func Email(s string) bool {
	return emailPattern.MatchString(s)
}

// Digits reports whether s consists of exactly n numeric digits.
func Digits(s string, n int) bool {
	return len(s) == n && digitsPattern.MatchString(s)
}

// Numeric reports whether s is all digits, any length above zero.
func Numeric(s string) bool {
	return digitsPattern.MatchString(s)
}

// NotFuture reports whether d is on or before today. Only the calendar date
// matters; a measurement taken later today is valid.
func NotFuture(d time.Time) bool {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return !day.After(today)
}

// InRange reports whether v lies in [lo, hi], bounds inclusive.
func InRange(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}

// TwoDecimals reports whether v carries at most two decimal places.
func TwoDecimals(v float64) bool {
	return math.Round(v*100)/100 == v
}
