// Package validate holds the syntactic field predicates used by the intake
// flow. Every function takes a raw user-supplied string and reports whether
// it is well formed; unparseable input is simply false.
package validate

import (
	"regexp"
	"strings"
)

var (
	nameRe   = regexp.MustCompile(`^[A-Za-z ]{2,50}$`)
	phoneRe  = regexp.MustCompile(`^[0-9]{10,15}$`)
	emailRe  = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	ifscRe   = regexp.MustCompile(`^[A-Za-z]{4}0[0-9A-Za-z]{6}$`)
	digitsRe = regexp.MustCompile(`^[0-9]+$`)
)

// Name reports whether s is 2-50 letters and spaces after trimming.
func Name(s string) bool {
	return nameRe.MatchString(strings.TrimSpace(s))
}

// Phone reports whether s is 10-15 decimal digits after trimming.
func Phone(s string) bool {
	return phoneRe.MatchString(strings.TrimSpace(s))
}

// Email reports whether s has the shape local@domain.tld.
func Email(s string) bool {
	return emailRe.MatchString(strings.TrimSpace(s))
}

// IFSC reports whether s is a bank branch code: four letters, a literal
// zero, then six alphanumerics.
func IFSC(s string) bool {
	return ifscRe.MatchString(strings.TrimSpace(s))
}

// TransactionID reports whether s is at least eight characters after trimming.
func TransactionID(s string) bool {
	return len(strings.TrimSpace(s)) >= 8
}

// Digits reports whether s is non-empty and consists solely of decimal digits.
func Digits(s string) bool {
	return digitsRe.MatchString(strings.TrimSpace(s))
}
