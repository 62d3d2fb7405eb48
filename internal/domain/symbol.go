package domain

import (
	"regexp"
	"strings"
)

var symbolRegex = regexp.MustCompile(`^[A-Z0-9.]{1,12}$`)

// NormalizeSymbol trims and upper-cases a ticker and checks its shape.
func NormalizeSymbol(s string) (string, error) {
	sym := strings.ToUpper(strings.TrimSpace(s))
	if sym == "" {
		return "", &ValidationError{Message: "ticker is required"}
	}
	if !symbolRegex.MatchString(sym) {
		return "", &ValidationError{Message: "ticker must be 1-12 characters of A-Z, 0-9 or '.'"}
	}
	return sym, nil
}
