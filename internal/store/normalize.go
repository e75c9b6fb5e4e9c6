package store

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeToken returns the canonical form of a token code: NFKC
// normalized, surrounding whitespace removed, upper-cased.
func NormalizeToken(token string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(norm.NFKC.String(token)))
	if t == "" {
		return "", ErrInvalidToken
	}
	return t, nil
}
