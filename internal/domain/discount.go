package domain

import (
	"regexp"
	"strings"
)

var discountCodeRe = regexp.MustCompile(`^[A-Z0-9_-]{3,32}$`)

// NormalizeDiscountCode uppercases raw and reports whether the result is a
// well-formed code.
func NormalizeDiscountCode(raw string) (string, bool) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	return code, discountCodeRe.MatchString(code)
}
