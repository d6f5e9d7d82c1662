package localizer

import (
	"regexp"
	"strings"
)

// placeholderPattern matches the exact placeholder syntax [%s:<identifier>]
// used by the translation texts.
var placeholderPattern = regexp.MustCompile(`\[%s:([A-Za-z]+)\]`)

// Interpolate substitutes every placeholder with its value from subs. Unknown
// identifiers render as <identifier>, so a missing key is visible in the
// delivered message instead of failing it.
func Interpolate(text string, subs map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		ident := placeholderPattern.FindStringSubmatch(match)[1]
		if value, ok := subs[ident]; ok {
			return value
		}
		return "<" + ident + ">"
	})
}

// Pair renders the conventional "amount / price" pair substitution.
func Pair(amountToken, priceToken string) string {
	return strings.Join([]string{amountToken, priceToken}, " / ")
}
