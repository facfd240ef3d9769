package floor

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// Fold returns s case-folded and trimmed, for matching human-entered names
// and zones. A Caser is stateful, so one is built per call.
func Fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// ContainsFold reports whether sub appears in s, ignoring case.
func ContainsFold(s, sub string) bool {
	return strings.Contains(Fold(s), Fold(sub))
}

// DigitsOnly strips everything but ASCII digits, so phone numbers compare
// regardless of formatting.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < unicode.MaxASCII && unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
