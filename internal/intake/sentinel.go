package intake

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NotFoundSentinel is the reserved value the extractor writes into fields it
// could not determine. Any value containing it counts as unfilled.
const NotFoundSentinel = "NO ENCONTRADO"

// stripAccents removes combining marks so "ENCONTRADÓ" and "encontrado"
// compare equal after lowering.
var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func foldForMatch(s string) string {
	folded, _, err := transform.String(stripAccents, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

var foldedSentinel = foldForMatch(NotFoundSentinel)

// IsFilled is the single source of truth for every completion percentage in
// the pipeline: a value is filled iff it is non-nil, not an empty or
// blank string, and does not contain the not-found sentinel (matched case-
// and accent-insensitively).
func IsFilled(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		trimmed := strings.TrimSpace(x)
		if trimmed == "" {
			return false
		}
		return !strings.Contains(foldForMatch(trimmed), foldedSentinel)
	default:
		return true
	}
}
