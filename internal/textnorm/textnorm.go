// Package textnorm holds the canonical text comparison transform. Both the
// assembler's plausibility check and the validator compare through Normalize
// so the two gates can never diverge.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize applies NFKC, replaces punctuation and symbols (except the
// apostrophe) with spaces, collapses whitespace and lowercases.
func Normalize(text string) string {
	text = norm.NFKC.String(text)
	text = stripPunctuation(text)
	text = strings.Join(strings.Fields(text), " ")
	return strings.ToLower(text)
}

// Tokens returns the whitespace-separated tokens of the normalized text.
func Tokens(text string) []string {
	return strings.Fields(Normalize(text))
}

func stripPunctuation(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		switch {
		case r == '\'' || r == '’' || r == '‘':
			sb.WriteRune('\'')
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			sb.WriteRune(' ')
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
