// Package chunker derives the query texts used at each granularity level:
// sentences from free input, clause-level phrases, and short word windows
// (fragments) from a single modern line.
package chunker

import (
	"strings"
	"unicode"
)

const (
	// MinFragmentWords and MaxFragmentWords bound a fragment window.
	MinFragmentWords = 3
	MaxFragmentWords = 8

	// DefaultFragmentWords is the window size used by Fragments.
	DefaultFragmentWords = 4
)

// conjunctions split a line into phrases in addition to clause punctuation.
var conjunctions = map[string]bool{
	"and": true, "but": true, "or": true, "nor": true, "yet": true, "so": true,
}

// Sentences splits free text into modern lines. Splits happen at line breaks
// and at sentence-ending punctuation (. ! ?) followed by whitespace. Empty
// pieces are dropped.
func Sentences(text string) []string {
	var out []string
	for _, para := range strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == '\r' }) {
		runes := []rune(para)
		start := 0
		for i, r := range runes {
			if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
				if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
					out = append(out, s)
				}
				start = i + 1
			}
		}
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Phrases splits a line at clause punctuation (, ; : and dashes) and at
// coordinating conjunctions. The conjunction itself starts the following
// phrase. Single-word phrases are dropped; a line that does not split yields
// no phrases.
func Phrases(line string) []string {
	var (
		phrases []string
		cur     []string
	)
	flush := func() {
		if len(cur) > 1 {
			phrases = append(phrases, strings.Join(cur, " "))
		}
		cur = nil
	}

	for _, word := range strings.Fields(line) {
		bare := strings.ToLower(strings.TrimFunc(word, unicode.IsPunct))
		if conjunctions[bare] && len(cur) > 0 {
			flush()
		}
		trimmed := strings.TrimRightFunc(word, isClausePunct)
		if trimmed != "" {
			cur = append(cur, trimmed)
		}
		if trimmed != word {
			flush()
		}
	}
	flush()

	if len(phrases) == 1 && phrases[0] == strings.Join(strings.Fields(strings.TrimRightFunc(line, isClausePunct)), " ") {
		return nil
	}
	return phrases
}

func isClausePunct(r rune) bool {
	switch r {
	case ',', ';', ':', '-', '–', '—', '.', '!', '?':
		return true
	}
	return false
}

// Fragments returns overlapping windows of size words (clamped to
// MinFragmentWords..MaxFragmentWords) advancing by half a window. The last
// window is aligned to the end of the line. Lines shorter than
// MinFragmentWords yield nothing; a line no longer than one window yields
// itself.
func Fragments(line string, size int) []string {
	if size <= 0 {
		size = DefaultFragmentWords
	}
	if size < MinFragmentWords {
		size = MinFragmentWords
	}
	if size > MaxFragmentWords {
		size = MaxFragmentWords
	}

	words := strings.Fields(strings.Map(func(r rune) rune {
		if isClausePunct(r) {
			return ' '
		}
		return r
	}, line))
	if len(words) < MinFragmentWords {
		return nil
	}
	if len(words) <= size {
		return []string{strings.Join(words, " ")}
	}

	stride := size / 2
	if stride < 1 {
		stride = 1
	}
	var out []string
	for start := 0; ; start += stride {
		if start+size >= len(words) {
			out = append(out, strings.Join(words[len(words)-size:], " "))
			break
		}
		out = append(out, strings.Join(words[start:start+size], " "))
	}
	return out
}
