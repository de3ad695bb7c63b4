// Package selector filters, ranks and caps raw retrieval candidates and
// assigns the short-lived temp ids used to build an assembly prompt.
package selector

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/valpere/bardtran/internal/quote"
)

// DefaultMaxPerLevel is the number of survivors kept per level.
const DefaultMaxPerLevel = 5

// UsageChecker reports whether a span was already consumed in the session.
type UsageChecker interface {
	WasUsed(key, label string) bool
}

// Rejection reasons, reported in debug logs and Prepared.Rejected.
const (
	RejectMalformed  = "malformed_reference"
	RejectProperNoun = "proper_noun"
	RejectUsed       = "already_used"
	RejectEmpty      = "empty_text"
)

// Prepared is the capped candidate set for one assembly attempt.
type Prepared struct {
	Prompt   quote.PromptStructure
	TempMap  quote.TempMap
	Rejected map[string]int
}

// Total returns the number of prompt entries across all levels.
func (p Prepared) Total() int {
	return p.Prompt.Total()
}

// Selector turns raw candidates into a prompt structure.
type Selector struct {
	usage       UsageChecker
	maxPerLevel int
	logger      *zap.Logger
}

// Option configures a Selector.
type Option func(*Selector)

// WithMaxPerLevel overrides the per-level cap.
func WithMaxPerLevel(n int) Option {
	return func(s *Selector) {
		if n > 0 {
			s.maxPerLevel = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Selector) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Selector. usage may be nil when no ledger is active.
func New(usage UsageChecker, opts ...Option) *Selector {
	s := &Selector{
		usage:       usage,
		maxPerLevel: DefaultMaxPerLevel,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Prepare filters, ranks and caps candidates per level. The boolean reports
// whether at least minOptions entries survived across all levels. A level
// with no survivors is absent from the prompt structure.
func (s *Selector) Prepare(candidates quote.Candidates, minOptions int) (Prepared, bool) {
	prepared := Prepared{
		Prompt:   quote.PromptStructure{},
		TempMap:  quote.TempMap{},
		Rejected: map[string]int{},
	}

	for _, level := range quote.Levels {
		var survivors []quote.CandidateQuote
		for _, c := range candidates[level] {
			if reason := s.reject(c); reason != "" {
				prepared.Rejected[reason]++
				s.logger.Debug("candidate rejected",
					zap.String("level", string(level)),
					zap.String("reason", reason),
					zap.String("text", c.Text))
				continue
			}
			survivors = append(survivors, c)
		}
		if len(survivors) == 0 {
			continue
		}

		// Closer matches first; equal scores keep retrieval order.
		sort.SliceStable(survivors, func(i, j int) bool {
			return survivors[i].Score < survivors[j].Score
		})
		if len(survivors) > s.maxPerLevel {
			survivors = survivors[:s.maxPerLevel]
		}

		entries := make([]quote.PromptEntry, 0, len(survivors))
		for i, c := range survivors {
			id := quote.TempID(level, i+1)
			entries = append(entries, quote.PromptEntry{
				TempID: id,
				Text:   c.Text,
				Score:  c.Score,
				Form:   level,
			})
			prepared.TempMap[id] = c
		}
		prepared.Prompt[level] = entries
	}

	return prepared, prepared.Total() >= minOptions
}

func (s *Selector) reject(c quote.CandidateQuote) string {
	if c.Malformed || !c.Reference.Valid() {
		return RejectMalformed
	}
	if strings.TrimSpace(c.Text) == "" {
		return RejectEmpty
	}
	if HasProperNoun(c) {
		return RejectProperNoun
	}
	if s.usage != nil && s.usage.WasUsed(c.Reference.Key(), c.Reference.WordIndex.Label()) {
		return RejectUsed
	}
	return ""
}

var properNounTags = map[string]bool{
	"NNP":   true,
	"NNPS":  true,
	"PROPN": true,
}

// HasProperNoun reports whether the candidate carries a proper-noun POS tag
// or a capitalized non-initial token.
func HasProperNoun(c quote.CandidateQuote) bool {
	for _, tag := range c.POSTags {
		if properNounTags[strings.ToUpper(strings.TrimSpace(tag))] {
			return true
		}
	}
	return hasCapitalizedInnerToken(c.Text)
}

func hasCapitalizedInnerToken(text string) bool {
	tokens := strings.Fields(text)
	for i, tok := range tokens {
		if i == 0 {
			continue
		}
		tok = strings.TrimLeftFunc(tok, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if tok == "" {
			continue
		}
		r, _ := utf8.DecodeRuneInString(tok)
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}
