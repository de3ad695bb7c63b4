package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/bardtran/internal/ledger"
	"github.com/valpere/bardtran/internal/quote"
)

func ref(line, start, end int) quote.Reference {
	return quote.Reference{Title: "Hamlet", Act: 3, Scene: 1, Line: line, WordIndex: quote.WordIndex{Start: start, End: end}}
}

func cand(text string, score float64, line int) quote.CandidateQuote {
	return quote.CandidateQuote{Text: text, Score: score, Reference: ref(line, 0, len(text))}
}

func TestPrepare_RanksAndAssignsTempIDs(t *testing.T) {
	s := New(nil)
	prepared, ok := s.Prepare(quote.Candidates{
		quote.LevelLine: {
			cand("the rest is silence", 0.4, 1),
			cand("to be, or not to be", 0.1, 2),
		},
		quote.LevelFragments: {
			cand("perchance to dream", 0.3, 3),
		},
	}, 3)

	require.True(t, ok)
	require.Len(t, prepared.Prompt[quote.LevelLine], 2)
	assert.Equal(t, "line_1", prepared.Prompt[quote.LevelLine][0].TempID)
	assert.Equal(t, "to be, or not to be", prepared.Prompt[quote.LevelLine][0].Text)
	assert.Equal(t, quote.LevelLine, prepared.Prompt[quote.LevelLine][0].Form)
	assert.Equal(t, "the rest is silence", prepared.TempMap["line_2"].Text)
	assert.Equal(t, "fragments_1", prepared.Prompt[quote.LevelFragments][0].TempID)

	_, hasPhrases := prepared.Prompt[quote.LevelPhrases]
	assert.False(t, hasPhrases, "empty levels are absent")
}

func TestPrepare_StableTieBreak(t *testing.T) {
	s := New(nil)
	prepared, _ := s.Prepare(quote.Candidates{
		quote.LevelPhrases: {
			cand("first in retrieval", 0.2, 1),
			cand("second in retrieval", 0.2, 2),
			cand("closest", 0.1, 3),
		},
	}, 1)

	entries := prepared.Prompt[quote.LevelPhrases]
	require.Len(t, entries, 3)
	assert.Equal(t, "closest", entries[0].Text)
	assert.Equal(t, "first in retrieval", entries[1].Text)
	assert.Equal(t, "second in retrieval", entries[2].Text)
}

func TestPrepare_CapsPerLevel(t *testing.T) {
	var many []quote.CandidateQuote
	for i := 0; i < 8; i++ {
		many = append(many, cand("words of the play", float64(8-i), i+1))
	}

	prepared, _ := New(nil).Prepare(quote.Candidates{quote.LevelFragments: many}, 3)
	assert.Len(t, prepared.Prompt[quote.LevelFragments], DefaultMaxPerLevel)

	prepared, _ = New(nil, WithMaxPerLevel(2)).Prepare(quote.Candidates{quote.LevelFragments: many}, 3)
	assert.Len(t, prepared.Prompt[quote.LevelFragments], 2)
}

func TestPrepare_RejectsMalformedReference(t *testing.T) {
	bad := quote.CandidateQuote{Text: "a fine thing", Reference: quote.Reference{Title: "Hamlet"}}
	flagged := cand("another fine thing", 0.1, 4)
	flagged.Malformed = true

	prepared, ok := New(nil).Prepare(quote.Candidates{quote.LevelLine: {bad, flagged}}, 1)
	assert.False(t, ok)
	assert.Equal(t, 0, prepared.Total())
	assert.Equal(t, 2, prepared.Rejected[RejectMalformed])
}

func TestPrepare_RejectsProperNouns(t *testing.T) {
	tagged := cand("alas poor yorick", 0.1, 1)
	tagged.POSTags = []string{"UH", "JJ", "NNP"}

	prepared, _ := New(nil).Prepare(quote.Candidates{
		quote.LevelLine: {
			tagged,
			cand("Alas, poor Yorick", 0.2, 2),
			cand("Frailty, thy name is woman", 0.3, 3),
		},
	}, 1)

	entries := prepared.Prompt[quote.LevelLine]
	require.Len(t, entries, 1)
	assert.Equal(t, "Frailty, thy name is woman", entries[0].Text)
	assert.Equal(t, 2, prepared.Rejected[RejectProperNoun])
}

func TestHasProperNoun_CapitalizedInnerTokens(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Now I am alone", true},
		{"What I'll do, I'll do", true},
		{"and O, that this too solid flesh", true},
		{"Initial capital only", false},
		{"to see Denmark again", true},
		{"speak, \"Horatio\" speak", true},
		{"PROPN", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, HasProperNoun(quote.CandidateQuote{Text: tt.text}))
		})
	}

	assert.True(t, HasProperNoun(quote.CandidateQuote{Text: "words", POSTags: []string{"propn"}}))
}

func TestPrepare_RejectsInnerPronounI(t *testing.T) {
	c := quote.CandidateQuote{Text: "Now I am alone", Score: 0.1, Reference: ref(56, 0, 3)}

	prepared, sufficient := New(nil).Prepare(quote.Candidates{quote.LevelLine: {c}}, 1)

	assert.False(t, sufficient)
	assert.Zero(t, prepared.Total())
	assert.Equal(t, 1, prepared.Rejected[RejectProperNoun])
}

func TestPrepare_ExcludesUsedSpans(t *testing.T) {
	l := ledger.New(nil)
	used := quote.CandidateQuote{Text: "to be, or not to be", Score: 0.1, Reference: ref(56, 0, 4)}
	l.MarkUsed(used.Reference.Key(), "0-4")

	otherRange := quote.CandidateQuote{Text: "that is the question", Score: 0.2, Reference: ref(56, 5, 8)}

	prepared, _ := New(l).Prepare(quote.Candidates{quote.LevelLine: {used, otherRange}}, 1)

	entries := prepared.Prompt[quote.LevelLine]
	require.Len(t, entries, 1)
	assert.Equal(t, "that is the question", entries[0].Text)
	assert.Equal(t, 1, prepared.Rejected[RejectUsed])
	for _, c := range prepared.TempMap {
		assert.NotEqual(t, "0-4", c.Reference.WordIndex.Label())
	}
}

func TestPrepare_InsufficientIsNotError(t *testing.T) {
	prepared, ok := New(nil).Prepare(quote.Candidates{quote.LevelLine: {cand("the rest is silence", 0.1, 1)}}, 3)
	assert.False(t, ok)
	assert.Equal(t, 1, prepared.Total())
}
