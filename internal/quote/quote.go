// Package quote defines the data model shared by the assembly engine:
// retrieved source spans, their locators, the entries exposed to the
// generative model and the final translation results.
package quote

import (
	"fmt"
	"strconv"
	"strings"
)

// Level is one of the three corpus segmentations searched independently.
type Level string

const (
	LevelLine      Level = "line"
	LevelPhrases   Level = "phrases"
	LevelFragments Level = "fragments"
)

// Levels lists every granularity in prompt order.
var Levels = []Level{LevelLine, LevelPhrases, LevelFragments}

// ParseLevel maps a gateway level name onto a Level. Singular forms are
// accepted because retrieval backends are not consistent about it.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "line", "lines":
		return LevelLine, true
	case "phrase", "phrases":
		return LevelPhrases, true
	case "fragment", "fragments":
		return LevelFragments, true
	}
	return "", false
}

// GlobalContext is the ledger scope that covers every word range of a line.
const GlobalContext = "global"

// Reference locates a span inside the ground-truth corpus.
type Reference struct {
	Title     string    `json:"title" yaml:"title"`
	Act       int       `json:"act" yaml:"act"`
	Scene     int       `json:"scene" yaml:"scene"`
	Line      int       `json:"line" yaml:"line"`
	WordIndex WordIndex `json:"word_index" yaml:"word_index"`
}

// Key renders the ledger key title|act|scene|line.
func (r Reference) Key() string {
	return fmt.Sprintf("%s|%d|%d|%d", r.Title, r.Act, r.Scene, r.Line)
}

// Valid reports whether the reference is well formed enough to be resolved.
func (r Reference) Valid() bool {
	return strings.TrimSpace(r.Title) != "" && r.Line > 0 && r.WordIndex.Valid()
}

func (r Reference) String() string {
	return fmt.Sprintf("%s %d.%d.%d [%s]", r.Title, r.Act, r.Scene, r.Line, r.WordIndex.Label())
}

// CandidateQuote is a retrieved source span under consideration.
type CandidateQuote struct {
	Text      string    `json:"text"`
	Reference Reference `json:"reference"`
	// Score is a similarity distance; lower is closer.
	Score   float64  `json:"score"`
	POSTags []string `json:"pos_tags,omitempty"`
	// Rank is the position in the original retrieval order.
	Rank int `json:"-"`
	// Malformed is set by the retrieval adapter when the raw reference could
	// not be decoded into a Reference.
	Malformed bool `json:"-"`
}

// Candidates holds raw retrieval results per level.
type Candidates map[Level][]CandidateQuote

// Total returns the number of candidates across all levels.
func (c Candidates) Total() int {
	n := 0
	for _, l := range Levels {
		n += len(c[l])
	}
	return n
}

// PromptEntry is a candidate exposed to the generative model for one
// assembly call.
type PromptEntry struct {
	TempID string  `json:"temp_id"`
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
	Form   Level   `json:"form"`
}

// PromptStructure groups prompt entries by level. Levels without survivors
// are absent.
type PromptStructure map[Level][]PromptEntry

// Total returns the number of entries across all levels.
func (p PromptStructure) Total() int {
	n := 0
	for _, entries := range p {
		n += len(entries)
	}
	return n
}

// TempMap resolves temp ids back to the candidates they were built from.
type TempMap map[string]CandidateQuote

// TempID builds the "{level}_{rank}" identifier; rank is 1-based.
func TempID(level Level, rank int) string {
	return string(level) + "_" + strconv.Itoa(rank)
}

// AssembledResult is the structured reply of the generative model.
type AssembledResult struct {
	Text    string   `json:"text"`
	TempIDs []string `json:"temp_ids"`
}

// SearchMode selects how candidates are retrieved.
type SearchMode string

const (
	SearchStandard SearchMode = "standard"
	SearchHybrid   SearchMode = "hybrid"
)

// TranslationResult is the validated unit returned to callers.
type TranslationResult struct {
	Text               string      `json:"text"`
	TempIDs            []string    `json:"temp_ids"`
	References         []Reference `json:"references"`
	OriginalModernLine string      `json:"original_modern_line"`
	// Degraded marks a single-quote failsafe substitution.
	Degraded   bool       `json:"degraded"`
	SearchMode SearchMode `json:"search_mode"`
}
