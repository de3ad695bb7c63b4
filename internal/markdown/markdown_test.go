package markdown

import (
	"strings"
	"testing"

	"github.com/valpere/bardtran/internal/quote"
)

func sampleEntry() Entry {
	return Entry{
		Speaker: "ALICE",
		Result: quote.TranslationResult{
			Text:               "To be, or not to be",
			TempIDs:            []string{"line_1"},
			OriginalModernLine: "Should I stay?",
			References: []quote.Reference{{
				Title: "Hamlet", Act: 3, Scene: 1, Line: 56,
				WordIndex: quote.WordIndex{Start: 0, End: 5},
			}},
		},
	}
}

func TestDocument(t *testing.T) {
	md := string(Document("The breakup", []Entry{sampleEntry()}))

	for _, want := range []string{
		"# The breakup\n",
		"**ALICE**",
		"> To be, or not to be",
		"*Modern:* Should I stay?",
		"- Hamlet 3.1.56",
		"(`line_1`)",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("Document() missing %q in:\n%s", want, md)
		}
	}
	if strings.Contains(md, "fallback") {
		t.Errorf("Document() marked a non-degraded result:\n%s", md)
	}
}

func TestDocument_DegradedAndSeparators(t *testing.T) {
	e := sampleEntry()
	e.Speaker = ""
	e.Result.Degraded = true

	md := string(Document("", []Entry{e, e}))
	if strings.HasPrefix(md, "#") {
		t.Errorf("Document() rendered a heading without a title:\n%s", md)
	}
	if got := strings.Count(md, "---"); got != 1 {
		t.Errorf("separator count = %d, want 1", got)
	}
	if got := strings.Count(md, "Single-quote fallback"); got != 2 {
		t.Errorf("fallback notes = %d, want 2", got)
	}
}

func TestToHTML(t *testing.T) {
	out := ToHTML(Document("", []Entry{sampleEntry()}))
	if !strings.Contains(out, "<blockquote>") {
		t.Errorf("ToHTML() missing blockquote:\n%s", out)
	}
	if !strings.Contains(out, "<code>line_1</code>") {
		t.Errorf("ToHTML() missing code span:\n%s", out)
	}
}
