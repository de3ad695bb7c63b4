package chunker_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/valpere/bardtran/internal/chunker"
)

// --- Sentences tests ---

func TestSentences_SplitsOnPunctuationAndNewlines(t *testing.T) {
	text := "Should I live or die? I am tired.\nLeave me alone!"
	got := chunker.Sentences(text)
	want := []string{"Should I live or die?", "I am tired.", "Leave me alone!"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestSentences_KeepsAbbreviationlessTail(t *testing.T) {
	got := chunker.Sentences("  no punctuation at all  ")
	if len(got) != 1 || got[0] != "no punctuation at all" {
		t.Errorf("unexpected sentences: %q", got)
	}
}

func TestSentences_Empty(t *testing.T) {
	if got := chunker.Sentences("\n\n  \n"); len(got) != 0 {
		t.Errorf("expected no sentences, got %q", got)
	}
}

// --- Phrases tests ---

func TestPhrases_ConjunctionSplit(t *testing.T) {
	got := chunker.Phrases("Should I live or die?")
	want := []string{"Should I live", "or die"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestPhrases_ClausePunctuation(t *testing.T) {
	got := chunker.Phrases("When I wake up tomorrow, the world will be different; nothing stays")
	want := []string{"When I wake up tomorrow", "the world will be different", "nothing stays"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestPhrases_UnsplittableLine(t *testing.T) {
	if got := chunker.Phrases("I am very tired."); got != nil {
		t.Errorf("expected nil for a single clause, got %q", got)
	}
}

func TestPhrases_DropsSingleWords(t *testing.T) {
	got := chunker.Phrases("Yes, I will go, friend")
	want := []string{"I will go"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %q, got %q", want, got)
	}
}

// --- Fragments tests ---

func TestFragments_Windows(t *testing.T) {
	got := chunker.Fragments("Should I live or die?", 4)
	want := []string{"Should I live or", "I live or die"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestFragments_WindowSizeBounds(t *testing.T) {
	line := strings.Repeat("word ", 20)
	for _, f := range chunker.Fragments(line, 100) {
		if n := len(strings.Fields(f)); n != chunker.MaxFragmentWords {
			t.Errorf("expected %d words, got %d: %q", chunker.MaxFragmentWords, n, f)
		}
	}
	for _, f := range chunker.Fragments(line, 1) {
		if n := len(strings.Fields(f)); n != chunker.MinFragmentWords {
			t.Errorf("expected %d words, got %d: %q", chunker.MinFragmentWords, n, f)
		}
	}
}

func TestFragments_ShortLines(t *testing.T) {
	if got := chunker.Fragments("Go away", 0); got != nil {
		t.Errorf("expected nil for a two-word line, got %q", got)
	}
	got := chunker.Fragments("Leave me alone", 0)
	if len(got) != 1 || got[0] != "Leave me alone" {
		t.Errorf("expected the whole line, got %q", got)
	}
}

func TestFragments_CoversLastWord(t *testing.T) {
	got := chunker.Fragments("one two three four five six seven", 4)
	last := got[len(got)-1]
	if !strings.HasSuffix(last, "seven") {
		t.Errorf("last fragment should end the line: %q", last)
	}
}
