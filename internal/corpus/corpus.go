// Package corpus holds the read-only ground-truth index of source spans.
// The validator resolves every accepted reference against it, so a corpus is
// fully loaded up front and never mutated afterwards.
package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/valpere/bardtran/internal/quote"
)

// ErrNotFound is returned when a locator has no ground-truth entry.
var ErrNotFound = errors.New("reference not found in corpus")

// Entry is a single ground-truth span.
type Entry struct {
	Reference quote.Reference
	Text      string
}

type key struct {
	title string
	act   int
	scene int
	line  int
	start int
	end   int
}

func keyOf(ref quote.Reference) key {
	return key{
		title: ref.Title,
		act:   ref.Act,
		scene: ref.Scene,
		line:  ref.Line,
		start: ref.WordIndex.Start,
		end:   ref.WordIndex.End,
	}
}

// Corpus is an immutable index keyed by (title, act, scene, line, word_index).
type Corpus struct {
	entries map[key]string
	titles  map[string]int
}

// New indexes entries. Duplicate locators with differing text are rejected.
func New(entries []Entry) (*Corpus, error) {
	c := &Corpus{
		entries: make(map[key]string, len(entries)),
		titles:  make(map[string]int),
	}
	for i, e := range entries {
		if !e.Reference.Valid() {
			return nil, fmt.Errorf("entry %d: malformed reference %s", i, e.Reference)
		}
		k := keyOf(e.Reference)
		if existing, ok := c.entries[k]; ok {
			if existing != e.Text {
				return nil, fmt.Errorf("entry %d: conflicting text for %s", i, e.Reference)
			}
			continue
		}
		c.entries[k] = e.Text
		c.titles[e.Reference.Title]++
	}
	return c, nil
}

// Lookup returns the exact source text for a locator.
func (c *Corpus) Lookup(ref quote.Reference) (string, error) {
	text, ok := c.entries[keyOf(ref)]
	if !ok {
		return "", fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	return text, nil
}

// Len returns the number of indexed spans.
func (c *Corpus) Len() int {
	return len(c.entries)
}

// Titles returns every work in the corpus with its span count, sorted by title.
func (c *Corpus) Titles() []TitleCount {
	out := make([]TitleCount, 0, len(c.titles))
	for t, n := range c.titles {
		out = append(out, TitleCount{Title: t, Spans: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out
}

// TitleCount pairs a title with its number of spans.
type TitleCount struct {
	Title string
	Spans int
}

// fileEntry is the on-disk shape. word_index may be omitted for whole lines.
type fileEntry struct {
	Title     string           `json:"title" yaml:"title"`
	Act       int              `json:"act" yaml:"act"`
	Scene     int              `json:"scene" yaml:"scene"`
	Line      int              `json:"line" yaml:"line"`
	WordIndex *quote.WordIndex `json:"word_index,omitempty" yaml:"word_index,omitempty"`
	Text      string           `json:"text" yaml:"text"`
}

type fileDoc struct {
	Entries []fileEntry `json:"entries" yaml:"entries"`
}

// Load reads a corpus file (.json, .yaml or .yml). A missing file is a
// resource error and is returned as-is for the caller to treat as fatal.
func Load(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}

	var doc fileDoc
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse corpus YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse corpus JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported corpus format: %s", path)
	}

	entries := make([]Entry, 0, len(doc.Entries))
	for _, fe := range doc.Entries {
		entries = append(entries, fe.toEntry())
	}
	return New(entries)
}

func (fe fileEntry) toEntry() Entry {
	wi := quote.WordIndex{Start: 0, End: len(strings.Fields(fe.Text)) - 1}
	if fe.WordIndex != nil {
		wi = *fe.WordIndex
	}
	return Entry{
		Reference: quote.Reference{
			Title:     fe.Title,
			Act:       fe.Act,
			Scene:     fe.Scene,
			Line:      fe.Line,
			WordIndex: wi,
		},
		Text: fe.Text,
	}
}
