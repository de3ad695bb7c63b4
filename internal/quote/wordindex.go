package quote

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// WordIndex is an inclusive start,end token range within a source line.
type WordIndex struct {
	Start int
	End   int
}

// Valid reports whether the range is non-negative and ordered.
func (w WordIndex) Valid() bool {
	return w.Start >= 0 && w.End >= w.Start
}

// Label renders the range as the ledger context label "start-end".
func (w WordIndex) Label() string {
	return fmt.Sprintf("%d-%d", w.Start, w.End)
}

// ParseWordIndex accepts "s,e", "s-e" and "s" forms.
func ParseWordIndex(s string) (WordIndex, error) {
	s = strings.Trim(strings.TrimSpace(s), "[]()")
	if s == "" {
		return WordIndex{}, fmt.Errorf("empty word index")
	}
	sep := strings.IndexAny(s, ",-:")
	if sep < 0 {
		n, err := strconv.Atoi(s)
		if err != nil {
			return WordIndex{}, fmt.Errorf("invalid word index %q: %w", s, err)
		}
		return WordIndex{Start: n, End: n}, nil
	}
	start, err := strconv.Atoi(strings.TrimSpace(s[:sep]))
	if err != nil {
		return WordIndex{}, fmt.Errorf("invalid word index start %q: %w", s, err)
	}
	end, err := strconv.Atoi(strings.TrimSpace(s[sep+1:]))
	if err != nil {
		return WordIndex{}, fmt.Errorf("invalid word index end %q: %w", s, err)
	}
	w := WordIndex{Start: start, End: end}
	if !w.Valid() {
		return WordIndex{}, fmt.Errorf("invalid word index range %q", s)
	}
	return w, nil
}

func (w WordIndex) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{w.Start, w.End})
}

func (w *WordIndex) UnmarshalJSON(data []byte) error {
	var pair []int
	if err := json.Unmarshal(data, &pair); err == nil {
		return w.fromSlice(pair)
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("word index must be [start,end] or \"start,end\": %w", err)
	}
	parsed, err := ParseWordIndex(s)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

func (w WordIndex) MarshalYAML() (interface{}, error) {
	return []int{w.Start, w.End}, nil
}

func (w *WordIndex) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		var pair []int
		if err := node.Decode(&pair); err != nil {
			return err
		}
		return w.fromSlice(pair)
	}
	parsed, err := ParseWordIndex(node.Value)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

func (w *WordIndex) fromSlice(pair []int) error {
	if len(pair) != 2 {
		return fmt.Errorf("word index needs 2 values, got %d", len(pair))
	}
	parsed := WordIndex{Start: pair[0], End: pair[1]}
	if !parsed.Valid() {
		return fmt.Errorf("invalid word index range %v", pair)
	}
	*w = parsed
	return nil
}
