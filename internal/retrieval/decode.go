package retrieval

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/valpere/bardtran/internal/quote"
)

// DecodeCandidates normalizes a gateway reply. Accepted shapes:
//
//	{"line": [...], "phrases": [...], "fragments": [...]}
//	{"results": {"line": [...], ...}}
//
// Each item carries its text under "text" (or "quote"/"document"), its
// locator as a "reference" object, a JSON-encoded "reference" string, a
// "metadata" object, or flat fields on the item itself. The distance is read
// from "score" or "distance"; part-of-speech tags from "pos_tags" or "pos",
// either as a list or a space-separated string. Items whose locator cannot
// be decoded are kept with Malformed set so the selector can reject them.
func DecodeCandidates(body []byte) (quote.Candidates, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	if inner, ok := top["results"]; ok && isObject(inner) {
		top = nil
		if err := json.Unmarshal(inner, &top); err != nil {
			return nil, fmt.Errorf("failed to decode search results: %w", err)
		}
	}

	out := quote.Candidates{}
	for name, raw := range top {
		level, ok := quote.ParseLevel(name)
		if !ok {
			continue
		}
		var items []map[string]json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("level %s: expected a list: %w", name, err)
		}
		for _, item := range items {
			out[level] = append(out[level], decodeItem(item))
		}
	}
	for _, level := range quote.Levels {
		for i := range out[level] {
			out[level][i].Rank = i
		}
	}
	return out, nil
}

func decodeItem(item map[string]json.RawMessage) quote.CandidateQuote {
	c := quote.CandidateQuote{
		Text:    firstString(item, "text", "quote", "document"),
		Score:   firstNumber(item, "score", "distance"),
		POSTags: decodeTags(item),
	}

	ref, ok := decodeReference(item)
	c.Reference = ref
	c.Malformed = !ok || !ref.Valid()
	return c
}

// wireReference tolerates numbers encoded as strings and any word_index form
// quote.WordIndex understands.
type wireReference struct {
	Title     string          `json:"title"`
	Play      string          `json:"play"`
	Act       flexInt         `json:"act"`
	Scene     flexInt         `json:"scene"`
	Line      flexInt         `json:"line"`
	WordIndex json.RawMessage `json:"word_index"`
}

func decodeReference(item map[string]json.RawMessage) (quote.Reference, bool) {
	raw, ok := item["reference"]
	if !ok {
		raw, ok = item["metadata"]
	}
	if ok {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			raw = json.RawMessage(s)
		}
		if !isObject(raw) {
			return quote.Reference{}, false
		}
	} else {
		// Flat fields on the item itself.
		flat, err := json.Marshal(item)
		if err != nil {
			return quote.Reference{}, false
		}
		raw = flat
	}

	var w wireReference
	if err := json.Unmarshal(raw, &w); err != nil {
		return quote.Reference{}, false
	}
	ref := quote.Reference{
		Title: w.Title,
		Act:   int(w.Act),
		Scene: int(w.Scene),
		Line:  int(w.Line),
	}
	if ref.Title == "" {
		ref.Title = w.Play
	}
	if len(w.WordIndex) == 0 || bytes.Equal(w.WordIndex, []byte("null")) {
		return ref, false
	}
	if err := json.Unmarshal(w.WordIndex, &ref.WordIndex); err != nil {
		return ref, false
	}
	return ref, true
}

type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		v, err := strconv.ParseFloat(string(n), 64)
		if err != nil {
			return err
		}
		*f = flexInt(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("not an integer: %q", s)
	}
	*f = flexInt(v)
	return nil
}

func decodeTags(item map[string]json.RawMessage) []string {
	for _, k := range []string{"pos_tags", "pos"} {
		raw, ok := item[k]
		if !ok {
			continue
		}
		var list []string
		if json.Unmarshal(raw, &list) == nil {
			return list
		}
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return strings.Fields(s)
		}
		// Tagger output: [[word, tag], ...] or [{"word": ..., "tag": ...}, ...].
		var pairs [][]string
		if json.Unmarshal(raw, &pairs) == nil {
			tags := make([]string, 0, len(pairs))
			for _, p := range pairs {
				if len(p) >= 2 {
					tags = append(tags, p[len(p)-1])
				}
			}
			return tags
		}
		var objs []map[string]string
		if json.Unmarshal(raw, &objs) == nil {
			tags := make([]string, 0, len(objs))
			for _, o := range objs {
				if tag := firstNonEmpty(o["tag"], o["pos"]); tag != "" {
					tags = append(tags, tag)
				}
			}
			return tags
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstString(item map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		var s string
		if raw, ok := item[k]; ok && json.Unmarshal(raw, &s) == nil {
			return s
		}
	}
	return ""
}

func firstNumber(item map[string]json.RawMessage, keys ...string) float64 {
	for _, k := range keys {
		var f float64
		if raw, ok := item[k]; ok && json.Unmarshal(raw, &f) == nil {
			return f
		}
	}
	return 0
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
