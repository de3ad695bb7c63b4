package assembler

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/valpere/bardtran/internal/postprocess"
	"github.com/valpere/bardtran/internal/quote"
	"github.com/valpere/bardtran/internal/textnorm"
)

// MaxQuotes is the largest number of quotations one assembled line may use.
const MaxQuotes = 3

// ParseResponse extracts {text, temp_ids} from a raw model reply. Code
// fences and reasoning blocks are removed first; both keys are required.
func ParseResponse(raw string) (quote.AssembledResult, error) {
	cleaned := postprocess.CleanJSON(raw)
	if cleaned == "" {
		return quote.AssembledResult{}, fmt.Errorf("%w: empty reply", ErrResponseInvalid)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return quote.AssembledResult{}, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}

	rawText, ok := fields["text"]
	if !ok {
		return quote.AssembledResult{}, fmt.Errorf("%w: missing \"text\"", ErrResponseInvalid)
	}
	rawIDs, ok := fields["temp_ids"]
	if !ok {
		return quote.AssembledResult{}, fmt.Errorf("%w: missing \"temp_ids\"", ErrResponseInvalid)
	}

	var result quote.AssembledResult
	if err := json.Unmarshal(rawText, &result.Text); err != nil {
		return quote.AssembledResult{}, fmt.Errorf("%w: \"text\" is not a string", ErrResponseInvalid)
	}
	if err := json.Unmarshal(rawIDs, &result.TempIDs); err != nil {
		var single string
		if json.Unmarshal(rawIDs, &single) != nil {
			return quote.AssembledResult{}, fmt.Errorf("%w: \"temp_ids\" is not a list of strings", ErrResponseInvalid)
		}
		result.TempIDs = []string{single}
	}
	for i, id := range result.TempIDs {
		result.TempIDs[i] = strings.TrimSpace(id)
	}
	return result, nil
}

// MiniValidate checks the model's claims against the offered entries: every
// id must have been offered, 1 to MaxQuotes distinct ids must be used, and
// some ordering of the normalized quotation texts joined by spaces must equal
// the normalized text. It returns the ids in the order that matched.
func MiniValidate(text string, tempIDs []string, offered quote.TempMap) ([]string, error) {
	if len(tempIDs) == 0 {
		return nil, fmt.Errorf("%w: no temp_ids", ErrImplausible)
	}
	if len(tempIDs) > MaxQuotes {
		return nil, fmt.Errorf("%w: %d quotations used, at most %d allowed", ErrImplausible, len(tempIDs), MaxQuotes)
	}

	seen := make(map[string]bool, len(tempIDs))
	sources := make([]string, len(tempIDs))
	for i, id := range tempIDs {
		if seen[id] {
			return nil, fmt.Errorf("%w: temp_id %s used twice", ErrImplausible, id)
		}
		seen[id] = true
		c, ok := offered[id]
		if !ok {
			return nil, fmt.Errorf("%w: temp_id %s was not offered", ErrImplausible, id)
		}
		sources[i] = textnorm.Normalize(c.Text)
	}

	target := textnorm.Normalize(text)
	if target == "" {
		return nil, fmt.Errorf("%w: empty text", ErrImplausible)
	}

	for _, order := range permutations(len(tempIDs)) {
		parts := make([]string, 0, len(order))
		for _, i := range order {
			if sources[i] != "" {
				parts = append(parts, sources[i])
			}
		}
		if strings.Join(parts, " ") == target {
			ids := make([]string, len(order))
			for k, i := range order {
				ids[k] = tempIDs[i]
			}
			return ids, nil
		}
	}
	return nil, fmt.Errorf("%w: text is not a reordering of the claimed quotations", ErrImplausible)
}

// permutations returns every ordering of 0..n-1, identity first.
func permutations(n int) [][]int {
	if n == 0 {
		return [][]int{{}}
	}
	var out [][]int
	for _, rest := range permutations(n - 1) {
		for pos := len(rest); pos >= 0; pos-- {
			p := make([]int, 0, n)
			p = append(p, rest[:pos]...)
			p = append(p, n-1)
			p = append(p, rest[pos:]...)
			out = append(out, p)
		}
	}
	return out
}
