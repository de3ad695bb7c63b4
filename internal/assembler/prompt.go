package assembler

import (
	"fmt"
	"strings"

	"github.com/valpere/bardtran/internal/quote"
)

// tier selects how forcefully the prompt states its constraints.
type tier int

const (
	tierBaseline tier = iota
	tierEscalated
	tierFinal
)

func (t tier) String() string {
	switch t {
	case tierBaseline:
		return "baseline"
	case tierEscalated:
		return "escalated"
	case tierFinal:
		return "final"
	}
	return "unknown"
}

// tierFor maps an attempt number onto a prompt tier. The last permitted
// attempt always gets the final wording.
func tierFor(attempt, maxRetries int) tier {
	switch {
	case attempt == 0:
		return tierBaseline
	case attempt >= maxRetries:
		return tierFinal
	default:
		return tierEscalated
	}
}

const responseFormat = `Respond ONLY in JSON:
{
  "text": "the assembled line",
  "temp_ids": ["id of the first quotation used", "id of the next one"]
}
`

func buildPrompt(t tier, modernLine string, prompt quote.PromptStructure, lastReason string) string {
	var sb strings.Builder

	sb.WriteString("You rewrite modern English as a line of Shakespeare, using ONLY the quotations offered below.\n\n")
	sb.WriteString(fmt.Sprintf("MODERN LINE:\n%q\n\n", modernLine))
	sb.WriteString("AVAILABLE QUOTATIONS:\n")
	for _, level := range quote.Levels {
		entries := prompt[level]
		if len(entries) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("[%s]\n", level))
		for _, e := range entries {
			sb.WriteString(fmt.Sprintf("  %s: %q\n", e.TempID, e.Text))
		}
	}
	sb.WriteString("\n")

	switch t {
	case tierBaseline:
		sb.WriteString(`# RULES
- Choose 1 to 3 quotations whose meaning best matches the modern line.
- Use the exact text of each chosen quotation. Do not change, add or drop any word.
- You may put the chosen quotations in any order, but never split one.
- Do not use quotations containing proper nouns.
- List temp_ids in the order their text appears in "text".
`)
	case tierEscalated:
		sb.WriteString(`# STRICT RULES (your previous answer was rejected)
1. Pick between 1 and 3 of the ids listed above. Never invent an id.
2. "text" MUST be the chosen quotations joined with spaces, each copied EXACTLY as given.
3. Do NOT add connecting words, do NOT paraphrase, do NOT shorten a quotation.
4. Reordering whole quotations is allowed. Changing words inside a quotation is NOT.
5. "temp_ids" MUST follow the order of the quotations in "text".
`)
	case tierFinal:
		sb.WriteString(`# FINAL ATTEMPT. EVERY RULE IS MANDATORY.
- ONLY copy quotations character for character. ANY extra, missing or altered word FAILS.
- Use AT MOST 3 ids, each AT MOST once, and ONLY ids from the list above.
- If unsure, answer with a single quotation copied exactly, and its id.
- No commentary, no Markdown, no code fences. A single JSON object.
`)
	}

	if t != tierBaseline && lastReason != "" {
		sb.WriteString(fmt.Sprintf("\nPrevious answer rejected because: %s\n", lastReason))
	}

	sb.WriteString("\n")
	sb.WriteString(responseFormat)
	return sb.String()
}
