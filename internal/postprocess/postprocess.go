// Package postprocess removes common LLM artifacts from a structured reply
// before it is decoded.
//
// The HTTP generator backends drop reasoning blocks from every reply; the
// assembler runs the full CleanJSON pass before decoding.
package postprocess

import (
	"regexp"
	"strings"
)

// CleanJSON strips reasoning blocks and Markdown code fences, then narrows
// the text to its outermost JSON object when one is present. The result is
// trimmed. Text without a JSON object is returned as cleaned.
func CleanJSON(text string) string {
	text = RemoveThinkingBlocks(text)
	text = StripCodeFences(text)
	if obj, ok := ExtractJSONObject(text); ok {
		return obj
	}
	return strings.TrimSpace(text)
}

// --- thinking blocks ---

// thinkingBlockRe matches complete <thinking>…</thinking> style blocks.
// Each tag variant is listed explicitly because Go's RE2 engine does not
// support backreferences.
var thinkingBlockRe = regexp.MustCompile(
	`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>|<reflection>.*?</reflection>`,
)

// truncatedThinkingRe matches an opened thinking tag whose closing tag is
// missing (the model was cut off mid-thought).
var truncatedThinkingRe = regexp.MustCompile(
	`(?is)(?:<thinking>|<think>|<reasoning>|<reflection>).*$`,
)

// RemoveThinkingBlocks drops reasoning blocks, including a truncated one at
// the end of the text.
func RemoveThinkingBlocks(text string) string {
	text = thinkingBlockRe.ReplaceAllString(text, "")
	text = truncatedThinkingRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// --- code fences ---

// fenceRe captures the body of the first fenced block, with or without a
// language tag.
var fenceRe = regexp.MustCompile("(?s)```[a-zA-Z0-9_-]*[ \t]*\r?\n?(.*?)```")

// StripCodeFences returns the body of the first Markdown code fence, or the
// trimmed text when there is none. An unterminated opening fence is dropped.
func StripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			text = text[nl+1:]
		}
	}
	return strings.TrimSpace(text)
}

// --- JSON object ---

// ExtractJSONObject returns the first balanced {...} object in text,
// skipping braces inside JSON strings.
func ExtractJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
