package postprocess

import "testing"

func TestRemoveThinkingBlocks(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "no thinking blocks",
			input:    `{"text": "to be", "temp_ids": ["line_1"]}`,
			expected: `{"text": "to be", "temp_ids": ["line_1"]}`,
		},
		{
			name:     "think block before json",
			input:    `<think>Pick the closest quotation</think>{"text": "x"}`,
			expected: `{"text": "x"}`,
		},
		{
			name:     "reasoning block",
			input:    "Start<reasoning>Weighing the options</reasoning>End",
			expected: "StartEnd",
		},
		{
			name:     "truncated thinking block (no closing)",
			input:    "<thinking>Assembly in progress",
			expected: "",
		},
		{
			name:     "truncated thinking in middle",
			input:    "Before<thinking>Incomplete",
			expected: "Before",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RemoveThinkingBlocks(tt.input)
			if result != tt.expected {
				t.Errorf("RemoveThinkingBlocks(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "json fence",
			input:    "```json\n{\"text\": \"a\"}\n```",
			expected: `{"text": "a"}`,
		},
		{
			name:     "bare fence",
			input:    "```\n{\"text\": \"a\"}\n```",
			expected: `{"text": "a"}`,
		},
		{
			name:     "fence with prose around it",
			input:    "Here you go:\n```json\n{\"text\": \"a\"}\n```\nEnjoy.",
			expected: `{"text": "a"}`,
		},
		{
			name:     "single line fence",
			input:    "```{\"text\": \"a\"}```",
			expected: `{"text": "a"}`,
		},
		{
			name:     "unterminated fence",
			input:    "```json\n{\"text\": \"a\"}",
			expected: `{"text": "a"}`,
		},
		{
			name:     "no fence",
			input:    `  {"text": "a"}  `,
			expected: `{"text": "a"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := StripCodeFences(tt.input)
			if result != tt.expected {
				t.Errorf("StripCodeFences(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"plain object", `{"a": 1}`, `{"a": 1}`, true},
		{"leading prose", `Answer: {"a": {"b": 2}} done`, `{"a": {"b": 2}}`, true},
		{"brace inside string", `{"text": "a } b", "n": 1}`, `{"text": "a } b", "n": 1}`, true},
		{"escaped quote inside string", `{"text": "say \"}\" now"}`, `{"text": "say \"}\" now"}`, true},
		{"unbalanced", `{"a": 1`, "", false},
		{"no object", `["line_1"]`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSONObject(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ExtractJSONObject(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestCleanJSON(t *testing.T) {
	input := "<think>hmm</think>\n```json\n{\"text\": \"the rest is silence\", \"temp_ids\": [\"line_1\"]}\n```"
	want := `{"text": "the rest is silence", "temp_ids": ["line_1"]}`
	if got := CleanJSON(input); got != want {
		t.Errorf("CleanJSON() = %q, want %q", got, want)
	}

	if got := CleanJSON("  not json  "); got != "not json" {
		t.Errorf("CleanJSON() = %q, want %q", got, "not json")
	}
}
