/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/valpere/bardtran/internal/markdown"
	"github.com/valpere/bardtran/internal/quote"
)

type renderFunc func(title string, entries []markdown.Entry) ([]byte, error)

var renderers = map[string]renderFunc{
	"text":     renderText,
	"json":     renderJSON,
	"markdown": renderMarkdown,
	"html":     renderHTML,
}

func render(format, title string, entries []markdown.Entry) ([]byte, error) {
	fn, ok := renderers[format]
	if !ok {
		return nil, fmt.Errorf("unknown output format %q", format)
	}
	return fn(title, entries)
}

func renderText(title string, entries []markdown.Entry) ([]byte, error) {
	var sb strings.Builder
	if title != "" {
		fmt.Fprintf(&sb, "%s\n\n", title)
	}
	for _, e := range entries {
		if e.Speaker != "" {
			fmt.Fprintf(&sb, "%s: ", e.Speaker)
		}
		sb.WriteString(e.Result.Text)
		if e.Result.Degraded {
			sb.WriteString(" [fallback]")
		}
		sb.WriteString("\n")
	}
	return []byte(sb.String()), nil
}

type jsonLine struct {
	Speaker string                  `json:"speaker,omitempty"`
	Result  quote.TranslationResult `json:"result"`
}

type jsonDocument struct {
	Title string     `json:"title,omitempty"`
	Lines []jsonLine `json:"lines"`
}

func renderJSON(title string, entries []markdown.Entry) ([]byte, error) {
	doc := jsonDocument{Title: title, Lines: make([]jsonLine, 0, len(entries))}
	for _, e := range entries {
		doc.Lines = append(doc.Lines, jsonLine{Speaker: e.Speaker, Result: e.Result})
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode results: %w", err)
	}
	return append(out, '\n'), nil
}

func renderMarkdown(title string, entries []markdown.Entry) ([]byte, error) {
	return markdown.Document(title, entries), nil
}

func renderHTML(title string, entries []markdown.Entry) ([]byte, error) {
	return []byte(markdown.ToHTML(markdown.Document(title, entries))), nil
}
