// Package markdown renders translation results as Markdown documents with
// source citations, and Markdown as HTML.
package markdown

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/valpere/bardtran/internal/quote"
)

// Entry is one rendered line. Speaker is optional.
type Entry struct {
	Speaker string
	Result  quote.TranslationResult
}

// Document renders entries as a Markdown document. Each line is quoted and
// followed by the modern input and the cited spans.
func Document(title string, entries []Entry) []byte {
	var sb strings.Builder
	if title != "" {
		fmt.Fprintf(&sb, "# %s\n\n", title)
	}
	for i, e := range entries {
		if i > 0 {
			sb.WriteString("---\n\n")
		}
		writeEntry(&sb, e)
	}
	return []byte(sb.String())
}

func writeEntry(sb *strings.Builder, e Entry) {
	if e.Speaker != "" {
		fmt.Fprintf(sb, "**%s**\n\n", e.Speaker)
	}
	fmt.Fprintf(sb, "> %s\n\n", e.Result.Text)
	if e.Result.OriginalModernLine != "" {
		fmt.Fprintf(sb, "*Modern:* %s\n\n", e.Result.OriginalModernLine)
	}
	if len(e.Result.References) > 0 {
		sb.WriteString("*Sources:*\n\n")
		for i, ref := range e.Result.References {
			id := ""
			if i < len(e.Result.TempIDs) {
				id = fmt.Sprintf(" (`%s`)", e.Result.TempIDs[i])
			}
			fmt.Fprintf(sb, "- %s%s\n", ref, id)
		}
		sb.WriteString("\n")
	}
	if e.Result.Degraded {
		sb.WriteString("*Single-quote fallback.*\n\n")
	}
}

func ToHTML(md []byte) string {
	opts := html.RendererOptions{
		Flags: html.CommonFlags | html.HrefTargetBlank,
	}
	renderer := html.NewRenderer(opts)
	ext := parser.CommonExtensions | parser.Attributes
	p := parser.NewWithExtensions(ext)
	doc := p.Parse(md)
	return string(markdown.Render(doc, renderer))
}
