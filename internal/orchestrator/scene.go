package orchestrator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/valpere/bardtran/internal/quote"
)

// SceneLine is one speaker-attributed modern line.
type SceneLine struct {
	Speaker string `json:"speaker,omitempty"`
	Text    string `json:"text"`
}

// Scene is an ordered list of lines, translated as one batch.
type Scene struct {
	Title string      `json:"title,omitempty"`
	Lines []SceneLine `json:"lines"`
}

// SceneResult pairs a translated line with its speaker and position.
type SceneResult struct {
	Index   int                     `json:"index"`
	Speaker string                  `json:"speaker,omitempty"`
	Result  quote.TranslationResult `json:"result"`
}

// TranslateScene translates every line of a scene in order, sharing the
// ledger across lines like TranslateGroup. Failed lines are skipped.
func (o *Orchestrator) TranslateScene(ctx context.Context, scene Scene, useHybrid bool) ([]SceneResult, error) {
	results := make([]SceneResult, 0, len(scene.Lines))
	for i, sl := range scene.Lines {
		res, err := o.TranslateLine(ctx, sl.Text, useHybrid)
		if errors.Is(err, ErrLineFailed) {
			continue
		}
		if err != nil {
			return results, err
		}
		results = append(results, SceneResult{Index: i, Speaker: sl.Speaker, Result: *res})
	}
	return results, nil
}

// maxSpeakerWords bounds what counts as a speaker prefix.
const maxSpeakerWords = 3

// ParseScene reads one line per row in the form "SPEAKER: text". The speaker
// is optional. Blank rows and rows starting with '#' are skipped; a leading
// "# title" row names the scene.
func ParseScene(r io.Reader) (Scene, error) {
	var scene Scene
	sc := bufio.NewScanner(r)
	first := true
	for sc.Scan() {
		row := strings.TrimSpace(sc.Text())
		if row == "" {
			continue
		}
		if strings.HasPrefix(row, "#") {
			if first && scene.Title == "" {
				scene.Title = strings.TrimSpace(strings.TrimLeft(row, "#"))
			}
			continue
		}
		first = false
		scene.Lines = append(scene.Lines, parseSceneRow(row))
	}
	if err := sc.Err(); err != nil {
		return Scene{}, fmt.Errorf("failed to read scene: %w", err)
	}
	return scene, nil
}

func parseSceneRow(row string) SceneLine {
	i := strings.Index(row, ":")
	if i <= 0 {
		return SceneLine{Text: row}
	}
	speaker := strings.TrimSpace(row[:i])
	text := strings.TrimSpace(row[i+1:])
	words := strings.Fields(speaker)
	if text == "" || len(words) > maxSpeakerWords || !unicode.IsUpper([]rune(speaker)[0]) {
		return SceneLine{Text: row}
	}
	return SceneLine{Speaker: speaker, Text: text}
}
