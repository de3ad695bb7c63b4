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
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/valpere/bardtran/internal/chunker"
	"github.com/valpere/bardtran/internal/markdown"
	"github.com/valpere/bardtran/internal/orchestrator"
)

var (
	inputFile    string
	sceneFile    string
	outputFile   string
	outputFormat string
	sessionID    string
	useHybrid    bool
	englishOnly  bool
	skipHealth   bool
)

var translateCmd = &cobra.Command{
	Use:   "translate [line]",
	Short: "Translate modern lines into verbatim corpus quotations",
	Long: `Translate a single line, a file of modern text, or a scene.

Input files are split into lines at line breaks and at sentence-ending
punctuation, so a paragraph becomes one line per sentence.

Scene files hold one "SPEAKER: text" row per line; the speaker is optional,
rows starting with '#' are comments and a leading "# title" names the scene.

Lines of one session never reuse a span. Pass --session to continue an
earlier session; otherwise a new session id is generated.

Output formats: text, json, markdown, html`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sources := 0
		for _, set := range []bool{len(args) == 1, inputFile != "", sceneFile != ""} {
			if set {
				sources++
			}
		}
		if sources != 1 {
			return fmt.Errorf("provide exactly one of a line argument, --file or --scene")
		}
		if _, ok := renderers[outputFormat]; !ok {
			return fmt.Errorf("unknown output format %q", outputFormat)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		eng, err := buildEngine(ctx, cfg, engineOptions{englishOnly: englishOnly, skipHealth: skipHealth})
		if err != nil {
			return err
		}
		defer eng.Close()

		if sessionID == "" {
			sessionID = uuid.New().String()
		}
		if err := eng.orch.StartSession(ctx, sessionID); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Session: %s\n", sessionID)

		var (
			title   string
			entries []markdown.Entry
			total   int
			runErr  error
		)
		switch {
		case len(args) == 1:
			total = 1
			res, err := eng.orch.TranslateLine(ctx, args[0], useHybrid)
			if err != nil {
				var le *orchestrator.LineError
				if errors.As(err, &le) {
					return fmt.Errorf("no verifiable translation for %q: %s", le.Line, le.Reason)
				}
				return err
			}
			entries = append(entries, markdown.Entry{Result: *res})

		case inputFile != "":
			lines, err := readLines(inputFile)
			if err != nil {
				return err
			}
			total = len(lines)
			results, err := eng.orch.TranslateGroup(ctx, lines, useHybrid)
			runErr = err
			for _, r := range results {
				entries = append(entries, markdown.Entry{Result: r})
			}

		default:
			f, err := os.Open(sceneFile)
			if err != nil {
				return fmt.Errorf("failed to open scene file: %w", err)
			}
			scene, err := orchestrator.ParseScene(f)
			f.Close()
			if err != nil {
				return err
			}
			title, total = scene.Title, len(scene.Lines)
			results, err := eng.orch.TranslateScene(ctx, scene, useHybrid)
			runErr = err
			for _, r := range results {
				entries = append(entries, markdown.Entry{Speaker: r.Speaker, Result: r.Result})
			}
		}

		out, err := render(outputFormat, title, entries)
		if err != nil {
			return err
		}
		if err := writeOutput(outputFile, out); err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "Translated %d/%d lines\n", len(entries), total)
		if runErr != nil {
			return fmt.Errorf("translation stopped early: %w", runErr)
		}
		return nil
	},
}

// readLines splits the file into modern lines: one per row, with rows
// holding several sentences split at sentence punctuation.
func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	return chunker.Sentences(string(data)), nil
}

func writeOutput(path string, out []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(out)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().StringVarP(&inputFile, "file", "i", "", "File with one modern line per row")
	translateCmd.Flags().StringVar(&sceneFile, "scene", "", "Scene file with SPEAKER: text rows")
	translateCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default stdout)")
	translateCmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text, json, markdown, html")
	translateCmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session id (default: new uuid)")
	translateCmd.Flags().BoolVar(&useHybrid, "hybrid", false, "Use keyword-augmented hybrid retrieval from the start")
	translateCmd.Flags().BoolVar(&englishOnly, "english-only", false, "Reject input lines not detected as English")
	translateCmd.Flags().BoolVar(&skipHealth, "skip-health", false, "Do not require the retrieval gateway health check to pass")
}
