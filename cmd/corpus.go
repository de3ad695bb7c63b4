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
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/bardtran/internal/corpus"
	"github.com/valpere/bardtran/internal/retrieval"
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Inspect the ground-truth corpus",
}

var checkGateway bool

var corpusCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Load the corpus and report its contents",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := corpus.Load(cfg.Corpus)
		if err != nil {
			return fmt.Errorf("failed to load corpus: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TITLE\tSPANS")
		for _, tc := range c.Titles() {
			fmt.Fprintf(w, "%s\t%d\n", tc.Title, tc.Spans)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("Total spans: %d\n", c.Len())

		if checkGateway {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			gw := retrieval.NewHTTPGateway(cfg.Retrieval.BaseURL, cfg.Retrieval.Timeout)
			if err := gw.Ping(ctx); err != nil {
				return fmt.Errorf("retrieval gateway unreachable: %w", err)
			}
			fmt.Printf("Retrieval gateway OK: %s\n", cfg.Retrieval.BaseURL)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(corpusCmd)
	corpusCmd.AddCommand(corpusCheckCmd)

	corpusCheckCmd.Flags().BoolVar(&checkGateway, "gateway", false, "Also check that the retrieval gateway answers")
}
