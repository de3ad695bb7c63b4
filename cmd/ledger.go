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
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/bardtran/internal"
	"github.com/valpere/bardtran/internal/ledger"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Manage session ledgers of used spans",
	Long:  `List, inspect, reset, and delete the used-span ledgers of translation sessions.`,
}

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		b, err := openBackend(cfg)
		if err != nil {
			return err
		}
		defer b.Close()

		sessions, err := listSessions(ctx, b)
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SESSION\tSPANS\tTRANSLATIONS\tUPDATED")
		for _, s := range sessions {
			updated := "-"
			if !s.UpdatedAt.IsZero() {
				updated = s.UpdatedAt.Format("2006-01-02 15:04")
			}
			fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", s.ID, s.Spans, s.Translations, updated)
		}
		return w.Flush()
	},
}

var ledgerShowCmd = &cobra.Command{
	Use:   "show <session>",
	Short: "Show the used spans of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		b, err := openBackend(cfg)
		if err != nil {
			return err
		}
		defer b.Close()

		l := ledger.New(b.persister)
		if err := l.Open(ctx, args[0]); err != nil {
			return fmt.Errorf("failed to load ledger: %w", err)
		}
		entries := l.Snapshot()
		if len(entries) == 0 {
			fmt.Printf("Session %s has no used spans.\n", args[0])
			return nil
		}

		keys := make([]string, 0, len(entries))
		for k := range entries {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "REFERENCE\tCONTEXTS")
		for _, k := range keys {
			fmt.Fprintf(w, "%s\t%v\n", k, entries[k])
		}
		return w.Flush()
	},
}

var ledgerHistoryCmd = &cobra.Command{
	Use:   "history [session]",
	Short: "Show translation history (sqlite backend)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBackend(cfg)
		if err != nil {
			return err
		}
		defer b.Close()
		if b.db == nil {
			return fmt.Errorf("translation history requires the sqlite ledger backend")
		}

		id := ""
		if len(args) == 1 {
			id = args[0]
		}
		records, err := b.db.ListTranslations(context.Background(), id)
		if err != nil {
			return fmt.Errorf("failed to list translations: %w", err)
		}
		if len(records) == 0 {
			fmt.Println("No translations.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SESSION\tWHEN\tMODE\tDEGRADED\tMODERN\tTEXT")
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\t%s\n",
				r.SessionID, r.CreatedAt.Format("2006-01-02 15:04"), r.Result.SearchMode,
				r.Result.Degraded, snippet(r.Result.OriginalModernLine), snippet(r.Result.Text))
		}
		return w.Flush()
	},
}

var ledgerResetCmd = &cobra.Command{
	Use:   "reset <session>",
	Short: "Forget the used spans of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		b, err := openBackend(cfg)
		if err != nil {
			return err
		}
		defer b.Close()

		l := ledger.New(b.persister)
		if err := l.Open(ctx, args[0]); err != nil {
			return fmt.Errorf("failed to load ledger: %w", err)
		}
		n := l.Len()
		l.Reset()
		if err := l.Save(ctx); err != nil {
			return fmt.Errorf("failed to save ledger: %w", err)
		}
		fmt.Printf("Cleared %d spans from session %s.\n", n, args[0])
		return nil
	},
}

var ledgerDeleteCmd = &cobra.Command{
	Use:   "delete <session>",
	Short: "Delete a session with its ledger and history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBackend(cfg)
		if err != nil {
			return err
		}
		defer b.Close()

		if b.db != nil {
			found, err := b.db.DeleteSession(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("failed to delete session: %w", err)
			}
			if !found {
				return fmt.Errorf("session not found: %s", args[0])
			}
		} else if err := b.files.Delete(args[0]); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		fmt.Printf("Deleted session: %s\n", args[0])
		return nil
	},
}

var ledgerStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show ledger statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		b, err := openBackend(cfg)
		if err != nil {
			return err
		}
		defer b.Close()

		if b.db != nil {
			stats, err := b.db.Stats(ctx)
			if err != nil {
				return fmt.Errorf("failed to get stats: %w", err)
			}
			fmt.Printf("Sessions:     %d\n", stats.Sessions)
			fmt.Printf("Used spans:   %d\n", stats.Spans)
			fmt.Printf("Translations: %d\n", stats.Translations)
			fmt.Printf("Degraded:     %d\n", stats.Degraded)
			return nil
		}

		sessions, err := listSessions(ctx, b)
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}
		spans := 0
		for _, s := range sessions {
			spans += s.Spans
		}
		fmt.Printf("Sessions:     %d\n", len(sessions))
		fmt.Printf("Used spans:   %d\n", spans)
		return nil
	},
}

// listSessions reads sessions from the sqlite store, or builds them from
// the ledger files of the file backend.
func listSessions(ctx context.Context, b *backend) ([]internal.SessionInfo, error) {
	if b.db != nil {
		return b.db.ListSessions(ctx)
	}
	ids, err := b.files.List()
	if err != nil {
		return nil, err
	}
	sessions := make([]internal.SessionInfo, 0, len(ids))
	for _, id := range ids {
		entries, err := b.files.LoadLedger(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", id, err)
		}
		info := internal.SessionInfo{ID: id}
		for _, labels := range entries {
			info.Spans += len(labels)
		}
		if path, err := b.files.Path(id); err == nil {
			if st, err := os.Stat(path); err == nil {
				info.UpdatedAt = st.ModTime()
			}
		}
		sessions = append(sessions, info)
	}
	return sessions, nil
}

func snippet(s string) string {
	r := []rune(s)
	if len(r) > 40 {
		return string(r[:37]) + "..."
	}
	return s
}

func init() {
	rootCmd.AddCommand(ledgerCmd)

	ledgerCmd.AddCommand(ledgerListCmd)
	ledgerCmd.AddCommand(ledgerShowCmd)
	ledgerCmd.AddCommand(ledgerHistoryCmd)
	ledgerCmd.AddCommand(ledgerResetCmd)
	ledgerCmd.AddCommand(ledgerDeleteCmd)
	ledgerCmd.AddCommand(ledgerStatsCmd)
}
