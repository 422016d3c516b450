package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"backbeat/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and maintain the scrobble history",
	}

	historyCmd.AddCommand(newHistoryStatsCommand(ctx))
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistorySearchCommand(ctx))
	historyCmd.AddCommand(newHistoryCleanupCommand(ctx))

	return historyCmd
}

func newHistoryStatsCommand(ctx *commandContext) *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show history statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory(nil)
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context(), top)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			overview := newReportTable("Stat", "Value")
			overview.addRow("Total scrobbles", fmt.Sprintf("%d", stats.Total))
			overview.addRow("Unique tracks", fmt.Sprintf("%d", stats.UniqueTracks))
			if !stats.Oldest.IsZero() {
				overview.addRow("Oldest", fmt.Sprintf("%s (%s)",
					stats.Oldest.Format(time.RFC3339), humanize.Time(stats.Oldest)))
			}
			if !stats.Newest.IsZero() {
				overview.addRow("Newest", fmt.Sprintf("%s (%s)",
					stats.Newest.Format(time.RFC3339), humanize.Time(stats.Newest)))
			}
			fmt.Fprintln(out, overview.render())

			if len(stats.TopArtists) > 0 {
				artists := newReportTable("Artist", "Plays")
				artists.rightAlign(2)
				for _, entry := range stats.TopArtists {
					artists.addRow(entry.Artist, fmt.Sprintf("%d", entry.Count))
				}
				fmt.Fprintln(out, artists.render())
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&top, "top", 10, "Number of top artists to show")
	return cmd
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent scrobbles",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory(nil)
			if err != nil {
				return err
			}
			defer store.Close()

			cutoff := time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
			records, err := store.Since(cmd.Context(), cutoff)
			if err != nil {
				return err
			}
			printRecords(cmd, records)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "How many days back to list")
	return cmd
}

func newHistorySearchCommand(ctx *commandContext) *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search scrobbles by title or artist",
		RunE: func(cmd *cobra.Command, args []string) error {
			if query == "" && len(args) > 0 {
				query = args[0]
			}
			if query == "" {
				return fmt.Errorf("a search query is required (--query or positional argument)")
			}

			store, err := ctx.openHistory(nil)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.Search(cmd.Context(), query)
			if err != nil {
				return err
			}
			printRecords(cmd, records)
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Substring to match against title or artist")
	return cmd
}

func newHistoryCleanupCommand(ctx *commandContext) *cobra.Command {
	var force bool
	var days int

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove scrobbles older than the retention window (dry run by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			retention := cfg.Retention()
			if days > 0 {
				retention = time.Duration(days) * 24 * time.Hour
			}

			store, err := ctx.openHistory(nil)
			if err != nil {
				return err
			}
			defer store.Close()

			now := time.Now().UTC()
			out := cmd.OutOrStdout()

			if !force {
				would, err := store.PruneDryRun(cmd.Context(), now, retention)
				if err != nil {
					return err
				}
				if len(would) == 0 {
					fmt.Fprintln(out, "Nothing to remove.")
					return nil
				}
				printRecords(cmd, would)
				fmt.Fprintf(out, "Would remove %d record(s). Re-run with --force to delete.\n", len(would))
				return nil
			}

			removed, err := store.Prune(cmd.Context(), now, retention)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Removed %d record(s).\n", removed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Actually delete instead of reporting")
	cmd.Flags().IntVar(&days, "days", 0, "Override the retention window in days")
	return cmd
}

func printRecords(cmd *cobra.Command, records []history.Record) {
	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "No scrobbles found.")
		return
	}
	tbl := newReportTable("When", "Age", "Artist", "Title", "Length")
	tbl.rightAlign(5)
	for _, rec := range records {
		duration := ""
		if rec.DurationSeconds > 0 {
			duration = fmt.Sprintf("%d:%02d", rec.DurationSeconds/60, rec.DurationSeconds%60)
		}
		tbl.addRow(
			rec.ScrobbledAt.Format("2006-01-02 15:04"),
			humanize.Time(rec.ScrobbledAt),
			rec.Artist,
			rec.Title,
			duration,
		)
	}
	fmt.Fprintln(out, tbl.render())
}
