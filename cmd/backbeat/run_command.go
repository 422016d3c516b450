package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"backbeat/internal/dedup"
	"backbeat/internal/lastfm"
	"backbeat/internal/match"
	"backbeat/internal/reconcile"
	"backbeat/internal/source"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one reconciliation pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateCredentials(); err != nil {
				return err
			}

			logger, err := ctx.buildLogger()
			if err != nil {
				return err
			}

			lock := reconcile.NewPassLock(cfg.LockPath())
			if err := lock.Acquire(); err != nil {
				if errors.Is(err, reconcile.ErrPassInProgress) {
					logger.Info("pass skipped", slog.String("reason", "another pass holds the lock"))
				}
				return err
			}
			defer func() {
				if err := lock.Release(); err != nil {
					logger.Warn("failed to release pass lock", slog.Any("error", err))
				}
			}()

			store, err := ctx.openHistory(logger)
			if err != nil {
				return err
			}
			defer store.Close()

			client := lastfm.New(cfg.LastFM.APIKey, cfg.LastFM.APISecret, logger)
			if err := client.Login(cfg.LastFM.Username, cfg.LastFM.Password); err != nil {
				return err
			}

			similarity, err := match.NewSimilarity(cfg.Matching.Algorithm)
			if err != nil {
				return err
			}

			feed := source.NewYTMusic(cfg.Paths.HeadersFile, logger)
			engine := &dedup.Engine{
				DefaultDuration: time.Duration(cfg.Dedup.DefaultDurationSeconds) * time.Second,
				Buffer:          time.Duration(cfg.Dedup.BufferSeconds) * time.Second,
			}

			reconciler := reconcile.New(feed, client,
				match.New(similarity, cfg.Matching.Threshold),
				engine, store, client, logger,
				reconcile.Options{
					SubmitInterval: cfg.SubmitInterval(),
					Retention:      cfg.Retention(),
					CandidateLimit: cfg.Matching.CandidateLimit,
					Lookback:       cfg.Lookback(),
				})

			report, err := reconciler.Run(cmd.Context())
			if report != nil {
				printReport(cmd, report)
			}
			return err
		},
	}
	return cmd
}

func printReport(cmd *cobra.Command, report *reconcile.Report) {
	out := cmd.OutOrStdout()
	summary := newReportTable("Seen", "Accepted", "Duplicates", "Fallbacks", "Failures", "Pruned")
	summary.rightAlign(1, 2, 3, 4, 5, 6)
	summary.addRow(
		fmt.Sprintf("%d", report.Seen),
		fmt.Sprintf("%d", report.Accepted),
		fmt.Sprintf("%d", report.Duplicates),
		fmt.Sprintf("%d", report.Fallbacks),
		fmt.Sprintf("%d", report.Failures),
		fmt.Sprintf("%d", report.Pruned),
	)
	fmt.Fprintln(out, summary.render())

	if len(report.Events) == 0 {
		return
	}
	events := newReportTable("Artist", "Title", "Status", "Scrobbled At", "Note")
	for _, ev := range report.Events {
		when := ""
		if !ev.Timestamp.IsZero() {
			when = ev.Timestamp.Format(time.RFC3339)
		}
		note := ev.Reason
		if ev.Fallback && note == "" {
			note = "no catalog match"
		}
		events.addRow(ev.Artist, ev.Title, string(ev.Status), when, note)
	}
	fmt.Fprintln(out, events.render())
}
