package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"backbeat/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a sample configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				target = config.DefaultConfigPath()
			}
			if err := config.CreateSample(target); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set the Last.fm credentials (or export LASTFM_API_KEY etc.) before running a pass.")
			return nil
		},
	}

	cmd.Flags().StringVar(&targetPath, "path", "", "Destination path for the sample config")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			masked := func(s string) string {
				if s == "" {
					return "(unset)"
				}
				return "(set)"
			}

			tbl := newReportTable("Setting", "Value")
			tbl.addRow("paths.data_dir", cfg.Paths.DataDir)
			tbl.addRow("paths.headers_file", cfg.Paths.HeadersFile)
			tbl.addRow("lastfm.api_key", masked(cfg.LastFM.APIKey))
			tbl.addRow("lastfm.api_secret", masked(cfg.LastFM.APISecret))
			tbl.addRow("lastfm.username", cfg.LastFM.Username)
			tbl.addRow("lastfm.password", masked(cfg.LastFM.Password))
			tbl.addRow("source.lookback_days", fmt.Sprintf("%d", cfg.Source.LookbackDays))
			tbl.addRow("matching.algorithm", cfg.Matching.Algorithm)
			tbl.addRow("matching.threshold", fmt.Sprintf("%.2f", cfg.Matching.Threshold))
			tbl.addRow("matching.candidate_limit", fmt.Sprintf("%d", cfg.Matching.CandidateLimit))
			tbl.addRow("dedup.default_duration_seconds", fmt.Sprintf("%d", cfg.Dedup.DefaultDurationSeconds))
			tbl.addRow("dedup.buffer_seconds", fmt.Sprintf("%d", cfg.Dedup.BufferSeconds))
			tbl.addRow("history.retention_days", fmt.Sprintf("%d", cfg.History.RetentionDays))
			tbl.addRow("submission.interval_seconds", fmt.Sprintf("%d", cfg.Submission.IntervalSeconds))
			tbl.addRow("logging.format", cfg.Logging.Format)
			tbl.addRow("logging.level", cfg.Logging.Level)
			fmt.Fprintln(cmd.OutOrStdout(), tbl.render())
			return nil
		},
	}
}
