package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir()
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.HeadersFile) == "" {
		c.Paths.HeadersFile = defaultHeadersFile()
	}
	if c.Paths.HeadersFile, err = expandPath(c.Paths.HeadersFile); err != nil {
		return fmt.Errorf("paths.headers_file: %w", err)
	}

	c.Matching.Algorithm = strings.ToLower(strings.TrimSpace(c.Matching.Algorithm))
	if c.Matching.Algorithm == "" {
		c.Matching.Algorithm = defaultAlgorithm
	}
	if c.Matching.CandidateLimit <= 0 {
		c.Matching.CandidateLimit = defaultCandidateLimit
	}

	if c.Dedup.DefaultDurationSeconds <= 0 {
		c.Dedup.DefaultDurationSeconds = defaultDurationSeconds
	}
	if c.Dedup.BufferSeconds <= 0 {
		c.Dedup.BufferSeconds = defaultBufferSeconds
	}

	if c.Source.LookbackDays <= 0 {
		c.Source.LookbackDays = defaultLookbackDays
	}
	if c.History.RetentionDays <= 0 {
		c.History.RetentionDays = defaultRetentionDays
	}
	if c.Submission.IntervalSeconds <= 0 {
		c.Submission.IntervalSeconds = defaultIntervalSeconds
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}
