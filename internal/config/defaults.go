package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	defaultLookbackDays           = 14
	defaultAlgorithm              = "levenshtein"
	defaultThreshold              = 0.60
	defaultCandidateLimit         = 15
	defaultDurationSeconds        = 210
	defaultBufferSeconds          = 30
	defaultRetentionDays          = 14
	defaultIntervalSeconds        = 120
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultHistoryFileName        = "history.db"
	defaultLockFileName           = "backbeat.lock"
	defaultBrowserHeadersFileName = "browser.json"
)

func defaultDataDir() string {
	return filepath.Join(xdg.DataHome, "backbeat")
}

func defaultHeadersFile() string {
	return filepath.Join(xdg.ConfigHome, "backbeat", defaultBrowserHeadersFileName)
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "backbeat", "config.toml")
}

// Default returns a Config populated with repository defaults. Credentials
// are intentionally empty; they come from the config file or environment.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:     defaultDataDir(),
			HeadersFile: defaultHeadersFile(),
		},
		Source: Source{
			LookbackDays: defaultLookbackDays,
		},
		Matching: Matching{
			Algorithm:      defaultAlgorithm,
			Threshold:      defaultThreshold,
			CandidateLimit: defaultCandidateLimit,
		},
		Dedup: Dedup{
			DefaultDurationSeconds: defaultDurationSeconds,
			BufferSeconds:          defaultBufferSeconds,
		},
		History: History{
			RetentionDays: defaultRetentionDays,
		},
		Submission: Submission{
			IntervalSeconds: defaultIntervalSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
