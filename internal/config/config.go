package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains file and directory configuration.
type Paths struct {
	// DataDir holds the history database and the pass lock.
	DataDir string `toml:"data_dir"`
	// HeadersFile is the saved browser headers JSON for the source feed.
	HeadersFile string `toml:"headers_file"`
}

// LastFM contains API credentials. Every field can also be supplied through
// the environment (LASTFM_API_KEY, LASTFM_API_SECRET, LASTFM_USERNAME,
// LASTFM_PASSWORD), which takes precedence over the file.
type LastFM struct {
	APIKey    string `toml:"api_key"`
	APISecret string `toml:"api_secret"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// Source contains listening-history feed settings.
type Source struct {
	LookbackDays int `toml:"lookback_days"`
}

// Matching contains fuzzy matcher settings.
type Matching struct {
	Algorithm      string  `toml:"algorithm"`
	Threshold      float64 `toml:"threshold"`
	CandidateLimit int     `toml:"candidate_limit"`
}

// Dedup contains duplicate-detection settings.
type Dedup struct {
	DefaultDurationSeconds int `toml:"default_duration_seconds"`
	BufferSeconds          int `toml:"buffer_seconds"`
}

// History contains history store settings.
type History struct {
	RetentionDays int `toml:"retention_days"`
}

// Submission contains scrobble submission settings.
type Submission struct {
	IntervalSeconds int `toml:"interval_seconds"`
}

// Logging contains log output settings.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config is the complete backbeat configuration.
type Config struct {
	Paths      Paths      `toml:"paths"`
	LastFM     LastFM     `toml:"lastfm"`
	Source     Source     `toml:"source"`
	Matching   Matching   `toml:"matching"`
	Dedup      Dedup      `toml:"dedup"`
	History    History    `toml:"history"`
	Submission Submission `toml:"submission"`
	Logging    Logging    `toml:"logging"`
}

// Load locates, parses, and validates a configuration file. Defaults are
// applied first, then the file, then environment credential overrides. The
// returned config has all path fields expanded.
func Load(path string) (*Config, string, bool, error) {
	// A .env alongside the working directory may carry credentials; a
	// missing file is not an error.
	_ = godotenv.Load()

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func (c *Config) applyEnv() {
	overrides := []struct {
		env    string
		target *string
	}{
		{"LASTFM_API_KEY", &c.LastFM.APIKey},
		{"LASTFM_API_SECRET", &c.LastFM.APISecret},
		{"LASTFM_USERNAME", &c.LastFM.Username},
		{"LASTFM_PASSWORD", &c.LastFM.Password},
	}
	for _, o := range overrides {
		if value := strings.TrimSpace(os.Getenv(o.env)); value != "" {
			*o.target = value
		}
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath := DefaultConfigPath()
	projectPath, err := filepath.Abs("backbeat.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// HistoryDBPath returns the history database location.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.Paths.DataDir, defaultHistoryFileName)
}

// LockPath returns the pass lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, defaultLockFileName)
}

// Lookback returns the source feed lookback window.
func (c *Config) Lookback() time.Duration {
	return time.Duration(c.Source.LookbackDays) * 24 * time.Hour
}

// Retention returns the history retention window.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.History.RetentionDays) * 24 * time.Hour
}

// SubmitInterval returns the spacing between assigned timestamps.
func (c *Config) SubmitInterval() time.Duration {
	return time.Duration(c.Submission.IntervalSeconds) * time.Second
}

// EnsureDirectories creates the directories a pass needs.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, filepath.Dir(c.Paths.HeadersFile)}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// CreateSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func CreateSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	trimmed := strings.TrimSpace(pathValue)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	return filepath.Abs(trimmed)
}

// ExpandPath resolves ~ and relative segments in a user-supplied path.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
