package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

// ValidateCredentials checks the Last.fm credentials a reconciliation pass
// needs. History tooling works without them, so this is separate from
// Validate.
func (c *Config) ValidateCredentials() error {
	if c.LastFM.APIKey == "" {
		return fmt.Errorf("lastfm.api_key is required. Set LASTFM_API_KEY or edit %s (create with 'backbeat config init')", DefaultConfigPath())
	}
	if c.LastFM.APISecret == "" {
		return errors.New("lastfm.api_secret is required. Set LASTFM_API_SECRET or edit the config file")
	}
	if c.LastFM.Username == "" || c.LastFM.Password == "" {
		return errors.New("lastfm.username and lastfm.password are required for scrobble submission")
	}
	return nil
}

func (c *Config) validateMatching() error {
	switch c.Matching.Algorithm {
	case "levenshtein", "jaro-winkler":
	default:
		return fmt.Errorf("matching.algorithm must be levenshtein or jaro-winkler, got %q", c.Matching.Algorithm)
	}
	if c.Matching.Threshold < 0 || c.Matching.Threshold > 1 {
		return errors.New("matching.threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
