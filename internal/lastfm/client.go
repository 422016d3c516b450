// Package lastfm adapts the Last.fm web API to the catalog lookup and
// scrobble submission contracts.
package lastfm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shkh/lastfm-go/lastfm"

	"backbeat/internal/catalog"
	"backbeat/internal/scrobble"
)

// ErrNotAuthenticated is returned when an operation requires a session.
var ErrNotAuthenticated = errors.New("lastfm: not authenticated")

// Client wraps the Last.fm API for catalog search and scrobbling.
type Client struct {
	api           *lastfm.Api
	logger        *slog.Logger
	authenticated bool
}

// New creates a client with the given API credentials. Call Login before
// submitting scrobbles; search works unauthenticated.
func New(apiKey, apiSecret string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		api:    lastfm.New(apiKey, apiSecret),
		logger: logger,
	}
}

// Login authenticates with the mobile auth flow and establishes a session.
func (c *Client) Login(username, password string) error {
	if err := c.api.Login(username, password); err != nil {
		return fmt.Errorf("lastfm login: %w", err)
	}
	c.authenticated = true
	return nil
}

// Authenticated reports whether a session has been established.
func (c *Client) Authenticated() bool {
	return c.authenticated
}

// Search queries the track catalog and returns candidates ordered as the
// service ranks them. Implements catalog.Lookup.
func (c *Client) Search(ctx context.Context, artist, title string, limit int) ([]catalog.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 15
	}

	params := lastfm.P{
		"track": title,
		"limit": limit,
	}
	if artist != "" {
		params["artist"] = artist
	}

	result, err := c.api.Track.Search(params)
	if err != nil {
		return nil, fmt.Errorf("lastfm track search: %w", err)
	}

	candidates := make([]catalog.Candidate, 0, len(result.Tracks))
	for _, match := range result.Tracks {
		candidates = append(candidates, catalog.Candidate{
			Title:     match.Name,
			Artist:    match.Artist,
			Listeners: parseListeners(match.Listeners),
		})
	}
	c.logger.Debug("catalog search",
		slog.String("artist", artist),
		slog.String("title", title),
		slog.Int("candidates", len(candidates)))
	return candidates, nil
}

// Submit records a single play. Implements scrobble.Submitter.
func (c *Client) Submit(ctx context.Context, sub scrobble.Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.authenticated {
		return ErrNotAuthenticated
	}

	params := lastfm.P{
		"artist":    sub.Artist,
		"track":     sub.Title,
		"timestamp": sub.Timestamp.Unix(),
	}
	if sub.Album != "" {
		params["album"] = sub.Album
	}
	if sub.Duration > 0 {
		params["duration"] = int(sub.Duration.Seconds())
	}

	if _, err := c.api.Track.Scrobble(params); err != nil {
		return fmt.Errorf("lastfm scrobble: %w", err)
	}
	c.logger.Debug("scrobble submitted",
		slog.String("artist", sub.Artist),
		slog.String("title", sub.Title),
		slog.Int64("timestamp", sub.Timestamp.Unix()))
	return nil
}

// parseListeners converts the API's numeric string field, tolerating
// thousands separators and blank values.
func parseListeners(raw string) int64 {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
