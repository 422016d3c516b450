// Package dedup decides whether a play is a repeat of one already recorded.
//
// A play counts as a duplicate of the most recent record for the same track
// when not enough wall-clock time has passed for the track to have been
// played through again, with a small buffer for gaps between plays.
package dedup

import (
	"context"
	"fmt"
	"time"

	"backbeat/internal/history"
)

const (
	// DefaultDuration is assumed when a track's length is unknown.
	DefaultDuration = 210 * time.Second

	// DefaultBuffer pads the duration gap to absorb pauses between plays.
	DefaultBuffer = 30 * time.Second
)

// History is the slice of the history store the engine needs.
type History interface {
	MostRecent(ctx context.Context, key history.Key) (*history.Record, error)
}

// Engine applies the duration-aware duplicate rule.
type Engine struct {
	// DefaultDuration substitutes for unknown track lengths. Zero selects
	// the package default.
	DefaultDuration time.Duration

	// Buffer widens the minimum gap beyond the track duration. Zero
	// selects the package default.
	Buffer time.Duration
}

// New returns an Engine with the default duration and buffer.
func New() *Engine {
	return &Engine{DefaultDuration: DefaultDuration, Buffer: DefaultBuffer}
}

func (e *Engine) defaults() (duration, buffer time.Duration) {
	duration = e.DefaultDuration
	if duration <= 0 {
		duration = DefaultDuration
	}
	buffer = e.Buffer
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return duration, buffer
}

// IsDuplicate reports whether a play of key at ts duplicates the most recent
// record for the same key. duration is the track length; zero or negative
// falls back to the engine default. The returned reason explains a true
// verdict and is empty otherwise.
func (e *Engine) IsDuplicate(ctx context.Context, key history.Key, ts time.Time, duration time.Duration, hist History) (bool, string, error) {
	defaultDuration, buffer := e.defaults()
	if duration <= 0 {
		duration = defaultDuration
	}

	last, err := hist.MostRecent(ctx, key)
	if err != nil {
		return false, "", fmt.Errorf("look up last scrobble: %w", err)
	}
	if last == nil {
		return false, "", nil
	}

	elapsed := ts.Sub(last.ScrobbledAt)
	if elapsed <= 0 {
		return true, fmt.Sprintf("timestamp %s not after last scrobble at %s",
			ts.Format(time.RFC3339), last.ScrobbledAt.Format(time.RFC3339)), nil
	}

	minGap := duration + buffer
	if elapsed < minGap {
		return true, fmt.Sprintf("only %s since last scrobble, need %s", elapsed, minGap), nil
	}
	return false, "", nil
}
