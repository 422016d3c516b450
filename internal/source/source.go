// Package source pulls raw listening events from an upstream play history.
package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RawEvent is one play as reported by the upstream service, before
// normalization. PlayedAt is a hint and may be zero when the service only
// reports coarse buckets like "Today".
type RawEvent struct {
	Title           string
	Artist          string
	Album           string
	DurationSeconds int
	PlayedAt        time.Time
}

// Feed produces raw listening events, most recent first. lookback bounds how
// far back events are requested; feeds without precise timestamps may return
// everything the service reports.
type Feed interface {
	RecentTracks(ctx context.Context, lookback time.Duration) ([]RawEvent, error)
}

// ParseClockDuration converts a clock-style duration ("3:45", "1:02:45") to
// seconds. Returns 0 for an empty string.
func ParseClockDuration(text string) (int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, nil
	}

	parts := strings.Split(text, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("malformed duration %q", text)
	}

	total := 0
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			return 0, fmt.Errorf("malformed duration %q", text)
		}
		total = total*60 + n
	}
	return total, nil
}
