// Package scrobble defines the submission contract between the reconciler
// and whatever service records plays.
package scrobble

import (
	"context"
	"time"
)

// Submission is one finalized play ready to be recorded.
type Submission struct {
	Title     string
	Artist    string
	Album     string
	Duration  time.Duration
	Timestamp time.Time
}

// Submitter records plays with the scrobbling service.
type Submitter interface {
	Submit(ctx context.Context, sub Submission) error
}
