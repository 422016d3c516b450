package reconcile

import "time"

// EventStatus classifies the outcome of one raw event in a pass.
type EventStatus string

const (
	StatusAccepted  EventStatus = "accepted"
	StatusDuplicate EventStatus = "duplicate"
	StatusFailed    EventStatus = "failed"
)

// EventResult records what happened to one raw event.
type EventResult struct {
	Title     string
	Artist    string
	Status    EventStatus
	Fallback  bool
	Reason    string
	Timestamp time.Time
}

// Report summarizes one reconciliation pass.
type Report struct {
	PassID     string
	Seen       int
	Accepted   int
	Duplicates int
	Fallbacks  int
	Failures   int
	Pruned     int
	Events     []EventResult
}

func (r *Report) add(result EventResult) {
	r.Events = append(r.Events, result)
	switch result.Status {
	case StatusAccepted:
		r.Accepted++
	case StatusDuplicate:
		r.Duplicates++
	case StatusFailed:
		r.Failures++
	}
	if result.Fallback {
		r.Fallbacks++
	}
}
