// Package reconcile runs one batch reconciliation pass: fetch raw events,
// normalize, match against the catalog, reject duplicates, assign
// timestamps, submit, record, prune.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"backbeat/internal/catalog"
	"backbeat/internal/dedup"
	"backbeat/internal/history"
	"backbeat/internal/match"
	"backbeat/internal/metadata"
	"backbeat/internal/scrobble"
	"backbeat/internal/source"
)

// Store is the slice of the history store the reconciler needs.
type Store interface {
	Insert(ctx context.Context, rec *history.Record) error
	MostRecent(ctx context.Context, key history.Key) (*history.Record, error)
	Prune(ctx context.Context, now time.Time, retention time.Duration) (int, error)
}

// Options tune a pass. Zero values select the defaults.
type Options struct {
	// SubmitInterval spaces assigned timestamps between accepted events.
	SubmitInterval time.Duration

	// Retention bounds history age for the prune step.
	Retention time.Duration

	// CandidateLimit caps catalog search results per event.
	CandidateLimit int

	// Lookback bounds how far back events are requested from the feed.
	Lookback time.Duration

	// Now overrides the clock, for tests.
	Now func() time.Time
}

const (
	// DefaultSubmitInterval is the spacing between assigned timestamps.
	DefaultSubmitInterval = 2 * time.Minute

	// DefaultCandidateLimit caps catalog search results per event.
	DefaultCandidateLimit = 15

	// DefaultLookback bounds the source feed request.
	DefaultLookback = 14 * 24 * time.Hour
)

func (o Options) withDefaults() Options {
	if o.SubmitInterval <= 0 {
		o.SubmitInterval = DefaultSubmitInterval
	}
	if o.Retention <= 0 {
		o.Retention = history.DefaultRetention
	}
	if o.CandidateLimit <= 0 {
		o.CandidateLimit = DefaultCandidateLimit
	}
	if o.Lookback <= 0 {
		o.Lookback = DefaultLookback
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Reconciler orchestrates one pass over a batch of raw events. It owns the
// store for the duration of the pass; callers serialize passes with a
// PassLock.
type Reconciler struct {
	feed      source.Feed
	lookup    catalog.Lookup
	matcher   *match.Matcher
	engine    *dedup.Engine
	store     Store
	submitter scrobble.Submitter
	logger    *slog.Logger
	opts      Options

	state State
}

// New assembles a Reconciler. All collaborators are required except logger.
func New(feed source.Feed, lookup catalog.Lookup, matcher *match.Matcher, engine *dedup.Engine, store Store, submitter scrobble.Submitter, logger *slog.Logger, opts Options) *Reconciler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reconciler{
		feed:      feed,
		lookup:    lookup,
		matcher:   matcher,
		engine:    engine,
		store:     store,
		submitter: submitter,
		logger:    logger,
		opts:      opts.withDefaults(),
		state:     StateIdle,
	}
}

// State reports the stage the current pass is in.
func (r *Reconciler) State() State {
	return r.state
}

func (r *Reconciler) setState(s State) {
	r.state = s
	r.logger.Debug("pass state", slog.String("state", string(s)))
}

// Run executes one pass. Per-event failures are reported in the result and
// never abort the batch; only fetch failures and prune failures surface as
// errors.
func (r *Reconciler) Run(ctx context.Context) (*Report, error) {
	report := &Report{PassID: uuid.NewString()}
	logger := r.logger.With(slog.String("pass_id", report.PassID))

	r.setState(StateFetching)
	defer r.setState(StateIdle)

	events, err := r.feed.RecentTracks(ctx, r.opts.Lookback)
	if err != nil {
		return report, fmt.Errorf("fetch listening events: %w", err)
	}
	report.Seen = len(events)

	// The feed reports newest first; the pass walks oldest first so
	// batch-internal dedup sees earlier plays before later ones.
	chronological := make([]source.RawEvent, len(events))
	for i, ev := range events {
		chronological[len(events)-1-i] = ev
	}

	now := r.opts.Now().UTC()
	sched := newSchedule(now, len(chronological), r.opts.SubmitInterval)

	for i, raw := range chronological {
		result := r.processEvent(ctx, logger, raw, i, sched)
		report.add(result)
	}

	r.setState(StatePruning)
	pruned, err := r.store.Prune(ctx, now, r.opts.Retention)
	if err != nil {
		return report, fmt.Errorf("prune history: %w", err)
	}
	report.Pruned = pruned

	logger.Info("pass complete",
		slog.Int("seen", report.Seen),
		slog.Int("accepted", report.Accepted),
		slog.Int("duplicates", report.Duplicates),
		slog.Int("fallbacks", report.Fallbacks),
		slog.Int("failures", report.Failures),
		slog.Int("pruned", report.Pruned))
	return report, nil
}

func (r *Reconciler) processEvent(ctx context.Context, logger *slog.Logger, raw source.RawEvent, position int, sched *schedule) EventResult {
	r.setState(StateNormalizing)
	norm := metadata.Normalize(raw.Title, raw.Artist)
	eventLogger := logger.With(
		slog.String("title", norm.Title),
		slog.String("artist", norm.Artist))

	r.setState(StateMatching)
	final := norm
	fallback := true
	if r.lookup != nil && (norm.Title != "" || norm.Artist != "") {
		candidates, err := r.lookup.Search(ctx, norm.Artist, norm.Title, r.opts.CandidateLimit)
		if err != nil {
			// Transient lookup failure is a no-match, not a batch abort.
			eventLogger.Warn("catalog lookup failed, submitting normalized metadata", slog.Any("error", err))
			candidates = nil
		}
		if outcome := r.matcher.Match(norm, candidates); outcome != nil {
			final = metadata.Track{Title: outcome.Candidate.Title, Artist: outcome.Candidate.Artist}
			fallback = false
			eventLogger.Debug("catalog match",
				slog.String("matched_title", final.Title),
				slog.String("matched_artist", final.Artist),
				slog.Float64("similarity", outcome.Similarity),
				slog.Float64("score", outcome.Score))
		} else {
			eventLogger.Info("no catalog match, submitting normalized metadata")
		}
	}

	folded := metadata.FoldTrack(final)
	key := history.Key{Title: folded.Title, Artist: folded.Artist}
	if key == (history.Key{}) {
		// Nothing to correlate on and nothing worth submitting.
		eventLogger.Warn("event has no usable metadata, skipping",
			slog.String("raw_title", raw.Title),
			slog.String("raw_artist", raw.Artist))
		return EventResult{Status: StatusFailed, Fallback: fallback, Reason: "no usable metadata after normalization"}
	}
	duration := time.Duration(raw.DurationSeconds) * time.Second

	// The duplicate check needs the timestamp the event would be assigned.
	ts := sched.propose(position, raw.PlayedAt)

	r.setState(StateDeduping)
	dup, reason, err := r.engine.IsDuplicate(ctx, key, ts, duration, r.store)
	if err != nil {
		eventLogger.Error("duplicate check failed", slog.Any("error", err))
		return EventResult{Title: final.Title, Artist: final.Artist, Status: StatusFailed, Fallback: fallback, Reason: err.Error()}
	}
	if dup {
		eventLogger.Info("duplicate skipped", slog.String("reason", reason))
		return EventResult{Title: final.Title, Artist: final.Artist, Status: StatusDuplicate, Fallback: fallback, Reason: reason}
	}

	r.setState(StateTimestampAssigning)
	eventLogger.Debug("timestamp assigned", slog.Time("timestamp", ts))

	r.setState(StateSubmitting)
	sub := scrobble.Submission{
		Title:     final.Title,
		Artist:    final.Artist,
		Album:     raw.Album,
		Duration:  duration,
		Timestamp: ts,
	}
	if err := r.submitter.Submit(ctx, sub); err != nil {
		eventLogger.Warn("submission failed", slog.Any("error", err))
		return EventResult{Title: final.Title, Artist: final.Artist, Status: StatusFailed, Fallback: fallback, Reason: err.Error(), Timestamp: ts}
	}

	r.setState(StateRecording)
	rec := &history.Record{
		Key:             key,
		Title:           final.Title,
		Artist:          final.Artist,
		Album:           raw.Album,
		DurationSeconds: raw.DurationSeconds,
		ScrobbledAt:     ts,
	}
	if err := r.store.Insert(ctx, rec); err != nil {
		// The scrobble went through; losing the record risks a future
		// duplicate but the submission itself succeeded.
		eventLogger.Error("recording accepted scrobble failed", slog.Any("error", err))
		return EventResult{Title: final.Title, Artist: final.Artist, Status: StatusFailed, Fallback: fallback, Reason: err.Error(), Timestamp: ts}
	}
	sched.commit(ts)

	eventLogger.Info("scrobble accepted", slog.Time("timestamp", ts), slog.Bool("fallback", fallback))
	return EventResult{Title: final.Title, Artist: final.Artist, Status: StatusAccepted, Fallback: fallback, Timestamp: ts}
}

// schedule assigns plausible, strictly increasing timestamps. Source hints
// are honored when they keep accepted events strictly ordered and do not run
// ahead of the pass start; otherwise events get position-spaced slots working
// backwards from the pass start so the newest event lands at "now".
type schedule struct {
	anchor   time.Time
	total    int
	interval time.Duration
	last     time.Time
}

func newSchedule(anchor time.Time, total int, interval time.Duration) *schedule {
	return &schedule{anchor: anchor, total: total, interval: interval}
}

func (s *schedule) propose(position int, hint time.Time) time.Time {
	if !hint.IsZero() {
		hint = hint.UTC()
		if hint.After(s.last) && !hint.After(s.anchor) {
			return hint
		}
	}
	slot := s.anchor.Add(-time.Duration(s.total-1-position) * s.interval)
	if !s.last.IsZero() && !slot.After(s.last) {
		slot = s.last.Add(s.interval)
	}
	return slot
}

func (s *schedule) commit(ts time.Time) {
	if ts.After(s.last) {
		s.last = ts
	}
}
