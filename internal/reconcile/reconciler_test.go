package reconcile

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"backbeat/internal/catalog"
	"backbeat/internal/dedup"
	"backbeat/internal/history"
	"backbeat/internal/match"
	"backbeat/internal/scrobble"
	"backbeat/internal/source"
)

type stubFeed struct {
	events []source.RawEvent
	err    error
}

func (f *stubFeed) RecentTracks(_ context.Context, _ time.Duration) ([]source.RawEvent, error) {
	return f.events, f.err
}

type stubLookup struct {
	candidates []catalog.Candidate
	err        error
	calls      int
}

func (l *stubLookup) Search(_ context.Context, _, _ string, _ int) ([]catalog.Candidate, error) {
	l.calls++
	return l.candidates, l.err
}

type stubSubmitter struct {
	subs    []scrobble.Submission
	failOn  map[int]error
	attempt int
}

func (s *stubSubmitter) Submit(_ context.Context, sub scrobble.Submission) error {
	s.attempt++
	if err, ok := s.failOn[s.attempt]; ok {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

type memStore struct {
	records []history.Record
	nextID  int64
}

func (m *memStore) Insert(_ context.Context, rec *history.Record) error {
	m.nextID++
	rec.ID = m.nextID
	m.records = append(m.records, *rec)
	return nil
}

func (m *memStore) MostRecent(_ context.Context, key history.Key) (*history.Record, error) {
	var latest *history.Record
	for i := range m.records {
		rec := &m.records[i]
		if rec.Key != key {
			continue
		}
		if latest == nil || rec.ScrobbledAt.After(latest.ScrobbledAt) {
			latest = rec
		}
	}
	if latest == nil {
		return nil, nil
	}
	out := *latest
	return &out, nil
}

func (m *memStore) Prune(_ context.Context, now time.Time, retention time.Duration) (int, error) {
	cutoff := now.Add(-retention)
	kept := m.records[:0]
	removed := 0
	for _, rec := range m.records {
		if rec.ScrobbledAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	m.records = kept
	return removed, nil
}

// exactSimilarity returns 1 for identical strings and 0 otherwise.
type exactSimilarity struct{}

func (exactSimilarity) Ratio(a, b string) float64 {
	if a == b {
		return 1
	}
	return 0
}

func newTestReconciler(feed source.Feed, lookup catalog.Lookup, store Store, submitter scrobble.Submitter, now time.Time) *Reconciler {
	return New(feed, lookup, match.New(exactSimilarity{}, 0), dedup.New(), store, submitter, nil, Options{
		Now: func() time.Time { return now },
	})
}

func sameTrackEvents(spacing time.Duration, count int, now time.Time) []source.RawEvent {
	// Newest first, the way a feed reports.
	events := make([]source.RawEvent, count)
	for i := 0; i < count; i++ {
		events[i] = source.RawEvent{
			Title:           "Song",
			Artist:          "Artist",
			DurationSeconds: 120,
			PlayedAt:        now.Add(-time.Duration(i) * spacing),
		}
	}
	return events
}

func TestRunAcceptsWellSpacedRepeats(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	store := &memStore{}
	submitter := &stubSubmitter{}
	r := newTestReconciler(&stubFeed{events: sameTrackEvents(10*time.Minute, 3, now)},
		nil, store, submitter, now)

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Seen != 3 || report.Accepted != 3 || report.Duplicates != 0 {
		t.Fatalf("report = %+v, want 3 seen, 3 accepted", report)
	}
	if len(store.records) != 3 {
		t.Fatalf("store has %d records, want 3", len(store.records))
	}
}

func TestRunRejectsTightlySpacedRepeats(t *testing.T) {
	// 120s tracks played 60s apart: only the first play is legitimate.
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	store := &memStore{}
	submitter := &stubSubmitter{}
	r := newTestReconciler(&stubFeed{events: sameTrackEvents(time.Minute, 3, now)},
		nil, store, submitter, now)

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Accepted != 1 || report.Duplicates != 2 {
		t.Fatalf("accepted = %d, duplicates = %d, want 1 and 2", report.Accepted, report.Duplicates)
	}
	if len(submitter.subs) != 1 {
		t.Fatalf("submitted %d, want 1", len(submitter.subs))
	}
}

func TestRunBatchInternalDedupWithoutHints(t *testing.T) {
	// Identical events with no timestamp hints land in adjacent 2-minute
	// slots, closer than the 150s gap a 120s track requires.
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	events := []source.RawEvent{
		{Title: "Song", Artist: "Artist", DurationSeconds: 120},
		{Title: "Song", Artist: "Artist", DurationSeconds: 120},
	}
	store := &memStore{}
	r := newTestReconciler(&stubFeed{events: events}, nil, store, &stubSubmitter{}, now)

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Accepted != 1 || report.Duplicates != 1 {
		t.Fatalf("accepted = %d, duplicates = %d, want 1 and 1", report.Accepted, report.Duplicates)
	}
}

func TestRunTimestampsStrictlyIncreasingNewestAtNow(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	events := []source.RawEvent{
		{Title: "Third", Artist: "Artist C", DurationSeconds: 200},
		{Title: "Second", Artist: "Artist B", DurationSeconds: 200},
		{Title: "First", Artist: "Artist A", DurationSeconds: 200},
	}
	submitter := &stubSubmitter{}
	r := newTestReconciler(&stubFeed{events: events}, nil, &memStore{}, submitter, now)

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(submitter.subs) != 3 {
		t.Fatalf("submitted %d, want 3", len(submitter.subs))
	}
	for i := 1; i < len(submitter.subs); i++ {
		if !submitter.subs[i].Timestamp.After(submitter.subs[i-1].Timestamp) {
			t.Fatalf("timestamps not strictly increasing: %v then %v",
				submitter.subs[i-1].Timestamp, submitter.subs[i].Timestamp)
		}
	}
	if last := submitter.subs[2].Timestamp; !last.Equal(now) {
		t.Errorf("newest event timestamp = %v, want %v", last, now)
	}
	if first := submitter.subs[0].Timestamp; !first.Equal(now.Add(-4 * time.Minute)) {
		t.Errorf("oldest event timestamp = %v, want %v", first, now.Add(-4*time.Minute))
	}
}

func TestRunHonorsMonotonicHints(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	events := []source.RawEvent{
		{Title: "Second", Artist: "Artist B", DurationSeconds: 200, PlayedAt: now.Add(-5 * time.Minute)},
		{Title: "First", Artist: "Artist A", DurationSeconds: 200, PlayedAt: now.Add(-30 * time.Minute)},
	}
	submitter := &stubSubmitter{}
	r := newTestReconciler(&stubFeed{events: events}, nil, &memStore{}, submitter, now)

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(submitter.subs) != 2 {
		t.Fatalf("submitted %d, want 2", len(submitter.subs))
	}
	if got := submitter.subs[0].Timestamp; !got.Equal(now.Add(-30 * time.Minute)) {
		t.Errorf("first timestamp = %v, want the source hint", got)
	}
	if got := submitter.subs[1].Timestamp; !got.Equal(now.Add(-5 * time.Minute)) {
		t.Errorf("second timestamp = %v, want the source hint", got)
	}
}

func TestRunPartialSubmissionFailureContinues(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	events := []source.RawEvent{
		{Title: "Second", Artist: "Artist B", DurationSeconds: 200},
		{Title: "First", Artist: "Artist A", DurationSeconds: 200},
	}
	store := &memStore{}
	submitter := &stubSubmitter{failOn: map[int]error{1: errors.New("service unavailable")}}
	r := newTestReconciler(&stubFeed{events: events}, nil, store, submitter, now)

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Failures != 1 || report.Accepted != 1 {
		t.Fatalf("failures = %d, accepted = %d, want 1 and 1", report.Failures, report.Accepted)
	}
	if len(store.records) != 1 {
		t.Fatalf("failed submission must not be recorded, store has %d", len(store.records))
	}
	if store.records[0].Title != "Second" {
		t.Errorf("recorded track = %q, want the surviving submission", store.records[0].Title)
	}
}

func TestRunMatchRefinesMetadata(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	events := []source.RawEvent{
		{Title: "Song (Official Video)", Artist: "Artist VEVO", DurationSeconds: 200},
	}
	lookup := &stubLookup{candidates: []catalog.Candidate{
		{Title: "Song", Artist: "Artist", Listeners: 1000},
	}}
	submitter := &stubSubmitter{}
	r := newTestReconciler(&stubFeed{events: events}, lookup, &memStore{}, submitter, now)

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Fallbacks != 0 {
		t.Errorf("fallbacks = %d, want 0", report.Fallbacks)
	}
	if len(submitter.subs) != 1 || submitter.subs[0].Artist != "Artist" || submitter.subs[0].Title != "Song" {
		t.Fatalf("submission = %+v, want catalog metadata", submitter.subs)
	}
}

func TestRunLookupFailureFallsBack(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	events := []source.RawEvent{
		{Title: "Song", Artist: "Artist", DurationSeconds: 200},
	}
	lookup := &stubLookup{err: errors.New("timeout")}
	submitter := &stubSubmitter{}
	r := newTestReconciler(&stubFeed{events: events}, lookup, &memStore{}, submitter, now)

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Fallbacks != 1 || report.Accepted != 1 {
		t.Fatalf("fallbacks = %d, accepted = %d, want 1 and 1", report.Fallbacks, report.Accepted)
	}
	if submitter.subs[0].Title != "Song" {
		t.Errorf("fallback should submit normalized metadata, got %+v", submitter.subs[0])
	}
}

func TestRunPunctuationOnlyMetadataRecorded(t *testing.T) {
	// "!!!" is a real band; its metadata must survive folding with a
	// non-empty dedup key so the accepted scrobble is recorded.
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	events := []source.RawEvent{
		{Title: "!!!", Artist: "???", DurationSeconds: 200},
	}
	store := &memStore{}
	submitter := &stubSubmitter{}
	r := newTestReconciler(&stubFeed{events: events}, nil, store, submitter, now)

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Accepted != 1 || report.Failures != 0 {
		t.Fatalf("accepted = %d, failures = %d, want 1 and 0", report.Accepted, report.Failures)
	}
	if len(store.records) != 1 {
		t.Fatalf("store has %d records, want the accepted scrobble", len(store.records))
	}
	if key := store.records[0].Key; key == (history.Key{}) {
		t.Errorf("recorded dedup key is empty for %+v", store.records[0])
	}
}

func TestRunSkipsEventWithoutUsableMetadata(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	events := []source.RawEvent{
		{Title: "", Artist: "", DurationSeconds: 200},
		{Title: "Song", Artist: "Artist", DurationSeconds: 200},
	}
	store := &memStore{}
	submitter := &stubSubmitter{}
	r := newTestReconciler(&stubFeed{events: events}, nil, store, submitter, now)

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Failures != 1 || report.Accepted != 1 {
		t.Fatalf("failures = %d, accepted = %d, want 1 and 1", report.Failures, report.Accepted)
	}
	if len(submitter.subs) != 1 {
		t.Fatalf("submitted %d, the empty event must not be sent", len(submitter.subs))
	}
	if len(store.records) != 1 || store.records[0].Title != "Song" {
		t.Fatalf("store records = %+v, want only the real track", store.records)
	}
}

func TestRunPrunesAfterBatch(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	store := &memStore{records: []history.Record{{
		ID:          1,
		Key:         history.Key{Title: "stale", Artist: "artist"},
		Title:       "stale",
		Artist:      "artist",
		ScrobbledAt: now.Add(-30 * 24 * time.Hour),
	}}}
	r := newTestReconciler(&stubFeed{}, nil, store, &stubSubmitter{}, now)

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Pruned != 1 {
		t.Errorf("pruned = %d, want 1", report.Pruned)
	}
	if len(store.records) != 0 {
		t.Errorf("stale record survived the prune step")
	}
}

func TestRunFetchFailure(t *testing.T) {
	r := newTestReconciler(&stubFeed{err: errors.New("network down")}, nil, &memStore{}, &stubSubmitter{}, time.Now())
	if _, err := r.Run(context.Background()); err == nil {
		t.Fatal("expected fetch error to surface")
	}
	if r.State() != StateIdle {
		t.Errorf("state after failed pass = %s, want idle", r.State())
	}
}

func TestPassLockExcludesSecondPass(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backbeat.lock")
	first := NewPassLock(path)
	if err := first.Acquire(); err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}

	second := NewPassLock(path)
	if err := second.Acquire(); !errors.Is(err, ErrPassInProgress) {
		t.Fatalf("second Acquire = %v, want ErrPassInProgress", err)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if err := second.Acquire(); err != nil {
		t.Fatalf("Acquire after release failed: %v", err)
	}
	_ = second.Release()
}
