package dedup

import (
	"context"
	"errors"
	"testing"
	"time"

	"backbeat/internal/history"
)

type stubHistory struct {
	last *history.Record
	err  error
}

func (s *stubHistory) MostRecent(_ context.Context, _ history.Key) (*history.Record, error) {
	return s.last, s.err
}

func lastAt(ts time.Time) *stubHistory {
	return &stubHistory{last: &history.Record{
		Key:         history.Key{Title: "song", Artist: "artist"},
		ScrobbledAt: ts,
	}}
}

func TestIsDuplicateGapRule(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	key := history.Key{Title: "song", Artist: "artist"}
	engine := New()

	tests := []struct {
		name     string
		elapsed  time.Duration
		duration time.Duration
		wantDup  bool
	}{
		// 200s track needs a 230s gap.
		{"just inside gap", 229 * time.Second, 200 * time.Second, true},
		{"exactly at gap", 230 * time.Second, 200 * time.Second, false},
		{"just past gap", 231 * time.Second, 200 * time.Second, false},
		{"well past gap", time.Hour, 200 * time.Second, false},
		// Unknown duration assumes 210s, so the gap is 240s.
		{"unknown duration inside gap", 239 * time.Second, 0, true},
		{"unknown duration past gap", 240 * time.Second, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dup, reason, err := engine.IsDuplicate(context.Background(), key,
				base.Add(tt.elapsed), tt.duration, lastAt(base))
			if err != nil {
				t.Fatalf("IsDuplicate failed: %v", err)
			}
			if dup != tt.wantDup {
				t.Errorf("IsDuplicate = %v, want %v (reason %q)", dup, tt.wantDup, reason)
			}
			if dup && reason == "" {
				t.Error("duplicate verdict should carry a reason")
			}
		})
	}
}

func TestIsDuplicateNonPositiveElapsed(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	key := history.Key{Title: "song", Artist: "artist"}
	engine := New()

	for _, offset := range []time.Duration{0, -time.Minute} {
		dup, reason, err := engine.IsDuplicate(context.Background(), key,
			base.Add(offset), 200*time.Second, lastAt(base))
		if err != nil {
			t.Fatalf("IsDuplicate failed: %v", err)
		}
		if !dup {
			t.Errorf("offset %v: timestamp at or before last scrobble must be a duplicate", offset)
		}
		if reason == "" {
			t.Errorf("offset %v: missing reason", offset)
		}
	}
}

func TestIsDuplicateNoHistory(t *testing.T) {
	engine := New()
	dup, reason, err := engine.IsDuplicate(context.Background(),
		history.Key{Title: "song", Artist: "artist"},
		time.Now(), 200*time.Second, &stubHistory{})
	if err != nil {
		t.Fatalf("IsDuplicate failed: %v", err)
	}
	if dup {
		t.Errorf("unseen track flagged duplicate (reason %q)", reason)
	}
}

func TestIsDuplicateHistoryError(t *testing.T) {
	engine := New()
	wantErr := errors.New("db closed")
	_, _, err := engine.IsDuplicate(context.Background(),
		history.Key{Title: "song", Artist: "artist"},
		time.Now(), 200*time.Second, &stubHistory{err: wantErr})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want wrapped %v", err, wantErr)
	}
}

func TestEngineCustomDefaults(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	key := history.Key{Title: "song", Artist: "artist"}
	engine := &Engine{DefaultDuration: 100 * time.Second, Buffer: 10 * time.Second}

	// Unknown duration with custom defaults: gap is 110s.
	dup, _, err := engine.IsDuplicate(context.Background(), key,
		base.Add(109*time.Second), 0, lastAt(base))
	if err != nil {
		t.Fatalf("IsDuplicate failed: %v", err)
	}
	if !dup {
		t.Error("109s elapsed with 110s gap should be a duplicate")
	}

	dup, _, err = engine.IsDuplicate(context.Background(), key,
		base.Add(110*time.Second), 0, lastAt(base))
	if err != nil {
		t.Fatalf("IsDuplicate failed: %v", err)
	}
	if dup {
		t.Error("110s elapsed with 110s gap should not be a duplicate")
	}
}
