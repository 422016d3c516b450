package history

import (
	"context"
	"fmt"
	"time"
)

// DefaultRetention is how long records are kept before pruning.
const DefaultRetention = 14 * 24 * time.Hour

// Prune removes every record older than now minus retention and returns the
// number removed. The delete statement only runs when expired records exist,
// so a pass over a clean store performs no write.
func (s *Store) Prune(ctx context.Context, now time.Time, retention time.Duration) (int, error) {
	if retention <= 0 {
		retention = DefaultRetention
	}
	cutoff := now.Add(-retention).UTC().Format(time.RFC3339)

	var expired int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM scrobbles WHERE scrobbled_at < ?", cutoff,
	).Scan(&expired); err != nil {
		return 0, fmt.Errorf("count expired scrobbles: %w", err)
	}
	if expired == 0 {
		return 0, nil
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM scrobbles WHERE scrobbled_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune scrobbles: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune rows affected: %w", err)
	}
	return int(removed), nil
}

// PruneDryRun reports the records Prune would remove without deleting
// anything, oldest first.
func (s *Store) PruneDryRun(ctx context.Context, now time.Time, retention time.Duration) ([]Record, error) {
	if retention <= 0 {
		retention = DefaultRetention
	}
	cutoff := now.Add(-retention).UTC().Format(time.RFC3339)
	return s.query(ctx,
		`SELECT id, title, artist, album, title_key, artist_key, duration_seconds, scrobbled_at
         FROM scrobbles
         WHERE scrobbled_at < ?
         ORDER BY scrobbled_at ASC, id ASC`,
		cutoff)
}
