package history

import (
	"context"
	"fmt"
	"time"
)

// ArtistCount pairs an artist with the number of scrobbles recorded for them.
type ArtistCount struct {
	Artist string
	Count  int
}

// Stats aggregates history contents for the operator tooling.
type Stats struct {
	Total        int
	UniqueTracks int
	Oldest       time.Time
	Newest       time.Time
	TopArtists   []ArtistCount
}

// Stats summarizes the store: totals, unique dedup keys, time range, and the
// most scrobbled artists (up to topN).
func (s *Store) Stats(ctx context.Context, topN int) (Stats, error) {
	if topN <= 0 {
		topN = 10
	}
	var stats Stats

	var oldest, newest *string
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1), COUNT(DISTINCT title_key || '\n' || artist_key),
                MIN(scrobbled_at), MAX(scrobbled_at)
         FROM scrobbles`,
	).Scan(&stats.Total, &stats.UniqueTracks, &oldest, &newest)
	if err != nil {
		return Stats{}, fmt.Errorf("history stats: %w", err)
	}
	if oldest != nil {
		if ts, err := time.Parse(time.RFC3339, *oldest); err == nil {
			stats.Oldest = ts
		}
	}
	if newest != nil {
		if ts, err := time.Parse(time.RFC3339, *newest); err == nil {
			stats.Newest = ts
		}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT artist, COUNT(1) AS plays FROM scrobbles
         GROUP BY artist ORDER BY plays DESC, artist ASC LIMIT ?`, topN)
	if err != nil {
		return Stats{}, fmt.Errorf("top artists: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entry ArtistCount
		if err := rows.Scan(&entry.Artist, &entry.Count); err != nil {
			return Stats{}, err
		}
		stats.TopArtists = append(stats.TopArtists, entry)
	}
	return stats, rows.Err()
}
