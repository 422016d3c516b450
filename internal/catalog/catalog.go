// Package catalog defines the lookup contract against the scrobble target's
// track catalog. Candidates are ephemeral, scoped to a single query.
package catalog

import "context"

// Candidate is one catalog entry returned for a track query, in the order the
// catalog ranked it. Track search carries no album data; the album submitted
// with a scrobble always comes from the source event.
type Candidate struct {
	Title     string
	Artist    string
	Listeners int64
}

// Lookup searches the catalog for candidates matching a cleaned track query.
// Implementations return the candidates in catalog order; zero results is a
// normal outcome, not an error.
type Lookup interface {
	Search(ctx context.Context, artist, title string, limit int) ([]Candidate, error)
}
