// Package match scores catalog candidates against a normalized track and
// selects the best one, weighting string similarity against popularity.
package match

import (
	"math"

	"backbeat/internal/catalog"
	"backbeat/internal/metadata"
)

// DefaultThreshold is the minimum raw similarity the top candidate must reach
// before it is accepted as a match.
const DefaultThreshold = 0.60

const (
	similarityWeight = 0.7
	popularityWeight = 0.3
)

// Outcome describes an accepted catalog match and the scores that selected it.
type Outcome struct {
	Candidate  catalog.Candidate
	Similarity float64
	Popularity float64
	Score      float64
}

// Matcher ranks catalog candidates for normalized tracks.
type Matcher struct {
	sim       Similarity
	threshold float64
}

// New creates a Matcher with the given similarity implementation. A threshold
// of zero selects DefaultThreshold.
func New(sim Similarity, threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Matcher{sim: sim, threshold: threshold}
}

// Match selects the best candidate for the track, or nil when no candidate
// reaches the similarity threshold (the caller then falls back to submitting
// the normalized metadata verbatim). An empty candidate list yields nil
// deterministically.
//
// score = 0.7*similarity + 0.3*normalizedPopularity. Ties break on raw
// similarity, then listener count, then catalog order.
func (m *Matcher) Match(track metadata.Track, candidates []catalog.Candidate) *Outcome {
	if len(candidates) == 0 {
		return nil
	}

	query := metadata.CompareString(track.Artist, track.Title)

	var maxListeners int64
	for _, c := range candidates {
		if c.Listeners > maxListeners {
			maxListeners = c.Listeners
		}
	}

	var best *Outcome
	for _, c := range candidates {
		out := Outcome{
			Candidate:  c,
			Similarity: m.sim.Ratio(query, metadata.CompareString(c.Artist, c.Title)),
			Popularity: normalizedPopularity(c.Listeners, maxListeners),
		}
		out.Score = similarityWeight*out.Similarity + popularityWeight*out.Popularity
		if best == nil || better(out, *best) {
			o := out
			best = &o
		}
	}

	if best.Similarity < m.threshold {
		return nil
	}
	return best
}

// better reports whether a should replace the current best b. Strict
// comparisons keep the earliest candidate on full ties, preserving catalog
// order as the final tie-break.
func better(a, b Outcome) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Similarity != b.Similarity {
		return a.Similarity > b.Similarity
	}
	return a.Candidate.Listeners > b.Candidate.Listeners
}

// normalizedPopularity rescales a listener count to [0, 1] across the
// candidate set. Log-scaled so a hundredfold listener gap does not drown out
// similarity; monotonic in the raw count.
func normalizedPopularity(listeners, maxListeners int64) float64 {
	if listeners <= 0 || maxListeners <= 0 {
		return 0
	}
	return math.Log1p(float64(listeners)) / math.Log1p(float64(maxListeners))
}
