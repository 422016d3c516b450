package match

import (
	"fmt"
	"strings"

	"github.com/hbollon/go-edlib"
)

// Similarity computes a string similarity ratio in [0, 1]. Implementations
// are interchangeable and selected once at configuration time.
type Similarity interface {
	Ratio(a, b string) float64
}

// Algorithm names accepted by NewSimilarity.
const (
	AlgorithmLevenshtein = "levenshtein"
	AlgorithmJaroWinkler = "jaro-winkler"
)

// NewSimilarity returns the similarity implementation for the configured
// algorithm name.
func NewSimilarity(name string) (Similarity, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case AlgorithmLevenshtein, "":
		return edlibSimilarity{algorithm: edlib.Levenshtein}, nil
	case AlgorithmJaroWinkler:
		return edlibSimilarity{algorithm: edlib.JaroWinkler}, nil
	default:
		return nil, fmt.Errorf("unknown similarity algorithm %q", name)
	}
}

type edlibSimilarity struct {
	algorithm edlib.Algorithm
}

func (s edlibSimilarity) Ratio(a, b string) float64 {
	if a == b {
		return 1
	}
	res, err := edlib.StringsSimilarity(a, b, s.algorithm)
	if err != nil {
		return 0
	}
	return float64(res)
}
