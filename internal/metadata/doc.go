// Package metadata cleans loosely formatted track and artist strings from the
// source service into a canonical form suitable for catalog matching and
// duplicate correlation.
//
// Two forms are produced:
//   - Normalize keeps the original casing and yields the strings submitted to
//     the scrobble target when no catalog match is found.
//   - Fold lowercases, strips diacritics, and drops punctuation noise; folded
//     strings feed string similarity and the history dedup key.
//
// Every transformation is a total function and idempotent: feeding the output
// back in yields the same output.
package metadata
