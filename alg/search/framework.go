// Package search implements a heap-indexed beam decoder.
//
// Candidates are grouped by a heap key, a monotone measure of how far a
// candidate has progressed through its input. The decoder always expands the
// lowest pending key, keeping at most Width candidates per key, and stops when
// the lowest pending key is the terminal key.
package search

import (
	"github.com/pkg/errors"
)

// ErrNoDecisions is returned when an expander produces nothing for a candidate
var ErrNoDecisions = errors.New("search: no decisions for candidate")

type Candidate interface {
	Score() float64
}

// Expansion is a successor candidate and the key it is pushed under.
// Keys must be greater than the key of the expanded candidate.
type Expansion struct {
	Key       float64
	Candidate Candidate
}

type Expander interface {
	Expand(c Candidate) ([]Expansion, error)
}

type ExpanderFunc func(c Candidate) ([]Expansion, error)

func (f ExpanderFunc) Expand(c Candidate) ([]Expansion, error) {
	return f(c)
}

// HeapKey places a token ending at end. Zero-width tokens sort after
// real tokens ending at the same offset; the last token is always at
// the sentence length.
func HeapKey(start, end int, last bool, length int) float64 {
	if last {
		return float64(length)
	}
	key := float64(end)
	if start == end {
		key += 0.5
	}
	return key
}
