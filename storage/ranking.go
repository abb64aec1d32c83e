package storage

import (
	"cmp"
	"slices"

	"github.com/poiesic/minutes/core"
)

// Candidate is a scored hit together with the insertion sequence of its entry.
type Candidate struct {
	Id    core.ID
	Score float64
	Seq   uint64
}

// TopK returns up to k candidates ordered by descending score.
// Equal scores are ordered by ascending sequence, so earlier insertions win.
// The input slice is reordered in place.
func TopK(candidates []Candidate, k int) []core.ScoredID {
	if k <= 0 || len(candidates) == 0 {
		return []core.ScoredID{}
	}

	slices.SortFunc(candidates, func(a, b Candidate) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Seq, b.Seq)
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}

	result := make([]core.ScoredID, len(candidates))
	for i, c := range candidates {
		result[i] = core.ScoredID{Id: c.Id, Score: c.Score}
	}
	return result
}
