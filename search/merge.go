package search

import (
	"cmp"
	"slices"

	"github.com/poiesic/minutes/core"
)

// minMaxNormalize scales scores into [0,1] within a single result list.
// A list whose scores are all equal maps to 1 when the common score is
// positive, else 0.
func minMaxNormalize(hits []core.ScoredID) map[core.ID]float64 {
	normalized := make(map[core.ID]float64, len(hits))
	if len(hits) == 0 {
		return normalized
	}

	lo, hi := hits[0].Score, hits[0].Score
	for _, h := range hits[1:] {
		lo = min(lo, h.Score)
		hi = max(hi, h.Score)
	}

	span := hi - lo
	for _, h := range hits {
		switch {
		case span > 0:
			normalized[h.Id] = (h.Score - lo) / span
		case hi > 0:
			normalized[h.Id] = 1
		default:
			normalized[h.Id] = 0
		}
	}
	return normalized
}

// merge blends the keyword and semantic lists into one result per document.
// combined = alpha*semantic + (1-alpha)*keyword, with a missing side counted as 0.
// Results are returned unordered and without CreatedAt.
func merge(keyword, semantic []core.ScoredID, alpha float64) []*core.RankedResult {
	kw := minMaxNormalize(keyword)
	sem := minMaxNormalize(semantic)

	byID := make(map[core.ID]*core.RankedResult, len(kw)+len(sem))
	get := func(id core.ID) *core.RankedResult {
		r, ok := byID[id]
		if !ok {
			r = &core.RankedResult{DocumentId: id}
			byID[id] = r
		}
		return r
	}
	for id, score := range kw {
		get(id).KeywordScore = score
	}
	for id, score := range sem {
		get(id).SemanticScore = score
	}

	results := make([]*core.RankedResult, 0, len(byID))
	for id, r := range byID {
		_, inKeyword := kw[id]
		_, inSemantic := sem[id]
		semanticPart := alpha * r.SemanticScore
		keywordPart := (1 - alpha) * r.KeywordScore
		r.Score = semanticPart + keywordPart
		r.Source = source(keywordPart > 0, semanticPart > 0, inKeyword, inSemantic)
		results = append(results, r)
	}
	return results
}

// source tags a result with the sub-queries that contributed a nonzero
// score, falling back to the sub-queries it appeared in.
func source(keywordContributed, semanticContributed, inKeyword, inSemantic bool) core.Source {
	if !keywordContributed && !semanticContributed {
		keywordContributed, semanticContributed = inKeyword, inSemantic
	}
	switch {
	case keywordContributed && semanticContributed:
		return core.SourceBoth
	case keywordContributed:
		return core.SourceKeyword
	default:
		return core.SourceSemantic
	}
}

// sortResults orders by combined score descending, then CreatedAt
// descending, then document id ascending.
func sortResults(results []*core.RankedResult) {
	slices.SortFunc(results, func(a, b *core.RankedResult) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.DocumentId, b.DocumentId)
	})
}
