package usecase

import (
	"math"
	"sort"

	"github.com/dmarkhas/retrieval-engine/internal/core/domain"
)

// minMaxNormalize rescales scores to [0,1]. A degenerate range maps
// positive scores to 1 and the rest to 0, so a single-candidate list
// still carries full weight.
func minMaxNormalize(hits []domain.ScoredPassage) map[string]float64 {
	out := make(map[string]float64, len(hits))
	if len(hits) == 0 {
		return out
	}

	minScore, maxScore := hits[0].Score, hits[0].Score
	for _, h := range hits[1:] {
		if h.Score < minScore {
			minScore = h.Score
		}
		if h.Score > maxScore {
			maxScore = h.Score
		}
	}

	scoreRange := maxScore - minScore
	for _, h := range hits {
		if _, seen := out[h.Passage.ID]; seen {
			continue
		}
		if scoreRange <= 0 {
			if h.Score > 0 {
				out[h.Passage.ID] = 1
			} else {
				out[h.Passage.ID] = 0
			}
			continue
		}
		out[h.Passage.ID] = (h.Score - minScore) / scoreRange
	}
	return out
}

type frequencyCandidate struct {
	passage   domain.Passage
	count     int
	scoreSum  float64
	firstSeen int
}

// mergeByFrequency aggregates the slot-ordered result lists of repeated
// sub-queries. A passage ranks by how many lists contain it, with mean
// similarity across its appearances as the tie-break and first-seen order
// as the final determinant. The composite score folds the mean into a
// sub-unit fraction so frequency always dominates.
func mergeByFrequency(lists [][]domain.ScoredPassage) []domain.ScoredPassage {
	acc := make(map[string]*frequencyCandidate)
	order := 0

	for _, list := range lists {
		seenInList := make(map[string]bool, len(list))
		for _, hit := range list {
			id := hit.Passage.ID
			if seenInList[id] {
				continue
			}
			seenInList[id] = true

			c, ok := acc[id]
			if !ok {
				c = &frequencyCandidate{passage: hit.Passage, firstSeen: order}
				acc[id] = c
				order++
			}
			c.count++
			c.scoreSum += hit.Score
		}
	}

	out := make([]domain.ScoredPassage, 0, len(acc))
	ordered := make([]*frequencyCandidate, 0, len(acc))
	for _, c := range acc {
		ordered = append(ordered, c)
	}
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.count != b.count {
			return a.count > b.count
		}
		meanA := a.scoreSum / float64(a.count)
		meanB := b.scoreSum / float64(b.count)
		if meanA != meanB {
			return meanA > meanB
		}
		return a.firstSeen < b.firstSeen
	})

	for _, c := range ordered {
		mean := c.scoreSum / float64(c.count)
		out = append(out, domain.ScoredPassage{
			Passage: c.passage,
			Score:   compositeFrequencyScore(c.count, mean),
		})
	}
	return out
}

// compositeFrequencyScore keeps the mean-score contribution strictly
// below 1 so it can never outweigh an extra list appearance.
func compositeFrequencyScore(count int, mean float64) float64 {
	return float64(count) + mean/(1+math.Abs(mean))
}

// sortByScoreFirstSeen orders hits descending by score; equal scores keep
// their current relative order (first seen wins).
func sortByScoreFirstSeen(hits []domain.ScoredPassage) {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
}

// dedupeByID keeps the highest-scoring entry per passage id, preserving
// first-seen order among survivors.
func dedupeByID(hits []domain.ScoredPassage) []domain.ScoredPassage {
	best := make(map[string]int, len(hits))
	out := hits[:0:0]
	for _, h := range hits {
		idx, seen := best[h.Passage.ID]
		if !seen {
			best[h.Passage.ID] = len(out)
			out = append(out, h)
			continue
		}
		if h.Score > out[idx].Score {
			out[idx] = h
		}
	}
	return out
}

func truncate(hits []domain.ScoredPassage, k int) []domain.ScoredPassage {
	if k <= 0 || len(hits) <= k {
		return hits
	}
	return hits[:k]
}
