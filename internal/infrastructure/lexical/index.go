// Package lexical holds the in-process keyword ranking index used by
// hybrid retrieval. The index is a derived, rebuildable artifact over the
// full passage corpus; it is built once per corpus version by the
// retriever manager.
package lexical

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/dmarkhas/retrieval-engine/internal/core/domain"
)

const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

type Index struct {
	passages []domain.Passage
	termFreq []map[string]int
	docLen   []int
	avgLen   float64
	docFreq  map[string]int
}

// Build tokenizes every passage and precomputes the term statistics BM25
// scoring needs.
func Build(passages []domain.Passage) *Index {
	idx := &Index{
		passages: passages,
		termFreq: make([]map[string]int, len(passages)),
		docLen:   make([]int, len(passages)),
		docFreq:  make(map[string]int, 1024),
	}

	totalLen := 0
	for i, p := range passages {
		tokens := tokenize(p.Text)
		tf := make(map[string]int, len(tokens))
		for _, token := range tokens {
			tf[token]++
		}
		idx.termFreq[i] = tf
		idx.docLen[i] = len(tokens)
		totalLen += len(tokens)
		for token := range tf {
			idx.docFreq[token]++
		}
	}
	if len(passages) > 0 {
		idx.avgLen = float64(totalLen) / float64(len(passages))
	}
	return idx
}

// Score ranks the corpus against the query with BM25 and returns up to
// limit passages with a positive score, best first. Ties keep corpus
// order for determinism.
func (idx *Index) Score(query string, limit int) []domain.ScoredPassage {
	queryTokens := uniqueTokens(tokenize(query))
	if len(queryTokens) == 0 || len(idx.passages) == 0 {
		return nil
	}

	n := float64(len(idx.passages))
	scored := make([]domain.ScoredPassage, 0, 16)
	for i := range idx.passages {
		score := 0.0
		for _, token := range queryTokens {
			tf := float64(idx.termFreq[i][token])
			if tf == 0 {
				continue
			}
			df := float64(idx.docFreq[token])
			idf := math.Log(1 + (n-df+0.5)/(df+0.5))
			norm := tf + bm25K1*(1-bm25B+bm25B*float64(idx.docLen[i])/idx.avgLen)
			score += idf * tf * (bm25K1 + 1) / norm
		}
		if score > 0 {
			scored = append(scored, domain.ScoredPassage{
				Passage: idx.passages[i],
				Score:   score,
				Source:  "lexical",
			})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

func uniqueTokens(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := tokens[:0:0]
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func tokenize(s string) []string {
	if s == "" {
		return nil
	}
	out := make([]string, 0, 24)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}
