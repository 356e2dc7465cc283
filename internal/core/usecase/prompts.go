package usecase

import (
	"fmt"
	"strings"
)

const relevanceSnippetLimit = 300

func buildParaphrasePrompt(query string, count int) string {
	return fmt.Sprintf(`Generate %d different ways to rephrase this question.
Return only the questions, one per line, without numbering.

Original Question: %s

Rephrased Questions:`, count, query)
}

func buildRelevancePrompt(query, passageText string) string {
	snippet := passageText
	if len(snippet) > relevanceSnippetLimit {
		snippet = snippet[:relevanceSnippetLimit] + "..."
	}

	return fmt.Sprintf(`Rate the relevance of this passage to the query on a scale of 0-10.
Return only a single number.

Query: %s

Passage: %s

Relevance Score:`, query, snippet)
}

func buildFilterExtractionPrompt(query string, fields []string) string {
	return fmt.Sprintf(`Extract metadata filters from this query if present.
Return a JSON object mapping field names to values, or to {"gte": n, "lte": n} for ranges.
Return an empty object if no filters apply.

Available metadata fields: %s

Query: %s

Extracted Filters (JSON only):`, strings.Join(fields, ", "), query)
}

func buildDecompositionPrompt(query string, maxHops int) string {
	return fmt.Sprintf(`Decompose this complex question into at most %d simpler sub-questions.
Return only the questions, one per line, without numbering.

Original Question: %s

Sub-questions:`, maxHops, query)
}
