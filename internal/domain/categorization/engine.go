// Package categorization assigns spend categories to receipt records by
// keyword matching.
package categorization

import (
	"math"
	"strings"

	"github.com/cloudflare/ahocorasick"

	"github.com/FACorreiaa/receipt-intake/internal/domain/receipt"
)

const noMatchReason = "No specific category matched"

// Expense is one category assignment for a record. A record may produce several.
type Expense struct {
	Category   Category `json:"category"`
	Amount     float64  `json:"amount"`
	Confidence float64  `json:"confidence"`
	Reason     string   `json:"reason"`
}

// Engine matches every keyword of a taxonomy in a single pass over the corpus
// using the Aho-Corasick algorithm.
// It is immutable after construction and safe for concurrent use.
type Engine struct {
	taxonomy Taxonomy
	matcher  *ahocorasick.Matcher
	patterns []string
	// owners[i] lists the taxonomy indices whose keyword list holds patterns[i].
	owners [][]int
}

// NewEngine builds the matcher for t. Keywords shared between categories are
// stored once and credited to each owner.
func NewEngine(t Taxonomy) *Engine {
	e := &Engine{taxonomy: t.normalized()}

	patternToIndex := make(map[string]int)
	for ci, entry := range e.taxonomy {
		for _, kw := range entry.Keywords {
			if idx, exists := patternToIndex[kw]; exists {
				e.owners[idx] = append(e.owners[idx], ci)
				continue
			}
			patternToIndex[kw] = len(e.patterns)
			e.patterns = append(e.patterns, kw)
			e.owners = append(e.owners, []int{ci})
		}
	}

	if len(e.patterns) > 0 {
		bytePatterns := make([][]byte, len(e.patterns))
		for i, p := range e.patterns {
			bytePatterns[i] = []byte(p)
		}
		e.matcher = ahocorasick.NewMatcher(bytePatterns)
	}
	return e
}

// Taxonomy returns a copy of the keyword table the engine was built from.
func (e *Engine) Taxonomy() Taxonomy {
	out := make(Taxonomy, len(e.taxonomy))
	for i, entry := range e.taxonomy {
		out[i] = CategoryKeywords{Category: entry.Category, Keywords: append([]string(nil), entry.Keywords...)}
	}
	return out
}

// Categorize returns one expense per category with at least one matched
// keyword, in taxonomy order. Each carries the full record total. With no
// matches it returns a single other expense.
func (e *Engine) Categorize(r receipt.Record) []Expense {
	matched := e.matchedKeywords(Corpus(r))

	var expenses []Expense
	for ci, entry := range e.taxonomy {
		hits := matched[ci]
		if len(hits) == 0 {
			continue
		}
		expenses = append(expenses, Expense{
			Category:   entry.Category,
			Amount:     r.Total,
			Confidence: Confidence(len(hits)),
			Reason:     "Matched keywords: " + strings.Join(hits, ", "),
		})
	}

	if len(expenses) == 0 {
		return []Expense{{
			Category:   CategoryOther,
			Amount:     r.Total,
			Confidence: 0.5,
			Reason:     noMatchReason,
		}}
	}
	return expenses
}

// matchedKeywords maps taxonomy index to the distinct keywords found, kept in
// taxonomy keyword order.
func (e *Engine) matchedKeywords(corpus string) map[int][]string {
	if e.matcher == nil || corpus == "" {
		return nil
	}

	found := make(map[string]struct{})
	for _, idx := range e.matcher.MatchThreadSafe([]byte(corpus)) {
		if idx >= 0 && idx < len(e.patterns) {
			found[e.patterns[idx]] = struct{}{}
		}
	}
	if len(found) == 0 {
		return nil
	}

	matched := make(map[int][]string)
	for ci, entry := range e.taxonomy {
		for _, kw := range entry.Keywords {
			if _, ok := found[kw]; ok {
				matched[ci] = append(matched[ci], kw)
			}
		}
	}
	return matched
}

// PatternCount returns the number of distinct keywords loaded.
func (e *Engine) PatternCount() int {
	return len(e.patterns)
}

// IsEmpty reports whether the engine has no keywords and will only emit other.
func (e *Engine) IsEmpty() bool {
	return e.matcher == nil
}

// Corpus is the lowercase search text for r: the vendor followed by every
// line-item description, space separated.
func Corpus(r receipt.Record) string {
	parts := make([]string, 0, 1+len(r.LineItems))
	parts = append(parts, r.Vendor)
	parts = append(parts, r.Descriptions()...)
	return strings.ToLower(strings.Join(parts, " "))
}

// Confidence is 0.5 plus 0.1 per matched keyword, capped at 0.9.
func Confidence(matches int) float64 {
	if matches <= 0 {
		return 0.5
	}
	return math.Min(0.9, float64(5+matches)/10)
}
