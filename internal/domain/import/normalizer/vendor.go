// Package normalizer canonicalizes vendor names read from receipts.
// vendor.go cleans OCR noise from a vendor line and snaps it to the closest
// known vendor using fuzzy matching.
package normalizer

import (
	"regexp"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// DefaultThreshold is the minimum similarity score (0-100) for a known vendor to win.
const DefaultThreshold = 70

var (
	storeNumberPattern = regexp.MustCompile(`(?i)(?:\s*#|\s+(?:no\.?|store))\s*\d+$`)
	refPattern         = regexp.MustCompile(`\s+\d{4,}$`)
	spacePattern       = regexp.MustCompile(`\s+`)
)

// noisePrefixes are greetings printed above the vendor name on many receipts.
var noisePrefixes = []string{
	"WELCOME TO ",
	"THANK YOU FOR SHOPPING AT ",
	"THANKS FOR SHOPPING AT ",
	"POS ",
	"PURCHASE ",
}

// VendorNormalizer maps noisy vendor strings onto a fixed list of known vendors.
// It is immutable after construction and safe for concurrent use.
type VendorNormalizer struct {
	known     []string
	upper     []string
	threshold int
}

// NewVendorNormalizer creates a normalizer. A non-positive threshold uses DefaultThreshold.
func NewVendorNormalizer(known []string, threshold int) *VendorNormalizer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	n := &VendorNormalizer{threshold: threshold}
	for _, k := range known {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		n.known = append(n.known, k)
		n.upper = append(n.upper, strings.ToUpper(k))
	}
	return n
}

// Normalize returns the best known vendor for raw, or the cleaned input when
// nothing scores above the threshold.
func (n *VendorNormalizer) Normalize(raw string) string {
	cleaned := CleanVendorName(raw)
	if cleaned == "" {
		return strings.TrimSpace(raw)
	}

	if best, score := n.Match(cleaned); score >= n.threshold {
		return best
	}
	return cleaned
}

// Match returns the highest scoring known vendor and its score.
func (n *VendorNormalizer) Match(vendor string) (string, int) {
	candidate := strings.ToUpper(CleanVendorName(vendor))

	best, bestScore := "", 0
	for i, known := range n.upper {
		if score := similarity(candidate, known); score > bestScore {
			best, bestScore = n.known[i], score
		}
	}
	return best, bestScore
}

// CleanVendorName removes greetings, store numbers and trailing reference numbers.
func CleanVendorName(raw string) string {
	result := strings.TrimSpace(raw)

	for _, prefix := range noisePrefixes {
		if len(result) >= len(prefix) && strings.EqualFold(result[:len(prefix)], prefix) {
			result = result[len(prefix):]
			break
		}
	}

	result = storeNumberPattern.ReplaceAllString(result, "")
	result = refPattern.ReplaceAllString(result, "")
	result = spacePattern.ReplaceAllString(result, " ")

	return strings.TrimSpace(result)
}

// similarity scores two upper-cased names from 0 to 100.
func similarity(s1, s2 string) int {
	if s1 == "" || s2 == "" {
		return 0
	}
	if s1 == s2 {
		return 100
	}

	// One name containing the other is common ("SHELL OIL" vs "SHELL").
	if strings.Contains(s1, s2) {
		return 75 + (25 * len(s2) / len(s1))
	}
	if strings.Contains(s2, s1) {
		return 75 + (25 * len(s1) / len(s2))
	}

	maxLen := max(len(s1), len(s2))
	score := 100 * (maxLen - fuzzy.LevenshteinDistance(s1, s2)) / maxLen

	// Dropped characters are the typical OCR error; reward in-order subsequences.
	if fuzzy.MatchNormalizedFold(s1, s2) || fuzzy.MatchNormalizedFold(s2, s1) {
		score += 10
	}

	return min(max(score, 0), 99)
}
