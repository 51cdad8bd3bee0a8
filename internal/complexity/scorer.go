// Package complexity implements the complexity scorer named by spec.md
// §4.5 (component C5): an accumulation of explicit bonuses over a query,
// clamped to [0,1] and used to choose the query's AnalysisDepth.
package complexity

import (
	"strings"

	"github.com/nuri428/ontology-chat/internal/domain"
)

// complexKeywords is the fixed vocabulary §4.5 names for the complex-
// keyword bonus. comparisonKeywords and analysisKeywords are disjoint
// subsets used for the composite bonus below.
var (
	complexKeywords    = []string{"compare", "비교", "analyze", "분석", "outlook", "전망", "trend", "추세", "report", "보고서", "comprehensive", "종합"}
	comparisonKeywords = []string{"compare", "비교"}
	analysisKeywords   = []string{"analyze", "분석", "outlook", "전망", "trend", "추세", "report", "보고서", "comprehensive", "종합"}
)

// Score computes query's ComplexityScore per §4.5's explicit bonus
// formulas: length, complex-keyword, low-confidence-intent, multi-entity,
// and the comparison∧analysis composite bonus, clamped to [0,1]. A
// ForceDeep query is raised to at least 0.95.
func Score(query domain.Query) domain.ComplexityScore {
	lower := strings.ToLower(query.Text)
	score := 0.0

	score += lengthBonus(query.Text)
	score += keywordBonus(lower)
	if query.Confidence < 0.6 {
		score += 0.2
	}
	score += entityBonus(query.Entities.Companies)
	if containsAny(lower, comparisonKeywords) && containsAny(lower, analysisKeywords) {
		score += 0.5
	}

	score = clamp01(score)
	if query.ForceDeep && score < 0.95 {
		score = 0.95
	}

	return domain.ComplexityScore{Score: score, Depth: domain.DepthFromScore(score)}
}

func lengthBonus(text string) float64 {
	n := len([]rune(text))
	switch {
	case n > 80:
		return 0.3
	case n > 50:
		return 0.2
	default:
		return 0
	}
}

func keywordBonus(lower string) float64 {
	hits := 0
	for _, kw := range complexKeywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	bonus := float64(hits) * 0.15
	if bonus > 0.4 {
		bonus = 0.4
	}
	return bonus
}

func entityBonus(companies []string) float64 {
	distinct := dedupeCount(companies)
	switch {
	case distinct >= 3:
		return 0.4
	case distinct == 2:
		return 0.3
	default:
		return 0
	}
}

func dedupeCount(items []string) int {
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		seen[item] = true
	}
	return len(seen)
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
