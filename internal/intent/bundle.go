// Package intent implements the rule-based intent classifier and entity
// extractor named by spec.md §4.4 (component C4). The keyword/regex bundles
// are data, not code: spec.md §9 calls them "closed and authoritative...
// extending them is a configuration change."
package intent

import (
	"regexp"
	"strings"

	"github.com/nuri428/ontology-chat/internal/domain"
)

// Bundle is one intent's scoring rule: a keyword set, context words that
// reinforce a match without standing alone, regex patterns, and the weight
// contributed by each distinct match. Keywords and context words are
// matched against an already-lowercased query (strings.ToLower is a no-op
// on Korean script, so mixed Korean/ASCII keyword lists work unmodified).
type Bundle struct {
	Intent       domain.Intent
	Keywords     []string
	ContextWords []string
	Patterns     []*regexp.Regexp
	Weight       float64
}

// matchScore sums Weight once per distinct keyword or pattern match, and
// half-Weight per distinct context-word match (context words alone are
// weaker signal than a keyword).
func (b Bundle) matchScore(lower string) float64 {
	score := 0.0
	for _, kw := range b.Keywords {
		if strings.Contains(lower, kw) {
			score += b.Weight
		}
	}
	for _, cw := range b.ContextWords {
		if strings.Contains(lower, cw) {
			score += b.Weight * 0.5
		}
	}
	for _, p := range b.Patterns {
		if p.MatchString(lower) {
			score += b.Weight
		}
	}
	return score
}

// DefaultBundles returns the Korean-centric keyword bundles for the five
// scored intents; unknown has no bundle and is the below-floor fallback.
func DefaultBundles() []Bundle {
	return []Bundle{
		{
			Intent:       domain.IntentNews,
			Keywords:     []string{"뉴스", "기사", "보도", "속보", "발표"},
			ContextWords: []string{"오늘", "최근", "방금"},
			Weight:       1.0,
		},
		{
			Intent: domain.IntentStock,
			Keywords: []string{
				"주가", "주식", "종목", "시가총액", "매출", "영업이익", "실적", "주가전망",
			},
			ContextWords: []string{"상승", "하락", "급등", "급락"},
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`\b[0-9]{6}\b`), // 6-digit Korean ticker code
			},
			Weight: 1.0,
		},
		{
			Intent:       domain.IntentComparison,
			Keywords:     []string{"비교", "대비", "vs", "versus", "compare", "어느 쪽", "둘 중"},
			ContextWords: []string{"차이", "우위"},
			Weight:       1.2,
		},
		{
			Intent:       domain.IntentTrend,
			Keywords:     []string{"추세", "트렌드", "전망", "outlook", "trend", "향후"},
			ContextWords: []string{"향후", "앞으로"},
			Weight:       1.0,
		},
		{
			Intent:       domain.IntentGeneral,
			Keywords:     []string{"무엇", "설명", "알려줘", "궁금"},
			ContextWords: []string{},
			Weight:       0.6,
		},
	}
}
