package contextengine

import (
	"regexp"
	"strings"

	"github.com/nuri428/ontology-chat/internal/domain"
)

var (
	digitPattern    = regexp.MustCompile(`\d`)
	percentPattern  = regexp.MustCompile(`\d+(\.\d+)?\s?%`)
	monetaryPattern = regexp.MustCompile(`(?i)(원|달러|\$|usd|krw|억|조)`)
)

// resolveQualityScore returns item.QualityScore if the backend supplied
// one, else computes the §4.10 fallback:
// 0.4*length_score + 0.3*density_score + 0.15*title_quality + 0.15*summary_presence.
func resolveQualityScore(item domain.ContextItem) float64 {
	if item.QualityScore != nil {
		return domain.Clamp01(*item.QualityScore)
	}

	text := itemText(item)
	title := itemTitle(item)
	_, hasSummary := item.Content["summary"]

	score := 0.4*lengthScore(text) + 0.3*densityScore(text) + 0.15*titleQuality(title) + 0.15*summaryPresence(hasSummary)
	return domain.Clamp01(score)
}

// lengthScore rewards substantive but not excessive text (diminishing
// returns past ~400 runes).
func lengthScore(text string) float64 {
	n := len([]rune(text))
	if n == 0 {
		return 0
	}
	score := float64(n) / 400.0
	return domain.Clamp01(score)
}

// densityScore counts presence of digits, percentages, monetary
// expressions, and entity-like capitalized tokens, per §4.10's definition.
func densityScore(text string) float64 {
	hits := 0
	total := 4.0

	if digitPattern.MatchString(text) {
		hits++
	}
	if percentPattern.MatchString(text) {
		hits++
	}
	if monetaryPattern.MatchString(text) {
		hits++
	}
	if hasEntityLikeToken(text) {
		hits++
	}
	return float64(hits) / total
}

func hasEntityLikeToken(text string) bool {
	for _, tok := range strings.Fields(text) {
		runes := []rune(tok)
		if len(runes) > 0 && runes[0] >= 'A' && runes[0] <= 'Z' {
			return true
		}
	}
	return false
}

func titleQuality(title string) float64 {
	n := len([]rune(title))
	switch {
	case n == 0:
		return 0
	case n < 10:
		return 0.4
	case n <= 120:
		return 1.0
	default:
		return 0.6
	}
}

func summaryPresence(has bool) float64 {
	if has {
		return 1.0
	}
	return 0
}
