package intent

import (
	"regexp"
	"strings"

	"github.com/nuri428/ontology-chat/internal/domain"
)

// Extractor pulls company, product, sector, and ticker mentions out of a
// query (spec.md §4.4's "entity extraction runs alongside" classification).
type Extractor struct {
	companies       []string
	sectors         []string
	productPatterns []*regexp.Regexp
	tickerPattern   *regexp.Regexp
}

// NewExtractor builds an Extractor over a curated company/sector
// vocabulary. Product patterns are narrow and anchored to word boundaries
// so they do not collide with generic numeric suffixes like years or
// ticker codes (§4.4's explicit warning).
func NewExtractor() *Extractor {
	return &Extractor{
		companies: []string{
			"삼성전자", "sk하이닉스", "sk 하이닉스", "lg에너지솔루션", "현대차", "기아",
			"네이버", "카카오", "포스코", "셀트리온", "삼성바이오로직스",
		},
		sectors: []string{
			"반도체", "2차전지", "자동차", "바이오", "인터넷", "철강", "조선", "금융",
		},
		productPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bgalaxy\s?s\d{2}\b`),
			regexp.MustCompile(`(?i)\biphone\s?\d{1,2}\b`),
			regexp.MustCompile(`갤럭시\s?s\d{2}`),
		},
		tickerPattern: regexp.MustCompile(`\b\d{6}\b`),
	}
}

// Extract returns the distinct entities found in query, in first-seen
// order, deduplicated.
func (e *Extractor) Extract(query string) domain.Entities {
	lower := strings.ToLower(query)

	var companies []string
	for _, c := range e.companies {
		if strings.Contains(lower, strings.ToLower(c)) {
			companies = append(companies, c)
		}
	}

	var sectors []string
	for _, s := range e.sectors {
		if strings.Contains(lower, strings.ToLower(s)) {
			sectors = append(sectors, s)
		}
	}

	var products []string
	for _, p := range e.productPatterns {
		products = append(products, p.FindAllString(query, -1)...)
	}

	tickers := e.tickerPattern.FindAllString(query, -1)

	return domain.Entities{
		Companies: dedupe(companies),
		Products:  dedupe(products),
		Sectors:   dedupe(sectors),
		Tickers:   dedupe(tickers),
	}
}

func dedupe(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}
