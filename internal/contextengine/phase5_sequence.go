package contextengine

import (
	"sort"

	"github.com/nuri428/ontology-chat/internal/domain"
)

// sequenceOrder groups types into the reading order §4.10 names:
// Company (background) -> News (current) -> Analysis (interpretation) ->
// Market (corroboration). Types not explicitly named fall into the
// nearest conceptual bucket: Event groups with News, Financial groups with
// Analysis, Stock groups with Market.
func sequenceOrder(t domain.ContextType) int {
	switch t {
	case domain.TypeCompany:
		return 0
	case domain.TypeNews, domain.TypeEvent:
		return 1
	case domain.TypeAnalysis, domain.TypeFinancial:
		return 2
	case domain.TypeStock:
		return 3
	default:
		return 4
	}
}

// sequence is Phase 5: reorder into the reading sequence above; within a
// type bucket, order by a recency+semantic blend (descending).
func sequence(items []scored) []scored {
	sort.SliceStable(items, func(i, j int) bool {
		oi, oj := sequenceOrder(items[i].item.Type), sequenceOrder(items[j].item.Type)
		if oi != oj {
			return oi < oj
		}
		return blendScore(items[i]) > blendScore(items[j])
	})
	return items
}

func blendScore(s scored) float64 {
	return 0.5*s.recencyScore + 0.5*s.semantic
}
