package contextengine

import (
	"strings"

	"github.com/nuri428/ontology-chat/internal/domain"
)

// rerank is Phase 4: per-item score = base(50%) + schema(30%) + plan
// alignment(20%), per §4.10's exact formula.
func rerank(items []scored, plan domain.AnalysisPlan, cfg Config) {
	for i := range items {
		items[i].rerank = rerankScore(items[i], plan, cfg)
	}
}

func rerankScore(s scored, plan domain.AnalysisPlan, cfg Config) float64 {
	base := cfg.BaseSemanticWeight*s.semantic +
		cfg.BaseSourceWeight*s.sourceWeight +
		cfg.BaseRecencyWeight*s.recencyScore

	schema := schemaScore(s, cfg)
	alignment := planAlignmentScore(s.item, plan, cfg)

	return base + schema + alignment
}

func schemaScore(s scored, cfg Config) float64 {
	score := s.quality * cfg.SchemaQualityWeight

	if s.item.IsFeatured != nil && *s.item.IsFeatured {
		score += cfg.SchemaFeaturedWeight
	}
	if s.item.Synced != nil && *s.item.Synced {
		score += cfg.SchemaSyncedWeight
	}
	if s.item.GraphDegree != nil {
		degreeScore := float64(*s.item.GraphDegree) / cfg.SchemaGraphDegreeScale
		if degreeScore > cfg.SchemaGraphDegreeCap {
			degreeScore = cfg.SchemaGraphDegreeCap
		}
		score += degreeScore
	}
	return score
}

// planAlignmentScore adds PlanFocusKeywordBonus per matched primary_focus
// keyword found in the item's content, plus PlanRequiredTypeBonus if the
// item's type is in the plan's required data types.
func planAlignmentScore(item domain.ContextItem, plan domain.AnalysisPlan, cfg Config) float64 {
	score := 0.0
	text := strings.ToLower(itemText(item))

	for _, keyword := range plan.PrimaryFocus {
		if keyword == "" {
			continue
		}
		if strings.Contains(text, strings.ToLower(keyword)) {
			score += cfg.PlanFocusKeywordBonus
		}
	}

	for _, t := range plan.RequiredDataTypes {
		if t == item.Type {
			score += cfg.PlanRequiredTypeBonus
			break
		}
	}
	return score
}
