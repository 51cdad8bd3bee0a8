// Package contextengine implements the six-phase context engineering
// pipeline named by spec.md §4.10 (component C10): relevance cascade,
// semantic filter with diversity mode, deduplication, metadata-enhanced
// reranking, sequencing, and final pruning.
package contextengine

import (
	"time"

	"github.com/nuri428/ontology-chat/internal/domain"
)

// Config holds every tunable weight named in §4.10. A caller can pass a
// modified Config to NewEngine; internal/config has no fields for these
// weights, and config.Init always passes DefaultConfig().
type Config struct {
	// Phase 1: Relevance Cascade.
	SourceWeights   map[domain.ContextSource]float64
	RecencyHalfLife time.Duration
	ConfidenceFloor float64

	// Phase 2: Semantic Filter.
	SemanticTopM       int
	DiversityThreshold float64 // tau: minimum pairwise dissimilarity

	// Phase 3: Deduplication.
	DedupWindow              int
	DedupSimilarityThreshold float64

	// Phase 4: Metadata-Enhanced Reranking — base weights.
	BaseSemanticWeight float64
	BaseSourceWeight   float64
	BaseRecencyWeight  float64

	// Phase 4 — schema weights.
	SchemaQualityWeight    float64
	SchemaFeaturedWeight   float64
	SchemaSyncedWeight     float64
	SchemaGraphDegreeCap   float64
	SchemaGraphDegreeScale float64

	// Phase 4 — plan alignment weights.
	PlanFocusKeywordBonus    float64
	PlanRequiredTypeBonus    float64

	// Phase 6: Final Pruning.
	FinalTopN int
}

// DefaultConfig returns the weights named literally in §4.10.
func DefaultConfig() Config {
	return Config{
		SourceWeights: map[domain.ContextSource]float64{
			domain.SourceGraph:  1.3,
			domain.SourceSearch: 1.0,
			domain.SourceMarket: 0.8,
		},
		RecencyHalfLife: 60 * 24 * time.Hour,
		ConfidenceFloor: 0.3,

		SemanticTopM:       50,
		DiversityThreshold: 0.15,

		DedupWindow:              5,
		DedupSimilarityThreshold: 0.85,

		BaseSemanticWeight: 0.30,
		BaseSourceWeight:   0.12,
		BaseRecencyWeight:  0.08,

		SchemaQualityWeight:    0.15,
		SchemaFeaturedWeight:   0.10,
		SchemaSyncedWeight:     0.05,
		SchemaGraphDegreeCap:   0.10,
		SchemaGraphDegreeScale: 10,

		PlanFocusKeywordBonus: 0.1,
		PlanRequiredTypeBonus: 0.2,

		FinalTopN: 30,
	}
}
