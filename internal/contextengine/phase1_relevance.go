package contextengine

import (
	"math"
	"time"

	"github.com/nuri428/ontology-chat/internal/domain"
)

// scored carries a ContextItem through the pipeline alongside the
// per-phase values later phases depend on.
type scored struct {
	item domain.ContextItem

	sourceWeight float64
	recencyScore float64
	semantic     float64
	quality      float64
	embedding    []float32

	rerank float64
}

// relevanceCascade is Phase 1: drop items below the confidence floor, and
// annotate survivors with their source weight and recency score (used by
// Phase 4's base score). Source priority and recency inform weighting
// rather than a second hard cutoff — see DESIGN.md Open Question on
// "Phase 1 scope".
func relevanceCascade(items []domain.ContextItem, cfg Config, now time.Time) []scored {
	out := make([]scored, 0, len(items))
	for _, item := range items {
		if item.Confidence < cfg.ConfidenceFloor {
			continue
		}
		out = append(out, scored{
			item:         item,
			sourceWeight: cfg.SourceWeights[item.Source],
			recencyScore: recencyDecay(item.Timestamp, cfg.RecencyHalfLife, now),
			quality:      resolveQualityScore(item),
		})
	}
	return out
}

// recencyDecay computes exponential decay with the configured half-life.
// Items with no timestamp get a neutral mid-range score rather than being
// penalized for missing data.
func recencyDecay(ts *time.Time, halfLife time.Duration, now time.Time) float64 {
	if ts == nil || halfLife <= 0 {
		return 0.5
	}
	age := now.Sub(*ts)
	if age < 0 {
		age = 0
	}
	return math.Pow(0.5, age.Hours()/halfLife.Hours())
}
