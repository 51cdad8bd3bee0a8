package workflow

import (
	"context"
	"fmt"
	"math"

	"github.com/nuri428/ontology-chat/graph"
	"github.com/nuri428/ontology-chat/internal/domain"
)

// numericMetricKeys are the Content fields checked for cross-source
// contradictions (§4.11 node 5's "same metric, different magnitudes").
var numericMetricKeys = []string{"last", "change", "change_pct", "revenue", "price"}

// contradictionRelativeTolerance is how far apart two sources' values for
// the same metric may be before being flagged as a contradiction.
const contradictionRelativeTolerance = 0.15

// CrossValidateContextsNode is node 5: no LM call. Detects contradictions
// across items reporting the same metric and drops items whose confidence
// falls below a floor recomputed from the surviving set's distribution.
type CrossValidateContextsNode struct{}

func (n *CrossValidateContextsNode) Run(ctx context.Context, s State) graph.NodeResult[State] {
	contradictions := detectContradictions(s.Contexts)
	floor := recomputeConfidenceFloor(s.Contexts)

	kept := make([]domain.ContextItem, 0, len(s.Contexts))
	for _, item := range s.Contexts {
		if item.Confidence < floor {
			continue
		}
		kept = append(kept, item)
	}

	return graph.NodeResult[State]{
		Delta: State{Contexts: kept, Contradictions: contradictions},
		Route: graph.Goto(NodeGenerateInsights),
	}
}

func detectContradictions(items []domain.ContextItem) []string {
	byMetric := make(map[string][]float64, len(numericMetricKeys))
	for _, item := range items {
		for _, key := range numericMetricKeys {
			if v, ok := numericContentField(item.Content, key); ok {
				byMetric[key] = append(byMetric[key], v)
			}
		}
	}

	var contradictions []string
	for key, values := range byMetric {
		if len(values) < 2 {
			continue
		}
		lo, hi := values[0], values[0]
		for _, v := range values[1:] {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if hi == 0 {
			continue
		}
		if math.Abs(hi-lo)/math.Abs(hi) > contradictionRelativeTolerance {
			contradictions = append(contradictions, fmt.Sprintf("conflicting values reported for %q: range [%.2f, %.2f]", key, lo, hi))
		}
	}
	return contradictions
}

func numericContentField(content map[string]interface{}, key string) (float64, bool) {
	v, ok := content[key]
	if !ok {
		return 0, false
	}
	switch vv := v.(type) {
	case float64:
		return vv, true
	case float32:
		return float64(vv), true
	case int:
		return float64(vv), true
	case int64:
		return float64(vv), true
	}
	return 0, false
}

// recomputeConfidenceFloor derives a stricter floor than the context
// engineer's own relevance cascade: items whose confidence sits notably
// below the surviving set's mean are dropped rather than carried into
// insight generation, per §4.11 node 5.
func recomputeConfidenceFloor(items []domain.ContextItem) float64 {
	if len(items) == 0 {
		return 0
	}
	sum := 0.0
	for _, item := range items {
		sum += item.Confidence
	}
	mean := sum / float64(len(items))
	floor := mean - 0.15
	if floor < 0.2 {
		floor = 0.2
	}
	return floor
}
