package workflow

import (
	"context"
	"testing"

	"github.com/nuri428/ontology-chat/internal/domain"
)

func TestCrossValidateDetectsConflictingMagnitudes(t *testing.T) {
	n := &CrossValidateContextsNode{}
	s := State{Contexts: []domain.ContextItem{
		{Source: domain.SourceMarket, Confidence: 0.9, Content: map[string]interface{}{"last": 70000.0}},
		{Source: domain.SourceSearch, Confidence: 0.9, Content: map[string]interface{}{"last": 50000.0}},
	}}
	result := n.Run(context.Background(), s)
	if len(result.Delta.Contradictions) == 0 {
		t.Fatalf("expected a contradiction to be flagged for a 30%% divergent 'last' value")
	}
}

func TestCrossValidateDropsLowConfidenceItems(t *testing.T) {
	n := &CrossValidateContextsNode{}
	s := State{Contexts: []domain.ContextItem{
		{Confidence: 0.9}, {Confidence: 0.91}, {Confidence: 0.1},
	}}
	result := n.Run(context.Background(), s)
	if len(result.Delta.Contexts) != 2 {
		t.Fatalf("expected the low-confidence outlier to be dropped, kept %d items", len(result.Delta.Contexts))
	}
}

func TestCrossValidateRoutesToGenerateInsights(t *testing.T) {
	n := &CrossValidateContextsNode{}
	result := n.Run(context.Background(), State{})
	if result.Route.To != NodeGenerateInsights {
		t.Fatalf("expected routing to generate_insights, got %+v", result.Route)
	}
}
