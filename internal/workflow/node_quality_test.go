package workflow

import (
	"context"
	"testing"

	"github.com/nuri428/ontology-chat/internal/domain"
)

func TestQualityCheckRoutesToEnhanceBelowFloor(t *testing.T) {
	n := &QualityCheckNode{}
	s := State{} // no contexts, no insights, no relationships, no reasoning -> score ~0
	result := n.Run(context.Background(), s)

	if result.Route.To != NodeEnhanceReport {
		t.Fatalf("expected routing to enhance_report for a low-quality state, got %+v", result.Route)
	}
	if result.Delta.EnhanceAttempts != 1 {
		t.Fatalf("expected EnhanceAttempts delta of 1, got %d", result.Delta.EnhanceAttempts)
	}
}

func TestQualityCheckDoesNotRetryTwice(t *testing.T) {
	n := &QualityCheckNode{}
	s := State{EnhanceAttempts: 1}
	result := n.Run(context.Background(), s)

	if !result.Route.Terminal {
		t.Fatalf("expected terminal routing once a retry has already happened, got %+v", result.Route)
	}
}

func TestQualityCheckTerminatesOnHighScore(t *testing.T) {
	n := &QualityCheckNode{}
	s := State{
		DiversityScore: 0.9,
		Contexts: []domain.ContextItem{
			{Confidence: 0.9}, {Confidence: 0.8},
		},
		Insights: []domain.Insight{
			{Title: "a", Confidence: 0.9, Evidence: []string{"e1", "e2", "e3"}},
			{Title: "b", Confidence: 0.8, Evidence: []string{"e1", "e2"}},
			{Title: "c", Confidence: 0.85, Evidence: []string{"e1"}},
			{Title: "d", Confidence: 0.9, Evidence: []string{"e1", "e2"}},
			{Title: "e", Confidence: 0.8, Evidence: []string{"e1"}},
		},
		Relationships: []domain.Relationship{{Kind: domain.RelCompetitive}, {Kind: domain.RelSupplyChain}, {Kind: domain.RelEventMarket}},
		Reasoning: domain.DeepReasoning{
			WhyAnalysis:                "because demand rose",
			HowMechanisms:              []string{"supply chain tightening"},
			WhatIfScenarios:            []domain.Scenario{{Scenario: "demand keeps rising", Probability: 0.6}},
			SoWhatInvestorImplications: "favorable",
		},
	}
	result := n.Run(context.Background(), s)

	if !result.Route.Terminal {
		t.Fatalf("expected terminal routing for a high-quality state, got %+v", result.Route)
	}
	if result.Delta.QualityScore < qualityFloor {
		t.Fatalf("expected score above the floor, got %v", result.Delta.QualityScore)
	}
}
