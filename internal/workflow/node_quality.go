package workflow

import (
	"context"
	"strings"
	"time"

	"github.com/nuri428/ontology-chat/graph"
	"github.com/nuri428/ontology-chat/internal/backend"
	"github.com/nuri428/ontology-chat/internal/domain"
	"github.com/nuri428/ontology-chat/internal/format"
)

// qualityFloor is the §4.11 node 10 threshold below which a single
// enhance_report retry is attempted.
const qualityFloor = 0.4

// QualityCheckNode is node 10: no LM call. Computes the weighted quality
// score and, if it falls below qualityFloor and no retry has happened
// yet, routes to enhance_report; otherwise terminates the workflow.
type QualityCheckNode struct{}

func (n *QualityCheckNode) Run(ctx context.Context, s State) graph.NodeResult[State] {
	breakdown, score := scoreQuality(s)

	if score < qualityFloor && s.EnhanceAttempts < 1 {
		return graph.NodeResult[State]{
			Delta: State{QualityScore: score, QualityBreakdown: breakdown, EnhanceAttempts: 1},
			Route: graph.Goto(NodeEnhanceReport),
		}
	}

	return graph.NodeResult[State]{
		Delta: State{QualityScore: score, QualityBreakdown: breakdown},
		Route: graph.Stop(),
	}
}

func scoreQuality(s State) (map[string]float64, float64) {
	contextScore := avgContentQuality(s.Contexts)*0.6 + s.DiversityScore*0.4
	insightScore := insightCountNorm(s.Insights)*0.4 + meanInsightConfidence(s.Insights)*0.3 + evidenceDensity(s.Insights)*0.3
	relationshipsScore := relationshipCoverage(s.Relationships)
	reasoningScore := reasoningPresenceScore(s.Reasoning)

	total := contextScore*0.3 + insightScore*0.4 + relationshipsScore*0.2 + reasoningScore*0.1

	return map[string]float64{
		"context":       domain.Clamp01(contextScore),
		"insight":       domain.Clamp01(insightScore),
		"relationships": domain.Clamp01(relationshipsScore),
		"reasoning":     domain.Clamp01(reasoningScore),
	}, domain.Clamp01(total)
}

func avgContentQuality(items []domain.ContextItem) float64 {
	if len(items) == 0 {
		return 0
	}
	sum := 0.0
	for _, item := range items {
		if item.QualityScore != nil {
			sum += *item.QualityScore
		} else {
			sum += item.Confidence
		}
	}
	return sum / float64(len(items))
}

func insightCountNorm(insights []domain.Insight) float64 {
	return domain.Clamp01(float64(len(insights)) / 5)
}

func meanInsightConfidence(insights []domain.Insight) float64 {
	if len(insights) == 0 {
		return 0
	}
	sum := 0.0
	for _, i := range insights {
		sum += i.Confidence
	}
	return sum / float64(len(insights))
}

func evidenceDensity(insights []domain.Insight) float64 {
	if len(insights) == 0 {
		return 0
	}
	sum := 0
	for _, i := range insights {
		sum += len(i.Evidence)
	}
	mean := float64(sum) / float64(len(insights))
	return domain.Clamp01(mean / 3)
}

func relationshipCoverage(rels []domain.Relationship) float64 {
	return domain.Clamp01(float64(len(rels)) / 3)
}

func reasoningPresenceScore(r domain.DeepReasoning) float64 {
	present := 0.0
	total := 4.0
	if len(r.WhyCauses) > 0 || r.WhyAnalysis != "" {
		present++
	}
	if len(r.HowMechanisms) > 0 {
		present++
	}
	if len(r.WhatIfScenarios) > 0 {
		present++
	}
	if r.SoWhatInvestorImplications != "" || len(r.SoWhatActionable) > 0 {
		present++
	}
	return present / total
}

// EnhanceReportNode is node 11: one final LM call that reuses the draft
// report plus the quality gaps it fell short on, run at most once.
type EnhanceReportNode struct {
	LM          backend.LM
	CostTracker *graph.CostTracker
	Model       string
}

func (n *EnhanceReportNode) Run(ctx context.Context, s State) graph.NodeResult[State] {
	if n.LM == nil {
		return graph.NodeResult[State]{
			Delta: State{Diagnostics: []string{"enhance_report: no LM configured, keeping the original draft"}},
			Route: graph.Stop(),
		}
	}

	timeout := remainingBudget(time.Now(), s.Deadline, defaultLMCallCap)
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	prompt := enhanceReportPrompt(s)
	raw, err := n.LM.Generate(callCtx, prompt, backend.GenerateOptions{
		Temperature: 0.4,
		MaxTokens:   maxMarkdownLengthByOutputType[s.ExpectedOutputType] / 3,
		Timeout:     timeout,
	})
	cancel()
	recordLLMCall(n.CostTracker, n.Model, NodeEnhanceReport, prompt, raw)

	if err != nil || strings.TrimSpace(raw) == "" {
		return graph.NodeResult[State]{
			Delta: State{Diagnostics: []string{"enhance_report: LM call failed or returned nothing, keeping the original draft"}},
			Route: graph.Stop(),
		}
	}

	markdown := truncateMarkdown(raw, s.ExpectedOutputType)
	report := format.DeepPathReport(format.DeepResult{
		Intent:       s.Query.Intent,
		Markdown:     markdown,
		Items:        s.Contexts,
		MaxCitations: 10,
		Diagnostics:  s.Diagnostics,
	})

	return graph.NodeResult[State]{Delta: State{Report: report}, Route: graph.Stop()}
}

func enhanceReportPrompt(s State) string {
	return "Revise the following report to address these gaps (lowest-scoring areas: " +
		gapsFromBreakdown(s.QualityBreakdown) + "). Keep the same section headings.\n\n" + s.Report.Markdown
}

func gapsFromBreakdown(breakdown map[string]float64) string {
	if len(breakdown) == 0 {
		return "general completeness"
	}
	var lowest string
	lowestScore := 1.1
	for k, v := range breakdown {
		if v < lowestScore {
			lowestScore = v
			lowest = k
		}
	}
	return lowest
}
