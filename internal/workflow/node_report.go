package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nuri428/ontology-chat/graph"
	"github.com/nuri428/ontology-chat/internal/backend"
	"github.com/nuri428/ontology-chat/internal/domain"
	"github.com/nuri428/ontology-chat/internal/format"
)

// maxMarkdownLengthByOutputType bounds the synthesized report's length per
// §4.11 node 9's "length bounded by expected_output_type".
var maxMarkdownLengthByOutputType = map[string]int{
	"brief":         1500,
	"standard":      4000,
	"comprehensive": 9000,
}

// SynthesizeReportNode is node 9: one LM call emitting Markdown with the
// mandated sections (Executive Summary, Market Context, Key Findings,
// Relationship & Competitive Analysis, Deep Reasoning, Investment
// Perspective).
type SynthesizeReportNode struct {
	LM          backend.LM
	CostTracker *graph.CostTracker
	Model       string
}

func (n *SynthesizeReportNode) Run(ctx context.Context, s State) graph.NodeResult[State] {
	report := n.synthesize(ctx, s)
	return graph.NodeResult[State]{Delta: State{Report: report}, Route: graph.Goto(NodeQualityCheck)}
}

func (n *SynthesizeReportNode) synthesize(ctx context.Context, s State) domain.Report {
	var markdown string
	var diagnostics []string

	if n.LM != nil {
		timeout := remainingBudget(time.Now(), s.Deadline, defaultLMCallCap)
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		prompt := synthesizeReportPrompt(s)
		raw, err := n.LM.Generate(callCtx, prompt, backend.GenerateOptions{
			Temperature: 0.5,
			MaxTokens:   maxMarkdownLengthByOutputType[s.ExpectedOutputType] / 3,
			Timeout:     timeout,
		})
		cancel()
		recordLLMCall(n.CostTracker, n.Model, NodeSynthesizeReport, prompt, raw)
		if err == nil && strings.TrimSpace(raw) != "" {
			markdown = truncateMarkdown(raw, s.ExpectedOutputType)
		} else if err != nil {
			diagnostics = append(diagnostics, "synthesize_report: LM call failed ("+err.Error()+"), falling back to a template report")
		}
	}

	if markdown == "" {
		markdown = templateReport(s)
	}

	report := format.DeepPathReport(format.DeepResult{
		Intent:       s.Query.Intent,
		Markdown:     markdown,
		Items:        s.Contexts,
		MaxCitations: 10,
		Diagnostics:  append(append([]string{}, s.Diagnostics...), diagnostics...),
	})
	return report
}

func synthesizeReportPrompt(s State) string {
	return fmt.Sprintf(`Write a Markdown investment research report for the query below with
exactly these level-2 headings, in this order: "## Executive Summary",
"## Market Context", "## Key Findings", "## Relationship & Competitive
Analysis", "## Deep Reasoning", "## Investment Perspective". Each Key
Finding must cite its supporting evidence. Target length: %s.

Query: %s
Analysis plan: %s
Insights: %s
Relationships: %s
Reasoning: why=%v how=%v what_if=%v so_what=%v`,
		s.ExpectedOutputType, s.Query.Text, s.Plan.Approach,
		summarizeInsights(s.Insights), summarizeRelationships(s.Relationships),
		s.Reasoning.WhyCauses, s.Reasoning.HowMechanisms, s.Reasoning.WhatIfScenarios, s.Reasoning.SoWhatActionable)
}

func truncateMarkdown(raw string, outputType string) string {
	limit, ok := maxMarkdownLengthByOutputType[outputType]
	if !ok {
		limit = maxMarkdownLengthByOutputType["standard"]
	}
	if len(raw) <= limit {
		return raw
	}
	return raw[:limit] + "\n\n_(truncated)_\n"
}

// templateReport is the no-LM fallback: a deterministic skeleton over the
// mandated sections so the pipeline still produces a valid document.
func templateReport(s State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Executive Summary\n\n%s\n\n", summaryLine(s))
	b.WriteString("## Market Context\n\n")
	writeMarketContext(&b, s.Contexts)
	b.WriteString("## Key Findings\n\n")
	writeKeyFindings(&b, s.Insights)
	b.WriteString("## Relationship & Competitive Analysis\n\n")
	writeRelationships(&b, s.Relationships)
	b.WriteString("## Deep Reasoning\n\n")
	writeReasoning(&b, s.Reasoning)
	b.WriteString("## Investment Perspective\n\n")
	if s.Reasoning.SoWhatInvestorImplications != "" {
		b.WriteString(s.Reasoning.SoWhatInvestorImplications + "\n")
	} else {
		b.WriteString("No investment perspective available for this query.\n")
	}
	return b.String()
}

func summaryLine(s State) string {
	if len(s.Insights) == 0 {
		return fmt.Sprintf("Analysis of \"%s\" found no significant insights in the available evidence.", s.Query.Text)
	}
	return fmt.Sprintf("Analysis of \"%s\" surfaced %d insight(s) across %d evidence item(s).", s.Query.Text, len(s.Insights), len(s.Contexts))
}

func writeMarketContext(b *strings.Builder, items []domain.ContextItem) {
	found := false
	for _, item := range items {
		if item.Source != domain.SourceMarket {
			continue
		}
		body, _ := item.Content["body"].(string)
		fmt.Fprintf(b, "- %v\n", body)
		found = true
	}
	if !found {
		b.WriteString("No market data available for this query.\n")
	}
	b.WriteString("\n")
}

func writeKeyFindings(b *strings.Builder, insights []domain.Insight) {
	if len(insights) == 0 {
		b.WriteString("No insights were generated for this query.\n\n")
		return
	}
	for _, i := range insights {
		fmt.Fprintf(b, "- **%s**: %s (evidence: %s)\n", i.Title, i.Finding, strings.Join(i.Evidence, "; "))
	}
	b.WriteString("\n")
}

func writeRelationships(b *strings.Builder, rels []domain.Relationship) {
	if len(rels) == 0 {
		b.WriteString("No relationships were identified for this query.\n\n")
		return
	}
	for _, r := range rels {
		fmt.Fprintf(b, "- [%s/%s] %s — %s\n", r.Kind, r.Impact, strings.Join(r.Entities, ", "), r.Description)
	}
	b.WriteString("\n")
}

func writeReasoning(b *strings.Builder, r domain.DeepReasoning) {
	if !r.HasContent() {
		b.WriteString("No deep reasoning was produced for this query.\n\n")
		return
	}
	if len(r.WhyCauses) > 0 || r.WhyAnalysis != "" {
		fmt.Fprintf(b, "**Why:** %s %s\n\n", strings.Join(r.WhyCauses, "; "), r.WhyAnalysis)
	}
	if len(r.HowMechanisms) > 0 {
		fmt.Fprintf(b, "**How:** %s\n\n", strings.Join(r.HowMechanisms, "; "))
	}
	for _, scenario := range r.WhatIfScenarios {
		fmt.Fprintf(b, "**What if** %s (p=%.2f): %s\n\n", scenario.Scenario, scenario.Probability, scenario.Impact)
	}
}
