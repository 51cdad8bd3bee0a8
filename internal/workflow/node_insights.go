package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nuri428/ontology-chat/graph"
	"github.com/nuri428/ontology-chat/graph/tool"
	"github.com/nuri428/ontology-chat/internal/backend"
	"github.com/nuri428/ontology-chat/internal/domain"
)

// GenerateInsightsNode is node 6: one LM call expecting a strict JSON list
// of Insight objects.
type GenerateInsightsNode struct {
	LM          backend.LM
	CostTracker *graph.CostTracker
	Model       string
}

func (n *GenerateInsightsNode) Run(ctx context.Context, s State) graph.NodeResult[State] {
	if n.LM == nil {
		return graph.NodeResult[State]{
			Delta: State{Diagnostics: []string{"generate_insights: no LM configured, no insights produced"}},
			Route: graph.Goto(NodeAnalyzeRelations),
		}
	}

	timeout := remainingBudget(time.Now(), s.Deadline, defaultLMCallCap)
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	prompt := insightsPrompt(s)
	raw, err := n.LM.Generate(callCtx, prompt, backend.GenerateOptions{Temperature: 0.3, MaxTokens: 1024, Timeout: timeout})
	cancel()
	recordLLMCall(n.CostTracker, n.Model, NodeGenerateInsights, prompt, raw)

	if err != nil {
		return graph.NodeResult[State]{
			Delta: State{Diagnostics: []string{"generate_insights: LM call failed (" + err.Error() + ")"}},
			Route: graph.Goto(NodeAnalyzeRelations),
		}
	}

	var raws []rawInsight
	if !extractArray(raw, &raws) {
		return graph.NodeResult[State]{
			Delta: State{Diagnostics: []string{"generate_insights: could not parse LM response as a JSON array"}},
			Route: graph.Goto(NodeAnalyzeRelations),
		}
	}

	insights := make([]domain.Insight, 0, len(raws))
	for _, r := range raws {
		insights = append(insights, r.toInsight())
	}

	return graph.NodeResult[State]{Delta: State{Insights: insights}, Route: graph.Goto(NodeAnalyzeRelations)}
}

type rawInsight struct {
	Title        string   `json:"title"`
	Type         string   `json:"type"`
	Finding      string   `json:"finding"`
	Evidence     []string `json:"evidence"`
	Significance string   `json:"significance"`
	Confidence   float64  `json:"confidence"`
}

func (r rawInsight) toInsight() domain.Insight {
	return domain.Insight{
		Title:        r.Title,
		Type:         domain.InsightType(r.Type),
		Finding:      r.Finding,
		Evidence:     r.Evidence,
		Significance: r.Significance,
		Confidence:   domain.Clamp01(r.Confidence),
	}
}

func insightsPrompt(s State) string {
	return fmt.Sprintf(`From the evidence below, produce ONLY a JSON array (no prose, no markdown
fence) of insight objects, each shaped:
{"title": "...", "type": "quantitative|qualitative|temporal|comparative",
 "finding": "...", "evidence": ["..."], "significance": "...", "confidence": 0.0-1.0}

Query: %s
Evidence:
%s`, s.Query.Text, summarizeContexts(s.Contexts))
}

// AnalyzeRelationshipsNode is node 7: one LM call returning a list of
// Relationship objects. GraphTool, when set, grounds each relationship's
// first entity against the knowledge graph, flagging — not dropping — any
// relationship whose lead entity the graph doesn't recognize.
type AnalyzeRelationshipsNode struct {
	LM          backend.LM
	GraphTool   tool.Tool
	CostTracker *graph.CostTracker
	Model       string
}

func (n *AnalyzeRelationshipsNode) Run(ctx context.Context, s State) graph.NodeResult[State] {
	if n.LM == nil {
		return graph.NodeResult[State]{
			Delta: State{Diagnostics: []string{"analyze_relationships: no LM configured, no relationships produced"}},
			Route: graph.Goto(NodeDeepReasoning),
		}
	}

	timeout := remainingBudget(time.Now(), s.Deadline, defaultLMCallCap)
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	prompt := relationshipsPrompt(s)
	raw, err := n.LM.Generate(callCtx, prompt, backend.GenerateOptions{Temperature: 0.3, MaxTokens: 1024, Timeout: timeout})
	cancel()
	recordLLMCall(n.CostTracker, n.Model, NodeAnalyzeRelations, prompt, raw)

	if err != nil {
		return graph.NodeResult[State]{
			Delta: State{Diagnostics: []string{"analyze_relationships: LM call failed (" + err.Error() + ")"}},
			Route: graph.Goto(NodeDeepReasoning),
		}
	}

	var raws []rawRelationship
	if !extractArray(raw, &raws) {
		return graph.NodeResult[State]{
			Delta: State{Diagnostics: []string{"analyze_relationships: could not parse LM response as a JSON array"}},
			Route: graph.Goto(NodeDeepReasoning),
		}
	}

	rels := make([]domain.Relationship, 0, len(raws))
	for _, r := range raws {
		rels = append(rels, r.toRelationship())
	}

	diagnostics := n.groundRelationships(ctx, rels)

	return graph.NodeResult[State]{
		Delta: State{Relationships: rels, Diagnostics: diagnostics},
		Route: graph.Goto(NodeDeepReasoning),
	}
}

// groundRelationships calls GraphTool once per relationship's lead entity
// and reports which ones the knowledge graph doesn't recognize. A tool
// error or a nil GraphTool is silent — grounding is advisory, never a
// reason to fail the node.
func (n *AnalyzeRelationshipsNode) groundRelationships(ctx context.Context, rels []domain.Relationship) []string {
	if n.GraphTool == nil {
		return nil
	}
	var diagnostics []string
	for _, rel := range rels {
		if len(rel.Entities) == 0 {
			continue
		}
		out, err := n.GraphTool.Call(ctx, map[string]interface{}{"entity": rel.Entities[0]})
		if err != nil {
			continue
		}
		if found, ok := out["found"].(bool); ok && !found {
			diagnostics = append(diagnostics, fmt.Sprintf("analyze_relationships: %q not found in knowledge graph", rel.Entities[0]))
		}
	}
	return diagnostics
}

type rawRelationship struct {
	Kind        string   `json:"kind"`
	Entities    []string `json:"entities"`
	Description string   `json:"description"`
	Impact      string   `json:"impact"`
	Implication string   `json:"implication"`
}

func (r rawRelationship) toRelationship() domain.Relationship {
	return domain.Relationship{
		Kind:        domain.RelationshipKind(r.Kind),
		Entities:    r.Entities,
		Description: r.Description,
		Impact:      domain.ImpactLevel(r.Impact),
		Implication: r.Implication,
	}
}

func relationshipsPrompt(s State) string {
	return fmt.Sprintf(`From the evidence and insights below, produce ONLY a JSON array (no prose,
no markdown fence) of relationship objects, each shaped:
{"kind": "news-entity|financial-news|event-market|supply-chain|competitive",
 "entities": ["..."], "description": "...", "impact": "high|medium|low", "implication": "..."}

Query: %s
Insights:
%s`, s.Query.Text, summarizeInsights(s.Insights))
}

// DeepReasoningNode is node 8: one LM call returning DeepReasoning. JSON
// recovery tries the largest balanced brace span first, falling to
// progressively smaller ones, requiring at least one of why/how/what_if/
// so_what to be present — else falls back to an empty structure with a
// diagnostic note (§4.11).
type DeepReasoningNode struct {
	LM          backend.LM
	CostTracker *graph.CostTracker
	Model       string
}

func (n *DeepReasoningNode) Run(ctx context.Context, s State) graph.NodeResult[State] {
	if n.LM == nil {
		return graph.NodeResult[State]{
			Delta: State{Reasoning: domain.DeepReasoning{Diagnostic: "deep_reasoning: no LM configured"}},
			Route: graph.Goto(NodeSynthesizeReport),
		}
	}

	timeout := remainingBudget(time.Now(), s.Deadline, defaultLMCallCap)
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	prompt := deepReasoningPrompt(s)
	raw, err := n.LM.Generate(callCtx, prompt, backend.GenerateOptions{Temperature: 0.4, MaxTokens: 1024, Timeout: timeout})
	cancel()
	recordLLMCall(n.CostTracker, n.Model, NodeDeepReasoning, prompt, raw)

	if err != nil {
		return graph.NodeResult[State]{
			Delta: State{Reasoning: domain.DeepReasoning{Diagnostic: "deep_reasoning: LM call failed (" + err.Error() + ")"}},
			Route: graph.Goto(NodeSynthesizeReport),
		}
	}

	obj, ok := extractObject(raw, "why", "how", "what_if", "so_what")
	if !ok {
		return graph.NodeResult[State]{
			Delta: State{Reasoning: domain.DeepReasoning{Diagnostic: "deep_reasoning: no JSON candidate contained why/how/what_if/so_what"}},
			Route: graph.Goto(NodeSynthesizeReport),
		}
	}

	return graph.NodeResult[State]{Delta: State{Reasoning: reasoningFromObject(obj)}, Route: graph.Goto(NodeSynthesizeReport)}
}

func reasoningFromObject(obj map[string]interface{}) domain.DeepReasoning {
	why, _ := obj["why"].(map[string]interface{})
	how, _ := obj["how"].(map[string]interface{})
	whatIf, _ := obj["what_if"].([]interface{})
	soWhat, _ := obj["so_what"].(map[string]interface{})

	r := domain.DeepReasoning{}
	if why != nil {
		r.WhyCauses = stringListField(why, "causes")
		if v, ok := why["analysis"].(string); ok {
			r.WhyAnalysis = v
		}
	}
	if how != nil {
		r.HowMechanisms = stringListField(how, "mechanisms")
	}
	for _, v := range whatIf {
		if m, ok := v.(map[string]interface{}); ok {
			scenario := rawScenarioFromMap(m)
			r.WhatIfScenarios = append(r.WhatIfScenarios, scenario)
		}
	}
	if soWhat != nil {
		if v, ok := soWhat["investor_implications"].(string); ok {
			r.SoWhatInvestorImplications = v
		}
		r.SoWhatActionable = stringListField(soWhat, "actionable")
	}
	return r
}

func rawScenarioFromMap(m map[string]interface{}) domain.Scenario {
	s := domain.Scenario{}
	if v, ok := m["scenario"].(string); ok {
		s.Scenario = v
	}
	if v, ok := m["probability"].(float64); ok {
		s.Probability = domain.Clamp01(v)
	}
	if v, ok := m["impact"].(string); ok {
		s.Impact = v
	}
	return s
}

func deepReasoningPrompt(s State) string {
	return fmt.Sprintf(`From the insights and relationships below, produce ONLY a JSON object
(no prose, no markdown fence) shaped:
{"why": {"causes": ["..."], "analysis": "..."},
 "how": {"mechanisms": ["..."]},
 "what_if": [{"scenario": "...", "probability": 0.0-1.0, "impact": "..."}],
 "so_what": {"investor_implications": "...", "actionable": ["..."]}}

Query: %s
Insights:
%s
Relationships:
%s`, s.Query.Text, summarizeInsights(s.Insights), summarizeRelationships(s.Relationships))
}

func summarizeContexts(items []domain.ContextItem) string {
	var b strings.Builder
	for i, item := range items {
		if i >= 20 {
			b.WriteString("...\n")
			break
		}
		title, _ := item.Content["title"].(string)
		body, _ := item.Content["body"].(string)
		fmt.Fprintf(&b, "- [%s] %s: %s\n", item.Source, title, body)
	}
	return b.String()
}

func summarizeInsights(insights []domain.Insight) string {
	b, _ := json.Marshal(insights)
	return string(b)
}

func summarizeRelationships(rels []domain.Relationship) string {
	b, _ := json.Marshal(rels)
	return string(b)
}
