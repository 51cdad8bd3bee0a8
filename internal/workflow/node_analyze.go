package workflow

import (
	"context"
	"time"

	"github.com/nuri428/ontology-chat/graph"
	"github.com/nuri428/ontology-chat/internal/backend"
	"github.com/nuri428/ontology-chat/internal/cache"
	"github.com/nuri428/ontology-chat/internal/domain"
)

// defaultLMCallCap is the §4.11 "default 45s cap per call" ceiling every
// LM-calling node derives its own timeout from.
const defaultLMCallCap = 45 * time.Second

const analysisCacheTTL = 24 * time.Hour

// AnalyzeQueryNode is node 1: one LM call returning
// {keywords, entities, complexity, analysis_requirements, focus_areas,
// expected_output_type}, cached by stable query fingerprint.
type AnalyzeQueryNode struct {
	LM          backend.LM
	Cache       cache.Cache
	CostTracker *graph.CostTracker
	Model       string
}

func (n *AnalyzeQueryNode) Run(ctx context.Context, s State) graph.NodeResult[State] {
	now := time.Now()
	key := cache.Fingerprint("analyze_query", s.Query.Text, nil, false, now)

	if n.Cache != nil {
		if raw, ok, _ := n.Cache.Get(ctx, key); ok {
			if delta, ok := parseAnalyzeQuery(string(raw), s.Query); ok {
				return graph.NodeResult[State]{Delta: delta, Route: graph.Goto(NodePlanAnalysis)}
			}
		}
	}

	diagnostics := []string(nil)
	q := s.Query
	requirements := []string{}
	focus := []string{}
	outputType := "standard"

	if n.LM != nil {
		timeout := remainingBudget(now, s.Deadline, defaultLMCallCap)
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		prompt := analyzeQueryPrompt(s.Query.Text)
		raw, err := n.LM.Generate(callCtx, prompt, backend.GenerateOptions{
			Temperature: 0.1, MaxTokens: 512, Timeout: timeout,
		})
		cancel()
		recordLLMCall(n.CostTracker, n.Model, NodeAnalyzeQuery, prompt, raw)

		if err == nil {
			if obj, ok := extractObject(raw); ok {
				q = mergeQueryAnalysis(q, obj)
				requirements = stringListField(obj, "analysis_requirements")
				focus = stringListField(obj, "focus_areas")
				if v, ok := obj["expected_output_type"].(string); ok && v != "" {
					outputType = v
				}
			} else {
				diagnostics = append(diagnostics, "analyze_query: could not parse LM response as JSON, using classified query as-is")
			}
		} else {
			diagnostics = append(diagnostics, "analyze_query: LM call failed ("+err.Error()+"), using classified query as-is")
		}
	}

	delta := State{
		Query:                q,
		AnalysisRequirements: requirements,
		FocusAreas:           focus,
		ExpectedOutputType:   outputType,
		Diagnostics:          diagnostics,
	}

	if n.Cache != nil {
		if payload, ok := marshalAnalyzeQuery(delta); ok {
			_ = n.Cache.Set(ctx, key, payload, analysisCacheTTL)
		}
	}

	return graph.NodeResult[State]{Delta: delta, Route: graph.Goto(NodePlanAnalysis)}
}

// PlanAnalysisNode is node 2: one LM call producing an AnalysisPlan,
// cached by (query, intent) fingerprint.
type PlanAnalysisNode struct {
	LM          backend.LM
	Cache       cache.Cache
	CostTracker *graph.CostTracker
	Model       string
}

func (n *PlanAnalysisNode) Run(ctx context.Context, s State) graph.NodeResult[State] {
	now := time.Now()
	params := map[string]string{"intent": string(s.Query.Intent)}
	key := cache.Fingerprint("plan_analysis", s.Query.Text, params, false, now)

	if n.Cache != nil {
		if raw, ok, _ := n.Cache.Get(ctx, key); ok {
			if plan, ok := parseAnalysisPlan(string(raw)); ok {
				return graph.NodeResult[State]{Delta: State{Plan: plan}, Route: graph.Goto(NodeCollectData)}
			}
		}
	}

	plan := defaultAnalysisPlan(s)
	var diagnostics []string

	if n.LM != nil {
		timeout := remainingBudget(now, s.Deadline, defaultLMCallCap)
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		prompt := planAnalysisPrompt(s)
		raw, err := n.LM.Generate(callCtx, prompt, backend.GenerateOptions{
			Temperature: 0.2, MaxTokens: 512, Timeout: timeout,
		})
		cancel()
		recordLLMCall(n.CostTracker, n.Model, NodePlanAnalysis, prompt, raw)

		if err == nil {
			if obj, ok := extractObject(raw); ok {
				plan = mergeAnalysisPlan(plan, obj)
			} else {
				diagnostics = append(diagnostics, "plan_analysis: could not parse LM response as JSON, using default plan")
			}
		} else {
			diagnostics = append(diagnostics, "plan_analysis: LM call failed ("+err.Error()+"), using default plan")
		}
	}

	if n.Cache != nil {
		if payload, ok := marshalAnalysisPlan(plan); ok {
			_ = n.Cache.Set(ctx, key, payload, analysisCacheTTL)
		}
	}

	return graph.NodeResult[State]{Delta: State{Plan: plan, Diagnostics: diagnostics}, Route: graph.Goto(NodeCollectData)}
}

func defaultAnalysisPlan(s State) domain.AnalysisPlan {
	approach := domain.ApproachDescriptive
	if s.Query.Intent == domain.IntentComparison {
		approach = domain.ApproachComparative
	}
	if s.Query.Intent == domain.IntentTrend {
		approach = domain.ApproachPredictive
	}
	return domain.AnalysisPlan{
		PrimaryFocus:      append(append([]string{}, s.Query.Entities.Companies...), s.Query.Entities.Sectors...),
		RequiredDataTypes: []domain.ContextType{domain.TypeNews, domain.TypeCompany},
		Approach:          approach,
	}
}
