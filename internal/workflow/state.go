// Package workflow implements the Deep Workflow named by spec.md §4.11
// (component C11): a ten-node strictly forward graph.Engine[State] run,
// each node mutating a single State field, idempotent on identical input.
package workflow

import (
	"time"

	"github.com/nuri428/ontology-chat/internal/domain"
)

// Node IDs, exported so a caller wiring the engine (or a test asserting on
// routing) can name them without string literals scattered everywhere.
const (
	NodeAnalyzeQuery      = "analyze_query"
	NodePlanAnalysis      = "plan_analysis"
	NodeCollectData       = "collect_parallel_data"
	NodeApplyContext      = "apply_context_engineering"
	NodeCrossValidate     = "cross_validate_contexts"
	NodeGenerateInsights  = "generate_insights"
	NodeAnalyzeRelations  = "analyze_relationships"
	NodeDeepReasoning     = "deep_reasoning"
	NodeSynthesizeReport  = "synthesize_report"
	NodeQualityCheck      = "quality_check"
	NodeEnhanceReport     = "enhance_report"
)

// State is the single value threaded through every node of the Deep
// Workflow. Each of the ten nodes owns one (or a small related group) of
// these fields; Reduce merges a node's Delta back into the running state.
type State struct {
	Query domain.Query

	// analyze_query output (§4.11 node 1).
	AnalysisRequirements []string
	FocusAreas           []string
	ExpectedOutputType   string

	// plan_analysis output (node 2).
	Plan domain.AnalysisPlan

	// collect_parallel_data output (node 3).
	Contexts []domain.ContextItem

	// apply_context_engineering output (node 4).
	DiversityScore float64

	// cross_validate_contexts output (node 5).
	Contradictions []string

	// generate_insights / analyze_relationships / deep_reasoning output
	// (nodes 6-8).
	Insights      []domain.Insight
	Relationships []domain.Relationship
	Reasoning     domain.DeepReasoning

	// synthesize_report / enhance_report output (nodes 9, 11).
	Report domain.Report

	// quality_check output (node 10).
	QualityScore    float64
	QualityBreakdown map[string]float64
	EnhanceAttempts int

	// Diagnostics accumulates a note per node whenever that node had to
	// fall back to a structured empty value (malformed LM JSON, a backend
	// failure, etc.) — §4.11's "the workflow continues" rule means these
	// are observations, never fatal.
	Diagnostics []string

	// Deadline is the overall wall-clock budget for the run, set once by
	// the caller before Run and read by every LM-calling node to derive
	// its own per-call timeout (§4.11's "individual deadline derived from
	// the remaining workflow budget").
	Deadline time.Time

	StartedAt time.Time
}

// Reduce merges delta into prev. Scalar/struct fields from delta overwrite
// prev's only when delta carries a non-zero value (a node that didn't
// touch a field leaves its zero value, so it never clobbers the running
// state); accumulator fields (Diagnostics) append instead.
func Reduce(prev State, delta State) State {
	out := prev

	if delta.Query.Text != "" || delta.Query.Intent != "" {
		out.Query = delta.Query
	}
	if len(delta.AnalysisRequirements) > 0 {
		out.AnalysisRequirements = delta.AnalysisRequirements
	}
	if len(delta.FocusAreas) > 0 {
		out.FocusAreas = delta.FocusAreas
	}
	if delta.ExpectedOutputType != "" {
		out.ExpectedOutputType = delta.ExpectedOutputType
	}
	if !isZeroPlan(delta.Plan) {
		out.Plan = delta.Plan
	}
	if delta.Contexts != nil {
		out.Contexts = delta.Contexts
	}
	if delta.DiversityScore != 0 {
		out.DiversityScore = delta.DiversityScore
	}
	if delta.Contradictions != nil {
		out.Contradictions = delta.Contradictions
	}
	if delta.Insights != nil {
		out.Insights = delta.Insights
	}
	if delta.Relationships != nil {
		out.Relationships = delta.Relationships
	}
	if delta.Reasoning.HasContent() || delta.Reasoning.Diagnostic != "" {
		out.Reasoning = delta.Reasoning
	}
	if delta.Report.Markdown != "" {
		out.Report = delta.Report
	}
	if delta.QualityScore != 0 {
		out.QualityScore = delta.QualityScore
	}
	if delta.QualityBreakdown != nil {
		out.QualityBreakdown = delta.QualityBreakdown
	}
	if delta.EnhanceAttempts != 0 {
		out.EnhanceAttempts += delta.EnhanceAttempts
	}
	if len(delta.Diagnostics) > 0 {
		out.Diagnostics = append(append([]string{}, out.Diagnostics...), delta.Diagnostics...)
	}
	if !delta.Deadline.IsZero() {
		out.Deadline = delta.Deadline
	}
	if !delta.StartedAt.IsZero() {
		out.StartedAt = delta.StartedAt
	}
	return out
}

func isZeroPlan(p domain.AnalysisPlan) bool {
	return len(p.PrimaryFocus) == 0 && len(p.ComparisonAxes) == 0 &&
		len(p.RequiredDataTypes) == 0 && len(p.KeyQuestions) == 0 && p.Approach == ""
}

// remainingBudget is the time left before state.Deadline, capped at cap.
// Used by every LM-calling node to size its own call's timeout.
func remainingBudget(now time.Time, deadline time.Time, cap time.Duration) time.Duration {
	if deadline.IsZero() {
		return cap
	}
	left := deadline.Sub(now)
	if left <= 0 {
		return 0
	}
	if left > cap {
		return cap
	}
	return left
}
