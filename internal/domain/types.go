// Package domain holds the value types shared across the query routing and
// retrieval fusion engine: Query, ContextItem, GraphRow, NewsHit,
// StockSnapshot, AnalysisPlan, Insight, Relationship, DeepReasoning, and
// Report. All are value types except where a pointer is used to model an
// optional field (per §3's "Invariant: when quality_score is absent...").
package domain

import "time"

// Intent is the closed classification set from §3.
type Intent string

const (
	IntentNews       Intent = "news_inquiry"
	IntentStock      Intent = "stock_analysis"
	IntentComparison Intent = "comparison"
	IntentTrend      Intent = "trend"
	IntentGeneral    Intent = "general_qa"
	IntentUnknown    Intent = "unknown"
)

// AnalysisDepth is the depth classification derived from ComplexityScore.
type AnalysisDepth string

const (
	DepthShallow       AnalysisDepth = "shallow"
	DepthStandard      AnalysisDepth = "standard"
	DepthDeep          AnalysisDepth = "deep"
	DepthComprehensive AnalysisDepth = "comprehensive"
)

// Entities extracted alongside intent classification.
type Entities struct {
	Companies []string
	Products  []string
	Sectors   []string
	Tickers   []string
}

// Query is the request text plus everything derived from it by C4/C5.
type Query struct {
	Text       string
	UserID     string
	SessionID  string
	ForceDeep  bool
	Keywords   []string
	Entities   Entities
	Intent     Intent
	Confidence float64
}

// ComplexityScore is the scalar complexity result of C5, with its derived
// depth classification.
type ComplexityScore struct {
	Score float64
	Depth AnalysisDepth
}

// DepthFromScore derives the AnalysisDepth from a clamped complexity score
// using the thresholds in spec.md §3: <0.7 shallow, <0.85 standard,
// <0.9 deep, >=0.9 comprehensive.
func DepthFromScore(score float64) AnalysisDepth {
	switch {
	case score < 0.7:
		return DepthShallow
	case score < 0.85:
		return DepthStandard
	case score < 0.9:
		return DepthDeep
	default:
		return DepthComprehensive
	}
}

// ContextSource identifies which backend produced a ContextItem.
type ContextSource string

const (
	SourceGraph  ContextSource = "graph"
	SourceSearch ContextSource = "search"
	SourceMarket ContextSource = "market"
)

// ContextType classifies the kind of evidence a ContextItem carries.
type ContextType string

const (
	TypeNews      ContextType = "news"
	TypeCompany   ContextType = "company"
	TypeEvent     ContextType = "event"
	TypeFinancial ContextType = "financial"
	TypeAnalysis  ContextType = "analysis"
	TypeStock     ContextType = "stock"
)

// OntologyStatus is the closed set of ingestion states the graph backend
// may report for a node.
type OntologyStatus string

const (
	OntologyPending    OntologyStatus = "pending"
	OntologyProcessing OntologyStatus = "processing"
	OntologyCompleted  OntologyStatus = "completed"
	OntologyFailed     OntologyStatus = "failed"
	OntologyUnknown    OntologyStatus = "unknown"
)

// ContextItem is the unit of retrieved evidence threaded through context
// engineering (C10). Hybrid-quality fields are optional (nil pointer means
// "not supplied by the backend"); the context engineer computes a fallback
// without ever overwriting a backend-supplied value — see DESIGN.md Open
// Question 1.
type ContextItem struct {
	Source    ContextSource
	Type      ContextType
	Content   map[string]interface{}
	Timestamp *time.Time

	Confidence float64
	Relevance  float64

	QualityScore   *float64
	IsFeatured     *bool
	Synced         *bool
	OntologyStatus *OntologyStatus
	GraphDegree    *int
	EventChainID   *string
}

// Clamp01 clamps x into [0,1].
func Clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// GraphRow is one row returned by the graph backend, flattened per §9's
// "never expose raw driver objects" redesign note.
type GraphRow struct {
	NodeProperties map[string]interface{}
	Labels         []string
	Timestamp      time.Time
}

// NewsHit is one hit returned by the hybrid search backend.
type NewsHit struct {
	ID          string
	Title       string
	URL         string
	Summary     string
	PublishedAt time.Time
	Score       float64
	Highlights  []string
}

// StockSnapshot is a point-in-time market quote.
type StockSnapshot struct {
	Symbol     string
	Last       float64
	Change     float64
	ChangePct  float64
	Volume     int64
	AsOf       time.Time
}

// ApproachKind is the analysis approach chosen by the planning node.
type ApproachKind string

const (
	ApproachComparative ApproachKind = "comparative"
	ApproachDescriptive ApproachKind = "descriptive"
	ApproachDiagnostic  ApproachKind = "diagnostic"
	ApproachPredictive  ApproachKind = "predictive"
)

// AnalysisPlan is produced by the deep workflow's plan_analysis node.
type AnalysisPlan struct {
	PrimaryFocus        []string
	ComparisonAxes       []string
	RequiredDataTypes   []ContextType
	KeyQuestions        []string
	Approach            ApproachKind
}

// InsightType classifies an Insight.
type InsightType string

const (
	InsightQuantitative InsightType = "quantitative"
	InsightQualitative  InsightType = "qualitative"
	InsightTemporal     InsightType = "temporal"
	InsightComparative  InsightType = "comparative"
)

// Insight is one finding produced by the generate_insights node.
type Insight struct {
	Title        string
	Type         InsightType
	Finding      string
	Evidence     []string
	Significance string
	Confidence   float64
}

// RelationshipKind classifies a Relationship.
type RelationshipKind string

const (
	RelNewsEntity      RelationshipKind = "news-entity"
	RelFinancialNews    RelationshipKind = "financial-news"
	RelEventMarket      RelationshipKind = "event-market"
	RelSupplyChain      RelationshipKind = "supply-chain"
	RelCompetitive      RelationshipKind = "competitive"
)

// ImpactLevel is the closed impact scale for Relationship.
type ImpactLevel string

const (
	ImpactHigh   ImpactLevel = "high"
	ImpactMedium ImpactLevel = "medium"
	ImpactLow    ImpactLevel = "low"
)

// Relationship is one relation produced by the analyze_relationships node.
type Relationship struct {
	Kind        RelationshipKind
	Entities    []string
	Description string
	Impact      ImpactLevel
	Implication string
}

// Scenario is one what-if branch inside DeepReasoning.
type Scenario struct {
	Scenario    string
	Probability float64
	Impact      string
}

// DeepReasoning is the why/how/what-if/so-what structure produced by the
// deep_reasoning node.
type DeepReasoning struct {
	WhyCauses             []string
	WhyAnalysis           string
	HowMechanisms         []string
	WhatIfScenarios       []Scenario
	SoWhatInvestorImplications string
	SoWhatActionable      []string
	// Diagnostic is set when JSON recovery (§4.11 node 8) fell back to an
	// empty structure; it records why.
	Diagnostic string
}

// HasContent reports whether at least one of why/how/what-if/so-what was
// populated (used by quality_check and the invariant in spec.md §8.1.6).
func (d DeepReasoning) HasContent() bool {
	return len(d.WhyCauses) > 0 || d.WhyAnalysis != "" ||
		len(d.HowMechanisms) > 0 || len(d.WhatIfScenarios) > 0 ||
		d.SoWhatInvestorImplications != "" || len(d.SoWhatActionable) > 0
}

// Citation is one source line rendered into the final report.
type Citation struct {
	URL         string
	Title       string
	PublishedAt time.Time
}

// Report is the final rendered output of either path: the §6 "primary
// request/response" envelope `{type, markdown, sources, graph_samples,
// meta}`. Type carries the classified Intent (or "overload"/"validation"
// for the two Fast Path error kinds §7 allows to surface structurally).
type Report struct {
	Type         Intent
	Markdown     string
	Sources      []Citation
	GraphSamples []GraphRow
	Meta         map[string]interface{}
}
