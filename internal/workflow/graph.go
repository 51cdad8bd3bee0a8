package workflow

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/nuri428/ontology-chat/graph"
	"github.com/nuri428/ontology-chat/graph/emit"
	"github.com/nuri428/ontology-chat/graph/store"
	"github.com/nuri428/ontology-chat/internal/backend"
	"github.com/nuri428/ontology-chat/internal/cache"
	"github.com/nuri428/ontology-chat/internal/contextengine"
	"github.com/nuri428/ontology-chat/internal/coreerr"
	"github.com/nuri428/ontology-chat/internal/domain"
	"github.com/nuri428/ontology-chat/internal/resilience"
)

// maxSteps bounds the Deep Workflow's run: ten forward nodes plus at most
// one enhance_report retry leaves ample headroom without risking a silent
// infinite loop.
const maxSteps = 30

// DefaultWallClockBudget is the fallback overall deadline when the caller
// doesn't set one explicitly (the Query Router, C6, normally does via its
// depth-timeout table).
const DefaultWallClockBudget = 120 * time.Second

// Deps are the backend collaborators the Deep Workflow's nodes need. LM
// and Cache are optional; every node degrades to a template/no-cache path
// when either is nil. Store is optional too: nil falls back to an
// in-process store.NewMemStore, losing state across a process restart;
// a durable driver (MySQL or SQLite; see NewStore) survives one.
//
// GraphMetrics and CostTracker are both optional engine-lifetime
// instrumentation: GraphMetrics feeds the engine's own step/queue/retry
// gauges (the engine calls it automatically), CostTracker is attributed
// manually by each LM-calling node since LM.Generate reports no real
// token usage. Model names which pricing row CostTracker looks up.
type Deps struct {
	Graph              backend.Graph
	Search             backend.Search
	Market             backend.Market
	LM                 backend.LM
	Cache              cache.Cache
	Breakers           *resilience.Registry
	Retriers           map[string]*resilience.Retrier
	BackendConcurrency map[string]int
	Engine             *contextengine.Engine
	Store              store.Store[State]
	GraphMetrics       *graph.PrometheusMetrics
	CostTracker        *graph.CostTracker
	Model              string

	LookbackDays int
	Emitter      emit.Emitter
}

// NewStore resolves a persistence driver name to a store.Store[State],
// per §4.14's lifecycle ("memory by default, a durable driver opt-in").
// driver is one of memory|mysql|sqlite; dsn is the MySQL DSN or, for
// sqlite, a file path. An empty or "memory" driver never touches dsn.
func NewStore(driver, dsn string) (store.Store[State], error) {
	switch driver {
	case "", "memory":
		return store.NewMemStore[State](), nil
	case "mysql":
		return store.NewMySQLStore[State](dsn)
	case "sqlite":
		return store.NewSQLiteStore[State](dsn)
	default:
		return nil, fmt.Errorf("workflow: unknown store driver %q", driver)
	}
}

// New builds the ten-node graph.Engine[State], wired exactly like the
// reference workflow package this one is grounded on: no explicit
// Connect edges, every node routes itself via Goto/Stop.
func New(deps Deps) (*graph.Engine[State], error) {
	emitter := deps.Emitter
	if emitter == nil {
		emitter = emit.NewNullEmitter()
	}

	st := deps.Store
	if st == nil {
		st = store.NewMemStore[State]()
	}

	options := []interface{}{graph.WithMaxSteps(maxSteps)}
	if deps.GraphMetrics != nil {
		options = append(options, graph.WithMetrics(deps.GraphMetrics))
	}
	if deps.CostTracker != nil {
		options = append(options, graph.WithCostTracker(deps.CostTracker))
	}
	engine := graph.New(Reduce, st, emitter, options...)

	collectNode := NewCollectParallelDataNode(deps.Graph, deps.Search, deps.Market, deps.Breakers, deps.Retriers, deps.BackendConcurrency)
	collectNode.LookbackDays = deps.LookbackDays

	nodes := map[string]graph.Node[State]{
		NodeAnalyzeQuery:     &AnalyzeQueryNode{LM: deps.LM, Cache: deps.Cache, CostTracker: deps.CostTracker, Model: deps.Model},
		NodePlanAnalysis:     &PlanAnalysisNode{LM: deps.LM, Cache: deps.Cache, CostTracker: deps.CostTracker, Model: deps.Model},
		NodeCollectData:      collectNode,
		NodeApplyContext:     &ApplyContextEngineeringNode{Engine: deps.Engine},
		NodeCrossValidate:    &CrossValidateContextsNode{},
		NodeGenerateInsights: &GenerateInsightsNode{LM: deps.LM, CostTracker: deps.CostTracker, Model: deps.Model},
		NodeAnalyzeRelations: &AnalyzeRelationshipsNode{LM: deps.LM, GraphTool: newGraphLookupTool(deps.Graph), CostTracker: deps.CostTracker, Model: deps.Model},
		NodeDeepReasoning:    &DeepReasoningNode{LM: deps.LM, CostTracker: deps.CostTracker, Model: deps.Model},
		NodeSynthesizeReport: &SynthesizeReportNode{LM: deps.LM, CostTracker: deps.CostTracker, Model: deps.Model},
		NodeQualityCheck:     &QualityCheckNode{},
		NodeEnhanceReport:    &EnhanceReportNode{LM: deps.LM, CostTracker: deps.CostTracker, Model: deps.Model},
	}
	for id, node := range nodes {
		if err := engine.Add(id, node); err != nil {
			return nil, err
		}
	}

	if err := engine.StartAt(NodeAnalyzeQuery); err != nil {
		return nil, err
	}

	return engine, nil
}

// DefaultMaxConcurrent is the Deep Workflow's soft admission cap (§5:
// "the Deep Workflow refuses admission above a soft cap and returns an
// overload error rendered as a Fast Path response"). Each concurrent Run
// holds the LM connection and the full context-engineering pipeline for
// up to DefaultWallClockBudget, so the cap is deliberately small.
const DefaultMaxConcurrent = 8

// Path adapts a graph.Engine[State] to the router.DeepPath contract
// (Run(ctx, domain.Query) (domain.Report, error)) without the router
// package ever importing internal/workflow directly.
type Path struct {
	engine *graph.Engine[State]
	runID  func() string
	admit  *semaphore.Weighted
}

// NewPath builds a Path over an engine built by New, admission-capped at
// DefaultMaxConcurrent. Use WithMaxConcurrent to override.
func NewPath(engine *graph.Engine[State]) *Path {
	return &Path{engine: engine, runID: defaultRunID, admit: semaphore.NewWeighted(DefaultMaxConcurrent)}
}

// WithMaxConcurrent overrides the admission cap. n <= 0 disables admission
// control entirely (every Run is accepted).
func (p *Path) WithMaxConcurrent(n int) *Path {
	if n <= 0 {
		p.admit = nil
		return p
	}
	p.admit = semaphore.NewWeighted(int64(n))
	return p
}

func defaultRunID() string {
	return "deep-" + time.Now().UTC().Format("20060102T150405.000000000")
}

// Run executes the Deep Workflow to completion (or to its ctx deadline)
// and returns the synthesized Report. Above the admission cap it fails
// fast with a coreerr.KindOverload error instead of queuing, so the
// caller (internal/router) falls back to the Fast Path immediately
// rather than waiting out a full deep-path deadline for nothing.
func (p *Path) Run(ctx context.Context, q domain.Query) (domain.Report, error) {
	if p.admit != nil {
		if !p.admit.TryAcquire(1) {
			return domain.Report{}, coreerr.New(coreerr.KindOverload, "workflow", "deep workflow admission cap reached", nil)
		}
		defer p.admit.Release(1)
	}

	deadline := DefaultWallClockBudget
	if d, ok := ctx.Deadline(); ok {
		deadline = time.Until(d)
	}

	initial := State{
		Query:     q,
		Deadline:  time.Now().Add(deadline),
		StartedAt: time.Now(),
	}

	final, err := p.engine.Run(ctx, p.runID(), initial)
	if err != nil {
		return domain.Report{}, err
	}
	return final.Report, nil
}
