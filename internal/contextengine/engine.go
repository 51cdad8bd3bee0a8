package contextengine

import (
	"context"
	"time"

	"github.com/nuri428/ontology-chat/internal/backend"
	"github.com/nuri428/ontology-chat/internal/domain"
)

// Input is what the pipeline needs: the original query text (for semantic
// scoring), the analysis plan (for plan-alignment bonuses; zero value
// disables that term), and the union of retrieved ContextItems.
type Input struct {
	Query string
	Plan  domain.AnalysisPlan
	Items []domain.ContextItem
}

// Result is the pipeline's output: the final ranked/pruned items plus the
// diversity_score §4.10 asks to be reported alongside them.
type Result struct {
	Items          []domain.ContextItem
	DiversityScore float64
}

// Engine runs the six context-engineering phases in order.
type Engine struct {
	cfg      Config
	embedder backend.Embedder
}

// NewEngine builds an Engine. embedder may be nil (Phase 2 degrades to a
// neutral semantic score — see semanticFilter).
func NewEngine(cfg Config, embedder backend.Embedder) *Engine {
	return &Engine{cfg: cfg, embedder: embedder}
}

// Run executes Phase 1 through Phase 6 over in.Items.
func (e *Engine) Run(ctx context.Context, in Input) (Result, error) {
	return e.RunAt(ctx, in, nowFunc())
}

// RunAt is Run with an explicit "now" for recency scoring, used by tests
// that need deterministic decay calculations.
func (e *Engine) RunAt(ctx context.Context, in Input, now nowStamp) (Result, error) {
	items := relevanceCascade(in.Items, e.cfg, now.t)

	items, err := semanticFilter(ctx, items, in.Query, e.embedder, e.cfg)
	if err != nil {
		return Result{}, err
	}

	items = deduplicate(items, e.cfg)

	rerank(items, in.Plan, e.cfg)
	sortByRerankDesc(items)

	items = sequence(items)
	items = prune(items, e.cfg)

	out := make([]domain.ContextItem, len(items))
	for i, s := range items {
		out[i] = s.item
	}

	return Result{Items: out, DiversityScore: diversityScore(items)}, nil
}

// RankedItem is a ContextItem annotated with its Phase 4 rerank score, for
// callers (the Fast Handlers, §4.7) that only need filter+rerank and skip
// Phase 5/6 (sequencing and final pruning are Deep Path concerns).
type RankedItem struct {
	Item   domain.ContextItem
	Rerank float64
}

// RunLite runs Phase 1 (relevance cascade), Phase 2 (semantic filter),
// Phase 3 (deduplication), and Phase 4 (rerank) only, returning items
// ordered by descending rerank score. §4.7 names this "a lightweight form
// of Context Engineering limited to filter+rerank (no sequencing)" — the
// caller is responsible for truncating to its own citation/sample bounds.
func (e *Engine) RunLite(ctx context.Context, in Input) ([]RankedItem, error) {
	items := relevanceCascade(in.Items, e.cfg, time.Now())

	items, err := semanticFilter(ctx, items, in.Query, e.embedder, e.cfg)
	if err != nil {
		return nil, err
	}

	items = deduplicate(items, e.cfg)
	rerank(items, in.Plan, e.cfg)
	sortByRerankDesc(items)

	out := make([]RankedItem, len(items))
	for i, s := range items {
		out[i] = RankedItem{Item: s.item, Rerank: s.rerank}
	}
	return out, nil
}
