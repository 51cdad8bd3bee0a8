// Package fasthandler implements the News/Stock/General Fast Handlers
// named by spec.md §4.7 (component C7): refine keywords, build graph+search
// queries, fan out via the Parallel Fetcher (C9), run a lightweight pass of
// Context Engineering (C10, filter+rerank only), and compose an answer
// through the Response Formatter (C12).
package fasthandler

import (
	"context"
	"strings"
	"time"

	"github.com/nuri428/ontology-chat/internal/backend"
	"github.com/nuri428/ontology-chat/internal/contextengine"
	"github.com/nuri428/ontology-chat/internal/cypher"
	"github.com/nuri428/ontology-chat/internal/domain"
	"github.com/nuri428/ontology-chat/internal/fetch"
	"github.com/nuri428/ontology-chat/internal/resilience"
)

// defaults named literally in §4.7.
const (
	DefaultKeywordRefineTimeout = 1 * time.Second
	DefaultSoftBudget           = 1500 * time.Millisecond
	DefaultMaxCitations         = 5
	DefaultMaxGraphSamples      = 5
	DefaultGraphLimit           = 50
	DefaultSearchSize           = 20
)

// Deps are the backend collaborators and tunables a Handler needs. LM is
// optional: when nil, keyword refinement is rule-based only (§4.7 step 1's
// "optional LM call").
type Deps struct {
	Graph              backend.Graph
	Search             backend.Search
	Market             backend.Market
	LM                 backend.LM
	Breakers           *resilience.Registry
	Retriers           map[string]*resilience.Retrier
	BackendConcurrency map[string]int
	Engine             *contextengine.Engine

	KeywordRefineTimeout time.Duration
	SoftBudget           time.Duration
	MaxCitations         int
	MaxGraphSamples      int
}

func (d *Deps) withDefaults() Deps {
	out := *d
	if out.KeywordRefineTimeout <= 0 {
		out.KeywordRefineTimeout = DefaultKeywordRefineTimeout
	}
	if out.SoftBudget <= 0 {
		out.SoftBudget = DefaultSoftBudget
	}
	if out.MaxCitations <= 0 {
		out.MaxCitations = DefaultMaxCitations
	}
	if out.MaxGraphSamples <= 0 {
		out.MaxGraphSamples = DefaultMaxGraphSamples
	}
	return out
}

// Handler dispatches a Query to the News/Stock/General path by intent.
type Handler struct {
	deps    Deps
	fetcher *fetch.Fetcher
}

// New builds a Handler over the given backend collaborators.
func New(deps Deps) *Handler {
	d := deps.withDefaults()
	return &Handler{
		deps: d,
		fetcher: fetch.NewFetcher(d.Graph, d.Search, d.Market, d.Breakers).
			WithRetriers(d.Retriers).
			WithConcurrencyCaps(d.BackendConcurrency),
	}
}

// Handle dispatches by intent and returns a Report plus whether the result
// is partial (a backend branch failed or was skipped under saturation).
func (h *Handler) Handle(ctx context.Context, q domain.Query) (domain.Report, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, h.deps.SoftBudget)
	defer cancel()

	keywords := h.refineKeywords(ctx, q)

	switch q.Intent {
	case domain.IntentNews:
		return h.handleNews(ctx, q, keywords)
	case domain.IntentStock:
		return h.handleStock(ctx, q, keywords)
	default:
		return h.handleGeneral(ctx, q, keywords)
	}
}

// refineKeywords is rule-based first (entities + already-classified
// keywords); only calls the LM, under a hard budget, if that yields
// nothing (§4.7 step 1).
func (h *Handler) refineKeywords(ctx context.Context, q domain.Query) []string {
	keywords := dedupeNonEmpty(append(append([]string{}, q.Keywords...),
		append(append(q.Entities.Companies, q.Entities.Sectors...), q.Entities.Products...)...))
	if len(keywords) > 0 {
		return keywords
	}
	if h.deps.LM == nil {
		return fallbackKeywords(q.Text)
	}

	lmCtx, cancel := context.WithTimeout(ctx, h.deps.KeywordRefineTimeout)
	defer cancel()

	prompt := "Extract up to 5 short search keywords from this query, comma separated, no explanation: " + q.Text
	out, err := h.deps.LM.Generate(lmCtx, prompt, backend.GenerateOptions{Timeout: h.deps.KeywordRefineTimeout, MaxTokens: 64})
	if err != nil || strings.TrimSpace(out) == "" {
		return fallbackKeywords(q.Text)
	}
	return dedupeNonEmpty(splitKeywords(out))
}

func fallbackKeywords(text string) []string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	if len(fields) > 5 {
		fields = fields[:5]
	}
	return fields
}

func splitKeywords(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func dedupeNonEmpty(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

// primaryKeyword picks the single term used for the hybrid search query:
// §4.7 is explicit that AND-joining every keyword collapses recall.
func primaryKeyword(keywords []string, fallback string) string {
	if len(keywords) > 0 {
		return keywords[0]
	}
	return fallback
}

func buildGraphQuery(keywords []string) (string, map[string]interface{}) {
	return cypher.Build(keywords, cypher.Options{Limit: DefaultGraphLimit})
}
