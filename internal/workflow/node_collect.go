package workflow

import (
	"context"
	"strconv"
	"time"

	"github.com/nuri428/ontology-chat/graph"
	"github.com/nuri428/ontology-chat/internal/backend"
	"github.com/nuri428/ontology-chat/internal/contextengine"
	"github.com/nuri428/ontology-chat/internal/cypher"
	"github.com/nuri428/ontology-chat/internal/domain"
	"github.com/nuri428/ontology-chat/internal/fetch"
	"github.com/nuri428/ontology-chat/internal/resilience"
)

const (
	collectGraphLimit  = 100
	collectSearchSize  = 30
	collectCallTimeout = 8 * time.Second
)

// CollectParallelDataNode is node 3: invokes the Parallel Fetcher (C9)
// across graph, search, and (when a ticker is known) market, each under
// its own call timeout, and converts the raw backend shapes into
// ContextItems.
type CollectParallelDataNode struct {
	Fetcher      *fetch.Fetcher
	LookbackDays int
}

func NewCollectParallelDataNode(graphBackend backend.Graph, search backend.Search, market backend.Market, breakers *resilience.Registry, retriers map[string]*resilience.Retrier, concurrency map[string]int) *CollectParallelDataNode {
	return &CollectParallelDataNode{Fetcher: fetch.NewFetcher(graphBackend, search, market, breakers).
		WithRetriers(retriers).
		WithConcurrencyCaps(concurrency)}
}

func (n *CollectParallelDataNode) Run(ctx context.Context, s State) graph.NodeResult[State] {
	keywords := dedupeStrings(append(append([]string{}, s.Query.Keywords...), s.Plan.PrimaryFocus...))
	cypherQuery, params := cypher.Build(keywords, cypher.Options{Limit: collectGraphLimit})

	lookback := n.LookbackDays
	if lookback <= 0 {
		lookback = 30
	}

	req := fetch.Request{
		GraphCypher:  cypherQuery,
		GraphParams:  params,
		SearchQuery:  primaryTerm(keywords, s.Query.Text),
		SearchFilter: backend.Filters{LookbackDays: lookback},
		SearchSize:   collectSearchSize,
		MarketSymbol: firstTicker(s.Query.Entities.Tickers),
		CallTimeout:  collectCallTimeout,
	}

	result := n.Fetcher.Fetch(ctx, req)

	var diagnostics []string
	if result.GraphErr != nil {
		diagnostics = append(diagnostics, "collect_parallel_data: graph branch failed ("+result.GraphErr.Error()+")")
	}
	if result.SearchErr != nil {
		diagnostics = append(diagnostics, "collect_parallel_data: search branch failed ("+result.SearchErr.Error()+")")
	}
	if result.MarketRan && result.MarketErr != nil {
		diagnostics = append(diagnostics, "collect_parallel_data: market branch failed ("+result.MarketErr.Error()+")")
	}

	items := make([]domain.ContextItem, 0, len(result.GraphRows)+len(result.SearchHits)+1)
	items = append(items, graphRowsToContextItems(rowsToGraphRows(result.GraphRows))...)
	items = append(items, newsHitsToContextItems(result.SearchHits)...)
	if result.MarketRan && result.MarketErr == nil {
		items = append(items, marketSnapshotToContextItem(result.MarketSnap))
	}

	return graph.NodeResult[State]{
		Delta: State{Contexts: items, Diagnostics: diagnostics},
		Route: graph.Goto(NodeApplyContext),
	}
}

// ApplyContextEngineeringNode is node 4: runs the full six-phase Context
// Engineering pipeline (C10) over the collected contexts.
type ApplyContextEngineeringNode struct {
	Engine *contextengine.Engine
}

func (n *ApplyContextEngineeringNode) Run(ctx context.Context, s State) graph.NodeResult[State] {
	if n.Engine == nil {
		return graph.NodeResult[State]{Route: graph.Goto(NodeCrossValidate)}
	}

	result, err := n.Engine.Run(ctx, contextengine.Input{
		Query: s.Query.Text,
		Plan:  s.Plan,
		Items: s.Contexts,
	})
	if err != nil {
		return graph.NodeResult[State]{
			Delta: State{Diagnostics: []string{"apply_context_engineering: " + err.Error() + ", carrying contexts through unpruned"}},
			Route: graph.Goto(NodeCrossValidate),
		}
	}

	return graph.NodeResult[State]{
		Delta: State{Contexts: result.Items, DiversityScore: result.DiversityScore},
		Route: graph.Goto(NodeCrossValidate),
	}
}

// rowsToGraphRows flattens the Graph backend's {n, labels, ts} projection
// into domain.GraphRow, grounded on fasthandler's identical helper.
func rowsToGraphRows(rows []map[string]interface{}) []domain.GraphRow {
	out := make([]domain.GraphRow, 0, len(rows))
	for _, row := range rows {
		props, _ := row["n"].(map[string]interface{})
		out = append(out, domain.GraphRow{
			NodeProperties: props,
			Labels:         toStringSlice(row["labels"]),
			Timestamp:      toTime(row["ts"]),
		})
	}
	return out
}

func graphRowsToContextItems(rows []domain.GraphRow) []domain.ContextItem {
	out := make([]domain.ContextItem, 0, len(rows))
	for _, row := range rows {
		item := domain.ContextItem{
			Source:     domain.SourceGraph,
			Type:       contextTypeForLabels(row.Labels),
			Content:    row.NodeProperties,
			Confidence: 0.8,
			Relevance:  0.5,
		}
		if !row.Timestamp.IsZero() {
			ts := row.Timestamp
			item.Timestamp = &ts
		}
		out = append(out, item)
	}
	return out
}

func contextTypeForLabels(labels []string) domain.ContextType {
	for _, l := range labels {
		switch l {
		case "Company":
			return domain.TypeCompany
		case "Event":
			return domain.TypeEvent
		case "News":
			return domain.TypeNews
		}
	}
	return domain.TypeAnalysis
}

func newsHitsToContextItems(hits []backend.NewsHitRaw) []domain.ContextItem {
	out := make([]domain.ContextItem, 0, len(hits))
	for _, h := range hits {
		publishedAt := h.PublishedAt
		out = append(out, domain.ContextItem{
			Source:     domain.SourceSearch,
			Type:       domain.TypeNews,
			Confidence: confidenceFromScore(h.Score),
			Relevance:  h.Score,
			Timestamp:  &publishedAt,
			Content: map[string]interface{}{
				"title":   h.Title,
				"url":     h.URL,
				"summary": h.Summary,
				"body":    h.Summary,
			},
		})
	}
	return out
}

func marketSnapshotToContextItem(snap backend.StockSnapshotRaw) domain.ContextItem {
	asOf := snap.AsOf
	return domain.ContextItem{
		Source:     domain.SourceMarket,
		Type:       domain.TypeStock,
		Confidence: 0.9,
		Relevance:  0.7,
		Timestamp:  &asOf,
		Content: map[string]interface{}{
			"title":      snap.Symbol + " quote",
			"body":       formatQuote(snap),
			"last":       snap.Last,
			"change":     snap.Change,
			"change_pct": snap.ChangePct,
		},
	}
}

func formatQuote(snap backend.StockSnapshotRaw) string {
	sign := ""
	if snap.Change > 0 {
		sign = "+"
	}
	return sign + strconv.FormatFloat(snap.Change, 'f', 2, 64) + " (" + sign + strconv.FormatFloat(snap.ChangePct, 'f', 2, 64) + "%)"
}

func confidenceFromScore(score float64) float64 {
	if score <= 0 {
		return 0.5
	}
	if score > 1 {
		return 1
	}
	return score
}

func toStringSlice(v interface{}) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []interface{}:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func toTime(v interface{}) time.Time {
	switch vv := v.(type) {
	case time.Time:
		return vv
	case string:
		if t, err := time.Parse(time.RFC3339, vv); err == nil {
			return t
		}
	case int64:
		return time.Unix(vv, 0).UTC()
	case float64:
		return time.Unix(int64(vv), 0).UTC()
	}
	return time.Time{}
}

func primaryTerm(keywords []string, fallback string) string {
	if len(keywords) > 0 {
		return keywords[0]
	}
	return fallback
}

func firstTicker(tickers []string) string {
	if len(tickers) > 0 {
		return tickers[0]
	}
	return ""
}

func dedupeStrings(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}
