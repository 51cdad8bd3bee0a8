package fasthandler

import (
	"context"

	"github.com/nuri428/ontology-chat/internal/backend"
	"github.com/nuri428/ontology-chat/internal/contextengine"
	"github.com/nuri428/ontology-chat/internal/domain"
	"github.com/nuri428/ontology-chat/internal/fetch"
	"github.com/nuri428/ontology-chat/internal/format"
)

// handleNews fetches graph+search (no market, §4.7).
func (h *Handler) handleNews(ctx context.Context, q domain.Query, keywords []string) (domain.Report, bool, error) {
	cypherQuery, cypherParams := buildGraphQuery(keywords)
	req := fetch.Request{
		GraphCypher:  cypherQuery,
		GraphParams:  cypherParams,
		SearchQuery:  primaryKeyword(keywords, q.Text),
		SearchFilter: backend.Filters{LookbackDays: 30},
		SearchSize:   DefaultSearchSize,
	}
	result := h.fetcher.Fetch(ctx, req)
	items := append(graphRowsToContextItems(rowsToGraphRows(result.GraphRows)), newsHitsToContextItems(result.SearchHits)...)
	return h.render(ctx, "News", q, items, result)
}

// handleStock fetches market+search (no graph, §4.7).
func (h *Handler) handleStock(ctx context.Context, q domain.Query, keywords []string) (domain.Report, bool, error) {
	symbol := resolveSymbol(q)

	req := fetch.Request{
		SkipGraph:    true,
		SearchQuery:  primaryKeyword(keywords, q.Text),
		SearchFilter: backend.Filters{LookbackDays: 30},
		SearchSize:   DefaultSearchSize,
		MarketSymbol: symbol,
	}
	result := h.fetcher.Fetch(ctx, req)

	items := newsHitsToContextItems(result.SearchHits)
	if result.MarketRan && result.MarketErr == nil {
		items = append(items, marketSnapshotToContextItem(result.MarketSnap))
	}
	return h.render(ctx, "Stock", q, items, result)
}

// handleGeneral fetches all three backends (§4.7).
func (h *Handler) handleGeneral(ctx context.Context, q domain.Query, keywords []string) (domain.Report, bool, error) {
	cypherQuery, cypherParams := buildGraphQuery(keywords)
	symbol := resolveSymbol(q)

	req := fetch.Request{
		GraphCypher:  cypherQuery,
		GraphParams:  cypherParams,
		SearchQuery:  primaryKeyword(keywords, q.Text),
		SearchFilter: backend.Filters{LookbackDays: 90},
		SearchSize:   DefaultSearchSize,
		MarketSymbol: symbol,
	}
	result := h.fetcher.Fetch(ctx, req)

	items := append(graphRowsToContextItems(rowsToGraphRows(result.GraphRows)), newsHitsToContextItems(result.SearchHits)...)
	if result.MarketRan && result.MarketErr == nil {
		items = append(items, marketSnapshotToContextItem(result.MarketSnap))
	}
	return h.render(ctx, "Overview", q, items, result)
}

// resolveSymbol returns the first extracted ticker, or an empty string
// (which disables the market branch) when none was found — the stock
// handler then degrades gracefully to search-only rather than erroring.
// Company names are not resolved to tickers here.
func resolveSymbol(q domain.Query) string {
	if len(q.Entities.Tickers) > 0 {
		return q.Entities.Tickers[0]
	}
	return ""
}

// render runs the lightweight Context Engineering pass (filter+rerank
// only) and composes the final answer through the formatter, marking
// partial=true if any invoked backend branch failed.
func (h *Handler) render(ctx context.Context, title string, q domain.Query, items []domain.ContextItem, result fetch.Result) (domain.Report, bool, error) {
	partial := result.GraphErr != nil || result.SearchErr != nil || (result.MarketRan && result.MarketErr != nil)

	ranked, err := h.deps.Engine.RunLite(ctx, contextengine.Input{Query: q.Text, Items: items})
	if err != nil {
		// Context engineering failure degrades to the raw fetched items
		// rather than failing the whole Fast Path (§4.7: "never return a
		// raw error to the caller" applies equally here).
		ranked = identityRanked(items)
		partial = true
	}

	finalItems := make([]domain.ContextItem, 0, len(ranked))
	for _, r := range ranked {
		finalItems = append(finalItems, r.Item)
	}

	report := format.FastHandlerReport(title, format.FastResult{
		Intent:       q.Intent,
		Items:        finalItems,
		GraphRows:    rowsToGraphRows(result.GraphRows),
		MaxCitations: h.deps.MaxCitations,
		MaxGraphRows: h.deps.MaxGraphSamples,
		Partial:      partial,
	})
	return report, partial, nil
}

func identityRanked(items []domain.ContextItem) []contextengine.RankedItem {
	out := make([]contextengine.RankedItem, len(items))
	for i, it := range items {
		out[i] = contextengine.RankedItem{Item: it}
	}
	return out
}
