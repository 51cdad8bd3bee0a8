package backend

import (
	"context"
	"net/url"
)

// HTTPMarket implements Market over the market-data feed's JSON/HTTP
// endpoint.
type HTTPMarket struct {
	BaseURL string
	client  httpDoer
}

// NewHTTPMarket builds an HTTPMarket client against baseURL.
func NewHTTPMarket(baseURL string) *HTTPMarket {
	return &HTTPMarket{BaseURL: baseURL, client: newRetryableClient()}
}

type quoteResponse struct {
	Snapshot StockSnapshotRaw `json:"snapshot"`
}

// Quote implements Market.
func (m *HTTPMarket) Quote(ctx context.Context, symbol string) (StockSnapshotRaw, error) {
	var resp quoteResponse
	u := m.BaseURL + "/quote/" + url.PathEscape(symbol)
	if err := postJSON(ctx, m.client, "market.quote", u, struct{}{}, &resp); err != nil {
		return StockSnapshotRaw{}, err
	}
	return resp.Snapshot, nil
}

type symbolSearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type symbolSearchResponse struct {
	Matches []SymbolMatch `json:"matches"`
}

// SearchSymbols implements Market.
func (m *HTTPMarket) SearchSymbols(ctx context.Context, q string, limit int) ([]SymbolMatch, error) {
	var resp symbolSearchResponse
	if err := postJSON(ctx, m.client, "market.search_symbols", m.BaseURL+"/symbols/search", symbolSearchRequest{
		Query: q,
		Limit: limit,
	}, &resp); err != nil {
		return nil, err
	}
	return resp.Matches, nil
}
