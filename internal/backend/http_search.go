package backend

import "context"

// HTTPSearch implements Search over the hybrid lexical+vector news index's
// JSON/HTTP query endpoint (§6 search query contract).
type HTTPSearch struct {
	BaseURL string
	client  httpDoer
}

// NewHTTPSearch builds an HTTPSearch client against baseURL.
func NewHTTPSearch(baseURL string) *HTTPSearch {
	return &HTTPSearch{BaseURL: baseURL, client: newRetryableClient()}
}

type hybridSearchRequest struct {
	Query        string `json:"query"`
	LookbackDays int    `json:"lookback_days,omitempty"`
	Domain       string `json:"domain,omitempty"`
	Size         int    `json:"size"`
}

type hybridSearchResponse struct {
	Hits []NewsHitRaw `json:"hits"`
}

// Hybrid implements Search.
func (s *HTTPSearch) Hybrid(ctx context.Context, query string, filters Filters, size int) ([]NewsHitRaw, error) {
	var resp hybridSearchResponse
	if err := postJSON(ctx, s.client, "search.hybrid", s.BaseURL+"/search", hybridSearchRequest{
		Query:        query,
		LookbackDays: filters.LookbackDays,
		Domain:       filters.Domain,
		Size:         size,
	}, &resp); err != nil {
		return nil, err
	}
	return resp.Hits, nil
}
