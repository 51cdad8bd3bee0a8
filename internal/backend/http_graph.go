package backend

import (
	"context"
	"net/http"
)

// HTTPGraph implements Graph over a JSON/HTTP endpoint exposed by the graph
// database's query gateway. The graph database itself is out of scope
// (spec.md §1); this is the thin client at the consumed-interface boundary.
type HTTPGraph struct {
	BaseURL string
	client  httpDoer
}

// NewHTTPGraph builds an HTTPGraph client against baseURL.
func NewHTTPGraph(baseURL string) *HTTPGraph {
	return &HTTPGraph{BaseURL: baseURL, client: newRetryableClient()}
}

type graphSearchRequest struct {
	Cypher string                 `json:"cypher"`
	Params map[string]interface{} `json:"params"`
}

type graphSearchResponse struct {
	Rows []map[string]interface{} `json:"rows"`
}

// Search implements Graph.
func (g *HTTPGraph) Search(ctx context.Context, cypher string, params map[string]interface{}) ([]map[string]interface{}, error) {
	var resp graphSearchResponse
	if err := postJSON(ctx, g.client, "graph.search", g.BaseURL+"/query", graphSearchRequest{
		Cypher: cypher,
		Params: params,
	}, &resp); err != nil {
		return nil, err
	}
	return resp.Rows, nil
}

var _ httpDoer = (*http.Client)(nil)
