package backend

import "context"

// HTTPEmbedder implements Embedder over a JSON/HTTP embedding endpoint
// (§4.1, the dense side of Search.Hybrid and of context-engine similarity
// scoring in internal/contextengine).
type HTTPEmbedder struct {
	BaseURL   string
	dimension int
	client    httpDoer
}

// NewHTTPEmbedder builds an HTTPEmbedder client against baseURL. dim is the
// model's output dimensionality, reported by Dim() without a round trip.
func NewHTTPEmbedder(baseURL string, dim int) *HTTPEmbedder {
	return &HTTPEmbedder{BaseURL: baseURL, dimension: dim, client: newRetryableClient()}
}

func (e *HTTPEmbedder) Dim() int {
	return e.dimension
}

type embedRequest struct {
	Texts []string `json:"texts"`
}

type embedResponse struct {
	Vectors [][]float32 `json:"vectors"`
}

// Embed implements Embedder.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, nil
	}
	return vecs[0], nil
}

// EmbedBatch implements Embedder.
func (e *HTTPEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var resp embedResponse
	if err := postJSON(ctx, e.client, "embed.batch", e.BaseURL+"/embed", embedRequest{Texts: texts}, &resp); err != nil {
		return nil, err
	}
	return resp.Vectors, nil
}
