package backend

import (
	"context"
	"math"
)

// MockGraph is a table-driven Graph stub for fast-handler and workflow
// tests, mirroring the shape of graph/model/mock.go's ChatModel stub.
type MockGraph struct {
	Rows []map[string]interface{}
	Err  error
}

func (m *MockGraph) Search(ctx context.Context, cypher string, params map[string]interface{}) ([]map[string]interface{}, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Rows, nil
}

// MockSearch is a table-driven Search stub.
type MockSearch struct {
	Hits []NewsHitRaw
	Err  error
}

func (m *MockSearch) Hybrid(ctx context.Context, query string, filters Filters, size int) ([]NewsHitRaw, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if size > 0 && size < len(m.Hits) {
		return m.Hits[:size], nil
	}
	return m.Hits, nil
}

// MockMarket is a table-driven Market stub.
type MockMarket struct {
	Snapshots map[string]StockSnapshotRaw
	Matches   []SymbolMatch
	Err       error
}

func (m *MockMarket) Quote(ctx context.Context, symbol string) (StockSnapshotRaw, error) {
	if m.Err != nil {
		return StockSnapshotRaw{}, m.Err
	}
	return m.Snapshots[symbol], nil
}

func (m *MockMarket) SearchSymbols(ctx context.Context, q string, limit int) ([]SymbolMatch, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Matches, nil
}

// MockLM is a deterministic LM stub returning a fixed response, used by
// workflow determinism tests (spec.md §8 round-trip property).
type MockLM struct {
	Response string
	Err      error
}

func (m *MockLM) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

// MockEmbedder produces a deterministic low-dimensional embedding derived
// from the input's character bigrams (each hashed to a signed bucket), so
// cosine similarity comparisons in tests are stable without a real
// embedding model: identical texts embed identically, while unrelated
// texts land far apart.
type MockEmbedder struct {
	DimN int
}

func (m *MockEmbedder) Dim() int {
	if m.DimN <= 0 {
		return 8
	}
	return m.DimN
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	dim := m.Dim()
	vec := make([]float32, dim)
	prev := rune(0)
	for _, r := range text {
		h := uint32(prev)*31 + uint32(r)
		h ^= h >> 13
		h *= 0x5bd1e995
		h ^= h >> 15
		if h&1 == 0 {
			vec[(h>>1)%uint32(dim)]++
		} else {
			vec[(h>>1)%uint32(dim)]--
		}
		prev = r
	}
	norm := float32(0)
	for _, v := range vec {
		norm += v * v
	}
	norm = float32(math.Sqrt(float64(norm)))
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
