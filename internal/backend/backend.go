// Package backend defines the uniform async contracts for the five external
// collaborators (Graph, Search, Market, LM, Embedder) per spec.md §4.1. This
// is the only layer in the engine allowed to perform network I/O; every
// other component consumes these interfaces.
package backend

import (
	"context"
	"time"

	"github.com/nuri428/ontology-chat/graph/model"
)

// Graph is the knowledge-graph backend contract.
type Graph interface {
	// Search runs a parameterized Cypher query and returns raw rows. Errors
	// are classified into coreerr.KindUnavailable|KindQuery|KindTimeout.
	Search(ctx context.Context, cypher string, params map[string]interface{}) ([]map[string]interface{}, error)
}

// SymbolMatch is one fuzzy ticker/name match from Market.SearchSymbols.
type SymbolMatch struct {
	Symbol string
	Name   string
}

// Filters narrows a hybrid search call.
type Filters struct {
	LookbackDays int
	Domain       string
}

// Search is the hybrid lexical+vector news index contract.
type Search interface {
	// Hybrid combines lexical multi-match (title^4, content^2) with k-NN
	// over a dense embedding, re-ranked by bm25*alpha + cosine*beta +
	// recency_bonus inside the backend itself (§4.1).
	Hybrid(ctx context.Context, query string, filters Filters, size int) ([]NewsHitRaw, error)
}

// NewsHitRaw mirrors domain.NewsHit at the wire boundary (kept separate so
// adapters can evolve independently of the domain value type).
type NewsHitRaw struct {
	ID          string
	Title       string
	URL         string
	Summary     string
	PublishedAt time.Time
	Score       float64
	Highlights  []string
}

// Market is the market-data feed contract.
type Market interface {
	Quote(ctx context.Context, symbol string) (StockSnapshotRaw, error)
	SearchSymbols(ctx context.Context, q string, limit int) ([]SymbolMatch, error)
}

// StockSnapshotRaw mirrors domain.StockSnapshot at the wire boundary.
type StockSnapshotRaw struct {
	Symbol    string
	Last      float64
	Change    float64
	ChangePct float64
	Volume    int64
	AsOf      time.Time
}

// GenerateOptions configures an LM.Generate call.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// LM is the language-model backend contract. It wraps graph/model.ChatModel
// so the teacher's Anthropic/OpenAI/Google clients can be used directly.
type LM interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// Embedder produces dense vectors for semantic search and context-engine
// similarity scoring.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dim() int
}

// chatModelLM adapts a graph/model.ChatModel into the LM contract. The
// "must not be called with timeout > deadline" rule from §4.1 is enforced
// by the caller deriving opts.Timeout from ctx's own deadline before this
// is invoked — see internal/resilience.
type chatModelLM struct {
	model model.ChatModel
}

// NewChatModelLM wraps a ChatModel (Anthropic/OpenAI/Google from graph/model)
// as a backend.LM.
func NewChatModelLM(m model.ChatModel) LM {
	return &chatModelLM{model: m}
}

func (c *chatModelLM) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	out, err := c.model.Chat(ctx, []model.Message{
		{Role: model.RoleUser, Content: prompt},
	}, nil)
	if err != nil {
		return "", err
	}
	return out.Text, nil
}
