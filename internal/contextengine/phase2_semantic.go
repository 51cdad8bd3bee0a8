package contextengine

import (
	"context"
	"sort"

	"github.com/nuri428/ontology-chat/internal/backend"
)

// semanticFilter is Phase 2: embed the query and each surviving item,
// score by cosine similarity, then greedily select up to SemanticTopM
// items in "diversity mode" — each newly admitted item must be at least
// DiversityThreshold dissimilar (1-cosine) from every item already
// admitted, so near-duplicate high-scoring items don't crowd out the
// retained set.
func semanticFilter(ctx context.Context, items []scored, query string, embedder backend.Embedder, cfg Config) ([]scored, error) {
	if embedder == nil {
		// No embedder configured: fall back to the relevance-cascade order
		// with neutral semantic scores, still bounded by SemanticTopM.
		for i := range items {
			items[i].semantic = 0.5
		}
		return capItems(items, cfg.SemanticTopM), nil
	}

	queryVec, err := embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(items))
	for i, it := range items {
		texts[i] = itemText(it.item)
	}
	vecs, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].embedding = vecs[i]
		items[i].semantic = cosineSimilarity(queryVec, vecs[i])
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].semantic > items[j].semantic })

	return selectDiverse(items, cfg.SemanticTopM, cfg.DiversityThreshold), nil
}

func capItems(items []scored, m int) []scored {
	if m <= 0 || m >= len(items) {
		return items
	}
	return items[:m]
}

// selectDiverse greedily admits items in descending semantic order,
// skipping any candidate whose similarity to an already-admitted item
// exceeds (1 - tau) — i.e. whose pairwise dissimilarity falls below tau.
func selectDiverse(ranked []scored, m int, tau float64) []scored {
	if m <= 0 {
		m = len(ranked)
	}
	selected := make([]scored, 0, m)
	for _, cand := range ranked {
		if len(selected) >= m {
			break
		}
		if isDiverseEnough(cand, selected, tau) {
			selected = append(selected, cand)
		}
	}
	return selected
}

func isDiverseEnough(cand scored, selected []scored, tau float64) bool {
	for _, s := range selected {
		if len(cand.embedding) == 0 || len(s.embedding) == 0 {
			continue
		}
		dissimilarity := 1 - cosineSimilarity(cand.embedding, s.embedding)
		if dissimilarity < tau {
			return false
		}
	}
	return true
}
