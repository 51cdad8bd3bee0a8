package contextengine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/nuri428/ontology-chat/internal/domain"
)

// itemText flattens a ContextItem's Content into a single string for
// embedding and keyword matching, in deterministic key order.
func itemText(item domain.ContextItem) string {
	if len(item.Content) == 0 {
		return ""
	}
	keys := make([]string, 0, len(item.Content))
	for k := range item.Content {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%v", item.Content[k])
	}
	return b.String()
}

// itemTitle returns Content["title"] if present, else the flattened text.
func itemTitle(item domain.ContextItem) string {
	if title, ok := item.Content["title"].(string); ok && title != "" {
		return title
	}
	return itemText(item)
}

// normalizeTitle lowercases, trims, and collapses internal whitespace, so
// near-identical titles hash identically for exact dedup (§4.10 phase 3).
func normalizeTitle(title string) string {
	fields := strings.Fields(strings.ToLower(title))
	return strings.Join(fields, " ")
}

func titleHash(title string) string {
	sum := sha256.Sum256([]byte(normalizeTitle(title)))
	return hex.EncodeToString(sum[:])
}

// jaccardSimilarity computes token-set Jaccard similarity, used as the
// semantic-dedup fallback when no embedder is configured.
func jaccardSimilarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	intersection := 0
	for t := range setA {
		if setB[t] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	tokens := strings.Fields(strings.ToLower(s))
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

// cosineSimilarity computes cosine similarity between two equal-length
// embeddings. Returns 0 if either vector has zero magnitude.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
