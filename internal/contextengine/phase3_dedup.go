package contextengine

// deduplicate is Phase 3: exact dedup by normalized-title hash, then
// semantic dedup over a sliding window of the last DedupWindow retained
// items (cosine when embeddings are available, else Jaccard over item
// text), retaining the item with the higher quality score on a collision.
func deduplicate(items []scored, cfg Config) []scored {
	seenTitles := make(map[string]int) // title hash -> index into retained
	retained := make([]scored, 0, len(items))

	for _, cand := range items {
		hash := titleHash(itemTitle(cand.item))
		if idx, ok := seenTitles[hash]; ok {
			retained[idx] = higherQuality(retained[idx], cand)
			continue
		}

		dupIdx := findSemanticDuplicate(retained, cand, cfg)
		if dupIdx >= 0 {
			retained[dupIdx] = higherQuality(retained[dupIdx], cand)
			continue
		}

		seenTitles[hash] = len(retained)
		retained = append(retained, cand)
	}
	return retained
}

// findSemanticDuplicate checks cand against the last DedupWindow retained
// items, returning the matching index or -1.
func findSemanticDuplicate(retained []scored, cand scored, cfg Config) int {
	window := cfg.DedupWindow
	if window <= 0 {
		window = 5
	}
	start := len(retained) - window
	if start < 0 {
		start = 0
	}

	for i := len(retained) - 1; i >= start; i-- {
		similarity := itemSimilarity(retained[i], cand)
		if similarity >= cfg.DedupSimilarityThreshold {
			return i
		}
	}
	return -1
}

func itemSimilarity(a, b scored) float64 {
	if len(a.embedding) > 0 && len(b.embedding) > 0 {
		return cosineSimilarity(a.embedding, b.embedding)
	}
	return jaccardSimilarity(itemText(a.item), itemText(b.item))
}

func higherQuality(a, b scored) scored {
	if b.quality > a.quality {
		return b
	}
	return a
}
