package contextengine

import (
	"sort"
	"time"
)

// nowStamp wraps a fixed instant so RunAt can be driven deterministically
// from tests without calling time.Now() inside the pipeline itself.
type nowStamp struct{ t time.Time }

func nowFunc() nowStamp { return nowStamp{t: time.Now()} }

// At builds a nowStamp for a specific instant, for deterministic tests.
func At(t time.Time) nowStamp { return nowStamp{t: t} }

// sortByRerankDesc orders items by their Phase 4 rerank score, descending.
// Phase 5 (sequencing) restructures this into reading order per type
// bucket, but the rerank order is preserved as each item's relative merit
// within ties and is exposed via scored.rerank for downstream formatting.
func sortByRerankDesc(items []scored) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].rerank > items[j].rerank })
}
