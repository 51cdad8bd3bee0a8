// Package cypher builds label-aware UNION Cypher queries over the
// knowledge graph (spec.md §4.8, component C8). It never generates
// ANY(k IN keys(n) ...)-shaped predicates, which defeat text indexes;
// every per-label block uses direct attribute access so the graph
// backend's text indexes apply.
package cypher

import (
	"fmt"
	"strings"
	"time"
)

// KeyMap configures, per node label, which attributes are eligible for a
// CONTAINS match and which attribute names supply the `ts` projection
// (earliest-defined of published_at/award_date/lastSeenAt per §4.8).
type KeyMap struct {
	Label      string
	TextKeys   []string
	TimeKeys   []string
}

// DefaultKeyMap returns the configured label set §4.8 names:
// Company, Event, Technology, Theme, News, Program, Agency.
func DefaultKeyMap() []KeyMap {
	return []KeyMap{
		{Label: "Company", TextKeys: []string{"name", "description"}, TimeKeys: []string{"lastSeenAt"}},
		{Label: "Event", TextKeys: []string{"title", "summary"}, TimeKeys: []string{"published_at", "lastSeenAt"}},
		{Label: "Technology", TextKeys: []string{"name", "description"}, TimeKeys: []string{"lastSeenAt"}},
		{Label: "Theme", TextKeys: []string{"name", "description"}, TimeKeys: []string{"lastSeenAt"}},
		{Label: "News", TextKeys: []string{"title", "content"}, TimeKeys: []string{"published_at"}},
		{Label: "Program", TextKeys: []string{"name", "description"}, TimeKeys: []string{"award_date", "lastSeenAt"}},
		{Label: "Agency", TextKeys: []string{"name"}, TimeKeys: []string{"lastSeenAt"}},
	}
}

// Options bounds a built query.
type Options struct {
	Limit      int
	Since      time.Time // zero value disables the time window
	KeyMap     []KeyMap
}

// Build constructs a UNION of per-label MATCH blocks, one per keyword,
// projecting uniformly to {n, labels, ts}. Returns the Cypher text and its
// bound parameters.
func Build(keywords []string, opts Options) (string, map[string]interface{}) {
	keyMap := opts.KeyMap
	if keyMap == nil {
		keyMap = DefaultKeyMap()
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	params := map[string]interface{}{
		"limit": limit,
	}
	for i, kw := range keywords {
		params[fmt.Sprintf("q%d", i)] = strings.ToLower(kw)
	}
	if !opts.Since.IsZero() {
		params["since"] = opts.Since.UTC().Format(time.RFC3339)
	}

	var blocks []string
	for _, km := range keyMap {
		for i := range keywords {
			blocks = append(blocks, labelBlock(km, i, !opts.Since.IsZero()))
		}
	}

	query := strings.Join(blocks, "\nUNION\n") + "\nLIMIT $limit"
	return query, params
}

// labelBlock emits one label's MATCH/WHERE/RETURN block for the i-th
// keyword parameter, using direct attribute access so text indexes apply.
func labelBlock(km KeyMap, i int, windowed bool) string {
	var conds []string
	for _, key := range km.TextKeys {
		conds = append(conds, fmt.Sprintf("toLower(n.%s) CONTAINS $q%d", key, i))
	}
	where := strings.Join(conds, " OR ")

	tsExpr := timestampExpr(km.TimeKeys)

	if windowed && len(km.TimeKeys) > 0 {
		where = fmt.Sprintf("(%s) AND %s >= $since", where, tsExpr)
	}

	return fmt.Sprintf(
		"MATCH (n:%s) WHERE %s RETURN n AS n, labels(n) AS labels, %s AS ts",
		km.Label, where, tsExpr,
	)
}

// timestampExpr builds the coalesce-like "earliest defined" expression
// across the label's configured time keys.
func timestampExpr(timeKeys []string) string {
	if len(timeKeys) == 0 {
		return "null"
	}
	fields := make([]string, len(timeKeys))
	for i, k := range timeKeys {
		fields[i] = "n." + k
	}
	return "coalesce(" + strings.Join(fields, ", ") + ")"
}
