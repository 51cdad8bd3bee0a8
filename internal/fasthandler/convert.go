package fasthandler

import (
	"strconv"
	"time"

	"github.com/nuri428/ontology-chat/internal/backend"
	"github.com/nuri428/ontology-chat/internal/domain"
)

// rowsToGraphRows flattens the Graph backend's {n, labels, ts} projection
// (built by internal/cypher) into domain.GraphRow, never exposing the raw
// driver row shape upstream.
func rowsToGraphRows(rows []map[string]interface{}) []domain.GraphRow {
	out := make([]domain.GraphRow, 0, len(rows))
	for _, row := range rows {
		props, _ := row["n"].(map[string]interface{})
		out = append(out, domain.GraphRow{
			NodeProperties: props,
			Labels:         toStringSlice(row["labels"]),
			Timestamp:      toTime(row["ts"]),
		})
	}
	return out
}

// graphRowsToContextItems wraps each graph row as a ContextItem for
// context engineering, carrying its properties through as Content.
func graphRowsToContextItems(rows []domain.GraphRow) []domain.ContextItem {
	out := make([]domain.ContextItem, 0, len(rows))
	for _, row := range rows {
		item := domain.ContextItem{
			Source:     domain.SourceGraph,
			Type:       contextTypeForLabels(row.Labels),
			Content:    row.NodeProperties,
			Confidence: 0.8,
			Relevance:  0.5,
		}
		if !row.Timestamp.IsZero() {
			ts := row.Timestamp
			item.Timestamp = &ts
		}
		out = append(out, item)
	}
	return out
}

func contextTypeForLabels(labels []string) domain.ContextType {
	for _, l := range labels {
		switch l {
		case "Company":
			return domain.TypeCompany
		case "Event":
			return domain.TypeEvent
		case "News":
			return domain.TypeNews
		}
	}
	return domain.TypeAnalysis
}

// newsHitsToContextItems converts Search backend hits into ContextItems.
func newsHitsToContextItems(hits []backend.NewsHitRaw) []domain.ContextItem {
	out := make([]domain.ContextItem, 0, len(hits))
	for _, h := range hits {
		publishedAt := h.PublishedAt
		out = append(out, domain.ContextItem{
			Source:    domain.SourceSearch,
			Type:      domain.TypeNews,
			Confidence: confidenceFromScore(h.Score),
			Relevance: h.Score,
			Timestamp: &publishedAt,
			Content: map[string]interface{}{
				"title":   h.Title,
				"url":     h.URL,
				"summary": h.Summary,
				"body":    h.Summary,
			},
		})
	}
	return out
}

// marketSnapshotToContextItem converts a single market quote into a
// ContextItem, used by the stock and general handlers.
func marketSnapshotToContextItem(snap backend.StockSnapshotRaw) domain.ContextItem {
	asOf := snap.AsOf
	return domain.ContextItem{
		Source:     domain.SourceMarket,
		Type:       domain.TypeStock,
		Confidence: 0.9,
		Relevance:  0.7,
		Timestamp:  &asOf,
		Content: map[string]interface{}{
			"title": snap.Symbol + " quote",
			"body":  formatQuote(snap),
		},
	}
}

func formatQuote(snap backend.StockSnapshotRaw) string {
	sign := ""
	if snap.Change > 0 {
		sign = "+"
	}
	return sign + formatFloat(snap.Change) + " (" + sign + formatFloat(snap.ChangePct) + "%)"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func confidenceFromScore(score float64) float64 {
	if score <= 0 {
		return 0.5
	}
	if score > 1 {
		return 1
	}
	return score
}

func toStringSlice(v interface{}) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []interface{}:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func toTime(v interface{}) time.Time {
	switch vv := v.(type) {
	case time.Time:
		return vv
	case string:
		if t, err := time.Parse(time.RFC3339, vv); err == nil {
			return t
		}
	case int64:
		return time.Unix(vv, 0).UTC()
	case float64:
		return time.Unix(int64(vv), 0).UTC()
	}
	return time.Time{}
}
