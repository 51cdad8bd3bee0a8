// Package format implements the deterministic Response Formatter named by
// spec.md §4.12 (component C12): a Markdown renderer with no LM calls that
// always produces a valid document, even when every optional section is
// empty.
package format

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nuri428/ontology-chat/internal/domain"
)

// FastResult is what a Fast Handler (C7) hands the formatter: the items
// survived by its lightweight context-engineering pass, plus the graph
// rows and the bound for citations/graph samples §4.7 names (N=5, K=5).
type FastResult struct {
	Intent       domain.Intent
	Items        []domain.ContextItem
	GraphRows    []domain.GraphRow
	MaxCitations int
	MaxGraphRows int
	Partial      bool
}

// FastHandlerReport renders a Fast Path answer: a short narrative built
// from the surviving items' content, followed by Sources and (if present)
// a sample of graph rows.
func FastHandlerReport(title string, res FastResult) domain.Report {
	n := res.MaxCitations
	if n <= 0 {
		n = 5
	}
	k := res.MaxGraphRows
	if k <= 0 {
		k = 5
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)

	if res.Partial {
		b.WriteString("_Note: this answer was composed from partial backend results._\n\n")
	}

	writeFindings(&b, res.Items)
	sources := writeSources(&b, res.Items, n)
	graphSamples := writeGraphSamples(&b, res.GraphRows, k)

	return domain.Report{
		Type:         res.Intent,
		Markdown:     b.String(),
		Sources:      sources,
		GraphSamples: graphSamples,
	}
}

func writeFindings(b *strings.Builder, items []domain.ContextItem) {
	b.WriteString("## Findings\n\n")
	if len(items) == 0 {
		b.WriteString("No data available for this query.\n\n")
		return
	}
	for _, item := range items {
		title, _ := item.Content["title"].(string)
		if title == "" {
			title = "(untitled)"
		}
		body, _ := item.Content["body"].(string)
		if body == "" {
			body, _ = item.Content["summary"].(string)
		}
		fmt.Fprintf(b, "- **%s** — %s\n", title, body)
	}
	b.WriteString("\n")
}

func writeSources(b *strings.Builder, items []domain.ContextItem, n int) []domain.Citation {
	citations := make([]domain.Citation, 0, n)
	b.WriteString("## Sources\n\n")
	count := 0
	for _, item := range items {
		if count >= n {
			break
		}
		url, _ := item.Content["url"].(string)
		if url == "" {
			continue
		}
		title, _ := item.Content["title"].(string)
		var publishedAt time.Time
		if item.Timestamp != nil {
			publishedAt = *item.Timestamp
		}
		c := domain.Citation{URL: url, Title: title, PublishedAt: publishedAt}
		citations = append(citations, c)
		fmt.Fprintf(b, "%d. [%s](%s)\n", count+1, nonEmpty(title, url), url)
		count++
	}
	if count == 0 {
		b.WriteString("No sources available.\n")
	}
	b.WriteString("\n")
	return citations
}

func writeGraphSamples(b *strings.Builder, rows []domain.GraphRow, k int) []domain.GraphRow {
	if len(rows) == 0 {
		return nil
	}
	n := k
	if n > len(rows) {
		n = len(rows)
	}
	sample := rows[:n]

	b.WriteString("## Graph Samples\n\n")
	for _, row := range sample {
		labels := strings.Join(row.Labels, ",")
		keys := make([]string, 0, len(row.NodeProperties))
		for key := range row.NodeProperties {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		fmt.Fprintf(b, "- `%s`", labels)
		for _, key := range keys {
			fmt.Fprintf(b, " %s=%v", key, row.NodeProperties[key])
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return sample
}

func nonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// DeepResult is what the Deep Workflow's synthesize_report node (C11 node
// 9) hands the formatter: an already-composed Markdown body (LM-written
// or the deterministic template fallback) plus the evidence items to
// render as Sources.
type DeepResult struct {
	Intent       domain.Intent
	Markdown     string
	Items        []domain.ContextItem
	MaxCitations int
	Diagnostics  []string
}

// DeepPathReport appends a Sources section to an already-composed Deep
// Path Markdown body. Unlike FastHandlerReport it never writes a Findings
// section — the Deep Workflow's own "Key Findings" heading already covers
// that ground.
func DeepPathReport(res DeepResult) domain.Report {
	n := res.MaxCitations
	if n <= 0 {
		n = 10
	}

	var b strings.Builder
	b.WriteString(res.Markdown)
	if !strings.HasSuffix(res.Markdown, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("\n")
	sources := writeSources(&b, res.Items, n)

	return domain.Report{
		Type:     res.Intent,
		Markdown: b.String(),
		Sources:  sources,
		Meta:     map[string]interface{}{"diagnostics": res.Diagnostics},
	}
}
