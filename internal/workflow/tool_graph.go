package workflow

import (
	"context"
	"fmt"

	"github.com/nuri428/ontology-chat/graph/tool"
	"github.com/nuri428/ontology-chat/internal/backend"
	"github.com/nuri428/ontology-chat/internal/cypher"
)

// graphLookupTool adapts a knowledge-graph backend to graph/tool.Tool, so
// AnalyzeRelationshipsNode can ground an LM-proposed entity against real
// graph data instead of trusting the LM's relationship claims outright.
type graphLookupTool struct {
	graph backend.Graph
}

// newGraphLookupTool builds the "graph_lookup" tool over g. Returns nil
// when g is nil, matching the rest of this package's "no backend, no
// capability" degrade shape rather than panicking on first Call.
func newGraphLookupTool(g backend.Graph) tool.Tool {
	if g == nil {
		return nil
	}
	return &graphLookupTool{graph: g}
}

func (t *graphLookupTool) Name() string { return "graph_lookup" }

// Call looks up input["entity"] in the knowledge graph and reports whether
// it was found, per the Tool contract's "structured output as
// map[string]interface{}".
func (t *graphLookupTool) Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	entity, _ := input["entity"].(string)
	if entity == "" {
		return nil, fmt.Errorf("graph_lookup: entity parameter required")
	}
	query, params := cypher.Build([]string{entity}, cypher.Options{Limit: 1})
	rows, err := t.graph.Search(ctx, query, params)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"entity": entity, "found": len(rows) > 0, "rows": rows}, nil
}
