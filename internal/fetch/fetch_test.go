package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nuri428/ontology-chat/internal/backend"
	"github.com/nuri428/ontology-chat/internal/coreerr"
	"github.com/nuri428/ontology-chat/internal/resilience"
)

// flakyGraph fails with a retryable Timeout the first failsFor calls, then
// succeeds, so retry wiring can be observed by call count.
type flakyGraph struct {
	failsFor int
	calls    int
	rows     []map[string]interface{}
}

func (g *flakyGraph) Search(ctx context.Context, cypher string, params map[string]interface{}) ([]map[string]interface{}, error) {
	g.calls++
	if g.calls <= g.failsFor {
		return nil, coreerr.New(coreerr.KindTimeout, "graph", "simulated timeout", nil)
	}
	return g.rows, nil
}

func newTestRegistry() *resilience.Registry {
	return resilience.NewRegistry(resilience.Settings{
		FailureThreshold:         5,
		RecoveryTimeout:          time.Minute,
		HalfOpenSuccessThreshold: 1,
		CallTimeout:              time.Second,
	})
}

func TestFetchRunsAllBranchesConcurrently(t *testing.T) {
	graph := &backend.MockGraph{Rows: []map[string]interface{}{{"n": "node"}}}
	search := &backend.MockSearch{Hits: []backend.NewsHitRaw{{ID: "1"}}}
	market := &backend.MockMarket{Snapshots: map[string]backend.StockSnapshotRaw{"005930": {Symbol: "005930"}}}

	f := NewFetcher(graph, search, market, newTestRegistry())
	result := f.Fetch(context.Background(), Request{
		GraphCypher:  "MATCH (n) RETURN n",
		SearchQuery:  "삼성전자",
		MarketSymbol: "005930",
	})

	if result.GraphErr != nil || len(result.GraphRows) != 1 {
		t.Fatalf("expected graph rows, got %v err=%v", result.GraphRows, result.GraphErr)
	}
	if result.SearchErr != nil || len(result.SearchHits) != 1 {
		t.Fatalf("expected search hits, got %v err=%v", result.SearchHits, result.SearchErr)
	}
	if result.MarketErr != nil || result.MarketSnap.Symbol != "005930" {
		t.Fatalf("expected market snapshot, got %v err=%v", result.MarketSnap, result.MarketErr)
	}
	if !result.MarketRan {
		t.Fatal("expected MarketRan to be true when MarketSymbol is set")
	}
}

func TestFetchSkipsMarketWhenSymbolEmpty(t *testing.T) {
	f := NewFetcher(&backend.MockGraph{}, &backend.MockSearch{}, &backend.MockMarket{}, newTestRegistry())
	result := f.Fetch(context.Background(), Request{})
	if result.MarketRan {
		t.Fatal("expected MarketRan false without a market symbol")
	}
}

func TestFetchTolerartesPartialFailure(t *testing.T) {
	graph := &backend.MockGraph{Err: errors.New("graph down")}
	search := &backend.MockSearch{Hits: []backend.NewsHitRaw{{ID: "1"}}}

	f := NewFetcher(graph, search, nil, newTestRegistry())
	result := f.Fetch(context.Background(), Request{SearchQuery: "q"})

	if result.GraphErr == nil {
		t.Fatal("expected graph error to be reported, not swallowed")
	}
	if result.SearchErr != nil || len(result.SearchHits) != 1 {
		t.Fatal("expected search branch to succeed independently of graph failure")
	}
}

func TestFetchRetriesRetryableFailureThenSucceeds(t *testing.T) {
	graph := &flakyGraph{failsFor: 1, rows: []map[string]interface{}{{"n": "node"}}}
	retrier := resilience.NewRetrier(resilience.RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		Strategy:    resilience.StrategyFixed,
	}, nil)

	f := NewFetcher(graph, &backend.MockSearch{}, nil, newTestRegistry()).
		WithRetriers(map[string]*resilience.Retrier{"graph": retrier})

	result := f.Fetch(context.Background(), Request{GraphCypher: "MATCH (n) RETURN n"})
	if result.GraphErr != nil {
		t.Fatalf("expected retry to recover from the first failure, got %v", result.GraphErr)
	}
	if graph.calls != 2 {
		t.Fatalf("expected exactly 2 calls (1 failure + 1 retry), got %d", graph.calls)
	}
}

func TestFetchWithoutRetrierDoesNotRetry(t *testing.T) {
	graph := &flakyGraph{failsFor: 1, rows: []map[string]interface{}{{"n": "node"}}}

	f := NewFetcher(graph, &backend.MockSearch{}, nil, newTestRegistry())
	result := f.Fetch(context.Background(), Request{GraphCypher: "MATCH (n) RETURN n"})

	if result.GraphErr == nil {
		t.Fatal("expected the unretried single failure to surface as an error")
	}
	if graph.calls != 1 {
		t.Fatalf("expected exactly 1 call with no retrier configured, got %d", graph.calls)
	}
}

func TestFetchConcurrencyCapRejectsWhenSaturated(t *testing.T) {
	graph := &backend.MockGraph{Rows: []map[string]interface{}{{"n": "node"}}}
	search := &backend.MockSearch{Hits: []backend.NewsHitRaw{{ID: "1"}}}

	f := NewFetcher(graph, search, nil, newTestRegistry()).
		WithConcurrencyCaps(map[string]int{"graph": 1})

	release := f.caps["graph"]
	if !release.TryAcquire(1) {
		t.Fatal("expected to hold the single graph concurrency slot directly")
	}

	result := f.Fetch(context.Background(), Request{GraphCypher: "MATCH (n) RETURN n", SearchQuery: "q"})
	release.Release(1)

	if coreerr.KindOf(result.GraphErr) != coreerr.KindOverload {
		t.Fatalf("expected graph branch to fail with KindOverload when saturated, got %v", result.GraphErr)
	}
	if result.SearchErr != nil || len(result.SearchHits) != 1 {
		t.Fatal("expected search branch to succeed independently of the graph cap")
	}
}

func TestFetchRecordsTimingsPerBranch(t *testing.T) {
	f := NewFetcher(&backend.MockGraph{}, &backend.MockSearch{}, nil, newTestRegistry())
	result := f.Fetch(context.Background(), Request{})
	if _, ok := result.Timings["graph"]; !ok {
		t.Fatal("expected a graph timing entry")
	}
	if _, ok := result.Timings["search"]; !ok {
		t.Fatal("expected a search timing entry")
	}
	if _, ok := result.Timings["market"]; ok {
		t.Fatal("did not expect a market timing entry when market did not run")
	}
}
