// Package fetch implements the Parallel Fetcher named by spec.md §4.9
// (component C9): a static fan-out over graph, search, and optional market
// backends, each guarded by its breaker and a per-call timeout, tolerating
// partial failure.
package fetch

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/nuri428/ontology-chat/internal/backend"
	"github.com/nuri428/ontology-chat/internal/coreerr"
	"github.com/nuri428/ontology-chat/internal/resilience"
)

// Request describes one fan-out call. Each backend's branch runs only
// when the handler needs it — §4.7 names different subsets per intent
// (news: graph+search; stock: market+search; general: all three).
type Request struct {
	GraphCypher  string
	GraphParams  map[string]interface{}
	SkipGraph    bool
	SearchQuery  string
	SearchFilter backend.Filters
	SearchSize   int
	SkipSearch   bool
	MarketSymbol string // empty disables the market branch

	CallTimeout time.Duration // per-call timeout; zero uses the caller's deadline
}

// Result is the aggregate §4.9 names: {graph: rows|error, search:
// hits|error, market: snapshot|error, timings}.
type Result struct {
	GraphRows  []map[string]interface{}
	GraphErr   error
	SearchHits []backend.NewsHitRaw
	SearchErr  error
	MarketSnap backend.StockSnapshotRaw
	MarketErr  error
	MarketRan  bool
	Timings    map[string]time.Duration
}

// Fetcher runs the three branches concurrently over breaker-guarded
// backend calls.
type Fetcher struct {
	graph    backend.Graph
	search   backend.Search
	market   backend.Market
	breakers *resilience.Registry
	retriers map[string]*resilience.Retrier
	caps     map[string]*semaphore.Weighted
}

// NewFetcher builds a Fetcher over the three backend contracts and a
// breaker registry (one breaker per named backend, per §4.2).
func NewFetcher(graph backend.Graph, search backend.Search, market backend.Market, breakers *resilience.Registry) *Fetcher {
	return &Fetcher{graph: graph, search: search, market: market, breakers: breakers}
}

// WithRetriers attaches the retry policies (§4.2, "retry around the
// breaker") keyed by backend name (graph/search/market). A backend with no
// matching entry runs breaker-guarded but unretried, same as before this
// was wired in. Returns f for chaining at construction time.
func (f *Fetcher) WithRetriers(retriers map[string]*resilience.Retrier) *Fetcher {
	f.retriers = retriers
	return f
}

// WithConcurrencyCaps sizes a per-backend admission semaphore from the pool
// width named by spec.md §5 ("a concurrency cap per backend, semaphore
// sized from pool width"). A named backend with no entry (or a
// non-positive width) runs uncapped. On saturation the branch fails
// immediately with KindOverload instead of queuing, so Fetch's existing
// partial-failure tolerance carries it (§5: "Fast Handlers may proceed
// with graph-or-search only... and mark partial=true").
func (f *Fetcher) WithConcurrencyCaps(widths map[string]int) *Fetcher {
	caps := make(map[string]*semaphore.Weighted, len(widths))
	for name, w := range widths {
		if w > 0 {
			caps[name] = semaphore.NewWeighted(int64(w))
		}
	}
	f.caps = caps
	return f
}

// call runs fn guarded by name's concurrency cap, breaker, and retrier —
// in that order, outermost to innermost — when each is configured. Retries
// never extend the caller's deadline: callCtx already carries the per-call
// timeout fetchX derives before calling this.
func (f *Fetcher) call(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	if sem := f.caps[name]; sem != nil {
		if !sem.TryAcquire(1) {
			return coreerr.New(coreerr.KindOverload, name, "backend concurrency cap reached", nil)
		}
		defer sem.Release(1)
	}

	breakerFn := func(ctx context.Context) error {
		return f.breakers.Get(name).Execute(ctx, fn)
	}
	if r := f.retriers[name]; r != nil {
		return r.Do(ctx, breakerFn)
	}
	return breakerFn(ctx)
}

// Fetch runs the static task set concurrently; total wall time is
// approximately the slowest successful branch, capped at ctx's deadline.
func (f *Fetcher) Fetch(ctx context.Context, req Request) Result {
	result := Result{Timings: make(map[string]time.Duration, 3)}

	g, gctx := errgroup.WithContext(ctx)

	if !req.SkipGraph {
		g.Go(func() error {
			start := time.Now()
			result.GraphRows, result.GraphErr = f.fetchGraph(gctx, req)
			result.Timings["graph"] = time.Since(start)
			return nil // partial failure tolerated: never abort the group
		})
	}

	if !req.SkipSearch {
		g.Go(func() error {
			start := time.Now()
			result.SearchHits, result.SearchErr = f.fetchSearch(gctx, req)
			result.Timings["search"] = time.Since(start)
			return nil
		})
	}

	if req.MarketSymbol != "" && f.market != nil {
		result.MarketRan = true
		g.Go(func() error {
			start := time.Now()
			result.MarketSnap, result.MarketErr = f.fetchMarket(gctx, req)
			result.Timings["market"] = time.Since(start)
			return nil
		})
	}

	_ = g.Wait()
	return result
}

func (f *Fetcher) callCtx(ctx context.Context, req Request) (context.Context, context.CancelFunc) {
	if req.CallTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, req.CallTimeout)
}

func (f *Fetcher) fetchGraph(ctx context.Context, req Request) ([]map[string]interface{}, error) {
	if f.graph == nil {
		return nil, nil
	}
	callCtx, cancel := f.callCtx(ctx, req)
	defer cancel()

	var rows []map[string]interface{}
	err := f.call(callCtx, "graph", func(ctx context.Context) error {
		var innerErr error
		rows, innerErr = f.graph.Search(ctx, req.GraphCypher, req.GraphParams)
		return innerErr
	})
	return rows, err
}

func (f *Fetcher) fetchSearch(ctx context.Context, req Request) ([]backend.NewsHitRaw, error) {
	if f.search == nil {
		return nil, nil
	}
	callCtx, cancel := f.callCtx(ctx, req)
	defer cancel()

	var hits []backend.NewsHitRaw
	err := f.call(callCtx, "search", func(ctx context.Context) error {
		var innerErr error
		hits, innerErr = f.search.Hybrid(ctx, req.SearchQuery, req.SearchFilter, req.SearchSize)
		return innerErr
	})
	return hits, err
}

func (f *Fetcher) fetchMarket(ctx context.Context, req Request) (backend.StockSnapshotRaw, error) {
	callCtx, cancel := f.callCtx(ctx, req)
	defer cancel()

	var snap backend.StockSnapshotRaw
	err := f.call(callCtx, "market", func(ctx context.Context) error {
		var innerErr error
		snap, innerErr = f.market.Quote(ctx, req.MarketSymbol)
		return innerErr
	})
	return snap, err
}
