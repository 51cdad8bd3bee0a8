package backend

import "context"

// CompositeMarketBackend decorates a Market with a fuzzy-resolution
// fallback: §4.1 names `search_symbols` but doesn't elaborate how the
// stock fast handler should use it when a ticker can't be resolved
// directly from the extracted entities. Grounded on
// 937856b8_Aman-CERP-amanmcp's search engine, which tries an exact lookup
// first and only falls through to its fuzzy index on a miss.
type CompositeMarketBackend struct {
	inner Market
}

// NewCompositeMarketBackend wraps inner so Quote transparently falls back
// to SearchSymbols on a direct lookup miss.
func NewCompositeMarketBackend(inner Market) *CompositeMarketBackend {
	return &CompositeMarketBackend{inner: inner}
}

// Quote tries symbolOrName as a literal ticker first. If that lookup
// fails, it resolves the closest match via SearchSymbols and retries once
// with the resolved symbol. The original error is returned when no match
// is found, so callers still see a classified Market error rather than a
// resolver-specific one.
func (c *CompositeMarketBackend) Quote(ctx context.Context, symbolOrName string) (StockSnapshotRaw, error) {
	snap, err := c.inner.Quote(ctx, symbolOrName)
	if err == nil {
		return snap, nil
	}

	matches, searchErr := c.inner.SearchSymbols(ctx, symbolOrName, 1)
	if searchErr != nil || len(matches) == 0 {
		return StockSnapshotRaw{}, err
	}

	resolved, retryErr := c.inner.Quote(ctx, matches[0].Symbol)
	if retryErr != nil {
		return StockSnapshotRaw{}, err
	}
	return resolved, nil
}

// SearchSymbols passes through to the wrapped Market unchanged.
func (c *CompositeMarketBackend) SearchSymbols(ctx context.Context, q string, limit int) ([]SymbolMatch, error) {
	return c.inner.SearchSymbols(ctx, q, limit)
}
