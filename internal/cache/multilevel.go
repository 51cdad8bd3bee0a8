package cache

import (
	"context"
	"sync/atomic"
	"time"
)

// MultiLevel composes L1 (always present) with optional L2 and L3 layers.
// Reads check layers in order; a hit at layer k is promoted (write-through)
// to every faster layer j<k (spec.md §4.3, §8 property 4).
type MultiLevel struct {
	layers []Layer

	hits   atomic.Int64
	misses atomic.Int64
}

// NewMultiLevel builds a MultiLevel over layers ordered fastest-first (L1
// first, then L2, then L3). A nil layer in the slice is skipped, so callers
// can pass optional layers directly: NewMultiLevel(l1, l2OrNil, l3OrNil).
func NewMultiLevel(layers ...Layer) *MultiLevel {
	var active []Layer
	for _, l := range layers {
		if l != nil {
			active = append(active, l)
		}
	}
	return &MultiLevel{layers: active}
}

// Get checks layers in order, promoting a hit to every faster layer.
func (m *MultiLevel) Get(ctx context.Context, key string) ([]byte, bool, error) {
	for i, layer := range m.layers {
		entry, ok, err := layer.Get(ctx, key)
		if err != nil {
			continue // a degraded optional layer (§9's "optional dependencies" rule) never blocks a read
		}
		if !ok {
			continue
		}
		m.promote(ctx, key, entry, i)
		m.hits.Add(1)
		return entry.Value, true, nil
	}
	m.misses.Add(1)
	return nil, false, nil
}

// HitRate reports the hit rate across every Get call since the MultiLevel
// was built (the counters are never reset), for the §4.13 cache_hit_rate
// gauge.
// Returns 0 before the first Get.
func (m *MultiLevel) HitRate() float64 {
	hits, misses := m.hits.Load(), m.misses.Load()
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

func (m *MultiLevel) promote(ctx context.Context, key string, entry Entry, hitLayer int) {
	for j := 0; j < hitLayer; j++ {
		_ = m.layers[j].Set(ctx, key, entry)
	}
}

// Set writes to every configured layer (spec.md §4.3: "writes fan out to
// the requested set of layers").
func (m *MultiLevel) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := Entry{Value: value, InsertedAt: time.Now(), TTL: ttl}
	var firstErr error
	for _, layer := range m.layers {
		if err := layer.Set(ctx, key, entry); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Invalidate removes key from every layer.
func (m *MultiLevel) Invalidate(ctx context.Context, key string) error {
	var firstErr error
	for _, layer := range m.layers {
		if err := layer.Delete(ctx, key); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// InvalidatePrefix removes every key sharing prefix from every layer.
func (m *MultiLevel) InvalidatePrefix(ctx context.Context, prefix string) error {
	var firstErr error
	for _, layer := range m.layers {
		if err := layer.DeletePrefix(ctx, prefix); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Flush clears every layer.
func (m *MultiLevel) Flush(ctx context.Context) error {
	var firstErr error
	for _, layer := range m.layers {
		if err := layer.Flush(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ Cache = (*MultiLevel)(nil)
