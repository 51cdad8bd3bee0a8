package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// L1Options bounds the in-process layer (spec.md §4.3: "capacity and
// memory-bound, default TTL 5-15 minutes").
type L1Options struct {
	MaxItems   int
	MaxBytes   int64
	DefaultTTL time.Duration
}

type l1Node struct {
	key   string
	entry Entry
}

// InProcessLayer is L1: a capacity-and-byte-bound LRU keyed by fingerprint,
// with insertion-recency refreshed on access (§3's CacheEntry invariant).
// Grounded on graph/store/memory.go's mutex-guarded map pattern.
type InProcessLayer struct {
	mu       sync.Mutex
	opts     L1Options
	ll       *list.List
	index    map[string]*list.Element
	curBytes int64
}

// NewInProcessLayer builds L1 with the given bounds.
func NewInProcessLayer(opts L1Options) *InProcessLayer {
	if opts.MaxItems <= 0 {
		opts.MaxItems = 10000
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = 10 * time.Minute
	}
	return &InProcessLayer{
		opts:  opts,
		ll:    list.New(),
		index: make(map[string]*list.Element),
	}
}

func (l *InProcessLayer) Name() string { return "l1" }

func (l *InProcessLayer) Get(ctx context.Context, key string) (Entry, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	el, ok := l.index[key]
	if !ok {
		return Entry{}, false, nil
	}
	node := el.Value.(*l1Node)
	if node.entry.Expired(time.Now()) {
		l.removeLocked(el)
		return Entry{}, false, nil
	}
	node.entry.Hits++
	l.ll.MoveToFront(el)
	return node.entry, true, nil
}

func (l *InProcessLayer) Set(ctx context.Context, key string, entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.TTL <= 0 {
		entry.TTL = l.opts.DefaultTTL
	}
	if entry.InsertedAt.IsZero() {
		entry.InsertedAt = time.Now()
	}

	if el, ok := l.index[key]; ok {
		node := el.Value.(*l1Node)
		l.curBytes -= int64(len(node.entry.Value))
		node.entry = entry
		l.curBytes += int64(len(entry.Value))
		l.ll.MoveToFront(el)
	} else {
		node := &l1Node{key: key, entry: entry}
		el := l.ll.PushFront(node)
		l.index[key] = el
		l.curBytes += int64(len(entry.Value))
	}

	l.evictLocked()
	return nil
}

func (l *InProcessLayer) evictLocked() {
	for (l.opts.MaxItems > 0 && l.ll.Len() > l.opts.MaxItems) ||
		(l.opts.MaxBytes > 0 && l.curBytes > l.opts.MaxBytes) {
		back := l.ll.Back()
		if back == nil {
			return
		}
		l.removeLocked(back)
	}
}

func (l *InProcessLayer) removeLocked(el *list.Element) {
	node := el.Value.(*l1Node)
	l.curBytes -= int64(len(node.entry.Value))
	delete(l.index, node.key)
	l.ll.Remove(el)
}

func (l *InProcessLayer) Delete(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if el, ok := l.index[key]; ok {
		l.removeLocked(el)
	}
	return nil
}

func (l *InProcessLayer) DeletePrefix(ctx context.Context, prefix string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, el := range l.index {
		if hasPrefix(key, prefix) {
			l.removeLocked(el)
		}
	}
	return nil
}

func (l *InProcessLayer) Flush(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ll.Init()
	l.index = make(map[string]*list.Element)
	l.curBytes = 0
	return nil
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
