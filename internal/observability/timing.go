package observability

import "time"

// Span is one node of the per-request timing tree §4.13 names ("per-
// request timing tree keyed by component/node"). A Span's Duration is
// only meaningful after End is called.
type Span struct {
	Name     string
	Start    time.Time
	End      time.Time
	Children []*Span
}

// Duration reports how long the span ran. Zero if it hasn't ended yet.
func (s *Span) Duration() time.Duration {
	if s.End.IsZero() {
		return 0
	}
	return s.End.Sub(s.Start)
}

// Timing tracks one request's nested component/node timings as a tree,
// rooted at whatever name the caller passes to NewTiming.
type Timing struct {
	root    *Span
	current *Span
	stack   []*Span
}

// NewTiming starts the root span (typically the query text or a request
// ID) for one request.
func NewTiming(rootName string) *Timing {
	root := &Span{Name: rootName, Start: time.Now()}
	return &Timing{root: root, current: root, stack: []*Span{root}}
}

// Start opens a child span under the current span and returns an End
// function the caller must invoke when that unit of work finishes.
//
//	done := timing.Start("collect_parallel_data")
//	defer done()
func (t *Timing) Start(name string) func() {
	child := &Span{Name: name, Start: time.Now()}
	t.current.Children = append(t.current.Children, child)
	t.stack = append(t.stack, t.current)
	t.current = child

	return func() {
		child.End = time.Now()
		if len(t.stack) > 0 {
			t.current = t.stack[len(t.stack)-1]
			t.stack = t.stack[:len(t.stack)-1]
		}
	}
}

// Finish closes the root span.
func (t *Timing) Finish() {
	t.root.End = time.Now()
}

// Tree returns the root span, walkable by callers that want to render or
// export the full per-request tree (e.g. into meta.timing for debugging).
func (t *Timing) Tree() *Span {
	return t.root
}

// Flatten returns every span name paired with its duration, depth-first,
// for callers (like Metrics.ObserveStage) that just want a flat list.
func (t *Timing) Flatten() map[string]time.Duration {
	out := make(map[string]time.Duration)
	flattenInto(t.root, out)
	return out
}

func flattenInto(s *Span, out map[string]time.Duration) {
	if !s.End.IsZero() {
		out[s.Name] = s.Duration()
	}
	for _, c := range s.Children {
		flattenInto(c, out)
	}
}
