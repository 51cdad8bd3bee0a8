package intent

import (
	"strings"

	"github.com/nuri428/ontology-chat/internal/domain"
)

// DefaultFloor is the confidence floor below which a query classifies as
// unknown (spec.md §4.4).
const DefaultFloor = 0.2

// Classifier scores a query against a closed set of intent bundles.
type Classifier struct {
	bundles []Bundle
	floor   float64
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithBundles overrides the default bundle set.
func WithBundles(bundles []Bundle) Option {
	return func(c *Classifier) { c.bundles = bundles }
}

// WithFloor overrides the confidence floor.
func WithFloor(floor float64) Option {
	return func(c *Classifier) { c.floor = floor }
}

// NewClassifier builds a Classifier over DefaultBundles unless overridden.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{bundles: DefaultBundles(), floor: DefaultFloor}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify scores query against every bundle and returns the winning
// intent with its normalized confidence. The winning score is normalized
// against the sum of all bundle scores; if no bundle scores above the
// floor, the result is IntentUnknown at the floor confidence.
func (c *Classifier) Classify(query string) (domain.Intent, float64) {
	lower := strings.ToLower(query)

	scores := make(map[domain.Intent]float64, len(c.bundles))
	total := 0.0
	var best domain.Intent
	bestScore := -1.0

	for _, b := range c.bundles {
		s := scores[b.Intent] + b.matchScore(lower)
		scores[b.Intent] = s
	}
	for in, s := range scores {
		total += s
		if s > bestScore {
			bestScore = s
			best = in
		}
	}

	if total <= 0 {
		return domain.IntentUnknown, c.floor
	}

	confidence := bestScore / total
	if confidence < c.floor {
		return domain.IntentUnknown, c.floor
	}
	return best, confidence
}
