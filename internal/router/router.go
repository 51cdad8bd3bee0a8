// Package router implements the Query Router named by spec.md §4.6
// (component C6): classify, score complexity, and dispatch to either the
// Fast Path or the Deep Path under a depth-derived deadline, falling back
// to the Fast Path on any unrecovered Deep Path failure.
package router

import (
	"context"
	"strings"
	"time"

	"github.com/nuri428/ontology-chat/internal/complexity"
	"github.com/nuri428/ontology-chat/internal/coreerr"
	"github.com/nuri428/ontology-chat/internal/degrade"
	"github.com/nuri428/ontology-chat/internal/domain"
	"github.com/nuri428/ontology-chat/internal/fasthandler"
	"github.com/nuri428/ontology-chat/internal/intent"
	"github.com/nuri428/ontology-chat/internal/observability"
	"github.com/nuri428/ontology-chat/internal/resilience"
)

// DeepThreshold is the complexity score at or above which the router
// always takes the Deep Path, per §4.6 step 2.
const DeepThreshold = 0.85

// deepTriggerPhrases force the Deep Path regardless of the computed
// complexity score, per §4.6 step 2's explicit phrase list.
var deepTriggerPhrases = []string{"상세히", "자세히", "보고서", "심층"}

// DepthTimeouts is the deadline-by-depth table §4.6 step 4 names.
var DepthTimeouts = map[domain.AnalysisDepth]time.Duration{
	domain.DepthShallow:       60 * time.Second,
	domain.DepthStandard:      90 * time.Second,
	domain.DepthDeep:          120 * time.Second,
	domain.DepthComprehensive: 180 * time.Second,
}

// DeepPath is the contract the Deep Workflow (C11) satisfies; kept narrow
// so the router never imports internal/workflow directly (it only needs
// "run to completion or fail" semantics under the ctx deadline it sets).
type DeepPath interface {
	Run(ctx context.Context, q domain.Query) (domain.Report, error)
}

// Router wires C4 (intent), C5 (complexity), and dispatches to either a
// fasthandler.Handler (C7) or a DeepPath (C11), falling back to the
// matched Fast Handler on any unrecovered Deep Path failure. Breakers,
// when set, is snapshotted once per Route call to derive §5's
// degradation level; EMERGENCY short-circuits to degrade.EmergencyNotice
// before either path runs.
type Router struct {
	classifier *intent.Classifier
	extractor  *intent.Extractor
	fast       *fasthandler.Handler
	deep       DeepPath
	breakers   *resilience.Registry

	metrics      *observability.Metrics
	cacheHitRate func() float64
}

// New builds a Router over a Fast Handler and an optional Deep Path (nil
// disables the Deep Path entirely — every request is routed Fast).
// breakers may be nil, in which case Route never reports a degradation
// level above FULL.
func New(classifier *intent.Classifier, extractor *intent.Extractor, fast *fasthandler.Handler, deep DeepPath, breakers *resilience.Registry) *Router {
	return &Router{classifier: classifier, extractor: extractor, fast: fast, deep: deep, breakers: breakers}
}

// WithMetrics attaches the breaker_state and cache_hit_rate gauges §4.13
// names: Route syncs both from the live breaker registry and cacheHitRate
// once per call. queries_total/response_seconds are recorded one layer up
// by ontologychat.Engine.Chat against the same Metrics instance, so Route
// does not record them itself to avoid double-counting. cacheHitRate is
// typically (*cache.MultiLevel).HitRate; nil disables the cache_hit_rate
// gauge update only.
func (r *Router) WithMetrics(m *observability.Metrics, cacheHitRate func() float64) *Router {
	r.metrics = m
	r.cacheHitRate = cacheHitRate
	return r
}

// DegradationLevel reports the current §5 level derived from the breaker
// registry's live snapshot, for use by a health/readiness endpoint.
func (r *Router) DegradationLevel() degrade.Level {
	if r.breakers == nil {
		return degrade.LevelFull
	}
	return degrade.FromSnapshot(r.breakers.Snapshot())
}

// Route is the C6 contract: route(Query) -> Response.
func (r *Router) Route(ctx context.Context, q domain.Query) (domain.Report, error) {
	start := time.Now()
	r.syncBackendMetrics()

	if strings.TrimSpace(q.Text) == "" {
		return domain.Report{}, coreerr.New(coreerr.KindValidation, "router", "query text is required", nil)
	}

	level := r.DegradationLevel()
	if level == degrade.LevelEmergency {
		return emergencyReport(level), nil
	}

	q.Intent, q.Confidence = r.classifier.Classify(q.Text)
	q.Entities = r.extractor.Extract(q.Text)

	score := complexity.Score(q)

	deep := score.Score >= DeepThreshold || q.ForceDeep || containsTriggerPhrase(q.Text)

	var (
		report         domain.Report
		err            error
		processingPath = "fast"
		fellBack       bool
	)

	if deep && r.deep != nil {
		processingPath = "deep"
		deadline := DepthTimeouts[score.Depth]
		deepCtx, cancel := context.WithTimeout(ctx, deadline)
		report, err = r.deep.Run(deepCtx, q)
		cancel()

		if err != nil {
			fellBack = true
			processingPath = "fast"
			report, err = r.runFast(ctx, q)
		}
	} else {
		report, err = r.runFast(ctx, q)
	}
	if err != nil {
		return domain.Report{}, err
	}

	report.Meta = mergeMeta(report.Meta, map[string]interface{}{
		"processing_time_ms": time.Since(start).Milliseconds(),
		"intent":             q.Intent,
		"confidence":         q.Confidence,
		"complexity_score":   score.Score,
		"analysis_depth":     score.Depth,
		"processing_method":  processingPath,
		"fallback":           fellBack,
		"degradation_level":  level,
	})
	return report, nil
}

// syncBackendMetrics publishes the breaker_state and cache_hit_rate gauges
// once per Route call, ahead of classification/dispatch so an EMERGENCY
// short-circuit still reports current backend health.
func (r *Router) syncBackendMetrics() {
	if r.metrics == nil {
		return
	}
	if r.breakers != nil {
		r.metrics.SyncBreakerStates(r.breakers.Snapshot())
	}
	if r.cacheHitRate != nil {
		r.metrics.SetCacheHitRate(r.cacheHitRate())
	}
}

// emergencyReport renders degrade.EmergencyNotice as a Report, skipping
// classification and dispatch entirely since every backend breaker is
// open.
func emergencyReport(level degrade.Level) domain.Report {
	return domain.Report{
		Type:     domain.IntentGeneral,
		Markdown: degrade.EmergencyNotice,
		Meta: map[string]interface{}{
			"degradation_level": level,
			"processing_method": "emergency",
		},
	}
}

func (r *Router) runFast(ctx context.Context, q domain.Query) (domain.Report, error) {
	report, partial, err := r.fast.Handle(ctx, q)
	if err != nil {
		return domain.Report{}, err
	}
	if report.Meta == nil {
		report.Meta = map[string]interface{}{}
	}
	report.Meta["partial"] = partial
	return report, nil
}

func containsTriggerPhrase(text string) bool {
	for _, phrase := range deepTriggerPhrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

func mergeMeta(existing map[string]interface{}, add map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(existing)+len(add))
	for k, v := range existing {
		out[k] = v
	}
	for k, v := range add {
		out[k] = v
	}
	return out
}
