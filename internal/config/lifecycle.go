package config

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/nuri428/ontology-chat/graph"
	"github.com/nuri428/ontology-chat/graph/model"
	"github.com/nuri428/ontology-chat/graph/model/anthropic"
	"github.com/nuri428/ontology-chat/graph/model/google"
	"github.com/nuri428/ontology-chat/graph/model/openai"
	"github.com/nuri428/ontology-chat/graph/store"
	"github.com/nuri428/ontology-chat/internal/backend"
	"github.com/nuri428/ontology-chat/internal/cache"
	"github.com/nuri428/ontology-chat/internal/contextengine"
	"github.com/nuri428/ontology-chat/internal/fasthandler"
	"github.com/nuri428/ontology-chat/internal/intent"
	"github.com/nuri428/ontology-chat/internal/observability"
	"github.com/nuri428/ontology-chat/internal/resilience"
	"github.com/nuri428/ontology-chat/internal/router"
	"github.com/nuri428/ontology-chat/internal/workflow"
)

// Runtime is every long-lived collaborator Init constructs from a Config:
// pooled backend clients, the breaker registry, the multi-level cache, the
// two LM instances (fast path / deep path), and the fully wired Router.
// §5's "no global mutable state beyond Cache, Breakers, and Config" — this
// struct is the one place those three live for a process.
type Runtime struct {
	Config Config

	Graph    backend.Graph
	Search   backend.Search
	Market   backend.Market
	Embedder backend.Embedder
	FastLM   backend.LM
	DeepLM   backend.LM

	Cache    cache.Cache
	Breakers *resilience.Registry
	Retriers map[string]*resilience.Retrier
	Metrics  *observability.Metrics
	Tracer   observability.Tracer

	ContextEngine *contextengine.Engine
	Router        *router.Router

	workflowStore   store.Store[workflow.State]
	workflowMetrics *graph.PrometheusMetrics
	workflowCost    *graph.CostTracker
	redisClient     *goredis.Client
}

// Init builds a Runtime from cfg: opens pooled backend clients and
// preloads the embedder/LM clients so the first request doesn't pay
// connection setup cost. §4.14's "verifies credentials" is deferred to
// each backend's first real call rather than a synthetic health check —
// none of the five backend contracts (internal/backend) expose one.
func Init(ctx context.Context, cfg Config) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rt := &Runtime{Config: cfg}

	rt.Graph = backend.NewHTTPGraph(cfg.Backends.Graph.URL)
	rt.Search = backend.NewHTTPSearch(cfg.Backends.Search.URL)
	rt.Market = backend.NewHTTPMarket(cfg.Backends.Market.URL)
	rt.Embedder = backend.NewHTTPEmbedder(cfg.Embedder.BaseURL, cfg.Embedder.Dim)

	chatModel, err := newChatModel(cfg.LM.Provider, cfg.LM.APIKey, cfg.LM.ChatModel)
	if err != nil {
		return nil, fmt.Errorf("config: build chat model: %w", err)
	}
	reportModel, err := newChatModel(cfg.LM.Provider, cfg.LM.APIKey, cfg.LM.ReportModel)
	if err != nil {
		return nil, fmt.Errorf("config: build report model: %w", err)
	}
	rt.FastLM = backend.NewChatModelLM(chatModel)
	rt.DeepLM = backend.NewChatModelLM(reportModel)

	rt.Breakers = resilience.NewRegistry(resilience.Settings{
		FailureThreshold: 5, RecoveryTimeout: 30 * time.Second,
		HalfOpenSuccessThreshold: 2, CallTimeout: 10 * time.Second,
	})
	for name, b := range cfg.Breakers {
		rt.Breakers.Register(name, resilience.Settings{
			FailureThreshold:         b.FailureThreshold,
			RecoveryTimeout:          time.Duration(b.RecoveryS) * time.Second,
			HalfOpenSuccessThreshold: b.HalfOpenProbes,
			CallTimeout:              time.Duration(b.CallTimeoutS) * time.Second,
		})
	}

	rt.Retriers = make(map[string]*resilience.Retrier, len(cfg.Retry))
	for name, r := range cfg.Retry {
		rt.Retriers[name] = resilience.NewRetrier(resilience.RetryPolicy{
			MaxAttempts: r.MaxAttempts,
			BaseDelay:   time.Duration(r.InitialDelayS * float64(time.Second)),
			MaxDelay:    time.Duration(r.MaxDelayS * float64(time.Second)),
			Strategy:    resilience.Strategy(r.Strategy),
		}, nil)
	}

	multiCache, err := newCache(rt, cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("config: build cache: %w", err)
	}
	rt.Cache = multiCache

	rt.Metrics = observability.NewMetrics(nil)
	rt.Tracer = observability.NewTracer(cfg.Tracing.Enabled, nil)

	rt.ContextEngine = contextengine.NewEngine(contextengine.DefaultConfig(), rt.Embedder)

	fastHandler := fasthandler.New(fasthandler.Deps{
		Graph:              rt.Graph,
		Search:             rt.Search,
		Market:             rt.Market,
		LM:                 rt.FastLM,
		Breakers:           rt.Breakers,
		Retriers:           rt.Retriers,
		BackendConcurrency: cfg.Router.BackendConcurrency,
		Engine:             rt.ContextEngine,
	})

	workflowStore, err := workflow.NewStore(cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("config: build workflow store: %w", err)
	}
	rt.workflowStore = workflowStore

	rt.workflowMetrics = graph.NewPrometheusMetrics(prometheus.DefaultRegisterer)
	rt.workflowCost = graph.NewCostTracker("ontology-chat-deep-workflow", "USD")

	deepEngine, err := workflow.New(workflow.Deps{
		Graph:              rt.Graph,
		Search:             rt.Search,
		Market:             rt.Market,
		LM:                 rt.DeepLM,
		Cache:              rt.Cache,
		Breakers:           rt.Breakers,
		Retriers:           rt.Retriers,
		BackendConcurrency: cfg.Router.BackendConcurrency,
		Engine:             rt.ContextEngine,
		Store:              rt.workflowStore,
		GraphMetrics:       rt.workflowMetrics,
		CostTracker:        rt.workflowCost,
		Model:              cfg.LM.ReportModel,
		LookbackDays:       cfg.Context.LookbackDays,
	})
	if err != nil {
		return nil, fmt.Errorf("config: build deep workflow: %w", err)
	}
	deepPath := workflow.NewPath(deepEngine).WithMaxConcurrent(cfg.Router.DeepMaxConcurrent)

	rt.Router = router.New(intent.NewClassifier(), intent.NewExtractor(), fastHandler, deepPath, rt.Breakers).
		WithMetrics(rt.Metrics, cacheHitRateFunc(rt.Cache))

	return rt, nil
}

// cacheHitRateFunc adapts c to the cache_hit_rate gauge's Router.WithMetrics
// signature. c's concrete type (cache.MultiLevel, built by newCache) exposes
// HitRate() float64 but cache.Cache itself doesn't declare it, so this is a
// type assertion rather than an interface method — the same pattern
// Shutdown uses to optionally close the workflow store.
func cacheHitRateFunc(c cache.Cache) func() float64 {
	hr, ok := c.(interface{ HitRate() float64 })
	if !ok {
		return nil
	}
	return hr.HitRate
}

// newChatModel resolves provider/modelName to a concrete graph/model.ChatModel
// client. provider is one of anthropic|openai|google; an unrecognized value
// is a configuration error caught at Init rather than at the first request.
func newChatModel(provider, apiKey, modelName string) (model.ChatModel, error) {
	switch provider {
	case "anthropic":
		return anthropic.NewChatModel(apiKey, modelName), nil
	case "openai", "":
		return openai.NewChatModel(apiKey, modelName), nil
	case "google":
		return google.NewChatModel(apiKey, modelName), nil
	default:
		return nil, fmt.Errorf("config: unknown lm.provider %q", provider)
	}
}

// Shutdown drains in-flight work (bounded by ctx's deadline — callers
// should pass a context.WithTimeout), closes pooled connections, and
// flushes the cache to L3 if one is configured — §4.14's lifecycle
// contract.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	if rt.Cache != nil {
		if err := rt.Cache.Flush(ctx); err != nil {
			return fmt.Errorf("config: flush cache on shutdown: %w", err)
		}
	}
	if rt.redisClient != nil {
		if err := rt.redisClient.Close(); err != nil {
			return fmt.Errorf("config: close redis client: %w", err)
		}
	}
	if closer, ok := rt.workflowStore.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("config: close workflow store: %w", err)
		}
	}
	return nil
}

// newCache assembles the multi-level cache from cfg, wiring L2 (Redis) and
// L3 (SQLite) only when enabled. A Redis client opened here is tracked on
// rt so Shutdown can close it.
func newCache(rt *Runtime, cfg CacheConfig) (cache.Cache, error) {
	l1 := cache.NewInProcessLayer(cache.L1Options{
		MaxItems:   cfg.L1.MaxItems,
		MaxBytes:   int64(cfg.L1.MaxMB) * 1024 * 1024,
		DefaultTTL: cfg.L1.DefaultTTL,
	})

	var l2 cache.Layer
	if cfg.L2.Enabled {
		opts, err := goredis.ParseURL(cfg.L2.URL)
		if err != nil {
			return nil, fmt.Errorf("cache.l2.url: %w", err)
		}
		rt.redisClient = goredis.NewClient(opts)
		l2 = cache.NewRedisLayer(rt.redisClient, cfg.L2.Prefix)
	}

	var l3 cache.Layer
	if cfg.L3.Enabled {
		layer, err := cache.NewSQLiteLayer(cache.SQLiteOptions{
			Path:    cfg.L3.Dir + "/cache.db",
			MaxRows: cfg.L3.MaxGB * 100_000,
		})
		if err != nil {
			return nil, fmt.Errorf("cache.l3: %w", err)
		}
		l3 = layer
	}

	return cache.NewMultiLevel(l1, l2, l3), nil
}
