// Package config implements the process-wide configuration and lifecycle
// named by spec.md §4.14 (component C14): a nested settings tree covering
// backends, the two-model LM strategy, the embedder, the multi-level
// cache, the router, per-backend breakers, retry policies, context
// engineering, and optional tracing, plus an Init/Shutdown lifecycle.
package config

import "time"

// BackendConfig is one of the three external-data-source connections
// (graph, search, market) §4.14 names as `backends.{graph,search,market}`.
// Init passes only URL to the stock HTTP clients (internal/backend);
// User, Password, Index, Database and Timeout are loaded but not passed
// to any backend client.
type BackendConfig struct {
	URL       string
	User      string
	Password  string
	Index     string
	Database  string
	TimeoutMs int
	Timeout   time.Duration
}

// LMConfig is the two-model strategy §4.14 names: a small fast model for
// the Fast Handlers and a larger model for the Deep Workflow's synthesis
// and enhancement nodes. Provider selects which graph/model adapter Init
// builds both ChatModels from (anthropic|openai|google); it is not in
// §4.14's illustrative list but is required to resolve `lm.chat_model` /
// `lm.report_model` to a concrete SDK client — see DESIGN.md.
type LMConfig struct {
	Provider    string
	ChatModel   string
	ReportModel string
	BaseURL     string
	APIKey      string
	TimeoutMs   int
	Timeout     time.Duration
}

// EmbedderConfig names the embedding model and its output dimensionality.
// BaseURL is likewise an addition beyond §4.14's illustrative list: the
// HTTP embedder client needs an endpoint distinct from the LM's.
type EmbedderConfig struct {
	Model   string
	BaseURL string
	Dim     int
}

// L1Config tunes the in-process cache layer.
type L1Config struct {
	MaxItems    int
	MaxMB       int
	DefaultTTLS int
	DefaultTTL  time.Duration
}

// L2Config tunes the optional Redis-backed distributed cache layer.
type L2Config struct {
	Enabled bool
	URL     string
	Prefix  string
	TTLS    int
	TTL     time.Duration
}

// L3Config tunes the optional SQLite-backed disk cache layer.
type L3Config struct {
	Enabled bool
	Dir     string
	MaxGB   int
	TTLS    int
	TTL     time.Duration
}

// CacheConfig is the three-layer cache §4.3/§4.14 name.
type CacheConfig struct {
	L1 L1Config
	L2 L2Config
	L3 L3Config
}

// DepthTimeoutsConfig holds per-depth deadlines in seconds, mirroring the
// router's own table (`router.DepthTimeouts` in internal/router). Init
// does not pass these values to the router, which always uses its table.
type DepthTimeoutsConfig struct {
	ShallowS       int
	StandardS      int
	DeepS          int
	ComprehensiveS int
}

// RouterConfig carries the Query Router's deep-path trigger and per-depth
// timeouts; Init does not pass DeepThreshold or DepthTimeouts to the
// router, which uses its own DeepThreshold constant and DepthTimeouts
// table. BackendConcurrency is §5's "concurrency cap per backend,
// semaphore sized from pool width" — keyed by backend name (graph, search,
// market), consumed by internal/fetch.Fetcher.WithConcurrencyCaps. A
// backend absent from the map runs uncapped.
type RouterConfig struct {
	DeepThreshold      float64
	ForceDeepOverride  bool
	DepthTimeouts      DepthTimeoutsConfig
	BackendConcurrency map[string]int
	DeepMaxConcurrent  int
}

// BreakerConfig is one named circuit breaker's tunables, mapped onto
// internal/resilience.Settings at Init.
type BreakerConfig struct {
	FailureThreshold int
	RecoveryS        int
	CallTimeoutS     int
	HalfOpenProbes   int
}

// RetryConfig is one named retry policy's tunables. strategy is one of
// fixed|linear|exponential|exponential_jitter per spec.md §4.2.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelayS float64
	MaxDelayS     float64
	Strategy      string
	Jitter        bool
}

// ContextConfig tunes the Context Engineering pipeline's knowledge-graph
// label key map and recency lookback. The per-phase weights are not part
// of Config: Init always builds the engine with
// internal/contextengine.DefaultConfig().
type ContextConfig struct {
	GraphSearchKeys map[string][]string
	LookbackDays    int
}

// TracingConfig is the optional OTel sink §4.14 names. When Enabled is
// false (the default), internal/observability.NewTracer returns a no-op.
type TracingConfig struct {
	Enabled bool
	Secret  string
	Public  string
	Host    string
}

// StoreConfig selects the Deep Workflow's state persistence backend
// (graph/store), per §4.14's lifecycle: memory by default, a durable
// driver opt-in for "long-running workflows that survive process
// restarts" (graph/store/mysql.go's own description). Driver is one of
// memory|mysql|sqlite; DSN is the MySQL DSN or, for sqlite, a file path.
type StoreConfig struct {
	Driver string
	DSN    string
}

// Config is the full process-wide settings tree §4.14 names.
type Config struct {
	Backends struct {
		Graph  BackendConfig
		Search BackendConfig
		Market BackendConfig
	}
	LM       LMConfig
	Embedder EmbedderConfig
	Cache    CacheConfig
	Router   RouterConfig
	Breakers map[string]BreakerConfig
	Retry    map[string]RetryConfig
	Context  ContextConfig
	Tracing  TracingConfig
	Store    StoreConfig
}
