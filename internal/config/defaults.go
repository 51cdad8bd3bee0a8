package config

import "time"

// breakerNames are the five named backends spec.md §4.2 calls out for an
// independent circuit breaker: the three data backends plus the LM and
// embedder.
var breakerNames = []string{"graph", "search", "market", "lm", "embedder"}

// retryPolicyNames are the retry policies applied around each breaker.
var retryPolicyNames = []string{"graph", "search", "market", "lm", "embedder"}

// Default returns the engine's built-in configuration: every value named
// literally elsewhere in the spec (router.DeepThreshold, the depth-timeout
// table, cache TTLs) where this package duplicates it, plus conservative
// defaults for everything Load can override from the environment.
func Default() Config {
	cfg := Config{
		LM: LMConfig{
			Provider:    "openai",
			ChatModel:   "gpt-4o-mini",
			ReportModel: "gpt-4o",
			TimeoutMs:   30_000,
			Timeout:     30 * time.Second,
		},
		Embedder: EmbedderConfig{
			Model: "text-embedding-3-small",
			Dim:   1536,
		},
		Cache: CacheConfig{
			L1: L1Config{MaxItems: 10_000, MaxMB: 256, DefaultTTLS: 600, DefaultTTL: 10 * time.Minute},
			L2: L2Config{Enabled: false, Prefix: "ontologychat:", TTLS: 3600, TTL: time.Hour},
			L3: L3Config{Enabled: false, Dir: "./data/cache", MaxGB: 2, TTLS: 86400, TTL: 24 * time.Hour},
		},
		Router: RouterConfig{
			DeepThreshold: 0.85,
			DepthTimeouts: DepthTimeoutsConfig{
				ShallowS: 60, StandardS: 90, DeepS: 120, ComprehensiveS: 180,
			},
			BackendConcurrency: map[string]int{
				"graph": 16, "search": 16, "market": 16,
			},
			DeepMaxConcurrent: 8,
		},
		Breakers: make(map[string]BreakerConfig, len(breakerNames)),
		Retry:    make(map[string]RetryConfig, len(retryPolicyNames)),
		Context: ContextConfig{
			LookbackDays: 30,
		},
		Store: StoreConfig{
			Driver: "memory",
		},
	}

	for _, name := range []string{"graph", "search", "market"} {
		switch name {
		case "graph":
			cfg.Backends.Graph = BackendConfig{TimeoutMs: 5_000, Timeout: 5 * time.Second}
		case "search":
			cfg.Backends.Search = BackendConfig{TimeoutMs: 5_000, Timeout: 5 * time.Second}
		case "market":
			cfg.Backends.Market = BackendConfig{TimeoutMs: 3_000, Timeout: 3 * time.Second}
		}
	}

	for _, name := range breakerNames {
		cfg.Breakers[name] = BreakerConfig{
			FailureThreshold: 5,
			RecoveryS:        30,
			CallTimeoutS:     10,
			HalfOpenProbes:   2,
		}
	}
	for _, name := range retryPolicyNames {
		cfg.Retry[name] = RetryConfig{
			MaxAttempts:   3,
			InitialDelayS: 0.1,
			MaxDelayS:     2,
			Strategy:      "exponential_jitter",
			Jitter:        true,
		}
	}

	return cfg
}
