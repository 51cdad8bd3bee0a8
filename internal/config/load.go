package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// envPrefix namespaces every recognized environment variable, e.g.
// ONTOLOGYCHAT_BACKENDS_GRAPH_URL, ONTOLOGYCHAT_ROUTER_DEEP_THRESHOLD.
const envPrefix = "ONTOLOGYCHAT_"

// Load builds a Config starting from Default(), optionally overlaid by a
// dotenv file (envFile; pass "" to skip) and then by process environment
// variables, which always take precedence. Unset variables leave the
// default untouched, matching §4.14's "recognized options" being a
// non-exhaustive illustrative set rather than a required one.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return Config{}, err
		}
	}

	cfg := Default()
	loadBackends(&cfg)
	loadLM(&cfg)
	loadEmbedder(&cfg)
	loadCache(&cfg)
	loadRouter(&cfg)
	loadBreakers(&cfg)
	loadRetry(&cfg)
	loadContext(&cfg)
	loadTracing(&cfg)
	loadStore(&cfg)
	applyDerivedDurations(&cfg)

	return cfg, nil
}

func loadBackends(cfg *Config) {
	loadBackendConfig("BACKENDS_GRAPH", &cfg.Backends.Graph)
	loadBackendConfig("BACKENDS_SEARCH", &cfg.Backends.Search)
	loadBackendConfig("BACKENDS_MARKET", &cfg.Backends.Market)
}

func loadBackendConfig(prefix string, b *BackendConfig) {
	setString(prefix+"_URL", &b.URL)
	setString(prefix+"_USER", &b.User)
	setString(prefix+"_PASSWORD", &b.Password)
	setString(prefix+"_INDEX", &b.Index)
	setString(prefix+"_DATABASE", &b.Database)
	setInt(prefix+"_TIMEOUT_MS", &b.TimeoutMs)
}

func loadLM(cfg *Config) {
	setString("LM_PROVIDER", &cfg.LM.Provider)
	setString("LM_CHAT_MODEL", &cfg.LM.ChatModel)
	setString("LM_REPORT_MODEL", &cfg.LM.ReportModel)
	setString("LM_BASE_URL", &cfg.LM.BaseURL)
	setString("LM_API_KEY", &cfg.LM.APIKey)
	setInt("LM_TIMEOUT_MS", &cfg.LM.TimeoutMs)
}

func loadEmbedder(cfg *Config) {
	setString("EMBEDDER_MODEL", &cfg.Embedder.Model)
	setString("EMBEDDER_BASE_URL", &cfg.Embedder.BaseURL)
	setInt("EMBEDDER_DIM", &cfg.Embedder.Dim)
}

func loadCache(cfg *Config) {
	setInt("CACHE_L1_MAX_ITEMS", &cfg.Cache.L1.MaxItems)
	setInt("CACHE_L1_MAX_MB", &cfg.Cache.L1.MaxMB)
	setInt("CACHE_L1_DEFAULT_TTL_S", &cfg.Cache.L1.DefaultTTLS)

	setBool("CACHE_L2_ENABLED", &cfg.Cache.L2.Enabled)
	setString("CACHE_L2_URL", &cfg.Cache.L2.URL)
	setString("CACHE_L2_PREFIX", &cfg.Cache.L2.Prefix)
	setInt("CACHE_L2_TTL_S", &cfg.Cache.L2.TTLS)

	setBool("CACHE_L3_ENABLED", &cfg.Cache.L3.Enabled)
	setString("CACHE_L3_DIR", &cfg.Cache.L3.Dir)
	setInt("CACHE_L3_MAX_GB", &cfg.Cache.L3.MaxGB)
	setInt("CACHE_L3_TTL_S", &cfg.Cache.L3.TTLS)
}

func loadRouter(cfg *Config) {
	setFloat("ROUTER_DEEP_THRESHOLD", &cfg.Router.DeepThreshold)
	setBool("ROUTER_FORCE_DEEP_OVERRIDE", &cfg.Router.ForceDeepOverride)
	setInt("ROUTER_DEPTH_TIMEOUTS_S_SHALLOW", &cfg.Router.DepthTimeouts.ShallowS)
	setInt("ROUTER_DEPTH_TIMEOUTS_S_STANDARD", &cfg.Router.DepthTimeouts.StandardS)
	setInt("ROUTER_DEPTH_TIMEOUTS_S_DEEP", &cfg.Router.DepthTimeouts.DeepS)
	setInt("ROUTER_DEPTH_TIMEOUTS_S_COMPREHENSIVE", &cfg.Router.DepthTimeouts.ComprehensiveS)
	setInt("ROUTER_DEEP_MAX_CONCURRENT", &cfg.Router.DeepMaxConcurrent)
	// BackendConcurrency stays a Default()-only map, same as
	// Context.GraphSearchKeys: a per-backend-name map isn't a single env
	// var this loader's explicit-getenv shape can overlay cleanly.
}

// loadBreakers overlays env vars of the form
// ONTOLOGYCHAT_BREAKER_<NAME>_FAILURE_THRESHOLD for each pre-populated
// breaker name; it never introduces a breaker name Default didn't already
// register.
func loadBreakers(cfg *Config) {
	for name, b := range cfg.Breakers {
		prefix := "BREAKER_" + upperSnake(name)
		setInt(prefix+"_FAILURE_THRESHOLD", &b.FailureThreshold)
		setInt(prefix+"_RECOVERY_S", &b.RecoveryS)
		setInt(prefix+"_CALL_TIMEOUT_S", &b.CallTimeoutS)
		setInt(prefix+"_HALF_OPEN_PROBES", &b.HalfOpenProbes)
		cfg.Breakers[name] = b
	}
}

func loadRetry(cfg *Config) {
	for name, r := range cfg.Retry {
		prefix := "RETRY_" + upperSnake(name)
		setInt(prefix+"_MAX_ATTEMPTS", &r.MaxAttempts)
		setFloat(prefix+"_INITIAL_DELAY_S", &r.InitialDelayS)
		setFloat(prefix+"_MAX_DELAY_S", &r.MaxDelayS)
		setString(prefix+"_STRATEGY", &r.Strategy)
		setBool(prefix+"_JITTER", &r.Jitter)
		cfg.Retry[name] = r
	}
}

func loadContext(cfg *Config) {
	setInt("CONTEXT_LOOKBACK_DAYS", &cfg.Context.LookbackDays)
}

func loadTracing(cfg *Config) {
	setBool("TRACING_ENABLED", &cfg.Tracing.Enabled)
	setString("TRACING_SECRET", &cfg.Tracing.Secret)
	setString("TRACING_PUBLIC", &cfg.Tracing.Public)
	setString("TRACING_HOST", &cfg.Tracing.Host)
}

// loadStore overlays the Deep Workflow's persistence driver selection.
// Driver defaults to memory; setting it to mysql or sqlite without a DSN
// fails Validate rather than silently falling back.
func loadStore(cfg *Config) {
	setString("STORE_DRIVER", &cfg.Store.Driver)
	setString("STORE_DSN", &cfg.Store.DSN)
}

// applyDerivedDurations recomputes every *_Ms/*_S integer field's
// time.Duration twin after env overlay, so callers never read a stale
// duration next to an overridden millisecond/second count.
func applyDerivedDurations(cfg *Config) {
	cfg.Backends.Graph.Timeout = time.Duration(cfg.Backends.Graph.TimeoutMs) * time.Millisecond
	cfg.Backends.Search.Timeout = time.Duration(cfg.Backends.Search.TimeoutMs) * time.Millisecond
	cfg.Backends.Market.Timeout = time.Duration(cfg.Backends.Market.TimeoutMs) * time.Millisecond
	cfg.LM.Timeout = time.Duration(cfg.LM.TimeoutMs) * time.Millisecond
	cfg.Cache.L1.DefaultTTL = time.Duration(cfg.Cache.L1.DefaultTTLS) * time.Second
	cfg.Cache.L2.TTL = time.Duration(cfg.Cache.L2.TTLS) * time.Second
	cfg.Cache.L3.TTL = time.Duration(cfg.Cache.L3.TTLS) * time.Second
}

func setString(key string, dst *string) {
	if v, ok := os.LookupEnv(envPrefix + key); ok && v != "" {
		*dst = v
	}
}

func setInt(key string, dst *int) {
	if v, ok := os.LookupEnv(envPrefix + key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(key string, dst *float64) {
	if v, ok := os.LookupEnv(envPrefix + key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(key string, dst *bool) {
	if v, ok := os.LookupEnv(envPrefix + key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func upperSnake(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
