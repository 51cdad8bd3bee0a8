package config

import (
	"context"
	"testing"
)

func TestInitBuildsARoutableRuntime(t *testing.T) {
	cfg := Default()
	cfg.Backends.Graph.URL = "http://graph.invalid"
	cfg.Backends.Search.URL = "http://search.invalid"
	cfg.Backends.Market.URL = "http://market.invalid"
	cfg.Embedder.BaseURL = "http://embed.invalid"

	rt, err := Init(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if rt.Router == nil {
		t.Fatalf("expected Init to wire a Router")
	}
	if rt.FastLM == nil || rt.DeepLM == nil {
		t.Fatalf("expected both LM instances to be built")
	}
	if len(rt.Retriers) != len(cfg.Retry) {
		t.Fatalf("expected one Retrier per retry policy, got %d for %d policies", len(rt.Retriers), len(cfg.Retry))
	}
	if rt.Breakers == nil {
		t.Fatalf("expected a breaker registry")
	}

	if err := rt.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestInitRejectsInvalidConfig(t *testing.T) {
	cfg := Default()
	cfg.Embedder.Dim = 0

	if _, err := Init(context.Background(), cfg); err == nil {
		t.Fatalf("expected Init to reject an invalid config before building anything")
	}
}

func TestInitRejectsBadProvider(t *testing.T) {
	cfg := Default()
	cfg.LM.Provider = "not-a-real-provider"

	if _, err := Init(context.Background(), cfg); err == nil {
		t.Fatalf("expected Init to reject an unrecognized lm.provider")
	}
}

func TestInitWiresRedisLayerWhenL2Enabled(t *testing.T) {
	cfg := Default()
	cfg.Cache.L2.Enabled = true
	cfg.Cache.L2.URL = "redis://127.0.0.1:0"

	rt, err := Init(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if rt.redisClient == nil {
		t.Fatalf("expected a redis client to be constructed when cache.l2.enabled")
	}
	_ = rt.Shutdown(context.Background())
}
