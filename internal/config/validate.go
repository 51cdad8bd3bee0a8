package config

import "fmt"

// Validate checks the handful of settings that would make the engine
// unable to start at all (a degenerate router threshold, a cache with no
// capacity). It does not require backend URLs to be set: a Config with
// every backend blank is valid and simply yields Graph/Search/Market
// backends that fail every call, driving the breakers open and the
// degradation level down per internal/degrade — exactly the behavior
// §5's "no backend is assumed always available" describes.
//
// This stays a plain function rather than reaching for a third-party
// validation library: the rule set is five independent numeric bounds,
// not a struct tag DSL, and no pack repo uses one for a config this
// shape (see DESIGN.md).
func (c Config) Validate() error {
	if c.Router.DeepThreshold < 0 || c.Router.DeepThreshold > 1 {
		return fmt.Errorf("config: router.deep_threshold %v must be within [0,1]", c.Router.DeepThreshold)
	}
	if c.Cache.L1.MaxItems <= 0 {
		return fmt.Errorf("config: cache.l1.max_items must be positive")
	}
	if c.Embedder.Dim <= 0 {
		return fmt.Errorf("config: embedder.dim must be positive")
	}
	if c.Router.DepthTimeouts.ShallowS <= 0 || c.Router.DepthTimeouts.StandardS <= 0 ||
		c.Router.DepthTimeouts.DeepS <= 0 || c.Router.DepthTimeouts.ComprehensiveS <= 0 {
		return fmt.Errorf("config: router.depth_timeouts_s entries must all be positive")
	}
	for name, r := range c.Retry {
		if r.MaxAttempts <= 0 {
			return fmt.Errorf("config: retry.%s.max_attempts must be positive", name)
		}
	}
	switch c.Store.Driver {
	case "memory":
	case "mysql", "sqlite":
		if c.Store.DSN == "" {
			return fmt.Errorf("config: store.dsn is required for store.driver %q", c.Store.Driver)
		}
	default:
		return fmt.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	return nil
}
