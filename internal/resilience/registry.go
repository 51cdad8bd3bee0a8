package resilience

import "sync"

// Registry holds one Breaker per named backend, constructed once at init
// and reused (spec.md §4.13's "connection pools... created once at init").
type Registry struct {
	mu       sync.RWMutex
	breakers map[string]*Breaker
	defaults Settings
}

// NewRegistry builds a Registry. defaults apply to any name requested via
// Get that was not pre-registered with explicit Settings.
func NewRegistry(defaults Settings) *Registry {
	return &Registry{
		breakers: make(map[string]*Breaker),
		defaults: defaults,
	}
}

// Register installs a breaker with explicit Settings for name, overwriting
// any previous registration.
func (r *Registry) Register(name string, s Settings) *Breaker {
	b := NewBreaker(name, s)
	r.mu.Lock()
	r.breakers[name] = b
	r.mu.Unlock()
	return b
}

// Get returns the breaker for name, lazily creating one from defaults if
// none was registered.
func (r *Registry) Get(name string) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[name]
	r.mu.RUnlock()
	if ok {
		return b
	}
	return r.Register(name, r.defaults)
}

// Snapshot returns the current state of every registered breaker, keyed by
// name, for the degradation-level derivation and the breaker_state gauge.
func (r *Registry) Snapshot() map[string]BreakerState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]BreakerState, len(r.breakers))
	for name, b := range r.breakers {
		out[name] = b.State()
	}
	return out
}
