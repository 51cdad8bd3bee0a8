// Package degrade derives the system's degradation level from circuit
// breaker state, per spec.md §5: FULL (all backends healthy), DEGRADED
// (one open), MINIMAL (two open — operate on whichever remains, typically
// search), EMERGENCY (all open — serve a canned notice).
package degrade

import "github.com/nuri428/ontology-chat/internal/resilience"

// Level is the closed degradation classification.
type Level string

const (
	LevelFull      Level = "FULL"
	LevelDegraded  Level = "DEGRADED"
	LevelMinimal   Level = "MINIMAL"
	LevelEmergency Level = "EMERGENCY"
)

// Backends names the three backend breakers §5 reasons about. Additional
// registered breakers (e.g. a per-node LM breaker) do not affect the
// degradation level, only these three named backends do.
var Backends = []string{"graph", "search", "market"}

// FromSnapshot derives a Level from a breaker Registry snapshot, counting
// how many of Backends are currently OPEN.
func FromSnapshot(snapshot map[string]resilience.BreakerState) Level {
	open := 0
	for _, name := range Backends {
		if state, ok := snapshot[name]; ok && state.State == resilience.StateOpen {
			open++
		}
	}
	switch open {
	case 0:
		return LevelFull
	case 1:
		return LevelDegraded
	case 2:
		return LevelMinimal
	default:
		return LevelEmergency
	}
}

// EmergencyNotice is the canned response body served when every backend's
// breaker is open.
const EmergencyNotice = "All upstream data sources are currently unavailable. Please try again shortly."
