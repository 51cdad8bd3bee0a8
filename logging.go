package ontologychat

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process-level structured logger, grounded on
// codeNERD's zap.NewProductionConfig()-plus-debug-override pattern
// (cmd/nerd/main.go). This is distinct from graph/emit.Emitter, which
// keeps tracing the DAG engine's own per-node execution; NewLogger is for
// process-level messages (request outcomes, backend adapter errors,
// startup/shutdown).
func NewLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("ontologychat: build logger: %w", err)
	}
	return logger, nil
}
