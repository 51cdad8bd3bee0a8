package workflow

import "github.com/nuri428/ontology-chat/graph"

// estimateTokens approximates a token count from raw text length when the
// backend.LM contract (internal/backend) doesn't report real usage. ~4
// characters per token is the commonly cited ratio for both English and
// tokenized Korean text and is only ever used for cost attribution, never
// for budget enforcement.
func estimateTokens(s string) int {
	n := len(s) / 4
	if n == 0 && s != "" {
		n = 1
	}
	return n
}

// recordLLMCall attributes one LM.Generate call to tracker under model and
// nodeID. tracker may be nil (cost tracking disabled); the pricing table
// lookup failing for an unrecognized model is not an error worth
// surfacing to the node's own result, so it's dropped.
func recordLLMCall(tracker *graph.CostTracker, model, nodeID, prompt, response string) {
	if tracker == nil {
		return
	}
	_ = tracker.RecordLLMCall(model, estimateTokens(prompt), estimateTokens(response), nodeID)
}
