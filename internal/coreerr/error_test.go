package coreerr

import (
	"errors"
	"testing"
)

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := New(KindUnavailable, "graph.search", "backend unreachable", cause)

	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is should unwrap to cause")
	}
	if errors.Unwrap(err) != cause {
		t.Fatalf("Unwrap should return the wrapped cause")
	}
}

func TestErrorIsKindMatching(t *testing.T) {
	err := New(KindTimeout, "market.quote", "deadline exceeded", nil)
	target := &Error{Kind: KindTimeout}

	if !errors.Is(err, target) {
		t.Fatalf("errors.Is should match on Kind when target has no cause")
	}

	other := &Error{Kind: KindQuery}
	if errors.Is(err, other) {
		t.Fatalf("errors.Is should not match a different Kind")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"coreerr.Error", New(KindCircuitOpen, "stage", "open", nil), KindCircuitOpen},
		{"plain error", errors.New("boom"), ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindTimeout, true},
		{KindUnavailable, true},
		{KindValidation, false},
		{KindQuery, false},
		{KindCircuitOpen, false},
		{KindParse, false},
		{KindUpstream, false},
		{KindOverload, false},
		{KindCancelled, false},
	}
	for _, tt := range tests {
		err := New(tt.kind, "stage", "msg", nil)
		if got := Retryable(err); got != tt.want {
			t.Errorf("Retryable(%s) = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestErrorMessageIncludesStageAndMessage(t *testing.T) {
	err := New(KindParse, "deep_reasoning", "malformed JSON", nil)
	msg := err.Error()
	if msg != "deep_reasoning: malformed JSON" {
		t.Fatalf("Error() = %q, want %q", msg, "deep_reasoning: malformed JSON")
	}
}
