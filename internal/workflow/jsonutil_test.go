package workflow

import "testing"

func TestExtractObjectPrefersLargestBalancedSpan(t *testing.T) {
	raw := `Sure, here you go: {"why": {"causes": ["demand"]}, "nested": {"x": 1}} and also {"x":1}`
	obj, ok := extractObject(raw, "why")
	if !ok {
		t.Fatalf("expected a parseable object")
	}
	if _, hasWhy := obj["why"]; !hasWhy {
		t.Fatalf("expected the larger span containing 'why' to be chosen, got %v", obj)
	}
}

func TestExtractObjectFallsBackWhenRequiredKeyMissing(t *testing.T) {
	raw := `{"unrelated": true}`
	_, ok := extractObject(raw, "why", "how", "what_if", "so_what")
	if ok {
		t.Fatalf("expected no match since none of the required keys are present")
	}
}

func TestExtractObjectIgnoresBracesInsideStringLiterals(t *testing.T) {
	raw := `{"why": {"analysis": "cost up because of {policy change}"}}`
	obj, ok := extractObject(raw, "why")
	if !ok {
		t.Fatalf("expected object to parse despite literal braces in a string value")
	}
	why, _ := obj["why"].(map[string]interface{})
	if why["analysis"] != "cost up because of {policy change}" {
		t.Fatalf("expected string literal to survive brace-span extraction, got %v", why["analysis"])
	}
}

func TestExtractArrayParsesInsightList(t *testing.T) {
	raw := "Here is the result:\n```json\n[{\"title\": \"a\", \"confidence\": 0.5}]\n```"
	var out []rawInsight
	if !extractArray(raw, &out) {
		t.Fatalf("expected array extraction to succeed despite the markdown fence")
	}
	if len(out) != 1 || out[0].Title != "a" {
		t.Fatalf("unexpected parsed result: %+v", out)
	}
}

func TestExtractObjectNoCandidateReturnsFalse(t *testing.T) {
	_, ok := extractObject("no json here at all")
	if ok {
		t.Fatalf("expected no match for non-JSON input")
	}
}
