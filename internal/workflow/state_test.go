package workflow

import (
	"testing"

	"github.com/nuri428/ontology-chat/internal/domain"
)

func TestReduceOverwritesOnlyNonZeroFields(t *testing.T) {
	prev := State{
		Query:          domain.Query{Text: "original"},
		DiversityScore: 0.5,
		Diagnostics:    []string{"first"},
	}
	delta := State{
		DiversityScore: 0.8,
		Diagnostics:    []string{"second"},
	}

	out := Reduce(prev, delta)

	if out.Query.Text != "original" {
		t.Fatalf("expected untouched Query to survive, got %q", out.Query.Text)
	}
	if out.DiversityScore != 0.8 {
		t.Fatalf("expected DiversityScore to be overwritten, got %v", out.DiversityScore)
	}
	if len(out.Diagnostics) != 2 || out.Diagnostics[0] != "first" || out.Diagnostics[1] != "second" {
		t.Fatalf("expected Diagnostics to accumulate, got %v", out.Diagnostics)
	}
}

func TestReduceAccumulatesEnhanceAttempts(t *testing.T) {
	prev := State{EnhanceAttempts: 0}
	delta := State{EnhanceAttempts: 1}
	out := Reduce(prev, delta)
	if out.EnhanceAttempts != 1 {
		t.Fatalf("expected EnhanceAttempts to accumulate to 1, got %d", out.EnhanceAttempts)
	}
}

func TestReducePreservesReportUntilNonEmptyMarkdown(t *testing.T) {
	prev := State{Report: domain.Report{Markdown: "draft"}}
	out := Reduce(prev, State{})
	if out.Report.Markdown != "draft" {
		t.Fatalf("expected Report to survive an empty delta, got %q", out.Report.Markdown)
	}
}
