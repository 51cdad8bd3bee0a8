package workflow

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nuri428/ontology-chat/internal/domain"
)

func analyzeQueryPrompt(text string) string {
	return fmt.Sprintf(`Analyze this query about Korean equities, industries, or news and
respond with ONLY a JSON object of this exact shape (no prose, no markdown fence):
{"keywords": ["..."], "entities": {"companies": ["..."], "products": ["..."], "sectors": ["..."], "tickers": ["..."]},
 "analysis_requirements": ["..."], "focus_areas": ["..."], "expected_output_type": "brief|standard|comprehensive"}

Query: %s`, text)
}

func planAnalysisPrompt(s State) string {
	return fmt.Sprintf(`Produce an analysis plan for this query as ONLY a JSON object of this
exact shape (no prose, no markdown fence):
{"primary_focus": ["..."], "comparison_axes": ["..."], "required_data_types": ["news|company|event|financial|analysis|stock"],
 "key_questions": ["..."], "approach": "comparative|descriptive|diagnostic|predictive"}

Query: %s
Intent: %s
Focus areas: %s`, s.Query.Text, s.Query.Intent, strings.Join(s.FocusAreas, ", "))
}

func mergeQueryAnalysis(q domain.Query, obj map[string]interface{}) domain.Query {
	out := q
	if kw := stringListField(obj, "keywords"); len(kw) > 0 {
		out.Keywords = kw
	}
	if ent, ok := obj["entities"].(map[string]interface{}); ok {
		out.Entities = domain.Entities{
			Companies: nonEmptyOr(stringListField(ent, "companies"), q.Entities.Companies),
			Products:  nonEmptyOr(stringListField(ent, "products"), q.Entities.Products),
			Sectors:   nonEmptyOr(stringListField(ent, "sectors"), q.Entities.Sectors),
			Tickers:   nonEmptyOr(stringListField(ent, "tickers"), q.Entities.Tickers),
		}
	}
	return out
}

func nonEmptyOr(a, b []string) []string {
	if len(a) > 0 {
		return a
	}
	return b
}

func stringListField(obj map[string]interface{}, key string) []string {
	raw, ok := obj[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// analyzeQueryCacheRecord is the cache wire shape for node 1's output.
type analyzeQueryCacheRecord struct {
	Keywords             []string        `json:"keywords"`
	Entities             domain.Entities `json:"entities"`
	AnalysisRequirements []string        `json:"analysis_requirements"`
	FocusAreas           []string        `json:"focus_areas"`
	ExpectedOutputType   string          `json:"expected_output_type"`
}

func marshalAnalyzeQuery(delta State) ([]byte, bool) {
	rec := analyzeQueryCacheRecord{
		Keywords:             delta.Query.Keywords,
		Entities:             delta.Query.Entities,
		AnalysisRequirements: delta.AnalysisRequirements,
		FocusAreas:           delta.FocusAreas,
		ExpectedOutputType:   delta.ExpectedOutputType,
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, false
	}
	return b, true
}

func parseAnalyzeQuery(raw string, base domain.Query) (State, bool) {
	var rec analyzeQueryCacheRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return State{}, false
	}
	q := base
	if len(rec.Keywords) > 0 {
		q.Keywords = rec.Keywords
	}
	if len(rec.Entities.Companies)+len(rec.Entities.Products)+len(rec.Entities.Sectors)+len(rec.Entities.Tickers) > 0 {
		q.Entities = rec.Entities
	}
	return State{
		Query:                q,
		AnalysisRequirements: rec.AnalysisRequirements,
		FocusAreas:           rec.FocusAreas,
		ExpectedOutputType:   rec.ExpectedOutputType,
	}, true
}

func mergeAnalysisPlan(plan domain.AnalysisPlan, obj map[string]interface{}) domain.AnalysisPlan {
	out := plan
	if v := stringListField(obj, "primary_focus"); len(v) > 0 {
		out.PrimaryFocus = v
	}
	if v := stringListField(obj, "comparison_axes"); len(v) > 0 {
		out.ComparisonAxes = v
	}
	if v := stringListField(obj, "required_data_types"); len(v) > 0 {
		types := make([]domain.ContextType, 0, len(v))
		for _, t := range v {
			types = append(types, domain.ContextType(t))
		}
		out.RequiredDataTypes = types
	}
	if v := stringListField(obj, "key_questions"); len(v) > 0 {
		out.KeyQuestions = v
	}
	if v, ok := obj["approach"].(string); ok && v != "" {
		out.Approach = domain.ApproachKind(v)
	}
	return out
}

func marshalAnalysisPlan(plan domain.AnalysisPlan) ([]byte, bool) {
	b, err := json.Marshal(plan)
	if err != nil {
		return nil, false
	}
	return b, true
}

func parseAnalysisPlan(raw string) (domain.AnalysisPlan, bool) {
	var plan domain.AnalysisPlan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return domain.AnalysisPlan{}, false
	}
	return plan, true
}
