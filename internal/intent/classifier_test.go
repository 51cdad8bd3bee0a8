package intent

import (
	"testing"

	"github.com/nuri428/ontology-chat/internal/domain"
)

func TestClassifyNewsInquiry(t *testing.T) {
	c := NewClassifier()
	got, confidence := c.Classify("삼성전자 오늘 뉴스 알려줘")
	if got != domain.IntentNews {
		t.Fatalf("expected news_inquiry, got %s (confidence %.2f)", got, confidence)
	}
	if confidence <= DefaultFloor {
		t.Fatalf("expected confidence above floor, got %.2f", confidence)
	}
}

func TestClassifyStockAnalysis(t *testing.T) {
	c := NewClassifier()
	got, _ := c.Classify("삼성전자 주가 전망이 어떻게 되나요")
	if got != domain.IntentStock && got != domain.IntentTrend {
		t.Fatalf("expected stock_analysis or trend, got %s", got)
	}
}

func TestClassifyComparison(t *testing.T) {
	c := NewClassifier()
	got, _ := c.Classify("삼성전자와 sk하이닉스 비교 분석해줘")
	if got != domain.IntentComparison {
		t.Fatalf("expected comparison, got %s", got)
	}
}

func TestClassifyUnknownBelowFloor(t *testing.T) {
	c := NewClassifier()
	got, confidence := c.Classify("point me to the nearest coffee shop")
	if got != domain.IntentUnknown {
		t.Fatalf("expected unknown for an out-of-domain query, got %s", got)
	}
	if confidence != DefaultFloor {
		t.Fatalf("expected confidence pinned at the floor, got %.2f", confidence)
	}
}

func TestClassifyEmptyQueryIsUnknown(t *testing.T) {
	c := NewClassifier()
	got, confidence := c.Classify("")
	if got != domain.IntentUnknown || confidence != DefaultFloor {
		t.Fatalf("expected unknown/floor for empty query, got %s/%.2f", got, confidence)
	}
}

func TestClassifyCustomFloor(t *testing.T) {
	c := NewClassifier(WithFloor(0.9))
	got, confidence := c.Classify("삼성전자 주가 설명해줘")
	if got != domain.IntentUnknown {
		t.Fatalf("expected a strict floor to force unknown (confidence %.2f), got %s", confidence, got)
	}
}
