package ontologychat

import (
	"context"
	"errors"
	"testing"

	"github.com/nuri428/ontology-chat/internal/coreerr"
	"github.com/nuri428/ontology-chat/internal/domain"
)

type fakeRouter struct {
	report domain.Report
	err    error
	calls  int
}

func (f *fakeRouter) Route(ctx context.Context, q domain.Query) (domain.Report, error) {
	f.calls++
	return f.report, f.err
}

func TestChatRejectsBlankText(t *testing.T) {
	e := New(Deps{Router: &fakeRouter{}})

	_, err := e.Chat(context.Background(), Request{Text: ""})
	if err == nil {
		t.Fatalf("expected a validation error for blank text")
	}
	if coreerr.KindOf(err) != coreerr.KindValidation {
		t.Fatalf("expected KindValidation, got %v", coreerr.KindOf(err))
	}
}

func TestChatReturnsRoutedReport(t *testing.T) {
	router := &fakeRouter{report: domain.Report{
		Type:     domain.IntentNews,
		Markdown: "# result",
		Sources:  []domain.Citation{{URL: "https://example.com", Title: "a story"}},
	}}
	e := New(Deps{Router: router})

	resp, err := e.Chat(context.Background(), Request{Text: "삼성전자 뉴스 알려줘"})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Type != domain.IntentNews {
		t.Fatalf("expected IntentNews, got %v", resp.Type)
	}
	if resp.Markdown != "# result" {
		t.Fatalf("expected markdown to pass through, got %q", resp.Markdown)
	}
	if router.calls != 1 {
		t.Fatalf("expected exactly one Route call, got %d", router.calls)
	}
}

func TestChatPropagatesRouterError(t *testing.T) {
	routeErr := coreerr.New(coreerr.KindUnavailable, "router", "graph backend down", errors.New("boom"))
	router := &fakeRouter{err: routeErr}
	e := New(Deps{Router: router})

	_, err := e.Chat(context.Background(), Request{Text: "SK하이닉스 주가"})
	if !errors.Is(err, routeErr) {
		t.Fatalf("expected the router's error to propagate, got %v", err)
	}
}

func TestCloseIsSafeWithoutACloser(t *testing.T) {
	e := New(Deps{Router: &fakeRouter{}})
	if err := e.Close(context.Background()); err != nil {
		t.Fatalf("Close without a closer should be a no-op, got %v", err)
	}
}

func TestCloseInvokesDepsClose(t *testing.T) {
	called := false
	e := New(Deps{
		Router: &fakeRouter{},
		Close: func(ctx context.Context) error {
			called = true
			return nil
		},
	})
	if err := e.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !called {
		t.Fatalf("expected Deps.Close to be invoked")
	}
}
