package backend

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/nuri428/ontology-chat/internal/coreerr"
)

type fakeDoer struct {
	resp *http.Response
	err  error
}

func (f *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

func TestPostJSONSuccess(t *testing.T) {
	client := &fakeDoer{resp: jsonResponse(200, `{"rows":[{"n":"AAPL"}]}`)}
	var out graphSearchResponse
	err := postJSON(context.Background(), client, "graph.search", "http://x/query", graphSearchRequest{Cypher: "MATCH (n) RETURN n"}, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(out.Rows))
	}
}

func TestPostJSONUpstreamServerError(t *testing.T) {
	client := &fakeDoer{resp: jsonResponse(503, `service unavailable`)}
	err := postJSON(context.Background(), client, "market.quote", "http://x/quote", struct{}{}, &quoteResponse{})
	if coreerr.KindOf(err) != coreerr.KindUnavailable {
		t.Fatalf("expected KindUnavailable, got %s", coreerr.KindOf(err))
	}
}

func TestPostJSONUpstreamClientError(t *testing.T) {
	client := &fakeDoer{resp: jsonResponse(400, `bad cypher`)}
	err := postJSON(context.Background(), client, "graph.search", "http://x/query", struct{}{}, &graphSearchResponse{})
	if coreerr.KindOf(err) != coreerr.KindQuery {
		t.Fatalf("expected KindQuery, got %s", coreerr.KindOf(err))
	}
}

func TestPostJSONMalformedBody(t *testing.T) {
	client := &fakeDoer{resp: jsonResponse(200, `not json`)}
	err := postJSON(context.Background(), client, "search.hybrid", "http://x/search", struct{}{}, &hybridSearchResponse{})
	if coreerr.KindOf(err) != coreerr.KindParse {
		t.Fatalf("expected KindParse, got %s", coreerr.KindOf(err))
	}
}

func TestPostJSONTransportFailureIsUnavailable(t *testing.T) {
	client := &fakeDoer{err: io.ErrClosedPipe}
	err := postJSON(context.Background(), client, "graph.search", "http://x/query", struct{}{}, &graphSearchResponse{})
	if coreerr.KindOf(err) != coreerr.KindUnavailable {
		t.Fatalf("expected KindUnavailable on transport failure, got %s", coreerr.KindOf(err))
	}
}

func TestPostJSONDeadlineExceededIsTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	client := &fakeDoer{err: context.DeadlineExceeded}
	err := postJSON(ctx, client, "graph.search", "http://x/query", struct{}{}, &graphSearchResponse{})
	if coreerr.KindOf(err) != coreerr.KindTimeout {
		t.Fatalf("expected KindTimeout, got %s", coreerr.KindOf(err))
	}
}

func TestDeadlineTimeoutFallsBackWithoutDeadline(t *testing.T) {
	got := deadlineTimeout(context.Background(), 2*time.Second)
	if got != 2*time.Second {
		t.Fatalf("expected fallback duration, got %s", got)
	}
}

func TestDeadlineTimeoutUsesContextDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	got := deadlineTimeout(ctx, 10*time.Second)
	if got <= 0 || got > 50*time.Millisecond {
		t.Fatalf("expected remaining deadline duration, got %s", got)
	}
}
