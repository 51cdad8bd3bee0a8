package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/nuri428/ontology-chat/internal/coreerr"
)

// httpDoer is the minimal surface this package needs from retryablehttp's
// standard *http.Client, so tests can substitute a fake transport.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// newRetryableClient builds a retryablehttp client tuned for short,
// request-scoped backend calls. Its own internal retries are capped low
// because the authoritative retry policy lives in internal/resilience —
// this is defense against single dropped TCP connections, not a substitute
// for §4.2's retry policy.
func newRetryableClient() *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 1
	rc.Logger = nil
	return rc.StandardClient()
}

// postJSON issues a POST with a JSON body and decodes a JSON response,
// classifying failures into coreerr kinds.
func postJSON(ctx context.Context, client httpDoer, stage, url string, body, out interface{}) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return coreerr.New(coreerr.KindValidation, stage, "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return coreerr.New(coreerr.KindValidation, stage, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return coreerr.New(coreerr.KindTimeout, stage, "deadline exceeded", err)
		}
		return coreerr.New(coreerr.KindUnavailable, stage, "request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return coreerr.New(coreerr.KindUnavailable, stage, "read response", err)
	}

	if resp.StatusCode >= 500 {
		return coreerr.New(coreerr.KindUnavailable, stage, fmt.Sprintf("upstream %d", resp.StatusCode), nil)
	}
	if resp.StatusCode >= 400 {
		return coreerr.New(coreerr.KindQuery, stage, fmt.Sprintf("upstream %d: %s", resp.StatusCode, string(payload)), nil)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return coreerr.New(coreerr.KindParse, stage, "decode response", err)
	}
	return nil
}

// deadlineTimeout returns the remaining time until ctx's deadline, or the
// fallback if ctx carries no deadline. Used so adapters never hand a
// downstream timeout larger than the caller's effective deadline (§4.1).
func deadlineTimeout(ctx context.Context, fallback time.Duration) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if remaining := time.Until(dl); remaining > 0 {
			return remaining
		}
		return 0
	}
	return fallback
}
