package proxy

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultTimeout = 60 * time.Second
	maxErrorBody   = 4 << 10
)

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}

// do executes req once and returns the response when the status is 2xx.
// Any other status is returned as an *UpstreamError with the body closed.
func do(hc *http.Client, rec Recorder, provider, operation string, req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		observe(rec, provider, operation, 0, start)
		return nil, fmt.Errorf("%s %s: executing request: %w", provider, operation, err)
	}
	observe(rec, provider, operation, resp.StatusCode, start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		return nil, &UpstreamError{Provider: provider, Status: resp.StatusCode, Body: string(body)}
	}
	return resp, nil
}

func observe(rec Recorder, provider, operation string, status int, start time.Time) {
	if rec != nil {
		rec.ObserveUpstream(provider, operation, status, time.Since(start))
	}
}
