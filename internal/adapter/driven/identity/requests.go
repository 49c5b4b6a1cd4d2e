package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Request helpers shared by both flows. Every transport-level failure comes
// back as a FlowError with KindTransport so flowErr can propagate it.

func (f *Fetcher) get(ctx context.Context, client *http.Client, rawURL string) (*http.Response, error) {
	return f.do(ctx, client, http.MethodGet, rawURL, "", nil, nil)
}

func (f *Fetcher) postForm(ctx context.Context, client *http.Client, rawURL string, form url.Values, extra http.Header) (*http.Response, error) {
	body := ""
	if form != nil {
		body = form.Encode()
	}
	return f.do(ctx, client, http.MethodPost, rawURL, "application/x-www-form-urlencoded", strings.NewReader(body), extra)
}

func (f *Fetcher) postJSON(ctx context.Context, client *http.Client, rawURL string, payload any, extra http.Header) (*http.Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}
	return f.do(ctx, client, http.MethodPost, rawURL, "application/json", bytes.NewReader(data), extra)
}

func (f *Fetcher) do(ctx context.Context, client *http.Client, method, rawURL, contentType string, body io.Reader, extra http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, rawURL, err)
	}

	req.Header.Set("User-Agent", userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, vs := range extra {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &FlowError{
			Kind:    KindTransport,
			Op:      method + " " + rawURL,
			URL:     rawURL,
			Message: "request failed after retries",
			Err:     err,
		}
	}
	return resp, nil
}

// readBody drains and closes the response body.
func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return data, nil
}

// discardBody drains and closes the response body, keeping the session's
// cookie state without holding the payload.
func discardBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
