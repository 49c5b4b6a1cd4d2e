package identity

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// The backend terminates connections when requested too frequently, so every
// flow request goes through a retrying transport: bounded retries with
// exponential backoff on connect errors and transient server statuses.
const (
	retryMax     = 5
	retryWaitMin = 500 * time.Millisecond
	retryWaitMax = 16 * time.Second
)

// newSession builds an HTTP client owning its own cookie jar over a retrying
// transport. One session spans exactly one flow attempt; sessions are never
// shared between attempts.
func newSession() (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = retryMax
	rc.RetryWaitMin = retryWaitMin
	rc.RetryWaitMax = retryWaitMax
	rc.Logger = nil
	rc.CheckRetry = checkRetry

	// The retry layer must stay hop-level: redirect following and the
	// cookie jar both live on the outer client, so the inner client hands
	// every redirect back up instead of chasing it inside the transport.
	// Otherwise Set-Cookie on intermediate hops is lost and the flows'
	// redirect handling never sees the chain.
	rc.HTTPClient.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &http.Client{
		Transport: &retryablehttp.RoundTripper{Client: rc},
		Jar:       jar,
	}, nil
}

// checkRetry retries transient connect-level errors and the server statuses
// 500, 502, and 504. Permanent transport errors, client errors (4xx), and
// well-formed responses are never retried: replaying a login POST can
// corrupt remote session state, so anything beyond transient transport
// trouble surfaces immediately.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		// Permanent failures such as certificate errors or an
		// unfollowable scheme must not replay a login POST; only
		// transient connect-level errors are worth another attempt.
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}

	switch resp.StatusCode {
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusGatewayTimeout:
		return true, nil
	}
	return false, nil
}
