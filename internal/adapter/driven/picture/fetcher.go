// Package picture implements the PictureFetcher port for photos referenced
// by URL. Responses are cached in memory (ETag/Last-Modified aware), so
// sending several cards with the same photo downloads it once.
package picture

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gregjones/httpcache"

	"github.com/tbuchmann/postcarder/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PictureFetcher = (*Fetcher)(nil)

// Fetcher retrieves photo bytes over HTTP.
type Fetcher struct {
	http   *http.Client
	logger *slog.Logger
}

// NewFetcher creates a Fetcher with an in-memory caching transport.
func NewFetcher(logger *slog.Logger) *Fetcher {
	return NewFetcherWithClient(httpcache.NewMemoryCacheTransport().Client(), logger)
}

// NewFetcherWithClient creates a Fetcher with a custom http.Client.
// Intended for tests.
func NewFetcherWithClient(client *http.Client, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{http: client, logger: logger}
}

// Fetch downloads the photo at the given URL and returns its raw bytes.
// Decoding and validation happen later in the render pipeline.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building picture request for %q: %w", url, err)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching picture %q: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching picture %q: unexpected status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading picture %q: %w", url, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("picture %q is empty", url)
	}

	f.logger.Debug("picture fetched", "url", url, "bytes", len(data))
	return data, nil
}
