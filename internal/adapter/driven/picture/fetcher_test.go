package picture

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gregjones/httpcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("jpeg-bytes"))
	}))
	t.Cleanup(srv.Close)

	f := NewFetcherWithClient(srv.Client(), quietLogger())
	data, err := f.Fetch(context.Background(), srv.URL+"/photo.jpg")

	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), data)
}

func TestFetch_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	f := NewFetcherWithClient(srv.Client(), quietLogger())
	_, err := f.Fetch(context.Background(), srv.URL+"/missing.jpg")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestFetch_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	t.Cleanup(srv.Close)

	f := NewFetcherWithClient(srv.Client(), quietLogger())
	_, err := f.Fetch(context.Background(), srv.URL+"/blank.jpg")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestFetch_CachesByETag(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		fmt.Fprint(w, "jpeg-bytes")
	}))
	t.Cleanup(srv.Close)

	f := NewFetcherWithClient(httpcache.NewMemoryCacheTransport().Client(), quietLogger())
	ctx := context.Background()

	first, err := f.Fetch(ctx, srv.URL+"/photo.jpg")
	require.NoError(t, err)

	second, err := f.Fetch(ctx, srv.URL+"/photo.jpg")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	// Both requests reach the server, but the second is answered from cache
	// via a 304 revalidation.
	assert.Equal(t, int32(2), hits.Load())
}
