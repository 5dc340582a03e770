package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/book-content-service/internal/domain"
)

// testClient returns a client tuned for httptest: no throttling and short
// retry pauses.
func testClient(cfg HTTPClientConfig) *HTTPClient {
	setDefault(&cfg.Source, "test")
	setDefault(&cfg.RateLimit, 100)
	setDefault(&cfg.BurstSize, 10)
	setDefault(&cfg.RetryDelay, 10*time.Millisecond)
	return NewHTTPClient(cfg)
}

// catalog counts the requests it serves and answers with the handler.
func catalog(t *testing.T, h func(n int32, w http.ResponseWriter, r *http.Request)) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h(hits.Add(1), w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func get(t *testing.T, c *HTTPClient, url string) (*http.Response, error) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	require.NoError(t, err)
	return c.Do(req)
}

func TestNewHTTPClient_Defaults(t *testing.T) {
	c := NewHTTPClient(HTTPClientConfig{})

	assert.Equal(t, "source", c.Source())
	assert.Equal(t, 15*time.Second, c.Timeout())
	assert.Equal(t, DefaultUserAgent, c.config.UserAgent)
	assert.Equal(t, acceptJSON, c.config.Accept)
	assert.Equal(t, 2, c.config.MaxRetries)
	assert.Equal(t, time.Second, c.config.RetryDelay)
	assert.Equal(t, 5, c.limiter.Burst())

	c = NewHTTPClient(HTTPClientConfig{Source: "gutenberg", Timeout: 12 * time.Second, MaxRetries: 4})
	assert.Equal(t, "gutenberg", c.Source())
	assert.Equal(t, 12*time.Second, c.client.Timeout)
	assert.Equal(t, 4, c.config.MaxRetries)
}

func TestHTTPClient_Headers(t *testing.T) {
	var ua, accept string
	srv, _ := catalog(t, func(_ int32, w http.ResponseWriter, r *http.Request) {
		ua, accept = r.Header.Get("User-Agent"), r.Header.Get("Accept")
	})

	resp, err := get(t, testClient(HTTPClientConfig{UserAgent: "Shelf/2.0"}), srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "Shelf/2.0", ua)
	assert.Equal(t, acceptJSON, accept)
}

func TestHTTPClient_Retries(t *testing.T) {
	t.Run("throttled then ok", func(t *testing.T) {
		srv, hits := catalog(t, func(n int32, w http.ResponseWriter, _ *http.Request) {
			if n < 3 {
				w.Header().Set("Retry-After", "0")
				w.WriteHeader(http.StatusTooManyRequests)
			}
		})

		resp, err := get(t, testClient(HTTPClientConfig{MaxRetries: 3}), srv.URL)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, int32(3), hits.Load())
	})

	t.Run("gives up with the last status", func(t *testing.T) {
		srv, hits := catalog(t, func(_ int32, w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		resp, err := get(t, testClient(HTTPClientConfig{MaxRetries: 2}), srv.URL)
		require.Error(t, err)
		assert.Nil(t, resp)
		assert.Equal(t, int32(3), hits.Load())

		var httpErr *domain.HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, http.StatusBadGateway, httpErr.StatusCode)
		assert.ErrorIs(t, err, domain.ErrHTTPStatus)
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		srv, hits := catalog(t, func(_ int32, w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		resp, err := get(t, testClient(HTTPClientConfig{MaxRetries: 3}), srv.URL)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, int32(1), hits.Load())
	})
}

func TestHTTPClient_DeadlineCoversRetries(t *testing.T) {
	t.Run("long retry-after ends the call", func(t *testing.T) {
		srv, hits := catalog(t, func(_ int32, w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)
		})
		c := testClient(HTTPClientConfig{Timeout: 200 * time.Millisecond, MaxRetries: 2})

		began := time.Now()
		err := c.GetJSON(context.Background(), srv.URL, &struct{}{})
		elapsed := time.Since(began)

		require.Error(t, err)
		assert.Less(t, elapsed, 200*time.Millisecond)
		assert.Equal(t, int32(1), hits.Load())

		var rateErr *domain.RateLimitError
		require.True(t, errors.As(err, &rateErr))
		assert.Equal(t, 3*time.Second, rateErr.RetryAfter)
		assert.ErrorIs(t, err, domain.ErrRateLimited)
	})

	t.Run("slow failures share one budget", func(t *testing.T) {
		srv, _ := catalog(t, func(_ int32, w http.ResponseWriter, _ *http.Request) {
			time.Sleep(80 * time.Millisecond)
			w.WriteHeader(http.StatusServiceUnavailable)
		})
		c := testClient(HTTPClientConfig{Timeout: 200 * time.Millisecond, MaxRetries: 5})

		began := time.Now()
		err := c.GetJSON(context.Background(), srv.URL, &struct{}{})
		elapsed := time.Since(began)

		require.Error(t, err)
		assert.Less(t, elapsed, 400*time.Millisecond)
	})

	t.Run("body stays readable after return", func(t *testing.T) {
		srv, _ := catalog(t, func(_ int32, w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"count":1}`))
		})
		c := testClient(HTTPClientConfig{Timeout: time.Second})

		var out struct {
			Count int `json:"count"`
		}
		require.NoError(t, c.GetJSON(context.Background(), srv.URL, &out))
		assert.Equal(t, 1, out.Count)
	})
}

func TestHTTPClient_ErrorKinds(t *testing.T) {
	t.Run("timeout", func(t *testing.T) {
		srv, _ := catalog(t, func(_ int32, _ http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		})

		var out map[string]any
		err := testClient(HTTPClientConfig{Timeout: 50 * time.Millisecond}).GetJSON(context.Background(), srv.URL, &out)
		assert.ErrorIs(t, err, domain.ErrTimeout)
		assert.Equal(t, "timeout", domain.ErrorKind(err))
	})

	t.Run("connection refused", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		var out map[string]any
		err := testClient(HTTPClientConfig{MaxRetries: 1}).GetJSON(context.Background(), url, &out)
		assert.ErrorIs(t, err, domain.ErrNetwork)
	})

	t.Run("non-2xx body becomes the message", func(t *testing.T) {
		srv, _ := catalog(t, func(_ int32, w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(" forbidden \n"))
		})

		_, err := testClient(HTTPClientConfig{}).GetText(context.Background(), srv.URL)
		var httpErr *domain.HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, http.StatusForbidden, httpErr.StatusCode)
		assert.Equal(t, "forbidden", httpErr.Message)
	})

	t.Run("truncated json", func(t *testing.T) {
		srv, _ := catalog(t, func(_ int32, w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"results": [`))
		})

		var out map[string]any
		err := testClient(HTTPClientConfig{}).GetJSON(context.Background(), srv.URL, &out)
		assert.ErrorIs(t, err, domain.ErrParse)
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := testClient(HTTPClientConfig{}).GetText(ctx, "http://127.0.0.1:1/never")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestHTTPClient_RateLimited(t *testing.T) {
	srv, hits := catalog(t, func(int32, http.ResponseWriter, *http.Request) {})
	c := testClient(HTTPClientConfig{RateLimit: 0.1, BurstSize: 1})

	_, err := c.GetText(context.Background(), srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.GetText(ctx, srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load(), "second request must wait for a token")
}

func TestHTTPClient_GetText(t *testing.T) {
	var accept string
	srv, _ := catalog(t, func(_ int32, w http.ResponseWriter, r *http.Request) {
		accept = r.Header.Get("Accept")
		_, _ = w.Write([]byte("CHAPTER I."))
	})

	text, err := testClient(HTTPClientConfig{}).GetText(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "CHAPTER I.", text)
	assert.Contains(t, accept, "text/plain")
}

func TestHTTPClient_RetryAfter(t *testing.T) {
	c := testClient(HTTPClientConfig{RetryDelay: 250 * time.Millisecond})

	tests := []struct {
		header string
		want   time.Duration
	}{
		{"", 250 * time.Millisecond},
		{"3", 3 * time.Second},
		{"0", 250 * time.Millisecond},
		{"soon", 250 * time.Millisecond},
		{"Mon, 02 Jan 2006 15:04:05 GMT", 250 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			resp := &http.Response{Header: http.Header{}}
			if tt.header != "" {
				resp.Header.Set("Retry-After", tt.header)
			}
			assert.Equal(t, tt.want, c.retryAfter(resp))
		})
	}
}

func TestNewProxyTransport(t *testing.T) {
	t.Run("socks5", func(t *testing.T) {
		rt, err := NewProxyTransport("socks5://127.0.0.1:9050")
		require.NoError(t, err)
		tr, ok := rt.(*http.Transport)
		require.True(t, ok)
		assert.NotNil(t, tr.DialContext)
		assert.Nil(t, tr.Proxy)
	})

	t.Run("http", func(t *testing.T) {
		rt, err := NewProxyTransport("http://proxy.internal:3128")
		require.NoError(t, err)
		tr := rt.(*http.Transport)
		require.NotNil(t, tr.Proxy)

		req, _ := http.NewRequest(http.MethodGet, "https://gutendex.com/books", nil)
		u, err := tr.Proxy(req)
		require.NoError(t, err)
		assert.Equal(t, "proxy.internal:3128", u.Host)
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		_, err := NewProxyTransport("ftp://proxy")
		assert.Error(t, err)
	})
}
