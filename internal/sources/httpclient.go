package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/helixir/book-content-service/internal/domain"
)

// Response size caps.
const (
	MaxJSONBodySize = 10 << 20

	// MaxTextBodySize caps downloaded book text. Only a preview survives
	// cleaning, so larger files are cut here.
	MaxTextBodySize = 8 << 20
)

// DefaultUserAgent identifies the service to upstream catalogs.
const DefaultUserAgent = "BookContentService/1.0 (+https://github.com/helixir/book-content-service)"

const (
	acceptJSON = "application/json"
	acceptText = "text/plain, text/html;q=0.9, */*;q=0.5"
)

// HTTPClientConfig configures an HTTPClient. Zero values take defaults.
type HTTPClientConfig struct {
	Source     string        // catalog name used in errors
	Timeout    time.Duration // whole call including retries, default 15s
	RateLimit  float64       // requests per second, default 5
	BurstSize  int           // default 5
	MaxRetries int           // default 2
	RetryDelay time.Duration // used when no Retry-After is sent, default 1s
	UserAgent  string
	Accept     string
	Transport  http.RoundTripper
}

func (c *HTTPClientConfig) applyDefaults() {
	setDefault(&c.Source, "source")
	setDefault(&c.Timeout, 15*time.Second)
	setDefault(&c.RateLimit, 5)
	setDefault(&c.BurstSize, 5)
	setDefault(&c.MaxRetries, 2)
	setDefault(&c.RetryDelay, time.Second)
	setDefault(&c.UserAgent, DefaultUserAgent)
	setDefault(&c.Accept, acceptJSON)
}

func setDefault[T comparable](field *T, def T) {
	var zero T
	if *field == zero {
		*field = def
	}
}

// HTTPClient is the shared catalog client: a token bucket in front of every
// attempt, retries on 429 and 5xx, and errors mapped onto the domain kinds.
// It is safe for concurrent use.
type HTTPClient struct {
	client  *http.Client
	limiter *rate.Limiter
	config  HTTPClientConfig
}

// NewHTTPClient builds a client from cfg.
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	cfg.applyDefaults()
	return &HTTPClient{
		client:  &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.BurstSize),
		config:  cfg,
	}
}

// Source returns the catalog name used in errors.
func (c *HTTPClient) Source() string { return c.config.Source }

// Timeout returns the per-call deadline.
func (c *HTTPClient) Timeout() time.Duration { return c.config.Timeout }

// Do sends req, retrying throttled and failed attempts. Statuses other than
// 429 and 5xx are returned to the caller as-is.
//
// Timeout bounds the whole call: every attempt, the pauses between them and
// reading the returned body. A pause that would not fit in what is left of
// the deadline ends the call with the last failure instead of sleeping.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", c.config.Accept)
	}

	ctx, cancel := context.WithTimeout(req.Context(), c.config.Timeout)
	req = req.WithContext(ctx)

	resp, err := c.do(ctx, req)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

func (c *HTTPClient) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, c.classify(fmt.Errorf("rate limiter wait: %w", err))
		}

		resp, err := c.client.Do(req)
		delay := c.config.RetryDelay
		var failure error

		switch {
		case err != nil:
			if isTimeout(err) || errors.Is(err, context.Canceled) {
				return nil, c.classify(err)
			}
			failure = c.classify(err)
		case retryable(resp.StatusCode):
			drain(resp)
			delay = c.retryAfter(resp)
			failure = c.exhausted(resp.StatusCode, delay, attempt+1)
		default:
			return resp, nil
		}

		if attempt == c.config.MaxRetries || !fitsDeadline(ctx, delay) {
			return nil, failure
		}
		if err := sleep(ctx, delay); err != nil {
			return nil, c.classify(err)
		}
		if req.GetBody != nil {
			if req.Body, err = req.GetBody(); err != nil {
				return nil, c.classify(fmt.Errorf("rewind request body: %w", err))
			}
		}
	}
}

// exhausted is the error for a retryable status the client stops retrying.
func (c *HTTPClient) exhausted(status int, retryAfter time.Duration, attempts int) error {
	if status == http.StatusTooManyRequests {
		return domain.NewRateLimitError(c.config.Source, retryAfter)
	}
	return domain.NewHTTPError(c.config.Source, status, fmt.Sprintf("gave up after %d attempts", attempts))
}

// fitsDeadline reports whether ctx leaves room to wait d and try again.
func fitsDeadline(ctx context.Context, d time.Duration) bool {
	deadline, ok := ctx.Deadline()
	return !ok || time.Until(deadline) > d
}

// cancelOnClose releases the call deadline once the body is consumed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

// GetJSON decodes the 2xx JSON body at rawURL into out.
func (c *HTTPClient) GetJSON(ctx context.Context, rawURL string, out any) error {
	resp, err := c.get(ctx, rawURL, acceptJSON)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(io.LimitReader(resp.Body, MaxJSONBodySize)).Decode(out); err != nil {
		if isTimeout(err) {
			return c.classify(err)
		}
		return domain.NewParseError(c.config.Source, err)
	}
	return nil
}

// GetText returns at most MaxTextBodySize bytes of the 2xx body at rawURL.
func (c *HTTPClient) GetText(ctx context.Context, rawURL string) (string, error) {
	resp, err := c.get(ctx, rawURL, acceptText)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxTextBodySize))
	if err != nil {
		return "", c.classify(err)
	}
	return string(body), nil
}

func (c *HTTPClient) get(ctx context.Context, rawURL, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, domain.NewNetworkError(c.config.Source, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", accept)

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, domain.NewHTTPError(c.config.Source, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return resp, nil
}

// classify maps a transport error onto the domain error kinds. Errors that
// already carry a kind pass through.
func (c *HTTPClient) classify(err error) error {
	for _, kind := range []error{domain.ErrTimeout, domain.ErrNetwork, domain.ErrHTTPStatus, domain.ErrRateLimited} {
		if errors.Is(err, kind) {
			return err
		}
	}
	if isTimeout(err) {
		return domain.NewTimeoutError(c.config.Source, c.config.Timeout, err)
	}
	return domain.NewNetworkError(c.config.Source, err)
}

// retryAfter honours a Retry-After header in seconds or HTTP-date form.
func (c *HTTPClient) retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return c.config.RetryDelay
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500 && status <= 599
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) && netErr.Timeout()
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
