// Package configclient fetches client-configuration documents from the
// gateway, currently the hashing ignored-fields descriptor.
package configclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/goccy/go-json"

	"github.com/quantrelay/termsync/errs"
	"github.com/quantrelay/termsync/internal/hashing"
)

const (
	defaultTTL      = time.Hour
	defaultAttempts = 3
)

// Client retrieves and caches the hashing ignored-fields descriptor. It
// implements hashing.Provider.
type Client struct {
	httpClient *http.Client
	endpoint   string
	token      string
	ttl        time.Duration
	attempts   int
	clock      func() time.Time

	mu        sync.Mutex
	cached    hashing.IgnoredFields
	fetchedAt time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTTL overrides how long a fetched descriptor stays fresh.
func WithTTL(ttl time.Duration) Option {
	return func(c *Client) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides the time source, primarily for testing.
func WithClock(clock func() time.Time) Option {
	return func(c *Client) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// New constructs a descriptor client for the given endpoint.
func New(endpoint, token string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		endpoint:   endpoint,
		token:      token,
		ttl:        defaultTTL,
		attempts:   defaultAttempts,
		clock:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// IgnoredFields returns the current descriptor, refetching it once the cache
// TTL expires. Fetch failures propagate so callers never hash against a
// stale-unknown field set silently.
func (c *Client) IgnoredFields(ctx context.Context) (hashing.IgnoredFields, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.fetchedAt.IsZero() && c.clock().Sub(c.fetchedAt) < c.ttl {
		return c.cached, nil
	}

	fields, err := c.fetch(ctx)
	if err != nil {
		return hashing.IgnoredFields{}, err
	}
	c.cached = fields
	c.fetchedAt = c.clock()
	return fields, nil
}

// fetch retrieves the descriptor, retrying transient failures with
// exponential backoff.
func (c *Client) fetch(ctx context.Context) (hashing.IgnoredFields, error) {
	backoffCfg := backoff.NewExponentialBackOff()
	backoffCfg.InitialInterval = 100 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return hashing.IgnoredFields{}, fmt.Errorf("fetch ignored fields: %w", ctx.Err())
			case <-time.After(backoffCfg.NextBackOff()):
			}
		}
		fields, retryable, err := c.fetchOnce(ctx)
		if err == nil {
			return fields, nil
		}
		lastErr = err
		if !retryable {
			return hashing.IgnoredFields{}, err
		}
	}
	return hashing.IgnoredFields{}, lastErr
}

func (c *Client) fetchOnce(ctx context.Context) (hashing.IgnoredFields, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return hashing.IgnoredFields{}, false, fmt.Errorf("build descriptor request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("auth-token", c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return hashing.IgnoredFields{}, true,
			errs.New("config/client", errs.CodeNetwork, errs.WithMessage("fetch ignored fields"), errs.WithCause(err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return hashing.IgnoredFields{}, true,
			errs.New("config/client", errs.CodeNetwork, errs.WithMessage("read descriptor body"), errs.WithCause(err))
	}
	if resp.StatusCode >= 500 {
		return hashing.IgnoredFields{}, true,
			errs.New("config/client", errs.CodeUnavailable, errs.WithHTTP(resp.StatusCode),
				errs.WithMessage("descriptor endpoint unavailable"))
	}
	if resp.StatusCode != http.StatusOK {
		return hashing.IgnoredFields{}, false,
			errs.New("config/client", errs.CodeInvalid, errs.WithHTTP(resp.StatusCode),
				errs.WithMessage("descriptor request rejected"))
	}

	var fields hashing.IgnoredFields
	if err := json.Unmarshal(body, &fields); err != nil {
		return hashing.IgnoredFields{}, false, fmt.Errorf("decode ignored fields descriptor: %w", err)
	}
	return fields, false, nil
}
