package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"shopify-catalog-mirror/internal/domain"
	"shopify-catalog-mirror/internal/ports"

	"github.com/rs/zerolog"
)

const (
	minRequestTimeout   = time.Second
	minRateLimitBackoff = time.Second
	maxBackoff          = 30 * time.Second
	maxLoggedBody       = 500
	maxResponseBytes    = 32 << 20
	defaultPageLimit    = 250
	defaultMaxPages     = 200
)

// ClientConfig configures the admin API client.
type ClientConfig struct {
	APIVersion       string
	RequestTimeout   time.Duration
	MaxRetries       int
	RateLimitBackoff time.Duration
	PageLimit        int
	MaxPages         int

	// BaseURL replaces https://{shop} when set.
	BaseURL string
}

// DefaultClientConfig returns the settings used when nothing is configured.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		APIVersion:       "2024-01",
		RequestTimeout:   10 * time.Second,
		MaxRetries:       3,
		RateLimitBackoff: 2 * time.Second,
		PageLimit:        defaultPageLimit,
		MaxPages:         defaultMaxPages,
	}
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithSleeper replaces the wait between attempts.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = sleep }
}

// Client reads customers, orders and products from the admin REST API,
// retrying rate limits, 5xx responses and transport failures.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	sleep      func(ctx context.Context, d time.Duration) error
	logger     zerolog.Logger
}

var _ ports.UpstreamClient = (*Client)(nil)

// NewClient creates a new admin API client
func NewClient(cfg ClientConfig, logger zerolog.Logger, opts ...Option) *Client {
	if cfg.RequestTimeout < minRequestTimeout {
		cfg.RequestTimeout = minRequestTimeout
	}
	if cfg.RateLimitBackoff < minRateLimitBackoff {
		cfg.RateLimitBackoff = minRateLimitBackoff
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = defaultPageLimit
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = defaultMaxPages
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultClientConfig().APIVersion
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		sleep:      sleepContext,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) FetchCustomers(ctx context.Context, shopDomain, accessToken string) ([]domain.CustomerPayload, error) {
	return fetchAll(ctx, c, shopDomain, accessToken, domain.KindCustomer, nil,
		func(body []byte) ([]domain.CustomerPayload, error) {
			var page domain.CustomersPage
			err := json.Unmarshal(body, &page)
			return page.Customers, err
		})
}

func (c *Client) FetchOrders(ctx context.Context, shopDomain, accessToken string) ([]domain.OrderPayload, error) {
	query := url.Values{"status": {"any"}}
	return fetchAll(ctx, c, shopDomain, accessToken, domain.KindOrder, query,
		func(body []byte) ([]domain.OrderPayload, error) {
			var page domain.OrdersPage
			err := json.Unmarshal(body, &page)
			return page.Orders, err
		})
}

func (c *Client) FetchProducts(ctx context.Context, shopDomain, accessToken string) ([]domain.ProductPayload, error) {
	return fetchAll(ctx, c, shopDomain, accessToken, domain.KindProduct, nil,
		func(body []byte) ([]domain.ProductPayload, error) {
			var page domain.ProductsPage
			err := json.Unmarshal(body, &page)
			return page.Products, err
		})
}

// fetchAll walks the collection through its rel="next" links.
func fetchAll[P any](
	ctx context.Context,
	c *Client,
	shopDomain, accessToken string,
	kind domain.ResourceKind,
	query url.Values,
	decode func([]byte) ([]P, error),
) ([]P, error) {
	next := c.collectionURL(shopDomain, kind, query)
	var items []P

	for page := 1; next != ""; page++ {
		if page > c.cfg.MaxPages {
			c.logger.Warn().
				Str("shop", shopDomain).
				Str("kind", string(kind)).
				Int("maxPages", c.cfg.MaxPages).
				Msg("Stopping pagination at page limit")
			break
		}

		body, header, err := c.getWithRetry(ctx, next, accessToken)
		if err != nil {
			return nil, err
		}

		batch, err := decode(body)
		if err != nil {
			return nil, &APIError{Kind: ErrDecode, Path: pathOf(next), StatusCode: http.StatusOK, Body: truncate(body), Err: err}
		}
		items = append(items, batch...)
		next = nextPageURL(header.Get("Link"))
	}

	return items, nil
}

func (c *Client) collectionURL(shopDomain string, kind domain.ResourceKind, query url.Values) string {
	base := c.cfg.BaseURL
	if base == "" {
		base = "https://" + strings.TrimSuffix(strings.TrimSpace(shopDomain), "/")
	}
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("limit", strconv.Itoa(c.cfg.PageLimit))
	return fmt.Sprintf("%s/admin/api/%s/%s.json?%s", strings.TrimSuffix(base, "/"), c.cfg.APIVersion, kind, q.Encode())
}

// getWithRetry performs one GET with up to MaxRetries additional attempts.
// Only rate limits, 5xx and transport errors are retried.
func (c *Client) getWithRetry(ctx context.Context, rawURL, accessToken string) ([]byte, http.Header, error) {
	attempts := c.cfg.MaxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		body, header, err := c.get(ctx, rawURL, accessToken)
		if err == nil {
			return body, header, nil
		}
		lastErr = err

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.Retryable() || attempt == attempts {
			break
		}

		delay := c.backoff(apiErr, attempt)
		c.logger.Warn().
			Err(err).
			Str("path", apiErr.Path).
			Int("status", apiErr.StatusCode).
			Int("attempt", attempt).
			Int("maxAttempts", attempts).
			Dur("delay", delay).
			Msg("Retrying shopify request")

		if err := c.sleep(ctx, delay); err != nil {
			return nil, nil, err
		}
	}

	return nil, nil, lastErr
}

func (c *Client) backoff(apiErr *APIError, attempt int) time.Duration {
	if apiErr.Kind == ErrRateLimited && apiErr.RetryAfter > 0 {
		return min(apiErr.RetryAfter, maxBackoff)
	}
	delay := time.Duration(float64(c.cfg.RateLimitBackoff) * math.Pow(2, float64(attempt-1)))
	if delay > maxBackoff {
		delay = maxBackoff
	}
	return delay
}

func (c *Client) get(ctx context.Context, rawURL, accessToken string) ([]byte, http.Header, error) {
	path := pathOf(rawURL)

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("X-Shopify-Access-Token", accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, fmt.Errorf("shopify request to %s aborted: %w", path, ctx.Err())
		}
		return nil, nil, &APIError{Kind: ErrTransport, Path: path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, fmt.Errorf("shopify request to %s aborted: %w", path, ctx.Err())
		}
		return nil, nil, &APIError{Kind: ErrTransport, Path: path, StatusCode: resp.StatusCode, Err: err}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, resp.Header, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, nil, &APIError{
			Kind:       ErrRateLimited,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       truncate(body),
			RetryAfter: c.parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	case resp.StatusCode >= 500:
		return nil, nil, &APIError{Kind: ErrServer, Path: path, StatusCode: resp.StatusCode, Body: truncate(body)}
	default:
		return nil, nil, &APIError{Kind: ErrClient, Path: path, StatusCode: resp.StatusCode, Body: truncate(body)}
	}
}

// parseRetryAfter accepts delay-seconds (integer or decimal, as the platform
// sends "2.0") or an HTTP date, and falls back to the configured backoff.
func (c *Client) parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return c.cfg.RateLimitBackoff
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil && secs >= 0 && !math.IsInf(secs, 0) {
		return time.Duration(secs * float64(time.Second))
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
		return 0
	}
	return c.cfg.RateLimitBackoff
}

// nextPageURL extracts the rel="next" target from a Link header.
func nextPageURL(link string) string {
	for _, part := range strings.Split(link, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}
		target := strings.TrimSpace(segments[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		for _, param := range segments[1:] {
			if strings.ReplaceAll(strings.TrimSpace(param), " ", "") == `rel="next"` {
				return strings.Trim(target, "<>")
			}
		}
	}
	return ""
}

func pathOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Path
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
