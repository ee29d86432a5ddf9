package okta

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gps-prasad/aws-okta-mcp-server/internal/errors"
	"github.com/gps-prasad/aws-okta-mcp-server/internal/logging"
)

// apiErrorEnvelope is the standard Okta error body.
type apiErrorEnvelope struct {
	ErrorCode    string `json:"errorCode"`
	ErrorSummary string `json:"errorSummary"`
	ErrorID      string `json:"errorId"`
}

// Client is the REST implementation of Directory. It owns one http.Client
// (and therefore one connection pool) and is safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger

	// Per-endpoint rate limit windows: while a window is open, calls fail
	// fast with the retry-after hint instead of touching the remote API.
	rateLimits map[string]time.Time
	rateMux    sync.Mutex

	now func() time.Time
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient substitutes the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// NewClient creates an authenticated Okta directory client.
func NewClient(orgURL, apiToken string, options ...ClientOption) (*Client, error) {
	if orgURL == "" || apiToken == "" {
		return nil, errors.New(errors.Configuration,
			"Okta configuration required: set OKTA_CLIENT_ORGURL and OKTA_API_TOKEN")
	}
	client := &Client{
		baseURL:    strings.TrimRight(orgURL, "/"),
		token:      apiToken,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		rateLimits: make(map[string]time.Time),
		now:        time.Now,
	}
	for _, option := range options {
		option(client)
	}
	return client, nil
}

// List implements Directory.
func (c *Client) List(resource Resource, opts ListOptions) Pager {
	return &restPager{
		client:   c,
		resource: resource,
		opts:     opts,
		hasNext:  true,
	}
}

// Get implements Directory.
func (c *Client) Get(ctx context.Context, resource Resource, id string) (Entity, error) {
	path, err := resource.entityPath(id)
	if err != nil {
		return nil, errors.New(errors.InternalError, err.Error())
	}
	body, _, err := c.do(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	return Entity(body), nil
}

// do executes one GET against the API and returns the body plus the next
// page cursor extracted from the Link header.
func (c *Client) do(ctx context.Context, path string, query url.Values) ([]byte, string, error) {
	if until, limited := c.rateLimitedUntil(path); limited {
		retryAfter := int(time.Until(until).Seconds()) + 1
		return nil, "", errors.Newf(errors.RateLimited,
			"Okta API rate limit in effect for %s", path).WithRetryAfter(retryAfter)
	}

	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, "", errors.New(errors.InternalError, "building request").WithCause(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "SSWS "+c.token)

	logging.Debug(c.logger, "directory request", "path", path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", errors.New(errors.Cancelled, "request cancelled").WithCause(ctx.Err())
		}
		return nil, "", errors.New(errors.Upstream, "Okta API unreachable").WithCause(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", errors.New(errors.Upstream, "reading Okta response").WithCause(err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := c.retryAfterSeconds(resp)
		c.openRateLimitWindow(path, retryAfter)
		return nil, "", errors.New(errors.RateLimited,
			"Okta API rate limit exceeded").WithRetryAfter(retryAfter)

	case resp.StatusCode == http.StatusNotFound:
		return nil, "", errors.Newf(errors.NotFound, "resource not found: %s", path).
			WithDetails(c.decodeEnvelope(body))

	case resp.StatusCode < 200 || resp.StatusCode > 299:
		envelope := c.decodeEnvelope(body)
		message := fmt.Sprintf("Okta API error (status %d)", resp.StatusCode)
		if envelope != nil && envelope.ErrorSummary != "" {
			message = fmt.Sprintf("Okta API error %s: %s", envelope.ErrorCode, envelope.ErrorSummary)
		}
		return nil, "", errors.New(errors.Upstream, message).
			WithDetails(map[string]any{"status": resp.StatusCode})
	}

	return body, nextCursorFromLink(resp.Header), nil
}

func (c *Client) decodeEnvelope(body []byte) *apiErrorEnvelope {
	var envelope apiErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.ErrorCode == "" {
		return nil
	}
	return &envelope
}

// retryAfterSeconds derives a retry hint from the 429 response headers.
func (c *Client) retryAfterSeconds(resp *http.Response) int {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	if v := resp.Header.Get("X-Rate-Limit-Reset"); v != "" {
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil {
			if delta := int(time.Unix(epoch, 0).Sub(c.now()).Seconds()); delta > 0 {
				return delta
			}
		}
	}
	return 60
}

func (c *Client) openRateLimitWindow(endpoint string, seconds int) {
	c.rateMux.Lock()
	defer c.rateMux.Unlock()
	c.rateLimits[endpoint] = c.now().Add(time.Duration(seconds) * time.Second)
	logging.Warn(c.logger, "rate limit hit", "endpoint", endpoint, "reset_seconds", seconds)
}

func (c *Client) rateLimitedUntil(endpoint string) (time.Time, bool) {
	c.rateMux.Lock()
	defer c.rateMux.Unlock()
	until, ok := c.rateLimits[endpoint]
	if !ok {
		return time.Time{}, false
	}
	if c.now().After(until) {
		delete(c.rateLimits, endpoint)
		return time.Time{}, false
	}
	return until, true
}

// nextCursorFromLink extracts the `after` cursor of the rel="next" link.
func nextCursorFromLink(header http.Header) string {
	for _, link := range header.Values("Link") {
		if !strings.Contains(link, `rel="next"`) {
			continue
		}
		start := strings.Index(link, "<")
		end := strings.Index(link, ">")
		if start == -1 || end == -1 || end <= start {
			continue
		}
		parsed, err := url.Parse(link[start+1 : end])
		if err != nil {
			continue
		}
		if after := parsed.Query().Get("after"); after != "" {
			return after
		}
	}
	return ""
}

// restPager implements Pager over the REST API's Link-header pagination.
type restPager struct {
	client   *Client
	resource Resource
	opts     ListOptions

	cursor  string
	started bool
	hasNext bool
	closed  bool
	mu      sync.Mutex
}

func (p *restPager) Next(ctx context.Context) (*Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, errors.New(errors.InternalError, "pager already closed")
	}
	if !p.hasNext {
		return nil, nil
	}

	path, err := p.resource.apiPath()
	if err != nil {
		return nil, errors.New(errors.InternalError, err.Error())
	}

	query := p.buildQuery()
	body, nextCursor, err := p.client.do(ctx, path, query)
	if err != nil {
		return nil, err
	}

	var entities []Entity
	if err := json.Unmarshal(body, &entities); err != nil {
		// Point-shaped responses arrive for some scoped listings; wrap
		// a single object as a one-entity page.
		entities = []Entity{Entity(body)}
	}

	p.started = true
	p.cursor = nextCursor
	p.hasNext = nextCursor != ""

	return &Page{Entities: entities, NextCursor: nextCursor}, nil
}

func (p *restPager) buildQuery() url.Values {
	query := url.Values{}
	opts := p.opts
	if opts.Query != "" {
		query.Set("q", opts.Query)
	}
	if opts.Search != "" {
		query.Set("search", opts.Search)
		if opts.SortBy != "" {
			query.Set("sortBy", opts.SortBy)
		}
		if opts.SortOrder != "" {
			query.Set("sortOrder", opts.SortOrder)
		}
	}
	if opts.Filter != "" {
		query.Set("filter", opts.Filter)
	}
	if opts.Since != "" {
		query.Set("since", opts.Since)
	}
	if opts.Until != "" {
		query.Set("until", opts.Until)
	}
	if p.resource.Kind == KindLogEvents && opts.SortOrder != "" {
		query.Set("sortOrder", opts.SortOrder)
	}
	if opts.Expand != "" {
		query.Set("expand", opts.Expand)
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if p.started {
		if p.cursor != "" {
			query.Set("after", p.cursor)
		}
	} else if opts.After != "" {
		query.Set("after", opts.After)
	}
	return query
}

func (p *restPager) HasNext() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed && p.hasNext
}

func (p *restPager) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.hasNext = false
	return nil
}
