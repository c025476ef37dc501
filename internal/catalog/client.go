package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"jvsview/internal/httputil"
	"jvsview/internal/models"
)

// ErrNotFound is returned when the server does not know the requested stream.
var ErrNotFound = fmt.Errorf("stream %w", models.ErrNotFound)

// Client talks to the JVS stream listing API. Every call is a fresh request;
// nothing is cached.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRateLimit caps outbound requests per second. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewClient returns a client for the API rooted at baseURL. Resource paths
// are appended to the base, so "http://host:8081/" and "http://host:8081"
// both resolve "streams" to "http://host:8081/streams".
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if err := httputil.ValidateURL(baseURL); err != nil {
		return nil, err
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	c := &Client{
		baseURL: baseURL,
		http:    httputil.NewClient(),
		limiter: rate.NewLimiter(rate.Inf, 0),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *Client) BaseURL() string { return c.baseURL }

// ListStreams fetches the current catalog. Entries keep the server's order.
func (c *Client) ListStreams(ctx context.Context) ([]models.StreamSummary, error) {
	var streams []models.StreamSummary
	if err := c.getJSON(ctx, "streams", &streams); err != nil {
		return nil, fmt.Errorf("listing streams: %w", err)
	}
	if streams == nil {
		streams = []models.StreamSummary{}
	}
	return streams, nil
}

// GetStreamDetail fetches the playback details of one stream.
func (c *Client) GetStreamDetail(ctx context.Context, id string) (models.StreamDetail, error) {
	if id == "" {
		return models.StreamDetail{}, errors.New("stream id is required")
	}
	var d models.StreamDetail
	if err := c.getJSON(ctx, "streams/"+url.PathEscape(id), &d); err != nil {
		return models.StreamDetail{}, fmt.Errorf("fetching stream %s: %w", id, err)
	}
	if d.ManifestLocator == "" {
		return models.StreamDetail{}, fmt.Errorf("fetching stream %s: response has no manifest", id)
	}
	return d, nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer httputil.DrainBody(resp)

	body, err := httputil.ReadBody(resp)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, httputil.Truncate(body, 200))
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
