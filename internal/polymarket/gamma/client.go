// Package gamma consume Polymarket gamma endpoints.
package gamma

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/daszybak/fastbet/pkg/httpclient"
)

const (
	DefaultBaseURL = "https://gamma-api.polymarket.com"
	requestTimeout = 10 * time.Second
	// eventsPerTag is how many of the newest open events are read per tag.
	eventsPerTag = 50
	// eventsPerSlug bounds the lookup of one event and its children.
	eventsPerSlug = 5
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

// New returns a client for baseURL that sends at most limit requests per
// second with the given burst. A zero limit disables throttling.
func New(baseURL string, limit rate.Limit, burst int) *Client {
	if limit <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    baseURL,
		limiter:    rate.NewLimiter(limit, burst),
	}
}

// Sports lists the sport metadata records, including their tag IDs.
func (c *Client) Sports(ctx context.Context) ([]Sport, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for gamma rate limit: %w", err)
	}
	return httpclient.GetResource[[]Sport](ctx, c.httpClient, c.baseURL, "/sports", []int{http.StatusOK})
}

// EventsByTag returns the newest open events carrying tagID.
func (c *Client) EventsByTag(ctx context.Context, tagID int) ([]*Event, error) {
	q := url.Values{}
	q.Set("tag_id", strconv.Itoa(tagID))
	q.Set("closed", "false")
	q.Set("limit", strconv.Itoa(eventsPerTag))
	q.Set("order", "id")
	q.Set("ascending", "false")
	return c.events(ctx, q)
}

// EventsBySlug returns the open events whose slug is exactly slug.
func (c *Client) EventsBySlug(ctx context.Context, slug string) ([]*Event, error) {
	q := url.Values{}
	q.Set("slug", slug)
	q.Set("closed", "false")
	q.Set("limit", strconv.Itoa(eventsPerSlug))
	return c.events(ctx, q)
}

func (c *Client) events(ctx context.Context, q url.Values) ([]*Event, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for gamma rate limit: %w", err)
	}
	events, err := httpclient.GetResource[[]*Event](ctx, c.httpClient, c.baseURL, "/events?"+q.Encode(), []int{http.StatusOK})
	if err != nil {
		return nil, fmt.Errorf("couldn't get events: %w", err)
	}
	return events, nil
}
