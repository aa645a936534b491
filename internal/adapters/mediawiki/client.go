// Package mediawiki implements ports.PageSource against a live MediaWiki
// api.php endpoint. It is used for read-through lookups on a cache miss and
// for ingesting explicit title lists when no dump is available.
package mediawiki

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/corey/dropcache/internal/ports"
)

// Defaults for Options fields left zero.
const (
	DefaultBaseURL   = "https://oldschool.runescape.wiki"
	DefaultTimeout   = 15 * time.Second
	DefaultUserAgent = "dropcache/1.0 (monster drop cache)"

	maxBodyBytes = 8 * 1024 * 1024
)

// Options configures a Client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string

	// HTTPClient overrides the transport. Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client fetches raw page markup through the parse API.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

var _ ports.PageSource = (*Client)(nil)

// New creates a client, filling defaults.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		userAgent: opts.UserAgent,
		http:      hc,
	}
}

// BaseURL returns the wiki root used for page URLs.
func (c *Client) BaseURL() string { return c.baseURL }

// Titles returns nil, nil: a live wiki is not enumerated.
func (c *Client) Titles(context.Context) ([]string, error) {
	return nil, nil
}

type parseResponse struct {
	Parse *struct {
		Title    string `json:"title"`
		Wikitext string `json:"wikitext"`
	} `json:"parse"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

// Fetch returns the wikitext of title, following redirects.
// 404 and "missingtitle" map to ErrPageNotFound; 429 and "ratelimited"
// map to ErrRateLimited.
func (c *Client) Fetch(ctx context.Context, title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("empty title: %w", ports.ErrPageNotFound)
	}

	q := url.Values{}
	q.Set("action", "parse")
	q.Set("page", title)
	q.Set("prop", "wikitext")
	q.Set("redirects", "1")
	q.Set("format", "json")
	q.Set("formatversion", "2")
	endpoint := c.baseURL + "/api.php?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %q: %w", title, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%q: %w", title, ports.ErrPageNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("%q: %w", title, ports.ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("HTTP %d fetching %q", resp.StatusCode, title)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var pr parseResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return "", fmt.Errorf("decoding response for %q: %w", title, err)
	}
	if pr.Error != nil {
		switch pr.Error.Code {
		case "missingtitle", "invalidtitle":
			return "", fmt.Errorf("%q: %w", title, ports.ErrPageNotFound)
		case "ratelimited":
			return "", fmt.Errorf("%q: %w", title, ports.ErrRateLimited)
		}
		return "", fmt.Errorf("api error %s: %s", pr.Error.Code, pr.Error.Info)
	}
	if pr.Parse == nil {
		return "", fmt.Errorf("%q: empty parse response", title)
	}
	return pr.Parse.Wikitext, nil
}
