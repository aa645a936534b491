package socket

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
)

// Per-call deadlines. Lookups may hit the live wiki; ingests walk a whole dump.
const (
	defaultTimeout = 5 * time.Second
	lookupTimeout  = 60 * time.Second
	ingestTimeout  = 2 * time.Hour
)

// Client connects to the dropcache daemon over a Unix socket.
type Client struct {
	sockPath string
}

// NewClient creates a client that will connect to the given socket path.
func NewClient(sockPath string) *Client {
	return &Client{sockPath: sockPath}
}

// Search sends a search request and returns the result.
func (c *Client) Search(query string, limit int) (*SearchResult, error) {
	var result SearchResult
	err := c.do(MethodSearch, SearchParams{Query: query, Limit: limit}, &result, defaultTimeout)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Lookup searches and falls back to the live wiki on a miss.
func (c *Client) Lookup(query string, limit int) (*SearchResult, error) {
	var result SearchResult
	err := c.do(MethodLookup, SearchParams{Query: query, Limit: limit}, &result, lookupTimeout)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Get fetches one entry by title.
func (c *Client) Get(title string) (*GetResult, error) {
	var result GetResult
	if err := c.do(MethodGet, TitleParams{Title: title}, &result, defaultTimeout); err != nil {
		return nil, err
	}
	return &result, nil
}

// Stats returns the cache statistics.
func (c *Client) Stats() (*StatsResult, error) {
	var result StatsResult
	if err := c.do(MethodStats, nil, &result, defaultTimeout); err != nil {
		return nil, err
	}
	return &result, nil
}

// Health sends a health check request.
func (c *Client) Health() (*HealthResult, error) {
	var result HealthResult
	if err := c.do(MethodHealth, nil, &result, defaultTimeout); err != nil {
		return nil, err
	}
	return &result, nil
}

// Remove deletes one entry.
func (c *Client) Remove(title string) (*RemoveResult, error) {
	var result RemoveResult
	if err := c.do(MethodRemove, TitleParams{Title: title}, &result, defaultTimeout); err != nil {
		return nil, err
	}
	return &result, nil
}

// Clear empties the cache.
func (c *Client) Clear() (*ClearResult, error) {
	var result ClearResult
	if err := c.do(MethodClear, nil, &result, defaultTimeout); err != nil {
		return nil, err
	}
	return &result, nil
}

// Stale lists (or removes) entries older than maxAge.
func (c *Client) Stale(maxAge time.Duration, remove bool) (*StaleResult, error) {
	var result StaleResult
	params := StaleParams{MaxAge: maxAge.String(), Remove: remove}
	if err := c.do(MethodStale, params, &result, defaultTimeout); err != nil {
		return nil, err
	}
	return &result, nil
}

// Save asks the daemon to persist its snapshot now.
func (c *Client) Save() (*SaveResult, error) {
	var result SaveResult
	if err := c.do(MethodSave, nil, &result, lookupTimeout); err != nil {
		return nil, err
	}
	return &result, nil
}

// Ingest asks the daemon to ingest a dump directory, or the given titles
// from the live wiki, into its cache.
func (c *Client) Ingest(params IngestParams) (*IngestResult, error) {
	var result IngestResult
	if err := c.do(MethodIngest, params, &result, ingestTimeout); err != nil {
		return nil, err
	}
	return &result, nil
}

// Shutdown sends a shutdown request to the daemon.
func (c *Client) Shutdown() error {
	_, err := c.call(Request{ID: uuid.NewString(), Method: MethodShutdown}, defaultTimeout)
	return err
}

// Ping checks if the daemon is reachable.
func (c *Client) Ping() bool {
	conn, err := net.DialTimeout("unix", c.sockPath, 500*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// do sends method with params and decodes the result into out.
func (c *Client) do(method string, params, out any, timeout time.Duration) error {
	resp, err := c.call(Request{ID: uuid.NewString(), Method: method, Params: params}, timeout)
	if err != nil {
		return err
	}

	resultJSON, err := json.Marshal(resp.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := json.Unmarshal(resultJSON, out); err != nil {
		return fmt.Errorf("unmarshal result: %w", err)
	}
	return nil
}

func (c *Client) call(req Request, timeout time.Duration) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.sockPath, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	// Set deadline for the whole request/response
	conn.SetDeadline(time.Now().Add(timeout))

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		return nil, fmt.Errorf("empty response")
	}

	var resp Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("server error: %s", resp.Error)
	}
	if resp.ID != req.ID {
		return nil, fmt.Errorf("response id %q does not match request %q", resp.ID, req.ID)
	}
	return &resp, nil
}
