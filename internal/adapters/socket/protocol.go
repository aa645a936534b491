// Package socket implements a JSON-over-Unix-socket protocol for the dropcache daemon.
// The protocol uses newline-delimited JSON: each message is one JSON object + \n.
package socket

import (
	"github.com/corey/dropcache/internal/domain/cache"
	"github.com/corey/dropcache/internal/ports"
)

// Method names for the protocol.
const (
	MethodSearch   = "search"
	MethodLookup   = "lookup"
	MethodGet      = "get"
	MethodStats    = "stats"
	MethodHealth   = "health"
	MethodRemove   = "remove"
	MethodClear    = "clear"
	MethodStale    = "stale"
	MethodSave     = "save"
	MethodIngest   = "ingest"
	MethodShutdown = "shutdown"
)

// Request is the wire format for client-to-server messages.
type Request struct {
	ID     string      `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

// Response is the wire format for server-to-client messages.
type Response struct {
	ID     string      `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// SearchParams is the params for search and lookup requests.
// Limit <= 0 uses the daemon's configured default.
type SearchParams struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// SearchResult is the result of a search or lookup request.
type SearchResult struct {
	Results     []ports.MonsterRecord `json:"results"`
	FromCache   bool                  `json:"fromCache"`
	Count       int                   `json:"count"`
	Suggestions []string              `json:"suggestions,omitempty"`
	Elapsed     string                `json:"elapsed"`
}

// TitleParams names a single cache entry.
type TitleParams struct {
	Title string `json:"title"`
}

// GetResult is the result of a get request.
type GetResult struct {
	Found bool              `json:"found"`
	Entry *ports.CacheEntry `json:"entry,omitempty"`
}

// RemoveResult is the result of a remove request.
type RemoveResult struct {
	Removed bool `json:"removed"`
}

// ClearResult is the result of a clear request.
type ClearResult struct {
	Cleared int `json:"cleared"`
}

// StaleParams selects entries last written more than MaxAge ago.
// MaxAge is a Go duration string ("12h").
type StaleParams struct {
	MaxAge string `json:"max_age"`
	Remove bool   `json:"remove,omitempty"`
}

// StaleResult is the result of a stale request.
type StaleResult struct {
	Titles  []string `json:"titles"`
	Count   int      `json:"count"`
	Removed bool     `json:"removed"`
}

// SaveResult is the result of a save request.
type SaveResult struct {
	Entries   int    `json:"entries"`
	ElapsedMs int64  `json:"elapsed_ms"`
	Backend   string `json:"backend"`
}

// IngestParams is the params for an ingest request. With Titles set, the
// titles are fetched from the live wiki; otherwise Dir (or the configured
// dump directory when empty) is walked. Dir must be readable by the daemon.
type IngestParams struct {
	Dir    string   `json:"dir,omitempty"`
	Titles []string `json:"titles,omitempty"`
}

// IngestResult summarises a bulk ingestion run.
type IngestResult struct {
	RunID     string            `json:"run_id"`
	Titles    int               `json:"titles"`
	Stored    int               `json:"stored"`
	Skipped   int               `json:"skipped"`
	Failed    map[string]string `json:"failed,omitempty"`
	ElapsedMs int64             `json:"elapsed_ms"`
}

// HealthResult is the result of a health request.
type HealthResult struct {
	Status   string `json:"status"`
	Entries  int    `json:"entries"`
	Keywords int    `json:"keywords"`
	Uptime   string `json:"uptime"`
	DumpDir  string `json:"dump_dir,omitempty"`
	HTTPAddr string `json:"http_addr,omitempty"`
	LastSave string `json:"last_save,omitempty"` // RFC 3339; bbolt backend only
}

// StatsResult is the cache statistics block.
type StatsResult = cache.Stats
