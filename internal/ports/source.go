package ports

import (
	"context"
	"errors"
)

// Sentinel errors returned by PageSource implementations.
var (
	// ErrPageNotFound means the source has no page for the title. Not retried.
	ErrPageNotFound = errors.New("page not found")

	// ErrRateLimited means the source asked us to slow down. Retried with backoff.
	ErrRateLimited = errors.New("rate limited")
)

// PageSource supplies raw wiki markup for titles. Implementations: a dump
// directory of .wiki files (bulk ingestion) and the live MediaWiki endpoint
// (read-through on a cache miss).
type PageSource interface {
	// Titles lists every title the source can supply. Sources that cannot
	// enumerate (live HTTP) return nil, nil.
	Titles(ctx context.Context) ([]string, error)

	// Fetch returns the raw markup for title, or ErrPageNotFound.
	Fetch(ctx context.Context, title string) (string, error)
}
