package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/corey/dropcache/internal/domain/cache"
	"github.com/corey/dropcache/internal/domain/wikitext"
	"github.com/corey/dropcache/internal/ports"
)

// IngestOptions tunes an Ingester. Zero fields take the defaults below.
type IngestOptions struct {
	Workers        int           // parse+put fan-out. Default: 4
	MinDelay       time.Duration // minimum gap between fetch starts
	MaxAttempts    int           // fetch attempts per title. Default: 3
	InitialBackoff time.Duration // first retry delay, doubled per attempt. Default: 500ms
	BaseURL        string        // wiki root for record URLs
}

// IngestReport summarises one ingestion run.
type IngestReport struct {
	RunID   string
	Titles  int
	Stored  int
	Skipped int               // pages without drops
	Failed  map[string]string // title -> last error
	Elapsed time.Duration
}

// Ingester bulk-loads pages from a PageSource into a RecordStore.
//
// Fetches are issued one at a time, at least MinDelay apart, so a live
// source is never hammered. Parsing and storing fan out to Workers
// goroutines. A title that keeps failing is recorded in the report and
// the run moves on.
type Ingester struct {
	store *cache.RecordStore
	opts  IngestOptions

	sleep func(ctx context.Context, d time.Duration) error
}

// NewIngester creates an Ingester writing into store.
func NewIngester(store *cache.RecordStore, opts IngestOptions) *Ingester {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 500 * time.Millisecond
	}
	return &Ingester{store: store, opts: opts, sleep: sleepCtx}
}

// Run ingests every title src can enumerate.
func (in *Ingester) Run(ctx context.Context, src ports.PageSource) (*IngestReport, error) {
	titles, err := src.Titles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list titles: %w", err)
	}
	return in.RunTitles(ctx, src, titles)
}

// RunTitles ingests the given titles from src. On cancellation the
// partial report is returned together with the context error.
func (in *Ingester) RunTitles(ctx context.Context, src ports.PageSource, titles []string) (*IngestReport, error) {
	start := time.Now()
	report := &IngestReport{
		RunID:  uuid.NewString(),
		Titles: len(titles),
		Failed: make(map[string]string),
	}
	log := slog.With("run", report.RunID)
	log.Info("ingest started", "titles", len(titles), "workers", in.opts.Workers)

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(in.opts.Workers)

	var lastFetch time.Time
	var runErr error
	for _, title := range titles {
		if !lastFetch.IsZero() && in.opts.MinDelay > 0 {
			if wait := in.opts.MinDelay - time.Since(lastFetch); wait > 0 {
				if err := in.sleep(ctx, wait); err != nil {
					runErr = err
					break
				}
			}
		}
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		lastFetch = time.Now()
		markup, err := in.fetch(ctx, src, title)
		if err != nil {
			if ctx.Err() != nil {
				runErr = ctx.Err()
				break
			}
			log.Warn("ingest failed", "title", title, "error", err)
			mu.Lock()
			report.Failed[title] = err.Error()
			mu.Unlock()
			continue
		}

		g.Go(func() error {
			rec := wikitext.ParsePage(title, markup, in.opts.BaseURL)
			stored := rec.IsMonster() && in.store.Put(rec)

			mu.Lock()
			defer mu.Unlock()
			if stored {
				report.Stored++
			} else {
				report.Skipped++
			}
			return nil
		})
	}
	g.Wait()

	report.Elapsed = time.Since(start)
	log.Info("ingest finished",
		"stored", report.Stored,
		"skipped", report.Skipped,
		"failed", len(report.Failed),
		"elapsed", report.Elapsed.Round(time.Millisecond))
	return report, runErr
}

// fetch retries retryable failures with exponential backoff. A missing
// page is final on the first attempt.
func (in *Ingester) fetch(ctx context.Context, src ports.PageSource, title string) (string, error) {
	backoff := in.opts.InitialBackoff
	var err error
	for attempt := 1; attempt <= in.opts.MaxAttempts; attempt++ {
		var markup string
		markup, err = src.Fetch(ctx, title)
		if err == nil {
			return markup, nil
		}
		if !retryable(err) || attempt == in.opts.MaxAttempts {
			break
		}
		slog.Debug("fetch retry", "title", title, "attempt", attempt, "backoff", backoff, "error", err)
		if serr := in.sleep(ctx, backoff); serr != nil {
			return "", serr
		}
		backoff *= 2
	}
	return "", err
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, ports.ErrPageNotFound),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
