// Package app wires together all adapters and domain logic.
// It provides lifecycle management for the dropcache daemon: create, start, stop.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/corey/dropcache/internal/adapters/bbolt"
	"github.com/corey/dropcache/internal/adapters/dumpdir"
	fsw "github.com/corey/dropcache/internal/adapters/fsnotify"
	"github.com/corey/dropcache/internal/adapters/mediawiki"
	"github.com/corey/dropcache/internal/adapters/redis"
	"github.com/corey/dropcache/internal/adapters/socket"
	"github.com/corey/dropcache/internal/adapters/web"
	"github.com/corey/dropcache/internal/config"
	"github.com/corey/dropcache/internal/domain/cache"
	"github.com/corey/dropcache/internal/domain/wikitext"
	"github.com/corey/dropcache/internal/ports"
)

// suggestionCount is how many "did you mean" titles a miss carries.
const suggestionCount = 3

// sweepInterval is how often the daemon purges expired entries. Reads
// already skip expired entries, so the sweep only reclaims memory and keeps
// the entry gauge honest on an idle daemon.
const sweepInterval = time.Minute

// savedAtReporter is implemented by snapshot stores that stamp each write.
type savedAtReporter interface {
	SavedAt() (time.Time, error)
}

// App is the top-level container wiring all components together.
type App struct {
	Config *config.Config
	Paths  *Paths

	Store     *cache.RecordStore
	Engine    *cache.SearchEngine
	Snapshots ports.SnapshotStore
	Live      ports.PageSource // nil = no read-through
	Ingester  *Ingester
	Server    *socket.Server
	WebServer *web.Server // nil when http.addr is empty

	backend string
	metrics *web.Metrics
	watcher *fsw.Watcher
	dump    *dumpdir.Source

	saveMu     sync.Mutex // serializes snapshot writes
	ingestMu   sync.Mutex // one ingestion run at a time
	started    time.Time
	sweepEvery time.Duration
	stopSweep  chan struct{}
	sweepDone  chan struct{}
	closeOnce  sync.Once
	closeErr   error
}

// Deps overrides collaborators New would otherwise build from config.
// Zero fields are built from config.
type Deps struct {
	Snapshots ports.SnapshotStore
	Live      ports.PageSource
}

// New creates an App with all dependencies wired and the persisted snapshot
// loaded. Does not start services.
func New(cfg *config.Config, deps Deps) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	paths := NewPaths(cfg.DataDir, cfg.DBPath)
	if err := paths.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	snapshots, backend := deps.Snapshots, "custom"
	if snapshots == nil {
		var err error
		snapshots, backend, err = OpenSnapshots(context.Background(), cfg, paths)
		if err != nil {
			return nil, err
		}
	}

	store := cache.NewRecordStore(cache.Options{
		TTL:        cfg.Cache.TTL.D(),
		MaxEntries: cfg.Cache.MaxEntries,
	})
	n, err := store.LoadFrom(context.Background(), snapshots)
	if err != nil {
		// A backend that is up but unreadable should not keep the daemon down.
		slog.Warn("starting with empty cache", "backend", backend, "error", err)
	} else {
		slog.Debug("snapshot loaded", "backend", backend, "entries", n)
	}

	live := deps.Live
	if live == nil && cfg.Wiki.BaseURL != "" {
		live = mediawiki.New(mediawiki.Options{
			BaseURL:   cfg.Wiki.BaseURL,
			Timeout:   cfg.Wiki.Timeout.D(),
			UserAgent: cfg.Wiki.UserAgent,
		})
	}

	a := &App{
		Config:    cfg,
		Paths:     paths,
		Store:     store,
		Engine:    cache.NewSearchEngine(store),
		Snapshots: snapshots,
		Live:      live,
		Ingester: NewIngester(store, IngestOptions{
			Workers:        cfg.Ingest.Workers,
			MinDelay:       cfg.Ingest.MinDelay.D(),
			MaxAttempts:    cfg.Ingest.MaxAttempts,
			InitialBackoff: cfg.Ingest.InitialBackoff.D(),
			BaseURL:        cfg.Wiki.BaseURL,
		}),
		backend:    backend,
		sweepEvery: sweepInterval,
	}

	a.Server = socket.NewServer(a, paths.Socket)
	if cfg.HTTP.Addr != "" {
		a.metrics = web.NewMetrics(a)
		a.WebServer = web.NewServer(a, a.metrics, paths.AddrFile)
	}

	// Wire search observer: search latency → metrics
	a.Engine.SetObserver(a.searchObserver)

	return a, nil
}

// OpenSnapshots opens the configured snapshot backend. Returns the store
// and the backend name.
func OpenSnapshots(ctx context.Context, cfg *config.Config, paths *Paths) (ports.SnapshotStore, string, error) {
	switch cfg.Snapshot.Backend {
	case "", "bbolt":
		s, err := bbolt.NewStore(paths.DB, cfg.Snapshot.Key)
		if err != nil {
			return nil, "", fmt.Errorf("open store: %w", err)
		}
		return s, "bbolt", nil
	case "redis":
		s, err := redis.NewStore(ctx, cfg.Snapshot.RedisURL, cfg.Snapshot.Key)
		if err != nil {
			return nil, "", fmt.Errorf("open store: %w", err)
		}
		return s, "redis", nil
	}
	return nil, "", fmt.Errorf("%w: unknown snapshot backend %q", config.ErrInvalidConfig, cfg.Snapshot.Backend)
}

func (a *App) searchObserver(query string, result *cache.SearchResult, elapsed time.Duration) {
	if a.metrics != nil {
		a.metrics.ObserveSearch(result.FromCache, elapsed)
	}
	slog.Debug("search", "query", query, "results", len(result.Results), "elapsed", elapsed)
}

// Start begins the daemon (socket server + HTTP server + dump watcher + sweeper).
func (a *App) Start() error {
	a.started = time.Now()
	if err := a.Server.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	// Start HTTP listener; non-fatal if the address is taken
	if a.WebServer != nil {
		if err := a.WebServer.Start(a.Config.HTTP.Addr); err != nil {
			slog.Warn("HTTP listener unavailable", "addr", a.Config.HTTP.Addr, "error", err)
		}
	}
	// Start dump watcher; non-fatal if setup fails
	if dir := a.Config.Ingest.DumpDir; dir != "" {
		if err := a.watchDump(dir); err != nil {
			slog.Warn("dump watcher unavailable", "dir", dir, "error", err)
		}
	}

	a.stopSweep = make(chan struct{})
	a.sweepDone = make(chan struct{})
	go a.sweepLoop()

	slog.Info("daemon started", "socket", a.Paths.Socket, "entries", a.Store.Len(), "backend", a.backend)
	return nil
}

// Stop gracefully shuts down all services and persists the cache.
func (a *App) Stop() error {
	if a.stopSweep != nil {
		close(a.stopSweep)
		<-a.sweepDone
		a.stopSweep = nil
	}
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.WebServer != nil {
		a.WebServer.Stop()
	}
	a.Server.Stop()
	err := a.Close()
	slog.Info("daemon stopped", "entries", a.Store.Len())
	return err
}

// Close saves the snapshot and releases the snapshot store. Used directly
// by one-shot CLI commands that never Start. Idempotent.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := a.Save(ctx); err != nil {
			a.closeErr = err
		}
		if err := a.Snapshots.Close(); err != nil && a.closeErr == nil {
			a.closeErr = err
		}
	})
	return a.closeErr
}

func (a *App) sweepLoop() {
	defer close(a.sweepDone)
	ticker := time.NewTicker(a.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-a.stopSweep:
			return
		case <-ticker.C:
			if n := a.Store.SweepExpired(); n > 0 {
				slog.Debug("expired entries swept", "count", n)
			}
		}
	}
}

// Search serves a cache-only query. A miss carries fuzzy suggestions.
// Implements socket.AppQueries.
func (a *App) Search(query string, limit int) socket.SearchResult {
	if limit <= 0 {
		limit = a.Config.Search.DefaultLimit
	}
	start := time.Now()
	res := a.Engine.Search(query, limit)

	out := socket.SearchResult{
		Results:   res.Results,
		FromCache: res.FromCache,
		Count:     len(res.Results),
	}
	if !res.FromCache && strings.TrimSpace(query) != "" {
		out.Suggestions = a.Engine.Suggest(query, suggestionCount)
	}
	out.Elapsed = time.Since(start).String()
	return out
}

// Lookup is a read-through search: on a miss the query is fetched from the
// live wiki as a page title, and a page with drops is cached and returned
// with fromCache=false. A page that does not exist is still just a miss.
// Implements socket.AppQueries.
func (a *App) Lookup(ctx context.Context, query string, limit int) (socket.SearchResult, error) {
	res := a.Search(query, limit)
	if res.FromCache || a.Live == nil {
		return res, nil
	}
	title := canonicalTitle(query)
	if title == "" {
		return res, nil
	}

	start := time.Now()
	markup, err := a.Live.Fetch(ctx, title)
	if errors.Is(err, ports.ErrPageNotFound) {
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("live lookup %q: %w", title, err)
	}

	rec := wikitext.ParsePage(title, markup, a.Config.Wiki.BaseURL)
	if !a.Store.Put(rec) {
		slog.Debug("live page has no drops", "title", title)
		return res, nil
	}
	slog.Info("cached live page", "title", title, "drops", len(rec.Drops))

	return socket.SearchResult{
		Results:   []ports.MonsterRecord{rec},
		FromCache: false,
		Count:     1,
		Elapsed:   time.Since(start).String(),
	}, nil
}

// canonicalTitle turns a query into a wiki title: trimmed, underscores as
// spaces, runs of spaces collapsed, first letter upper-cased.
func canonicalTitle(q string) string {
	q = strings.Join(strings.Fields(strings.ReplaceAll(q, "_", " ")), " ")
	if q == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(q)
	return string(unicode.ToUpper(r)) + q[size:]
}

// Get implements socket.AppQueries.
func (a *App) Get(title string) socket.GetResult {
	e, ok := a.Store.Get(strings.TrimSpace(title))
	if !ok {
		return socket.GetResult{}
	}
	return socket.GetResult{Found: true, Entry: &e}
}

// Stats implements socket.AppQueries.
func (a *App) Stats() socket.StatsResult {
	return a.Store.Stats()
}

// Health implements socket.AppQueries.
func (a *App) Health() socket.HealthResult {
	h := socket.HealthResult{
		Status:   "ok",
		Entries:  a.Store.Len(),
		Keywords: a.Store.KeywordCount(),
		Uptime:   "0s",
		DumpDir:  a.Config.Ingest.DumpDir,
	}
	if !a.started.IsZero() {
		h.Uptime = time.Since(a.started).Round(time.Second).String()
	}
	if a.WebServer != nil {
		h.HTTPAddr = a.WebServer.Addr()
	}
	if r, ok := a.Snapshots.(savedAtReporter); ok {
		if ts, err := r.SavedAt(); err != nil {
			slog.Debug("snapshot saved-at unavailable", "error", err)
		} else if !ts.IsZero() {
			h.LastSave = ts.UTC().Format(time.RFC3339)
		}
	}
	return h
}

// Remove implements socket.AppQueries.
func (a *App) Remove(title string) socket.RemoveResult {
	return socket.RemoveResult{Removed: a.Store.Remove(strings.TrimSpace(title))}
}

// Clear implements socket.AppQueries.
func (a *App) Clear() socket.ClearResult {
	n := a.Store.Len()
	a.Store.Clear()
	return socket.ClearResult{Cleared: n}
}

// Stale lists, or with remove deletes, entries written more than maxAge ago.
// Implements socket.AppQueries.
func (a *App) Stale(maxAge time.Duration, remove bool) socket.StaleResult {
	var titles []string
	if remove {
		titles = a.Store.RemoveStale(maxAge)
	} else {
		titles = a.Store.StaleTitles(maxAge)
	}
	if titles == nil {
		titles = []string{}
	}
	return socket.StaleResult{Titles: titles, Count: len(titles), Removed: remove}
}

// Save writes the snapshot now. Implements socket.AppQueries.
func (a *App) Save(ctx context.Context) (socket.SaveResult, error) {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	start := time.Now()
	if err := a.Store.SaveTo(ctx, a.Snapshots); err != nil {
		return socket.SaveResult{}, err
	}
	return socket.SaveResult{
		Entries:   a.Store.Len(),
		ElapsedMs: time.Since(start).Milliseconds(),
		Backend:   a.backend,
	}, nil
}

// Ingest runs one ingestion: explicit titles from the live wiki, or a dump
// directory (the configured one when params.Dir is empty). The snapshot is
// saved afterwards. Implements socket.AppQueries.
func (a *App) Ingest(ctx context.Context, params socket.IngestParams) (socket.IngestResult, error) {
	a.ingestMu.Lock()
	defer a.ingestMu.Unlock()

	var report *IngestReport
	var err error
	if len(params.Titles) > 0 {
		if a.Live == nil {
			return socket.IngestResult{}, fmt.Errorf("no live wiki configured")
		}
		report, err = a.Ingester.RunTitles(ctx, a.Live, params.Titles)
	} else {
		dir := params.Dir
		if dir == "" {
			dir = a.Config.Ingest.DumpDir
		}
		if dir == "" {
			return socket.IngestResult{}, fmt.Errorf("no dump directory given or configured")
		}
		src, serr := dumpdir.New(dir)
		if serr != nil {
			return socket.IngestResult{}, serr
		}
		report, err = a.Ingester.Run(ctx, src)
	}
	if report == nil {
		return socket.IngestResult{}, err
	}

	result := socket.IngestResult{
		RunID:     report.RunID,
		Titles:    report.Titles,
		Stored:    report.Stored,
		Skipped:   report.Skipped,
		Failed:    report.Failed,
		ElapsedMs: report.Elapsed.Milliseconds(),
	}
	if a.metrics != nil {
		a.metrics.ObserveIngest(result)
	}
	if err != nil {
		return result, err
	}

	if _, serr := a.Save(ctx); serr != nil {
		slog.Warn("snapshot save after ingest failed", "run", report.RunID, "error", serr)
	}
	return result, nil
}
