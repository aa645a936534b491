package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/dropcache/internal/adapters/socket"
	"github.com/corey/dropcache/internal/domain/cache"
	"github.com/corey/dropcache/internal/ports"
)

// mockQueries implements socket.AppQueries for testing.
type mockQueries struct {
	store     *cache.RecordStore
	engine    *cache.SearchEngine
	lookupErr error
}

func newMockQueries() *mockQueries {
	store := cache.NewRecordStore(cache.Options{TTL: time.Hour, MaxEntries: 10})
	store.PutMany([]ports.MonsterRecord{
		{Title: "Hill Giant", URL: "https://oldschool.runescape.wiki/w/Hill_Giant",
			Drops: []ports.DropRecord{{Name: "Big bones", Quantity: "1", Rarity: "Always", Category: "100%"}}},
		{Title: "Goblin", URL: "https://oldschool.runescape.wiki/w/Goblin",
			Drops: []ports.DropRecord{{Name: "Bones", Quantity: "1", Rarity: "Always", Category: "100%"}}},
	})
	return &mockQueries{store: store, engine: cache.NewSearchEngine(store)}
}

func (m *mockQueries) Search(query string, limit int) socket.SearchResult {
	res := m.engine.Search(query, limit)
	return socket.SearchResult{Results: res.Results, FromCache: res.FromCache, Count: len(res.Results)}
}

func (m *mockQueries) Lookup(_ context.Context, query string, limit int) (socket.SearchResult, error) {
	if m.lookupErr != nil {
		return socket.SearchResult{}, m.lookupErr
	}
	return m.Search(query, limit), nil
}

func (m *mockQueries) Get(title string) socket.GetResult {
	e, ok := m.store.Get(title)
	if !ok {
		return socket.GetResult{}
	}
	return socket.GetResult{Found: true, Entry: &e}
}

func (m *mockQueries) Stats() socket.StatsResult { return m.store.Stats() }

func (m *mockQueries) Health() socket.HealthResult {
	return socket.HealthResult{Status: "ok", Entries: m.store.Len(), Keywords: m.store.KeywordCount()}
}

func (m *mockQueries) Remove(title string) socket.RemoveResult {
	return socket.RemoveResult{Removed: m.store.Remove(title)}
}

func (m *mockQueries) Clear() socket.ClearResult {
	n := m.store.Len()
	m.store.Clear()
	return socket.ClearResult{Cleared: n}
}

func (m *mockQueries) Stale(maxAge time.Duration, remove bool) socket.StaleResult {
	return socket.StaleResult{Titles: m.store.StaleTitles(maxAge)}
}

func (m *mockQueries) Save(context.Context) (socket.SaveResult, error) {
	return socket.SaveResult{Entries: m.store.Len()}, nil
}

func (m *mockQueries) Ingest(context.Context, socket.IngestParams) (socket.IngestResult, error) {
	return socket.IngestResult{}, nil
}

func setupTestServer(t *testing.T) (*httptest.Server, *mockQueries, *Server) {
	t.Helper()
	queries := newMockQueries()
	srv := NewServer(queries, nil, "")
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, queries, srv
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	ts, _, _ := setupTestServer(t)

	var result socket.HealthResult
	resp := getJSON(t, ts.URL+"/api/health", &result)

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "ok", result.Status)
	assert.Equal(t, 2, result.Entries)
	assert.NotZero(t, result.Keywords)
}

func TestStatsEndpoint(t *testing.T) {
	ts, queries, _ := setupTestServer(t)
	queries.Search("goblin", 5)
	queries.Search("dragon", 5)

	var result socket.StatsResult
	resp := getJSON(t, ts.URL+"/api/stats", &result)

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, 2, result.TotalEntries)
	assert.Equal(t, uint64(2), result.TotalSearches)
	assert.Equal(t, 0.5, result.CacheHitRate)
	assert.False(t, result.LastRefresh.IsZero())
}

func TestSearchEndpoint(t *testing.T) {
	ts, _, _ := setupTestServer(t)

	var hit socket.SearchResult
	resp := getJSON(t, ts.URL+"/api/search?q=hill&limit=5", &hit)
	assert.Equal(t, 200, resp.StatusCode)
	assert.True(t, hit.FromCache)
	require.Len(t, hit.Results, 1)
	assert.Equal(t, "Hill Giant", hit.Results[0].Title)
	assert.Equal(t, "Big bones", hit.Results[0].Drops[0].Name)

	var miss socket.SearchResult
	resp = getJSON(t, ts.URL+"/api/search?q=zulrah", &miss)
	assert.Equal(t, 200, resp.StatusCode, "a miss is not an error")
	assert.False(t, miss.FromCache)
	assert.Empty(t, miss.Results)

	resp = getJSON(t, ts.URL+"/api/search?q=hill&limit=lots", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSearchEndpoint_LiveError(t *testing.T) {
	ts, queries, _ := setupTestServer(t)
	queries.lookupErr = errors.New("wiki down")

	var body map[string]string
	resp := getJSON(t, ts.URL+"/api/search?q=zulrah&live=1", &body)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "wiki down", body["error"])
}

func TestMonsterEndpoint(t *testing.T) {
	ts, _, _ := setupTestServer(t)

	var entry ports.CacheEntry
	resp := getJSON(t, ts.URL+"/api/monsters/Hill%20Giant", &entry)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "Hill Giant", entry.Monster.Title)
	assert.Contains(t, entry.SearchKeywords, "hill giant")

	resp = getJSON(t, ts.URL+"/api/monsters/Zulrah", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	ts, queries, srv := setupTestServer(t)
	queries.Search("goblin", 5)
	srv.Metrics().ObserveSearch(true, 200*time.Microsecond)
	srv.Metrics().ObserveIngest(socket.IngestResult{Stored: 3, Skipped: 1, Failed: map[string]string{"Imp": "boom"}})

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := string(raw)

	assert.Contains(t, body, "dropcache_entries 2")
	assert.Contains(t, body, `dropcache_searches_total{outcome="hit"} 1`)
	assert.Contains(t, body, `dropcache_searches_total{outcome="miss"} 0`)
	assert.Contains(t, body, `dropcache_search_duration_seconds_count{outcome="hit"} 1`)
	assert.Contains(t, body, `dropcache_ingested_titles_total{result="stored"} 3`)
	assert.Contains(t, body, `dropcache_ingested_titles_total{result="failed"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestNilQueries(t *testing.T) {
	srv := NewServer(nil, nil, "")
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	for _, path := range []string{"/api/health", "/api/stats", "/api/search?q=x"} {
		resp := getJSON(t, ts.URL+path, nil)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, path)
	}

	resp := getJSON(t, ts.URL+"/metrics", nil)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestStartStop(t *testing.T) {
	addrFile := filepath.Join(t.TempDir(), "http.addr")
	srv := NewServer(newMockQueries(), nil, addrFile)
	require.NoError(t, srv.Start("127.0.0.1:0"))

	data, err := os.ReadFile(addrFile)
	require.NoError(t, err)
	assert.Equal(t, srv.Addr(), string(data))
	assert.True(t, strings.HasPrefix(srv.URL(), "http://127.0.0.1:"))

	var health socket.HealthResult
	getJSON(t, srv.URL()+"/api/health", &health)
	assert.Equal(t, "ok", health.Status)

	srv.Stop()
	srv.Stop()

	_, err = os.Stat(addrFile)
	assert.True(t, os.IsNotExist(err), "addr file removed on stop")
}
