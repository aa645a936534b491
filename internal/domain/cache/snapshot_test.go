package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Snapshot: versioned export/import and the persistence boundary
// =============================================================================

// memSnapshots is an in-memory SnapshotStore.
type memSnapshots struct {
	data    []byte
	loadErr error
}

func (m *memSnapshots) SaveSnapshot(_ context.Context, data []byte) error {
	m.data = append([]byte(nil), data...)
	return nil
}

func (m *memSnapshots) LoadSnapshot(context.Context) ([]byte, error) {
	return m.data, m.loadErr
}

func (m *memSnapshots) DeleteSnapshot(context.Context) error {
	m.data = nil
	return nil
}

func (m *memSnapshots) Close() error { return nil }

func TestSnapshot_RoundTrip(t *testing.T) {
	src, clock := newTestStore(t, time.Hour, 100)
	src.Put(monster("Goblin"))
	clock.Advance(time.Second)
	src.Put(monster("Hill Giant"))
	e := NewSearchEngine(src)
	e.Search("giant", 10)
	e.Search("dragon", 10)

	data, err := src.ExportSnapshot()
	require.NoError(t, err)

	dst := NewRecordStore(Options{TTL: time.Hour, MaxEntries: 100, Now: clock.Now})
	n, err := dst.ImportSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, src.Titles(), dst.Titles())
	assert.Equal(t, src.KeywordCount(), dst.KeywordCount())
	for _, kw := range GenerateKeywords("Hill Giant") {
		assert.Equal(t, src.KeywordTitles(kw), dst.KeywordTitles(kw), kw)
	}

	a, b := src.Stats(), dst.Stats()
	assert.Equal(t, a.TotalEntries, b.TotalEntries)
	assert.Equal(t, a.TotalSearches, b.TotalSearches)
	assert.Equal(t, a.CacheHits, b.CacheHits)
	assert.InDelta(t, a.CacheHitRate, b.CacheHitRate, 1e-9)
	assert.InDelta(t, a.AverageSearchTimeMs, b.AverageSearchTimeMs, 1e-3)
	assert.True(t, a.LastRefresh.Equal(b.LastRefresh))

	got, ok := dst.Get("Goblin")
	require.True(t, ok)
	want, _ := src.Get("Goblin")
	assert.True(t, want.LastUpdated.Equal(got.LastUpdated))
	assert.Equal(t, want.Monster, got.Monster)
}

func TestSnapshot_DocumentShape(t *testing.T) {
	s, _ := newTestStore(t, time.Hour, 10)
	s.Put(monster("Imp"))

	data, err := s.ExportSnapshot()
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.JSONEq(t, `"1.0"`, string(raw["version"]))

	var monsters [][]json.RawMessage
	require.NoError(t, json.Unmarshal(raw["monsters"], &monsters))
	require.Len(t, monsters, 1)
	require.Len(t, monsters[0], 2)
	assert.JSONEq(t, `"Imp"`, string(monsters[0][0]))

	var index [][]json.RawMessage
	require.NoError(t, json.Unmarshal(raw["searchIndex"], &index))
	require.Len(t, index, 1)
	assert.JSONEq(t, `["imp", ["Imp"]]`, "["+string(index[0][0])+","+string(index[0][1])+"]")

	assert.Contains(t, string(raw["stats"]), `"totalEntries":1`)
}

func TestSnapshot_VersionMismatchDiscards(t *testing.T) {
	s, _ := newTestStore(t, time.Hour, 10)
	s.Put(monster("Goblin"))

	n, err := s.ImportSnapshot([]byte(`{"version":"0.9","monsters":[["Imp",{"monster":{"title":"Imp","drops":[{"name":"Bones"}]}}]],"searchIndex":[],"stats":{}}`))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, s.Len(), "cache starts empty rather than partially applied")
}

func TestSnapshot_MalformedJSON(t *testing.T) {
	s, _ := newTestStore(t, time.Hour, 10)
	s.Put(monster("Goblin"))

	_, err := s.ImportSnapshot([]byte(`{"version": "1.0", "monsters": [`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedSnapshot)
	assert.True(t, s.Has("Goblin"), "failed import leaves the cache untouched")
}

func TestSnapshot_BadPairShape(t *testing.T) {
	s, _ := newTestStore(t, time.Hour, 10)
	_, err := s.ImportSnapshot([]byte(`{"version":"1.0","monsters":[["only-title"]]}`))
	assert.ErrorIs(t, err, ErrMalformedSnapshot)
}

func TestSnapshot_ImportSkipsExpired(t *testing.T) {
	src, clock := newTestStore(t, time.Minute, 10)
	src.Put(monster("Goblin"))
	clock.Advance(30 * time.Second)
	src.Put(monster("Imp"))
	data, err := src.ExportSnapshot()
	require.NoError(t, err)

	clock.Advance(45 * time.Second)
	dst := NewRecordStore(Options{TTL: time.Minute, Now: clock.Now})
	n, err := dst.ImportSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"Imp"}, dst.Titles())
}

func TestSnapshot_ImportEnforcesCapacity(t *testing.T) {
	src, clock := newTestStore(t, time.Hour, 10)
	for _, title := range []string{"Goblin", "Imp", "Cow"} {
		src.Put(monster(title))
		clock.Advance(time.Second)
	}
	data, err := src.ExportSnapshot()
	require.NoError(t, err)

	dst := NewRecordStore(Options{TTL: time.Hour, MaxEntries: 2, Now: clock.Now})
	n, err := dst.ImportSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"Cow", "Imp"}, dst.Titles())
}

func TestSnapshot_SaveAndLoad(t *testing.T) {
	src, clock := newTestStore(t, time.Hour, 10)
	src.Put(monster("Goblin"))

	mem := &memSnapshots{}
	require.NoError(t, src.SaveTo(context.Background(), mem))

	dst := NewRecordStore(Options{TTL: time.Hour, Now: clock.Now})
	n, err := dst.LoadFrom(context.Background(), mem)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, dst.Has("Goblin"))
}

func TestSnapshot_LoadFromEmptyStore(t *testing.T) {
	s, _ := newTestStore(t, time.Hour, 10)
	n, err := s.LoadFrom(context.Background(), &memSnapshots{})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSnapshot_LoadFromCorruptStartsEmpty(t *testing.T) {
	s, _ := newTestStore(t, time.Hour, 10)
	s.Put(monster("Goblin"))

	n, err := s.LoadFrom(context.Background(), &memSnapshots{data: []byte("not json")})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, s.Len())
}
