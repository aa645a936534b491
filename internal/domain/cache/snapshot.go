package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/corey/dropcache/internal/ports"
)

// SnapshotVersion is the only document version ImportSnapshot applies.
const SnapshotVersion = "1.0"

// ErrMalformedSnapshot is returned by ImportSnapshot when the document is not
// valid JSON or does not have the snapshot shape.
var ErrMalformedSnapshot = errors.New("cache: malformed snapshot")

// Snapshot is the serialized cache document:
//
//	{"version": "1.0",
//	 "monsters":    [[title, CacheEntry], ...],
//	 "searchIndex": [[keyword, [title, ...]], ...],
//	 "stats":       {...}}
type Snapshot struct {
	Version     string        `json:"version"`
	Monsters    []MonsterPair `json:"monsters"`
	SearchIndex []KeywordPair `json:"searchIndex"`
	Stats       Stats         `json:"stats"`
}

// MonsterPair encodes as a two-element JSON array [title, entry].
type MonsterPair struct {
	Title string
	Entry ports.CacheEntry
}

// MarshalJSON implements json.Marshaler.
func (p MonsterPair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.Title, p.Entry})
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *MonsterPair) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("monster pair: want 2 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &p.Title); err != nil {
		return fmt.Errorf("monster pair title: %w", err)
	}
	if err := json.Unmarshal(raw[1], &p.Entry); err != nil {
		return fmt.Errorf("monster pair entry: %w", err)
	}
	return nil
}

// KeywordPair encodes as a two-element JSON array [keyword, [titles...]].
type KeywordPair struct {
	Keyword string
	Titles  []string
}

// MarshalJSON implements json.Marshaler.
func (p KeywordPair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.Keyword, p.Titles})
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *KeywordPair) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("keyword pair: want 2 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &p.Keyword); err != nil {
		return fmt.Errorf("keyword pair keyword: %w", err)
	}
	if err := json.Unmarshal(raw[1], &p.Titles); err != nil {
		return fmt.Errorf("keyword pair titles: %w", err)
	}
	return nil
}

// Snapshot captures the live entries, the keyword index and stats.
// Entries are listed in write order; keywords and their titles are sorted.
func (s *RecordStore) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()

	live := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		live = append(live, e)
	}
	sort.Slice(live, func(i, j int) bool { return live[i].seq < live[j].seq })

	doc := &Snapshot{
		Version:     SnapshotVersion,
		Monsters:    make([]MonsterPair, len(live)),
		SearchIndex: make([]KeywordPair, 0, s.index.Len()),
		Stats:       s.statsLocked(),
	}
	for i, e := range live {
		doc.Monsters[i] = MonsterPair{Title: e.Monster.Title, Entry: e.CacheEntry}
	}

	keywords := make([]string, 0, s.index.Len())
	s.index.Entries(func(kw string, _ map[string]struct{}) bool {
		keywords = append(keywords, kw)
		return true
	})
	sort.Strings(keywords)
	for _, kw := range keywords {
		doc.SearchIndex = append(doc.SearchIndex, KeywordPair{Keyword: kw, Titles: s.index.Titles(kw)})
	}
	return doc
}

// ExportSnapshot serializes the cache to the snapshot document.
func (s *RecordStore) ExportSnapshot() ([]byte, error) {
	data, err := json.Marshal(s.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

// ImportSnapshot replaces the cache contents with the document in data and
// returns how many entries were loaded.
//
// Unparseable JSON returns ErrMalformedSnapshot and leaves the cache as it
// was. A version mismatch is logged and discards the whole document: the
// cache ends up empty and no error is returned. Expired entries are skipped
// and the keyword index is rebuilt from the entries' own keywords.
func (s *RecordStore) ImportSnapshot(data []byte) (int, error) {
	var doc Snapshot
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearLocked()

	if doc.Version != SnapshotVersion {
		slog.Warn("discarding cache snapshot with unsupported version",
			"version", doc.Version, "want", SnapshotVersion)
		return 0, nil
	}

	pairs := doc.Monsters
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Entry.LastUpdated.Before(pairs[j].Entry.LastUpdated)
	})

	now := s.now()
	loaded := 0
	for _, p := range pairs {
		title := strings.TrimSpace(p.Title)
		e := p.Entry
		if title == "" || !e.Monster.IsMonster() || e.Expired(now) {
			continue
		}
		e.Monster.Title = title
		if len(e.SearchKeywords) == 0 {
			e.SearchKeywords = GenerateKeywords(title)
		}
		if old, ok := s.entries[title]; ok {
			s.index.removeAll(old.SearchKeywords, title)
		} else {
			loaded++
		}
		s.seq++
		s.entries[title] = &entry{CacheEntry: e, seq: s.seq}
		s.index.addAll(e.SearchKeywords, title)
	}

	s.stats.restore(doc.Stats)
	s.evictLocked()
	return min(loaded, len(s.entries)), nil
}

// SaveTo exports the cache and writes it to store.
func (s *RecordStore) SaveTo(ctx context.Context, store ports.SnapshotStore) error {
	data, err := s.ExportSnapshot()
	if err != nil {
		return err
	}
	if err := store.SaveSnapshot(ctx, data); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// LoadFrom reads the snapshot from store and imports it. A corrupt document
// is logged and the cache starts empty; only store failures are returned.
func (s *RecordStore) LoadFrom(ctx context.Context, store ports.SnapshotStore) (int, error) {
	data, err := store.LoadSnapshot(ctx)
	if err != nil {
		return 0, fmt.Errorf("load snapshot: %w", err)
	}
	if data == nil {
		return 0, nil
	}

	n, err := s.ImportSnapshot(data)
	if errors.Is(err, ErrMalformedSnapshot) {
		slog.Warn("ignoring corrupt cache snapshot", "error", err)
		s.Clear()
		return 0, nil
	}
	return n, err
}
