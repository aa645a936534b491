// Package cache implements the monster record cache: a TTL-bounded,
// size-bounded in-memory store with an inverted keyword index and ranked
// prefix/substring search over it.
//
// RecordStore owns entry lifetime; KeywordIndex only holds back-references.
// All state sits behind a single mutex so concurrent ingestion workers can
// Put without external locking.
package cache

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/corey/dropcache/internal/ports"
)

// Defaults applied by NewRecordStore when Options leaves a field zero.
const (
	DefaultTTL        = 24 * time.Hour
	DefaultMaxEntries = 1000
)

// Options configures a RecordStore.
type Options struct {
	// TTL is how long an entry stays fresh after its last write.
	// Default: 24h
	TTL time.Duration

	// MaxEntries bounds the entry count; the oldest writes are evicted first.
	// Default: 1000
	MaxEntries int

	// Now is the clock. Default: time.Now
	Now func() time.Time
}

// entry is a CacheEntry plus its write sequence, which orders evictions
// between writes that share a timestamp.
type entry struct {
	ports.CacheEntry
	seq uint64
}

// RecordStore maps canonical titles to cache entries and keeps the keyword
// index in step with every insert, replace and delete.
type RecordStore struct {
	mu      sync.Mutex
	entries map[string]*entry
	index   *KeywordIndex
	stats   counters
	seq     uint64

	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// NewRecordStore creates an empty store.
func NewRecordStore(opts Options) *RecordStore {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &RecordStore{
		entries:    make(map[string]*entry),
		index:      NewKeywordIndex(),
		ttl:        opts.TTL,
		maxEntries: opts.MaxEntries,
		now:        opts.Now,
	}
}

// TTL returns the configured time-to-live.
func (s *RecordStore) TTL() time.Duration { return s.ttl }

// MaxEntries returns the configured capacity.
func (s *RecordStore) MaxEntries() int { return s.maxEntries }

// Put creates or replaces the entry for rec.Title, then enforces capacity.
// Records without a title or without drops are not monsters and are
// rejected (returns false).
func (s *RecordStore) Put(rec ports.MonsterRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok := s.putLocked(rec)
	if ok {
		s.evictLocked()
	}
	return ok
}

// PutMany stores every valid record and enforces capacity once at the end.
// Returns how many records were accepted.
func (s *RecordStore) PutMany(recs []ports.MonsterRecord) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, rec := range recs {
		if s.putLocked(rec) {
			n++
		}
	}
	if n > 0 {
		s.evictLocked()
	}
	return n
}

func (s *RecordStore) putLocked(rec ports.MonsterRecord) bool {
	rec.Title = strings.TrimSpace(rec.Title)
	if rec.Title == "" || !rec.IsMonster() {
		return false
	}

	if old, ok := s.entries[rec.Title]; ok {
		s.index.removeAll(old.SearchKeywords, rec.Title)
	}

	now := s.now()
	s.seq++
	e := &entry{
		CacheEntry: ports.CacheEntry{
			Monster:        rec,
			LastUpdated:    now,
			ExpiresAt:      now.Add(s.ttl),
			SearchKeywords: GenerateKeywords(rec.Title),
		},
		seq: s.seq,
	}
	s.entries[rec.Title] = e
	s.index.addAll(e.SearchKeywords, rec.Title)
	s.stats.lastRefresh = now
	return true
}

// evictLocked removes the oldest writes until the store is within capacity.
func (s *RecordStore) evictLocked() {
	excess := len(s.entries) - s.maxEntries
	if excess <= 0 {
		return
	}

	all := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].LastUpdated.Equal(all[j].LastUpdated) {
			return all[i].LastUpdated.Before(all[j].LastUpdated)
		}
		return all[i].seq < all[j].seq
	})
	for _, e := range all[:excess] {
		s.deleteLocked(e.Monster.Title)
		s.stats.evictions++
	}
}

// Get returns the live entry for title. An expired entry is deleted on the
// way out and reported as absent.
func (s *RecordStore) Get(title string) (ports.CacheEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.getLocked(strings.TrimSpace(title))
	if !ok {
		return ports.CacheEntry{}, false
	}
	return e.CacheEntry, true
}

// Has reports whether title has a live entry. Same lazy expiry as Get.
func (s *RecordStore) Has(title string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.getLocked(strings.TrimSpace(title))
	return ok
}

func (s *RecordStore) getLocked(title string) (*entry, bool) {
	e, ok := s.entries[title]
	if !ok {
		return nil, false
	}
	if e.Expired(s.now()) {
		s.deleteLocked(title)
		s.stats.expirations++
		return nil, false
	}
	return e, true
}

// Remove deletes title. Returns false if it was not present.
func (s *RecordStore) Remove(title string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(strings.TrimSpace(title))
}

// Clear deletes every entry and keyword.
func (s *RecordStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

func (s *RecordStore) clearLocked() {
	s.entries = make(map[string]*entry)
	s.index.clear()
}

func (s *RecordStore) deleteLocked(title string) bool {
	e, ok := s.entries[title]
	if !ok {
		return false
	}
	s.index.removeAll(e.SearchKeywords, title)
	delete(s.entries, title)
	return true
}

// SweepExpired deletes every expired entry. Returns how many were removed.
func (s *RecordStore) SweepExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked()
}

func (s *RecordStore) sweepLocked() int {
	now := s.now()
	n := 0
	for title, e := range s.entries {
		if e.Expired(now) {
			s.deleteLocked(title)
			n++
		}
	}
	s.stats.expirations += uint64(n)
	return n
}

// StaleTitles lists live titles last written more than maxAge ago, oldest first.
func (s *RecordStore) StaleTitles(maxAge time.Duration) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.staleLocked(maxAge)
}

// RemoveStale deletes and returns titles last written more than maxAge ago.
func (s *RecordStore) RemoveStale(maxAge time.Duration) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	titles := s.staleLocked(maxAge)
	for _, t := range titles {
		s.deleteLocked(t)
	}
	return titles
}

func (s *RecordStore) staleLocked(maxAge time.Duration) []string {
	cutoff := s.now().Add(-maxAge)
	var stale []*entry
	for _, e := range s.entries {
		if e.LastUpdated.Before(cutoff) {
			stale = append(stale, e)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].seq < stale[j].seq })

	titles := make([]string, len(stale))
	for i, e := range stale {
		titles[i] = e.Monster.Title
	}
	return titles
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (s *RecordStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Titles returns every live title, sorted.
func (s *RecordStore) Titles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liveTitlesLocked()
}

func (s *RecordStore) liveTitlesLocked() []string {
	now := s.now()
	titles := make([]string, 0, len(s.entries))
	for title, e := range s.entries {
		if !e.Expired(now) {
			titles = append(titles, title)
		}
	}
	sort.Strings(titles)
	return titles
}

// KeywordTitles returns the titles currently indexed under keyword.
func (s *RecordStore) KeywordTitles(keyword string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Titles(keyword)
}

// KeywordCount returns the number of distinct indexed keywords.
func (s *RecordStore) KeywordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Len()
}
