package cache

import "time"

// Stats is the cache's reporting surface, refreshed by every Search and Put.
type Stats struct {
	TotalEntries        int       `json:"totalEntries"`
	LastRefresh         time.Time `json:"lastRefreshTimestamp"`
	CacheHitRate        float64   `json:"cacheHitRate"`
	AverageSearchTimeMs float64   `json:"averageSearchTimeMs"`

	TotalSearches uint64 `json:"totalSearches"`
	CacheHits     uint64 `json:"cacheHits"`
	CacheMisses   uint64 `json:"cacheMisses"`
	Evictions     uint64 `json:"evictions"`
	Expirations   uint64 `json:"expirations"`
	KeywordCount  int    `json:"keywordCount"`
}

// counters is the mutable state behind Stats. Guarded by RecordStore.mu.
type counters struct {
	searches    uint64
	hits        uint64
	misses      uint64
	searchTime  time.Duration
	evictions   uint64
	expirations uint64
	lastRefresh time.Time
}

func (c *counters) recordSearch(hit bool, elapsed time.Duration) {
	c.searches++
	if hit {
		c.hits++
	} else {
		c.misses++
	}
	c.searchTime += elapsed
}

// Stats returns a point-in-time copy of the cache statistics.
func (s *RecordStore) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statsLocked()
}

func (s *RecordStore) statsLocked() Stats {
	st := Stats{
		TotalEntries:  len(s.entries),
		LastRefresh:   s.stats.lastRefresh,
		TotalSearches: s.stats.searches,
		CacheHits:     s.stats.hits,
		CacheMisses:   s.stats.misses,
		Evictions:     s.stats.evictions,
		Expirations:   s.stats.expirations,
		KeywordCount:  s.index.Len(),
	}
	if s.stats.searches > 0 {
		st.CacheHitRate = float64(s.stats.hits) / float64(s.stats.searches)
		st.AverageSearchTimeMs = float64(s.stats.searchTime) / float64(time.Millisecond) / float64(s.stats.searches)
	}
	return st
}

// restore loads counters from a snapshot's stats block.
func (c *counters) restore(st Stats) {
	c.searches = st.TotalSearches
	c.hits = st.CacheHits
	c.misses = st.CacheMisses
	c.evictions = st.Evictions
	c.expirations = st.Expirations
	c.lastRefresh = st.LastRefresh
	c.searchTime = time.Duration(st.AverageSearchTimeMs * float64(st.TotalSearches) * float64(time.Millisecond))
}
