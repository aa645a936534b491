package cache

import (
	"sort"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"

	"github.com/corey/dropcache/internal/ports"
)

// DefaultLimit is the result cap used when Search is called with limit <= 0.
const DefaultLimit = 10

// Match scores. A title's score is the sum over every keyword it matched.
const (
	scoreExact     = 100
	scorePrefixEq  = 50
	scorePrefix    = 25
	scoreSubstring = 10
)

// SearchObserver is called after every non-empty search with the query,
// result and elapsed time.
type SearchObserver func(query string, result *SearchResult, elapsed time.Duration)

// SearchResult is the outcome of a search. FromCache is false when nothing
// matched, which tells the caller a live lookup may be worthwhile.
type SearchResult struct {
	Results   []ports.MonsterRecord `json:"results"`
	FromCache bool                  `json:"fromCache"`
}

// SearchEngine serves ranked keyword search over a RecordStore.
type SearchEngine struct {
	store    *RecordStore
	observer SearchObserver
}

// NewSearchEngine creates an engine reading from store.
func NewSearchEngine(store *RecordStore) *SearchEngine {
	return &SearchEngine{store: store}
}

// Store returns the backing record store.
func (e *SearchEngine) Store() *RecordStore { return e.store }

// SetObserver registers a callback invoked after every search.
func (e *SearchEngine) SetObserver(obs SearchObserver) {
	e.observer = obs
}

type candidate struct {
	title string
	score int
}

// Search ranks live titles against query.
//
// Each index keyword is visited once and scores every title it holds:
//   - keyword == query           +100
//   - keyword has query prefix   +50 if same length, else +25
//   - keyword contains query     +10, only while fewer than 2*limit candidates exist
//
// Keywords are visited in ascending order, so the substring cap is
// deterministic for a given cache content.
//
// Candidates are re-validated against the store (expired ones are dropped
// and purged), then ordered by score desc, title length asc, title asc.
func (e *SearchEngine) Search(query string, limit int) *SearchResult {
	if strings.TrimSpace(query) == "" {
		return &SearchResult{Results: []ports.MonsterRecord{}, FromCache: true}
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	start := time.Now()
	s := e.store
	s.mu.Lock()

	s.sweepLocked()

	q := Normalize(query)
	scores := make(map[string]int)
	alive := make(map[string]bool)

	live := func(title string) bool {
		if ok, seen := alive[title]; seen {
			return ok
		}
		_, ok := s.getLocked(title)
		alive[title] = ok
		return ok
	}
	credit := func(titles map[string]struct{}, points int) {
		for title := range titles {
			if live(title) {
				scores[title] += points
			}
		}
	}

	s.index.Entries(func(kw string, titles map[string]struct{}) bool {
		switch {
		case kw == q:
			credit(titles, scoreExact)
		case strings.HasPrefix(kw, q):
			if len(kw) == len(q) {
				credit(titles, scorePrefixEq)
			} else {
				credit(titles, scorePrefix)
			}
		case strings.Contains(kw, q) && len(scores) < 2*limit:
			credit(titles, scoreSubstring)
		}
		return true
	})

	ranked := make([]candidate, 0, len(scores))
	for title, score := range scores {
		ranked = append(ranked, candidate{title: title, score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if len(a.title) != len(b.title) {
			return len(a.title) < len(b.title)
		}
		return a.title < b.title
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	result := &SearchResult{Results: make([]ports.MonsterRecord, 0, len(ranked))}
	for _, c := range ranked {
		result.Results = append(result.Results, s.entries[c.title].Monster)
	}
	result.FromCache = len(result.Results) > 0

	elapsed := time.Since(start)
	s.stats.recordSearch(result.FromCache, elapsed)
	s.mu.Unlock()

	if e.observer != nil {
		e.observer(query, result, elapsed)
	}
	return result
}

// titleSource feeds lowercase titles to the fuzzy matcher.
type titleSource []string

func (ts titleSource) String(i int) string { return Normalize(ts[i]) }
func (ts titleSource) Len() int            { return len(ts) }

// Suggest returns up to n live titles that fuzzily resemble query, best
// first. Used to offer "did you mean" after a miss.
func (e *SearchEngine) Suggest(query string, n int) []string {
	q := Normalize(query)
	if q == "" || n <= 0 {
		return nil
	}

	titles := e.store.Titles()
	matches := fuzzy.FindFrom(q, titleSource(titles))
	if len(matches) > n {
		matches = matches[:n]
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = titles[m.Index]
	}
	return out
}
