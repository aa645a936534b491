package ports

import (
	"net/url"
	"strings"
	"time"
)

// DropRecord is one concrete drop possibility parsed from a drop table.
// Quantity and Rarity are kept exactly as written in the markup ("1-3",
// "1/128 (19/79)", "Always"); consumers parse them lazily.
type DropRecord struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
	Rarity   string `json:"rarity"`
	Category string `json:"category"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// MonsterRecord is the full parsed payload for one wiki title.
// Drops keep the order they appeared in the source markup.
type MonsterRecord struct {
	Title       string       `json:"title"`
	URL         string       `json:"url"`
	Extract     string       `json:"extract,omitempty"`
	Image       string       `json:"image,omitempty"`
	Drops       []DropRecord `json:"drops"`
	CombatLevel *int         `json:"combatLevel,omitempty"`
	Hitpoints   *int         `json:"hitpoints,omitempty"`
}

// IsMonster reports whether the record carries at least one drop.
// Pages without drops are not monsters and are never cached.
func (m *MonsterRecord) IsMonster() bool {
	return m != nil && len(m.Drops) > 0
}

// CacheEntry wraps a MonsterRecord with freshness metadata.
type CacheEntry struct {
	Monster        MonsterRecord `json:"monster"`
	LastUpdated    time.Time     `json:"lastUpdated"`
	ExpiresAt      time.Time     `json:"expiresAt"`
	SearchKeywords []string      `json:"searchKeywords"`
}

// Expired reports whether the entry is stale at the given instant.
func (e *CacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// PageURL derives the canonical page URL for a title: spaces become
// underscores and the result is percent-encoded as a path segment.
//
//	PageURL("https://oldschool.runescape.wiki", "Hill Giant")
//	  -> "https://oldschool.runescape.wiki/w/Hill_Giant"
func PageURL(baseURL, title string) string {
	slug := url.PathEscape(strings.ReplaceAll(strings.TrimSpace(title), " ", "_"))
	return strings.TrimRight(baseURL, "/") + "/w/" + slug
}
