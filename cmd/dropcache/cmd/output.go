package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/corey/dropcache/internal/adapters/socket"
	"github.com/corey/dropcache/internal/ports"
)

// ANSI color codes for terminal output.
const (
	colorReset   = "\033[0m"
	colorBold    = "\033[1m"
	colorCyan    = "\033[36m"
	colorMagenta = "\033[35m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorGray    = "\033[90m"
)

// maxDropsShown caps drops per monster in search listings.
const maxDropsShown = 5

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatSearchResult formats a SearchResult for terminal display.
//
//	⚡ 2 monsters (cache) │ 41µs
//	  Hill Giant  lvl 28  https://oldschool.runescape.wiki/w/Hill_Giant
//	    Big bones ×1  Always  [100%]
//	    ... 31 more
func formatSearchResult(result *socket.SearchResult) string {
	var sb strings.Builder

	source := "cache"
	if !result.FromCache {
		source = "live"
	}
	if result.Count == 0 {
		sb.WriteString(fmt.Sprintf("%s⚡ no results%s │ %s\n", colorBold, colorReset, result.Elapsed))
		if len(result.Suggestions) > 0 {
			sb.WriteString(fmt.Sprintf("  %sdid you mean:%s %s\n", colorGray, colorReset, strings.Join(result.Suggestions, ", ")))
		}
		return sb.String()
	}

	noun := "monsters"
	if result.Count == 1 {
		noun = "monster"
	}
	sb.WriteString(fmt.Sprintf("%s⚡ %d %s%s (%s) │ %s\n", colorBold, result.Count, noun, colorReset, source, result.Elapsed))
	for i := range result.Results {
		writeMonster(&sb, &result.Results[i], maxDropsShown)
	}
	return sb.String()
}

// writeMonster renders one record; limit <= 0 shows every drop.
func writeMonster(sb *strings.Builder, m *ports.MonsterRecord, limit int) {
	sb.WriteString(fmt.Sprintf("  %s%s%s", colorCyan, m.Title, colorReset))
	if m.CombatLevel != nil {
		sb.WriteString(fmt.Sprintf("  %slvl %d%s", colorMagenta, *m.CombatLevel, colorReset))
	}
	if m.Hitpoints != nil {
		sb.WriteString(fmt.Sprintf("  %shp %d%s", colorMagenta, *m.Hitpoints, colorReset))
	}
	sb.WriteString(fmt.Sprintf("  %s%s%s\n", colorGray, m.URL, colorReset))

	shown := m.Drops
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}
	for _, d := range shown {
		sb.WriteString(fmt.Sprintf("    %s ×%s  %s%s%s  %s[%s]%s\n",
			d.Name, d.Quantity, colorYellow, d.Rarity, colorReset, colorGreen, d.Category, colorReset))
	}
	if rest := len(m.Drops) - len(shown); rest > 0 {
		sb.WriteString(fmt.Sprintf("    %s... %d more%s\n", colorGray, rest, colorReset))
	}
}

// formatEntry formats a full cache entry with its freshness metadata.
func formatEntry(e *ports.CacheEntry) string {
	var sb strings.Builder
	writeMonster(&sb, &e.Monster, 0)
	sb.WriteString(fmt.Sprintf("  %supdated %s · expires %s%s\n", colorGray,
		e.LastUpdated.Local().Format(time.DateTime), e.ExpiresAt.Local().Format(time.DateTime), colorReset))
	sb.WriteString(fmt.Sprintf("  %skeywords: %s%s\n", colorGray, strings.Join(e.SearchKeywords, ", "), colorReset))
	return sb.String()
}

// formatStats formats cache statistics for terminal display.
func formatStats(st *socket.StatsResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s⚡ dropcache stats%s\n", colorBold, colorReset))
	sb.WriteString(fmt.Sprintf("  Entries:      %d\n", st.TotalEntries))
	sb.WriteString(fmt.Sprintf("  Keywords:     %d\n", st.KeywordCount))
	sb.WriteString(fmt.Sprintf("  Searches:     %d (%d hits, %d misses)\n", st.TotalSearches, st.CacheHits, st.CacheMisses))
	sb.WriteString(fmt.Sprintf("  Hit rate:     %.1f%%\n", st.CacheHitRate*100))
	sb.WriteString(fmt.Sprintf("  Avg search:   %.3fms\n", st.AverageSearchTimeMs))
	sb.WriteString(fmt.Sprintf("  Evictions:    %d\n", st.Evictions))
	sb.WriteString(fmt.Sprintf("  Expirations:  %d\n", st.Expirations))
	refreshed := "never"
	if !st.LastRefresh.IsZero() {
		refreshed = st.LastRefresh.Local().Format(time.DateTime)
	}
	sb.WriteString(fmt.Sprintf("  Last write:   %s\n", refreshed))
	return sb.String()
}

// formatHealth formats a HealthResult for terminal display.
func formatHealth(h *socket.HealthResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s⚡ dropcache daemon%s\n", colorBold, colorReset))
	sb.WriteString(fmt.Sprintf("  Status:    %s%s%s\n", colorGreen, h.Status, colorReset))
	sb.WriteString(fmt.Sprintf("  Entries:   %d\n", h.Entries))
	sb.WriteString(fmt.Sprintf("  Keywords:  %d\n", h.Keywords))
	sb.WriteString(fmt.Sprintf("  Uptime:    %s\n", h.Uptime))
	if h.DumpDir != "" {
		sb.WriteString(fmt.Sprintf("  Watching:  %s\n", h.DumpDir))
	}
	if h.HTTPAddr != "" {
		sb.WriteString(fmt.Sprintf("  Metrics:   http://%s/metrics\n", h.HTTPAddr))
	}
	if h.LastSave != "" {
		sb.WriteString(fmt.Sprintf("  Saved:     %s\n", h.LastSave))
	}
	return sb.String()
}

// formatIngest formats an ingestion report. Failures are listed sorted.
func formatIngest(r *socket.IngestResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s⚡ ingested %d/%d titles%s │ %d skipped │ %d failed │ %s\n",
		colorBold, r.Stored, r.Titles, colorReset, r.Skipped, len(r.Failed),
		(time.Duration(r.ElapsedMs) * time.Millisecond).String()))
	sb.WriteString(fmt.Sprintf("  %srun %s%s\n", colorGray, r.RunID, colorReset))

	titles := make([]string, 0, len(r.Failed))
	for t := range r.Failed {
		titles = append(titles, t)
	}
	sort.Strings(titles)
	for _, t := range titles {
		sb.WriteString(fmt.Sprintf("  %s✗ %s%s: %s\n", colorYellow, t, colorReset, r.Failed[t]))
	}
	return sb.String()
}

// formatStale lists stale titles.
func formatStale(r *socket.StaleResult, maxAge time.Duration) string {
	var sb strings.Builder
	verb := "older than"
	if r.Removed {
		verb = "removed, older than"
	}
	sb.WriteString(fmt.Sprintf("%s⚡ %d entries %s %s%s\n", colorBold, r.Count, verb, maxAge, colorReset))
	for _, t := range r.Titles {
		sb.WriteString(fmt.Sprintf("  %s%s%s\n", colorCyan, t, colorReset))
	}
	return sb.String()
}

// formatMonster renders a record with every drop.
func formatMonster(m *ports.MonsterRecord) string {
	var sb strings.Builder
	writeMonster(&sb, m, 0)
	return sb.String()
}
