package wikitext

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/corey/dropcache/internal/ports"
)

// Infobox holds the monster infobox fields the cache keeps.
type Infobox struct {
	CombatLevel *int
	Hitpoints   *int
	Image       string
}

var (
	infoboxStartRe = regexp.MustCompile(`(?i)\{\{\s*Infobox[ _]Monster`)
	leadingIntRe   = regexp.MustCompile(`^\d+`)
	fileLinkRe     = regexp.MustCompile(`(?i)\[\[\s*File:([^|\]]+)`)
)

// ParseInfobox reads the first {{Infobox Monster}} in markup. Versioned
// infoboxes ("combat1", "hitpoints1") fall back to their first version.
// Returns the zero Infobox if there is none.
func ParseInfobox(markup string) Infobox {
	body, ok := infoboxBody(markup)
	if !ok {
		return Infobox{}
	}

	pieces := splitTopLevel(body)
	if len(pieces) > 0 {
		// Drop the template name.
		pieces = pieces[1:]
	}
	params := paramsFromPieces(pieces)

	var box Infobox
	box.CombatLevel = leadingInt(params.Get("combat", params.Get("combat1", "")))
	box.Hitpoints = leadingInt(params.Get("hitpoints", params.Get("hitpoints1", "")))

	image := params.Get("image", params.Get("image1", ""))
	if m := fileLinkRe.FindStringSubmatch(image); m != nil {
		image = strings.TrimSpace(m[1])
	}
	box.Image = image
	return box
}

// infoboxBody returns the text between the infobox's "{{" and its matching "}}".
func infoboxBody(markup string) (string, bool) {
	loc := infoboxStartRe.FindStringIndex(markup)
	if loc == nil {
		return "", false
	}
	start := loc[0] + 2
	end, ok := templateEnd(markup, start)
	if !ok {
		return "", false
	}
	return markup[start:end], true
}

// templateEnd returns the index of the "}}" closing a template whose body
// starts at start, skipping over nested templates.
func templateEnd(s string, start int) (int, bool) {
	depth := 1
	for i := start; i < len(s)-1; i++ {
		switch s[i : i+2] {
		case "{{":
			depth++
			i++
		case "}}":
			depth--
			if depth == 0 {
				return i, true
			}
			i++
		}
	}
	return 0, false
}

func leadingInt(s string) *int {
	m := leadingIntRe.FindString(strings.TrimSpace(s))
	if m == "" {
		return nil
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return nil
	}
	return &n
}

// ParsePage assembles a MonsterRecord for title from its raw markup.
// The record is a monster only if it has drops; callers check IsMonster.
func ParsePage(title, markup, baseURL string) ports.MonsterRecord {
	title = strings.TrimSpace(title)
	box := ParseInfobox(markup)
	return ports.MonsterRecord{
		Title:       title,
		URL:         ports.PageURL(baseURL, title),
		Image:       box.Image,
		Drops:       ParseDrops(markup),
		CombatLevel: box.CombatLevel,
		Hitpoints:   box.Hitpoints,
	}
}
