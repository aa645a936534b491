// Package wikitext extracts structured drop data from wiki markup.
//
// Only the template forms used by monster pages are understood: drop lines,
// clue drop lines, the herb and rare-seed macros, and the monster infobox.
// Everything else in the markup is ignored. Parsing never fails; malformed
// input degrades to whatever could be recognised.
package wikitext

import (
	"strconv"
	"strings"
)

// Params maps template parameter names to values. Unnamed parameters are
// stored under their position ("0", "1", ...).
type Params map[string]string

// Get returns the value for key, or fallback when the key is missing or blank.
func (p Params) Get(key, fallback string) string {
	if v, ok := p[key]; ok && v != "" {
		return v
	}
	return fallback
}

// ParseParams parses a flat "key=value|key=value|..." parameter string.
//
//	ParseParams("name=Bones|quantity=1|rarity=Always")
//	  -> {"name": "Bones", "quantity": "1", "rarity": "Always"}
//	ParseParams("1/128")
//	  -> {"0": "1/128"}
//
// Only the first "=" separates key from value; later ones stay in the value.
func ParseParams(s string) Params {
	return paramsFromPieces(strings.Split(s, "|"))
}

func paramsFromPieces(pieces []string) Params {
	params := make(Params, len(pieces))
	for i, piece := range pieces {
		if key, value, ok := strings.Cut(piece, "="); ok {
			params[strings.TrimSpace(key)] = strings.TrimSpace(value)
			continue
		}
		// A blank positional is left unset so Get falls through to the
		// next position ({{HerbDropLines||5/128}} reads "1").
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		params[strconv.Itoa(i)] = piece
	}
	return params
}

// splitTopLevel splits s on "|" characters that are not nested inside
// [[links]] or {{templates}}. Used for multi-line templates like the infobox
// whose values routinely contain piped links.
func splitTopLevel(s string) []string {
	var (
		pieces []string
		depth  int
		start  int
	)
	for i := 0; i < len(s); i++ {
		switch {
		case strings.HasPrefix(s[i:], "{{") || strings.HasPrefix(s[i:], "[["):
			depth++
			i++
		case (strings.HasPrefix(s[i:], "}}") || strings.HasPrefix(s[i:], "]]")) && depth > 0:
			depth--
			i++
		case s[i] == '|' && depth == 0:
			pieces = append(pieces, s[start:i])
			start = i + 1
		}
	}
	return append(pieces, s[start:])
}
