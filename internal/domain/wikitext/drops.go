package wikitext

import (
	"regexp"
	"strings"

	"github.com/corey/dropcache/internal/ports"
)

const (
	// UnknownCategory labels drops seen before any section heading.
	UnknownCategory = "Unknown"

	// TertiaryCategory is forced onto every clue scroll drop.
	TertiaryCategory = "Tertiary"

	unknownValue = "Unknown"
)

// headingRe matches a level-3 section heading ("===Weapons==="). A fourth
// "=" on either side makes it a different level and does not match.
var headingRe = regexp.MustCompile(`^===([^=](?:.*[^=])?)===$`)

// declStartRe matches the opening of a drop declaration template up to its
// first "|" or, for a bare {{HerbDropLines}}, its closing "}}". The body is
// then found by a depth scan so parameter values may hold nested templates.
var declStartRe = regexp.MustCompile(`\{\{\s*((?i:DropsLineClue|DropsLine|HerbDropLines|RareSeedDropLines|SeedDropLines))\s*(\||\}\})`)

// ParseDrops scans wiki markup line by line and returns every drop it
// declares, in source order. Section headings set the category of the drops
// that follow. An empty result means the page is not a monster.
func ParseDrops(markup string) []ports.DropRecord {
	var drops []ports.DropRecord
	category := UnknownCategory

	for _, line := range strings.Split(markup, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := headingRe.FindStringSubmatch(line); m != nil {
			category = strings.TrimSpace(m[1])
			continue
		}

		scanDecls(line, func(name, body string) {
			drops = append(drops, expandDecl(name, paramsFromPieces(splitTopLevel(body)), category)...)
		})
	}
	return drops
}

// scanDecls calls fn for each declaration on line, left to right, with the
// template name and the raw text between the name's "|" and the matching
// "}}". An unterminated declaration is skipped.
func scanDecls(line string, fn func(name, body string)) {
	for pos := 0; pos < len(line); {
		loc := declStartRe.FindStringSubmatchIndex(line[pos:])
		if loc == nil {
			return
		}
		name := line[pos+loc[2] : pos+loc[3]]
		after := pos + loc[1]
		if line[pos+loc[4]:pos+loc[5]] == "}}" {
			fn(name, "")
			pos = after
			continue
		}
		end, ok := templateEnd(line, after)
		if !ok {
			pos = after
			continue
		}
		fn(name, line[after:end])
		pos = end + 2
	}
}

// expandDecl turns one matched template into drop records.
func expandDecl(name string, params Params, category string) []ports.DropRecord {
	switch strings.ToLower(name) {
	case "dropsline":
		itemName := params.Get("name", "")
		if itemName == "" {
			return nil
		}
		return []ports.DropRecord{{
			Name:     itemName,
			Quantity: params.Get("quantity", "1"),
			Rarity:   params.Get("rarity", unknownValue),
			Category: category,
		}}

	case "dropslineclue":
		return []ports.DropRecord{{
			Name:     params.Get("type", unknownValue) + " clue scroll",
			Quantity: "1",
			Rarity:   params.Get("rarity", unknownValue),
			Category: TertiaryCategory,
		}}

	case "herbdroplines":
		return expandHerbTable(baseRate(params), category)

	case "rareseeddroplines", "seeddroplines":
		return expandSeedTable(baseRate(params), category)
	}
	return nil
}

// baseRate reads the macro's rate from its first or second positional slot.
func baseRate(params Params) string {
	return params.Get("0", params.Get("1", unknownValue))
}
