package cache

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// minPrefixLen is the shortest word prefix indexed for prefix search.
const minPrefixLen = 3

// separatorRe splits titles into words on whitespace, hyphen, underscore, parentheses.
var separatorRe = regexp.MustCompile(`[\s\-_()]+`)

// Normalize folds a title or query into keyword space: NFC, trimmed, lowercase.
func Normalize(s string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(s)))
}

// GenerateKeywords derives the search keywords for a title.
// Rules:
//  1. The full normalized title
//  2. Every word, split on [\s\-_()]+
//  3. Every prefix of length >= 3 of each word of length >= 3
//
// Examples:
//
//	"Hill Giant" -> ["hill giant", "hill", "giant", "hil", "gia", "gian"]
//	"Goblin"     -> ["goblin", "gob", "gobl", "gobli"]
//
// The result is deduplicated and keeps first-seen order.
func GenerateKeywords(title string) []string {
	full := Normalize(title)
	if full == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var keywords []string
	add := func(kw string) {
		if _, ok := seen[kw]; ok {
			return
		}
		seen[kw] = struct{}{}
		keywords = append(keywords, kw)
	}

	add(full)
	words := separatorRe.Split(full, -1)
	for _, w := range words {
		if w != "" {
			add(w)
		}
	}
	for _, w := range words {
		runes := []rune(w)
		for n := minPrefixLen; n <= len(runes); n++ {
			add(string(runes[:n]))
		}
	}
	return keywords
}
