package cache

import "sort"

// KeywordIndex is an inverted index from keyword to the titles holding it.
// It only stores back-references; RecordStore decides whether a title is live.
// Not safe for concurrent use on its own: RecordStore guards it.
type KeywordIndex struct {
	keywords map[string]map[string]struct{}
}

// NewKeywordIndex creates an empty index.
func NewKeywordIndex() *KeywordIndex {
	return &KeywordIndex{keywords: make(map[string]map[string]struct{})}
}

// AddTitle records that title holds keyword. Adding twice is a no-op.
func (ki *KeywordIndex) AddTitle(keyword, title string) {
	titles, ok := ki.keywords[keyword]
	if !ok {
		titles = make(map[string]struct{})
		ki.keywords[keyword] = titles
	}
	titles[title] = struct{}{}
}

// RemoveTitle drops title from keyword's set, deleting the keyword once empty.
func (ki *KeywordIndex) RemoveTitle(keyword, title string) {
	titles, ok := ki.keywords[keyword]
	if !ok {
		return
	}
	delete(titles, title)
	if len(titles) == 0 {
		delete(ki.keywords, keyword)
	}
}

// Titles returns the titles holding keyword, sorted.
func (ki *KeywordIndex) Titles(keyword string) []string {
	titles := ki.keywords[keyword]
	out := make([]string, 0, len(titles))
	for t := range titles {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of distinct keywords.
func (ki *KeywordIndex) Len() int {
	return len(ki.keywords)
}

// Entries calls fn once per keyword, in ascending keyword order, with its
// title set. fn must not mutate the set. Iteration stops early when fn
// returns false.
func (ki *KeywordIndex) Entries(fn func(keyword string, titles map[string]struct{}) bool) {
	keys := make([]string, 0, len(ki.keywords))
	for kw := range ki.keywords {
		keys = append(keys, kw)
	}
	sort.Strings(keys)
	for _, kw := range keys {
		if !fn(kw, ki.keywords[kw]) {
			return
		}
	}
}

func (ki *KeywordIndex) addAll(keywords []string, title string) {
	for _, kw := range keywords {
		ki.AddTitle(kw, title)
	}
}

func (ki *KeywordIndex) removeAll(keywords []string, title string) {
	for _, kw := range keywords {
		ki.RemoveTitle(kw, title)
	}
}

func (ki *KeywordIndex) clear() {
	ki.keywords = make(map[string]map[string]struct{})
}
