package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeywordIndex_AddIsIdempotent(t *testing.T) {
	ki := NewKeywordIndex()
	ki.AddTitle("gob", "Goblin")
	ki.AddTitle("gob", "Goblin")
	assert.Equal(t, []string{"Goblin"}, ki.Titles("gob"))
}

func TestKeywordIndex_RemoveDeletesEmptyKeyword(t *testing.T) {
	ki := NewKeywordIndex()
	ki.AddTitle("gob", "Goblin")
	ki.AddTitle("gob", "Gobbler")
	ki.RemoveTitle("gob", "Goblin")
	assert.Equal(t, 1, ki.Len())

	ki.RemoveTitle("gob", "Gobbler")
	assert.Equal(t, 0, ki.Len())
	assert.Empty(t, ki.Titles("gob"))
}

func TestKeywordIndex_RemoveMissingIsNoop(t *testing.T) {
	ki := NewKeywordIndex()
	ki.RemoveTitle("nothing", "Nobody")
	assert.Equal(t, 0, ki.Len())
}

func TestKeywordIndex_EntriesStopsEarly(t *testing.T) {
	ki := NewKeywordIndex()
	ki.AddTitle("a", "A")
	ki.AddTitle("b", "B")
	ki.AddTitle("c", "C")

	visits := 0
	ki.Entries(func(string, map[string]struct{}) bool {
		visits++
		return false
	})
	assert.Equal(t, 1, visits)
}

func TestKeywordIndex_EntriesInKeywordOrder(t *testing.T) {
	ki := NewKeywordIndex()
	for _, kw := range []string{"mon", "gob", "zz", "a"} {
		ki.AddTitle(kw, "T")
	}

	var seen []string
	ki.Entries(func(kw string, _ map[string]struct{}) bool {
		seen = append(seen, kw)
		return true
	})
	assert.Equal(t, []string{"a", "gob", "mon", "zz"}, seen)
}
