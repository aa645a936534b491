package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateKeywords_HillGiant(t *testing.T) {
	kw := GenerateKeywords("Hill Giant")
	for _, want := range []string{"hill giant", "hill", "giant", "gia", "gian"} {
		assert.Contains(t, kw, want)
	}
	assert.Equal(t, "hill giant", kw[0])
}

func TestGenerateKeywords_Prefixes(t *testing.T) {
	assert.Equal(t, []string{"goblin", "gob", "gobl", "gobli"}, GenerateKeywords("Goblin"))
}

func TestGenerateKeywords_ShortWordsNoPrefixes(t *testing.T) {
	kw := GenerateKeywords("Ox of Fire")
	assert.Contains(t, kw, "ox")
	assert.Contains(t, kw, "of")
	assert.NotContains(t, kw, "o")
	assert.Contains(t, kw, "fir")
}

func TestGenerateKeywords_Separators(t *testing.T) {
	kw := GenerateKeywords("Kalphite_Queen (Level-333)")
	assert.Contains(t, kw, "kalphite_queen (level-333)")
	assert.Contains(t, kw, "kalphite")
	assert.Contains(t, kw, "queen")
	assert.Contains(t, kw, "level")
	assert.Contains(t, kw, "333")
	assert.NotContains(t, kw, "")
}

func TestGenerateKeywords_NoDuplicates(t *testing.T) {
	kw := GenerateKeywords("Rat rat")
	seen := map[string]bool{}
	for _, k := range kw {
		assert.False(t, seen[k], "duplicate keyword %q", k)
		seen[k] = true
	}
}

func TestGenerateKeywords_Empty(t *testing.T) {
	assert.Nil(t, GenerateKeywords("   "))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "giant rat", Normalize("  Giant RAT "))
}
