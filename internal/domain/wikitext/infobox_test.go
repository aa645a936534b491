package wikitext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goblinPage = `{{Infobox Monster
|name = Goblin
|image = [[File:Goblin.png|130px]]
|combat = 2
|hitpoints = 5
|examine = An ugly green creature.
}}
'''Goblins''' are common monsters.

==Drops==
===100%===
{{DropsLine|name=Bones|quantity=1|rarity=Always}}
===Weapons and armour===
{{DropsLine|name=Bronze spear|quantity=1|rarity=4/128}}
===Tertiary===
{{DropsLineClue|type=beginner|rarity=1/60}}
`

func TestParseInfobox_Fields(t *testing.T) {
	box := ParseInfobox(goblinPage)
	require.NotNil(t, box.CombatLevel)
	require.NotNil(t, box.Hitpoints)
	assert.Equal(t, 2, *box.CombatLevel)
	assert.Equal(t, 5, *box.Hitpoints)
	assert.Equal(t, "Goblin.png", box.Image)
}

func TestParseInfobox_VersionedFallback(t *testing.T) {
	box := ParseInfobox("{{Infobox Monster\n|combat1 = 13\n|combat2 = 25\n|hitpoints1 = 20 (cows)\n}}")
	require.NotNil(t, box.CombatLevel)
	require.NotNil(t, box.Hitpoints)
	assert.Equal(t, 13, *box.CombatLevel)
	assert.Equal(t, 20, *box.Hitpoints)
}

func TestParseInfobox_Missing(t *testing.T) {
	box := ParseInfobox("no infobox here")
	assert.Nil(t, box.CombatLevel)
	assert.Nil(t, box.Hitpoints)
	assert.Empty(t, box.Image)
}

func TestParseInfobox_NonNumericCombat(t *testing.T) {
	box := ParseInfobox("{{Infobox Monster|combat=N/A}}")
	assert.Nil(t, box.CombatLevel)
}

func TestParsePage_Goblin(t *testing.T) {
	rec := ParsePage("Goblin", goblinPage, "https://oldschool.runescape.wiki")
	assert.Equal(t, "Goblin", rec.Title)
	assert.Equal(t, "https://oldschool.runescape.wiki/w/Goblin", rec.URL)
	assert.True(t, rec.IsMonster())
	require.Len(t, rec.Drops, 3)
	assert.Equal(t, "100%", rec.Drops[0].Category)
	assert.Equal(t, "Weapons and armour", rec.Drops[1].Category)
	assert.Equal(t, "beginner clue scroll", rec.Drops[2].Name)
	assert.Equal(t, TertiaryCategory, rec.Drops[2].Category)
	require.NotNil(t, rec.CombatLevel)
	assert.Equal(t, 2, *rec.CombatLevel)
}

func TestParsePage_NotAMonster(t *testing.T) {
	rec := ParsePage("Lumbridge", "'''Lumbridge''' is a town.", "https://oldschool.runescape.wiki")
	assert.False(t, rec.IsMonster())
}
