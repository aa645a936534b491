package wikitext

import (
	"fmt"

	"github.com/corey/dropcache/internal/ports"
)

// herbDrop is one row of the shared herb drop table. Weight is out of
// herbTotalWeight and only feeds the rarity string.
type herbDrop struct {
	name   string
	weight int
}

// herbTable is the fixed herb sub-table rolled by the HerbDropLines macro.
var herbTable = []herbDrop{
	{"guam leaf", 19},
	{"marrentill", 15},
	{"tarromin", 12},
	{"harralander", 9},
	{"ranarr weed", 6},
	{"toadflax", 4},
	{"irit leaf", 4},
	{"avantoe", 3},
	{"kwuarm", 2},
	{"snapdragon", 2},
	{"cadantine", 1},
	{"lantadyme", 1},
	{"dwarf weed", 1},
}

var herbTotalWeight = func() int {
	total := 0
	for _, h := range herbTable {
		total += h.weight
	}
	return total
}()

// seedDrop is one row of the rare seed table.
type seedDrop struct {
	name     string
	rarity   string
	quantity string
}

// seedTable is the fixed rare seed sub-table rolled by the seed macro.
var seedTable = []seedDrop{
	{"Toadflax seed", "1/33.8", "1"},
	{"Irit seed", "1/49.7", "1"},
	{"Belladonna seed", "1/51.3", "1"},
	{"Poison ivy seed", "1/72.3", "1"},
	{"Avantoe seed", "1/72.3", "1"},
	{"Cactus seed", "1/75.7", "1"},
	{"Potato cactus seed", "1/106", "1"},
	{"Kwuarm seed", "1/106", "1"},
	{"Snapdragon seed", "1/159", "1"},
	{"Cadantine seed", "1/227.1", "1"},
	{"Lantadyme seed", "1/318", "1"},
	{"Snape grass seed", "1/397.5", "3"},
	{"Dwarf weed seed", "1/530", "1"},
	{"Torstol seed", "1/794.9", "1"},
}

// expandHerbTable emits one record per herb, each carrying the macro's base
// rate and its share of the herb table.
func expandHerbTable(baseRate, category string) []ports.DropRecord {
	drops := make([]ports.DropRecord, 0, len(herbTable))
	for _, h := range herbTable {
		drops = append(drops, ports.DropRecord{
			Name:     "Grimy " + h.name,
			Quantity: "1-3",
			Rarity:   fmt.Sprintf("%s (%d/%d)", baseRate, h.weight, herbTotalWeight),
			Category: category,
		})
	}
	return drops
}

// expandSeedTable emits one record per seed as "<base> then <fraction>".
func expandSeedTable(baseRate, category string) []ports.DropRecord {
	drops := make([]ports.DropRecord, 0, len(seedTable))
	for _, s := range seedTable {
		drops = append(drops, ports.DropRecord{
			Name:     s.name,
			Quantity: s.quantity,
			Rarity:   baseRate + " then " + s.rarity,
			Category: category,
		})
	}
	return drops
}
