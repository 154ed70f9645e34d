package domain

// rateTable is the static flat-rate shipping table, in minor currency units.
// Values mirror the fulfillment provider's published flat rates; the default
// kind intentionally shares the tee rates.
var rateTable = map[ProductKind]map[RegionKey]RateEntry{
	KindTee: {
		RegionUS:    {FirstUnitCents: 399, AdditionalUnitCents: 158},
		RegionEU:    {FirstUnitCents: 469, AdditionalUnitCents: 149},
		RegionUK:    {FirstUnitCents: 410, AdditionalUnitCents: 122},
		RegionCA:    {FirstUnitCents: 930, AdditionalUnitCents: 281},
		RegionAU:    {FirstUnitCents: 848, AdditionalUnitCents: 256},
		RegionNZ:    {FirstUnitCents: 1022, AdditionalUnitCents: 281},
		RegionSG:    {FirstUnitCents: 650, AdditionalUnitCents: 200},
		RegionJP:    {FirstUnitCents: 700, AdditionalUnitCents: 250},
		RegionBR:    {FirstUnitCents: 1200, AdditionalUnitCents: 400},
		RegionWorld: {FirstUnitCents: 1500, AdditionalUnitCents: 500},
	},
	KindHoodie: {
		RegionUS:    {FirstUnitCents: 739, AdditionalUnitCents: 229},
		RegionEU:    {FirstUnitCents: 752, AdditionalUnitCents: 251},
		RegionUK:    {FirstUnitCents: 565, AdditionalUnitCents: 153},
		RegionCA:    {FirstUnitCents: 901, AdditionalUnitCents: 259},
		RegionAU:    {FirstUnitCents: 806, AdditionalUnitCents: 241},
		RegionNZ:    {FirstUnitCents: 1023, AdditionalUnitCents: 205},
		RegionSG:    {FirstUnitCents: 1473, AdditionalUnitCents: 525},
		RegionJP:    {FirstUnitCents: 1505, AdditionalUnitCents: 536},
		RegionBR:    {FirstUnitCents: 567, AdditionalUnitCents: 284},
		RegionWorld: {FirstUnitCents: 1800, AdditionalUnitCents: 700},
	},
	KindPrint: {
		RegionUS:    {FirstUnitCents: 569, AdditionalUnitCents: 40},
		RegionEU:    {FirstUnitCents: 545, AdditionalUnitCents: 21},
		RegionUK:    {FirstUnitCents: 590, AdditionalUnitCents: 50},
		RegionCA:    {FirstUnitCents: 634, AdditionalUnitCents: 57},
		RegionAU:    {FirstUnitCents: 723, AdditionalUnitCents: 65},
		RegionNZ:    {FirstUnitCents: 508, AdditionalUnitCents: 20},
		RegionSG:    {FirstUnitCents: 606, AdditionalUnitCents: 21},
		RegionJP:    {FirstUnitCents: 1032, AdditionalUnitCents: 27},
		RegionBR:    {FirstUnitCents: 469, AdditionalUnitCents: 18},
		RegionWorld: {FirstUnitCents: 1000, AdditionalUnitCents: 200},
	},
	KindBook: {
		RegionUS:    {FirstUnitCents: 391, AdditionalUnitCents: 154},
		RegionEU:    {FirstUnitCents: 590, AdditionalUnitCents: 237},
		RegionUK:    {FirstUnitCents: 489, AdditionalUnitCents: 197},
		RegionCA:    {FirstUnitCents: 666, AdditionalUnitCents: 265},
		RegionAU:    {FirstUnitCents: 802, AdditionalUnitCents: 319},
		RegionNZ:    {FirstUnitCents: 927, AdditionalUnitCents: 369},
		RegionSG:    {FirstUnitCents: 770, AdditionalUnitCents: 354},
		RegionJP:    {FirstUnitCents: 2731, AdditionalUnitCents: 1089},
		RegionBR:    {FirstUnitCents: 1609, AdditionalUnitCents: 646},
		RegionWorld: {FirstUnitCents: 2000, AdditionalUnitCents: 800},
	},
	KindTote: {
		RegionUS:    {FirstUnitCents: 366, AdditionalUnitCents: 184},
		RegionEU:    {FirstUnitCents: 501, AdditionalUnitCents: 157},
		RegionUK:    {FirstUnitCents: 431, AdditionalUnitCents: 135},
		RegionCA:    {FirstUnitCents: 575, AdditionalUnitCents: 160},
		RegionAU:    {FirstUnitCents: 596, AdditionalUnitCents: 110},
		RegionNZ:    {FirstUnitCents: 689, AdditionalUnitCents: 128},
		RegionSG:    {FirstUnitCents: 1302, AdditionalUnitCents: 312},
		RegionJP:    {FirstUnitCents: 1124, AdditionalUnitCents: 269},
		RegionBR:    {FirstUnitCents: 416, AdditionalUnitCents: 231},
		RegionWorld: {FirstUnitCents: 1500, AdditionalUnitCents: 500},
	},
	KindDefault: {
		RegionUS:    {FirstUnitCents: 399, AdditionalUnitCents: 158},
		RegionEU:    {FirstUnitCents: 469, AdditionalUnitCents: 149},
		RegionUK:    {FirstUnitCents: 410, AdditionalUnitCents: 122},
		RegionCA:    {FirstUnitCents: 930, AdditionalUnitCents: 281},
		RegionAU:    {FirstUnitCents: 848, AdditionalUnitCents: 256},
		RegionNZ:    {FirstUnitCents: 1022, AdditionalUnitCents: 281},
		RegionSG:    {FirstUnitCents: 650, AdditionalUnitCents: 200},
		RegionJP:    {FirstUnitCents: 700, AdditionalUnitCents: 250},
		RegionBR:    {FirstUnitCents: 1200, AdditionalUnitCents: 400},
		RegionWorld: {FirstUnitCents: 1500, AdditionalUnitCents: 500},
	},
}

// RateFor resolves the rate entry for a (kind, region) pair, falling back to
// the default kind and then the world region when the specific combination is
// absent. It always returns a usable entry.
func RateFor(kind ProductKind, region RegionKey) RateEntry {
	table, ok := rateTable[kind]
	if !ok {
		table = rateTable[KindDefault]
	}
	if entry, ok := table[region]; ok {
		return entry
	}
	if entry, ok := rateTable[KindDefault][region]; ok {
		return entry
	}
	return rateTable[KindDefault][RegionWorld]
}
